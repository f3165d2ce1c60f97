package team

import (
	"testing"
	"time"
)

func TestBlackout_Overlaps(t *testing.T) {
	b := Blackout{
		StartsAt: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	tests := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{
			"fully inside blackout",
			time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
			time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC),
			true,
		},
		{
			"straddles blackout start",
			time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC),
			time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
			true,
		},
		{
			"straddles blackout end",
			time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC),
			time.Date(2026, 8, 1, 13, 0, 0, 0, time.UTC),
			true,
		},
		{
			"entirely before",
			time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC),
			time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC),
			false,
		},
		{
			"entirely after",
			time.Date(2026, 8, 1, 13, 0, 0, 0, time.UTC),
			time.Date(2026, 8, 1, 14, 0, 0, 0, time.UTC),
			false,
		},
		{
			"adjacent, touching end exactly",
			time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
			time.Date(2026, 8, 1, 13, 0, 0, 0, time.UTC),
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.Overlaps(tt.start, tt.end); got != tt.want {
				t.Errorf("Overlaps(%v, %v) = %v, want %v", tt.start, tt.end, got, tt.want)
			}
		})
	}
}
