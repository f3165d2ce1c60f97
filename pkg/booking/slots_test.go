package booking

import (
	"testing"
	"time"
)

func TestCandidateSlots(t *testing.T) {
	from := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC)

	got := CandidateSlots(from, to, 60)

	want := []time.Time{
		time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC),
		time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
	}
	if len(got) != len(want) {
		t.Fatalf("CandidateSlots returned %d slots, want %d: %v", len(got), len(want), got)
	}
	for i, w := range want {
		if !got[i].Equal(w) {
			t.Errorf("slot[%d] = %v, want %v", i, got[i], w)
		}
	}
}

func TestCandidateSlots_NoRoomForDuration(t *testing.T) {
	from := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC)

	got := CandidateSlots(from, to, 60)
	if len(got) != 0 {
		t.Errorf("CandidateSlots returned %d slots, want 0 when duration exceeds window", len(got))
	}
}

func TestCandidateSlots_EmptyWindow(t *testing.T) {
	from := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	got := CandidateSlots(from, from, 30)
	if len(got) != 0 {
		t.Errorf("CandidateSlots on empty window returned %d slots, want 0", len(got))
	}
}
