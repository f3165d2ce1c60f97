package messaging

import (
	"strings"
	"testing"
)

func TestRender_BookingConfirmed(t *testing.T) {
	subject, body, err := Render("booking_confirmed", map[string]any{
		"CustomerName":  "Jane Doe",
		"ScheduledDate": "2026-08-01",
		"ScheduledTime": "9:00 AM",
		"BookingURL":    "https://example.com/i/abc",
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(subject, "2026-08-01") {
		t.Errorf("subject = %q, want it to contain the scheduled date", subject)
	}
	if !strings.Contains(body, "Jane Doe") || !strings.Contains(body, "https://example.com/i/abc") {
		t.Errorf("body = %q, missing expected fields", body)
	}
}

func TestRender_AllRegisteredKinds(t *testing.T) {
	kinds := []string{"booking_confirmed", "deposit_receipt", "invoice_ready", "worker_assigned"}
	for _, k := range kinds {
		t.Run(k, func(t *testing.T) {
			subject, body, err := Render(k, map[string]any{})
			if err != nil {
				t.Fatalf("Render(%q) error = %v", k, err)
			}
			if subject == "" || body == "" {
				t.Errorf("Render(%q) returned empty subject/body", k)
			}
		})
	}
}

func TestRender_UnknownKind(t *testing.T) {
	if _, _, err := Render("no_such_kind", nil); err == nil {
		t.Error("Render() with an unregistered kind should return an error")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is definitely too long", 10, "this is..."},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
