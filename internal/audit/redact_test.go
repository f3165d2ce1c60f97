package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestRedactText_Email(t *testing.T) {
	got := redactText("contact me at jane.doe@example.com about the booking")
	if strings.Contains(got, "jane.doe@example.com") {
		t.Errorf("redactText left email intact: %q", got)
	}
}

func TestRedactText_Phone(t *testing.T) {
	got := redactText("call (555) 123-4567 to confirm")
	if strings.Contains(got, "123-4567") {
		t.Errorf("redactText left phone intact: %q", got)
	}
}

func TestRedactURL_SignedQueryToken(t *testing.T) {
	got := redactURL("https://cdn.example.com/orders/abc.jpg?X-Amz-Signature=deadbeef&expires=123")
	if strings.Contains(got, "deadbeef") {
		t.Errorf("redactURL left signature intact: %q", got)
	}
	if !strings.Contains(got, "expires=123") {
		t.Errorf("redactURL should preserve non-sensitive params: %q", got)
	}
}

func TestRedactingHandler_ScrubsAttributesAndMessage(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(NewRedactingHandler(base))

	logger.Info("lead contact jane.doe@example.com",
		"authorization", "Bearer supersecret",
		"address", "123 Main St",
	)

	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("unmarshaling log line: %v", err)
	}
	if msg, _ := out["msg"].(string); strings.Contains(msg, "jane.doe@example.com") {
		t.Errorf("message should be redacted, got %q", msg)
	}
	if auth, _ := out["authorization"].(string); auth != "[redacted]" {
		t.Errorf("authorization = %q, want [redacted]", auth)
	}
	if addr, _ := out["address"].(string); addr != "[redacted-address]" {
		t.Errorf("address = %q, want [redacted-address]", addr)
	}
}

func TestRedactingHandler_WithAttrsScrubs(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(NewRedactingHandler(base)).With("authorization", "Bearer supersecret")

	logger.Info("request handled")

	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("unmarshaling log line: %v", err)
	}
	if auth, _ := out["authorization"].(string); auth != "[redacted]" {
		t.Errorf("authorization = %q, want [redacted]", auth)
	}
}

func TestRedactingHandler_EnabledDelegates(t *testing.T) {
	base := slog.NewJSONHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	h := NewRedactingHandler(base)
	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug level to be disabled when base handler is warn+")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("expected error level to be enabled")
	}
}
