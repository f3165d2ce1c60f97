package audit

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\d[\d().\-\s]{7,}\d`)
)

// signedQueryParams are query keys whose values are bearer-style tokens
// regardless of casing (presigned URLs, CDN tokens).
var signedQueryParams = map[string]bool{
	"signature":            true,
	"sig":                  true,
	"token":                true,
	"x-amz-signature":      true,
	"x-amz-credential":     true,
	"x-amz-security-token": true,
}

// redactText masks email addresses and phone-number-shaped substrings found
// anywhere in free text (log messages, error strings).
func redactText(s string) string {
	s = emailPattern.ReplaceAllString(s, "[redacted-email]")
	s = phonePattern.ReplaceAllString(s, "[redacted-phone]")
	return s
}

// redactURL masks signed-URL query tokens and returns the scrubbed string.
// Values that don't parse as a URL are returned through redactText instead,
// since they're most likely a plain address or free-text field.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return redactText(raw)
	}
	q := u.Query()
	changed := false
	for key := range q {
		if signedQueryParams[strings.ToLower(key)] {
			q.Set(key, "[redacted]")
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	return redactText(u.String())
}

// redactValue scrubs a single attribute value, recognizing known sensitive
// keys (auth headers, addresses) by name and falling back to pattern
// matching on everything else.
func redactValue(key string, v slog.Value) slog.Value {
	lower := strings.ToLower(key)
	switch {
	case lower == "authorization" || strings.Contains(lower, "auth_header"):
		return slog.StringValue("[redacted]")
	case strings.Contains(lower, "address"):
		return slog.StringValue("[redacted-address]")
	case strings.Contains(lower, "url") || strings.Contains(lower, "link"):
		if v.Kind() == slog.KindString {
			return slog.StringValue(redactURL(v.String()))
		}
	}
	if v.Kind() == slog.KindString {
		return slog.StringValue(redactText(v.String()))
	}
	return v
}

// RedactingHandler wraps a slog.Handler, scrubbing PII and secrets from the
// message and every attribute before the record reaches the wrapped
// handler. Grounded on the teacher's clientIP header-parsing style, applied
// here to pattern-matching instead of header lookup.
type RedactingHandler struct {
	next slog.Handler
}

// NewRedactingHandler wraps next with PII/secret redaction.
func NewRedactingHandler(next slog.Handler) *RedactingHandler {
	return &RedactingHandler{next: next}
}

// Enabled implements slog.Handler.
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler, scrubbing the message and every attribute.
func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	scrubbed := slog.NewRecord(r.Time, r.Level, redactText(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		scrubbed.AddAttrs(slog.Attr{Key: a.Key, Value: redactValue(a.Key, a.Value)})
		return true
	})
	return h.next.Handle(ctx, scrubbed)
}

// WithAttrs implements slog.Handler.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	scrubbed := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		scrubbed[i] = slog.Attr{Key: a.Key, Value: redactValue(a.Key, a.Value)}
	}
	return &RedactingHandler{next: h.next.WithAttrs(scrubbed)}
}

// WithGroup implements slog.Handler.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{next: h.next.WithGroup(name)}
}
