package lead

import (
	"strings"
	"testing"
)

func TestRandomCode_LengthAndAlphabet(t *testing.T) {
	code, err := randomCode()
	if err != nil {
		t.Fatalf("randomCode() error = %v", err)
	}
	if len(code) != ReferralCodeLength {
		t.Errorf("len(code) = %d, want %d", len(code), ReferralCodeLength)
	}
	for _, r := range code {
		if !strings.ContainsRune(referralCodeAlphabet, r) {
			t.Errorf("code %q contains rune %q outside referralCodeAlphabet", code, r)
		}
	}
}

func TestRandomCode_Varies(t *testing.T) {
	a, err := randomCode()
	if err != nil {
		t.Fatalf("randomCode() error = %v", err)
	}
	b, err := randomCode()
	if err != nil {
		t.Fatalf("randomCode() error = %v", err)
	}
	if a == b {
		t.Errorf("two calls to randomCode() produced the same code %q; expected randomness", a)
	}
}

func TestNormalizeCode(t *testing.T) {
	tests := []struct{ in, want string }{
		{"abc123", "ABC123"},
		{"ABC123", "ABC123"},
		{"AbC-12", "ABC-12"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeCode(tt.in); got != tt.want {
			t.Errorf("normalizeCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
