package ratelimit

import (
	"net/http/httptest"
	"net/netip"
	"testing"
)

func mustPrefix(t *testing.T, s string) netip.Prefix {
	t.Helper()
	p, err := netip.ParsePrefix(s)
	if err != nil {
		t.Fatalf("ParsePrefix(%q) error = %v", s, err)
	}
	return p
}

func TestClientIP_UntrustedPeerIgnoresXFF(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "203.0.113.9:1234"
	r.Header.Set("X-Forwarded-For", "10.0.0.1")

	got := ClientIP(r, nil)
	if want := "203.0.113.9"; got != want {
		t.Errorf("ClientIP() = %q, want %q (no trusted proxies configured)", got, want)
	}
}

func TestClientIP_TrustedProxyHonorsXFF(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.5:1234"
	r.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.5")

	trusted := []netip.Prefix{mustPrefix(t, "10.0.0.0/8")}
	got := ClientIP(r, trusted)
	if want := "198.51.100.7"; got != want {
		t.Errorf("ClientIP() = %q, want %q", got, want)
	}
}

func TestClientIP_TrustedProxyFallsBackToXRealIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.5:1234"
	r.Header.Set("X-Real-IP", "198.51.100.7")

	trusted := []netip.Prefix{mustPrefix(t, "10.0.0.0/8")}
	got := ClientIP(r, trusted)
	if want := "198.51.100.7"; got != want {
		t.Errorf("ClientIP() = %q, want %q", got, want)
	}
}

func TestClientIP_UntrustedPeerNotInPrefix(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "203.0.113.9:1234"
	r.Header.Set("X-Forwarded-For", "198.51.100.7")

	trusted := []netip.Prefix{mustPrefix(t, "10.0.0.0/8")}
	got := ClientIP(r, trusted)
	if want := "203.0.113.9"; got != want {
		t.Errorf("ClientIP() = %q, want %q (peer not in trusted prefix)", got, want)
	}
}

func TestParseCIDRs(t *testing.T) {
	got, err := ParseCIDRs("10.0.0.0/8, 192.168.0.0/16,,  172.16.0.0/12")
	if err != nil {
		t.Fatalf("ParseCIDRs() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ParseCIDRs() returned %d prefixes, want 3: %v", len(got), got)
	}
}

func TestParseCIDRs_Empty(t *testing.T) {
	got, err := ParseCIDRs("")
	if err != nil {
		t.Fatalf("ParseCIDRs(\"\") error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ParseCIDRs(\"\") returned %d prefixes, want 0", len(got))
	}
}

func TestParseCIDRs_Invalid(t *testing.T) {
	if _, err := ParseCIDRs("not-a-cidr"); err == nil {
		t.Error("ParseCIDRs(\"not-a-cidr\") expected an error, got nil")
	}
}
