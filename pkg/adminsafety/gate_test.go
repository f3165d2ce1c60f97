package adminsafety

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
)

func TestGate_Middleware_ReadAllowedThroughCIDRAllowlist(t *testing.T) {
	allowed := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}
	g := NewGate(nil, nil, nil, allowed)

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	r := httptest.NewRequest(http.MethodGet, "/v1/admin/bookings", nil)
	r.RemoteAddr = "10.1.2.3:1234"
	w := httptest.NewRecorder()

	g.Middleware(next).ServeHTTP(w, r)

	if !called {
		t.Error("GET from an allowlisted address should reach the next handler")
	}
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestGate_Middleware_RejectsOutsideCIDRAllowlist(t *testing.T) {
	allowed := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}
	g := NewGate(nil, nil, nil, allowed)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not run for a caller outside the allowlist")
	})

	r := httptest.NewRequest(http.MethodGet, "/v1/admin/bookings", nil)
	r.RemoteAddr = "203.0.113.9:1234"
	w := httptest.NewRecorder()

	g.Middleware(next).ServeHTTP(w, r)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestGate_Middleware_NoAllowlistPassesThrough(t *testing.T) {
	g := NewGate(nil, nil, nil, nil)

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	r := httptest.NewRequest(http.MethodGet, "/v1/admin/bookings", nil)
	r.RemoteAddr = "203.0.113.9:1234"
	w := httptest.NewRecorder()

	g.Middleware(next).ServeHTTP(w, r)

	if !called {
		t.Error("with no allowlist configured, every caller should pass the CIDR check")
	}
}

func TestGate_Middleware_WriteWithoutIdentityIsUnauthorized(t *testing.T) {
	g := NewGate(nil, nil, nil, nil)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not run for a write with no authenticated identity")
	})

	r := httptest.NewRequest(http.MethodPost, "/v1/admin/bookings", nil)
	w := httptest.NewRecorder()

	g.Middleware(next).ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestIsWriteMethod(t *testing.T) {
	writes := []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}
	for _, m := range writes {
		if !isWriteMethod(m) {
			t.Errorf("isWriteMethod(%s) = false, want true", m)
		}
	}
	reads := []string{http.MethodGet, http.MethodHead, http.MethodOptions}
	for _, m := range reads {
		if isWriteMethod(m) {
			t.Errorf("isWriteMethod(%s) = true, want false", m)
		}
	}
}
