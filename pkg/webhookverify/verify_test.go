package webhookverify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyHMACSignature_Valid(t *testing.T) {
	body := []byte(`{"event":"payment.succeeded"}`)
	sig := sign("secret", body)
	if err := VerifyHMACSignature("secret", body, sig); err != nil {
		t.Errorf("VerifyHMACSignature() error = %v, want nil", err)
	}
}

func TestVerifyHMACSignature_AcceptsSha256Prefix(t *testing.T) {
	body := []byte(`{"event":"payment.succeeded"}`)
	sig := "sha256=" + sign("secret", body)
	if err := VerifyHMACSignature("secret", body, sig); err != nil {
		t.Errorf("VerifyHMACSignature() error = %v, want nil", err)
	}
}

func TestVerifyHMACSignature_WrongSecret(t *testing.T) {
	body := []byte(`{"event":"payment.succeeded"}`)
	sig := sign("secret", body)
	if err := VerifyHMACSignature("other-secret", body, sig); err == nil {
		t.Error("VerifyHMACSignature() with wrong secret should fail")
	}
}

func TestVerifyHMACSignature_TamperedBody(t *testing.T) {
	sig := sign("secret", []byte(`{"event":"payment.succeeded"}`))
	if err := VerifyHMACSignature("secret", []byte(`{"event":"payment.refunded"}`), sig); err == nil {
		t.Error("VerifyHMACSignature() with tampered body should fail")
	}
}

func TestVerifyHMACSignature_MissingHeader(t *testing.T) {
	if err := VerifyHMACSignature("secret", []byte("body"), ""); err == nil {
		t.Error("VerifyHMACSignature() with empty signature should fail")
	}
}

func TestMiddleware_RejectsInvalidSignature(t *testing.T) {
	invalidCalls := 0
	mw := Middleware("secret", "X-Signature", func() { invalidCalls++ })

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not run on an invalid signature")
	})

	r := httptest.NewRequest("POST", "/webhook", strings.NewReader(`{"a":1}`))
	r.Header.Set("X-Signature", "deadbeef")
	w := httptest.NewRecorder()

	mw(next).ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if invalidCalls != 1 {
		t.Errorf("onInvalid called %d times, want 1", invalidCalls)
	}
}

func TestMiddleware_PassesValidSignatureAndPreservesBody(t *testing.T) {
	mw := Middleware("secret", "X-Signature", nil)
	body := `{"a":1}`

	var gotBody string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b := make([]byte, len(body))
		r.Body.Read(b)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	})

	r := httptest.NewRequest("POST", "/webhook", strings.NewReader(body))
	r.Header.Set("X-Signature", sign("secret", []byte(body)))
	w := httptest.NewRecorder()

	mw(next).ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotBody != body {
		t.Errorf("downstream handler read body %q, want %q", gotBody, body)
	}
}

func TestMiddleware_SkipsVerificationWhenSecretEmpty(t *testing.T) {
	mw := Middleware("", "X-Signature", func() { t.Error("onInvalid should not be called when verification is skipped") })
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	r := httptest.NewRequest("POST", "/webhook", strings.NewReader("anything"))
	w := httptest.NewRecorder()
	mw(next).ServeHTTP(w, r)

	if !called {
		t.Error("next handler should run when secret is empty (dev mode)")
	}
}

func TestSignQuery_Deterministic(t *testing.T) {
	a := SignQuery("key", "download:orgs/1/photo.jpg:1700000000")
	b := SignQuery("key", "download:orgs/1/photo.jpg:1700000000")
	if a != b {
		t.Error("SignQuery is not deterministic for identical inputs")
	}
	if SignQuery("key", "a") == SignQuery("key", "b") {
		t.Error("SignQuery produced the same signature for different canonical strings")
	}
}
