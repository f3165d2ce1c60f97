// Package webhookverify provides HMAC signature verification for inbound
// webhooks (the payment provider's deposit/payment callbacks) and outbound
// export-webhook secrets, generalized from the chat-platform signing-secret
// checks the teacher used for Slack and Mattermost.
package webhookverify

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// VerifyHMACSignature checks that signatureHeader is a valid hex-encoded
// HMAC-SHA256 of body under secret. The header may carry a "sha256=" prefix,
// which is stripped before the constant-time comparison.
func VerifyHMACSignature(secret string, body []byte, signatureHeader string) error {
	sig := strings.TrimPrefix(signatureHeader, "sha256=")
	if sig == "" {
		return fmt.Errorf("missing signature")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

// Middleware verifies a request's HMAC signature header before passing it on.
// If secret is empty, verification is skipped (dev mode). The request body
// is replaced with a re-readable copy so downstream handlers can still
// decode it. onInvalid, if non-nil, is called once per rejected request —
// callers use it to increment a labeled failure counter without this
// package needing to know about any particular metrics backend.
func Middleware(secret, headerName string, onInvalid func()) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				http.Error(w, "failed to read body", http.StatusBadRequest)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			if err := VerifyHMACSignature(secret, body, r.Header.Get(headerName)); err != nil {
				if onInvalid != nil {
					onInvalid()
				}
				http.Error(w, "invalid signature", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SignQuery computes an HMAC-SHA256 signature for query-string signing
// (used by the CDN storage backend to produce signed download URLs).
func SignQuery(secret, canonical string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}
