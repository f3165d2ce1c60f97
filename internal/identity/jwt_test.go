package identity

import (
	"strings"
	"testing"
	"time"
)

func testSessionManager(t *testing.T) *SessionManager {
	t.Helper()
	sm, err := NewSessionManager(strings.Repeat("a", 32))
	if err != nil {
		t.Fatalf("NewSessionManager() error = %v", err)
	}
	return sm
}

func TestNewSessionManager_RejectsShortSecret(t *testing.T) {
	if _, err := NewSessionManager("too-short"); err == nil {
		t.Error("NewSessionManager() with a <32-byte secret should fail")
	}
}

func TestIssueAndValidateAccessToken_RoundTrip(t *testing.T) {
	sm := testSessionManager(t)
	claims := AccessClaims{Subject: "user-1", OrgID: "org-1", Role: "owner", SessionID: "sess-1"}

	token, err := sm.IssueAccessToken(claims, time.Hour)
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}

	got, err := sm.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken() error = %v", err)
	}
	if got.Subject != claims.Subject || got.OrgID != claims.OrgID || got.Role != claims.Role || got.SessionID != claims.SessionID {
		t.Errorf("ValidateAccessToken() = %+v, want %+v", got, claims)
	}
}

func TestValidateAccessToken_Expired(t *testing.T) {
	sm := testSessionManager(t)
	token, err := sm.IssueAccessToken(AccessClaims{Subject: "user-1"}, -time.Minute)
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}
	if _, err := sm.ValidateAccessToken(token); err == nil {
		t.Error("ValidateAccessToken() on an expired token should fail")
	}
}

func TestValidateAccessToken_WrongKeyRejected(t *testing.T) {
	sm1 := testSessionManager(t)
	sm2, err := NewSessionManager(strings.Repeat("b", 32))
	if err != nil {
		t.Fatalf("NewSessionManager() error = %v", err)
	}

	token, err := sm1.IssueAccessToken(AccessClaims{Subject: "user-1"}, time.Hour)
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}
	if _, err := sm2.ValidateAccessToken(token); err == nil {
		t.Error("ValidateAccessToken() with a different signing key should fail")
	}
}

func TestValidateAccessToken_Malformed(t *testing.T) {
	sm := testSessionManager(t)
	if _, err := sm.ValidateAccessToken("not-a-jwt"); err == nil {
		t.Error("ValidateAccessToken() on a malformed token should fail")
	}
}

func TestGenerateDevSecret_Length(t *testing.T) {
	s := GenerateDevSecret()
	if len(s) != 64 {
		t.Errorf("GenerateDevSecret() length = %d, want 64 (32 bytes hex-encoded)", len(s))
	}
	if _, err := NewSessionManager(s); err != nil {
		t.Errorf("NewSessionManager(GenerateDevSecret()) error = %v", err)
	}
}
