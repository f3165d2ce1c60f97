package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestHashPassword_VerifyRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	ok, rehash := VerifyPassword(hash, "correct-horse-battery-staple")
	if !ok {
		t.Fatal("VerifyPassword() = false, want true for matching password")
	}
	if rehash != "" {
		t.Errorf("VerifyPassword() rehash = %q, want empty for a current-scheme hash", rehash)
	}
}

func TestVerifyPassword_WrongPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	ok, _ := VerifyPassword(hash, "wrong-password")
	if ok {
		t.Error("VerifyPassword() = true, want false for a mismatched password")
	}
}

func legacyHash(salt, plain string) string {
	h := sha256.New()
	h.Write([]byte(salt))
	h.Write([]byte(plain))
	return "sha256$" + hex.EncodeToString([]byte(salt)) + "$" + hex.EncodeToString(h.Sum(nil))
}

func TestVerifyPassword_LegacySchemeUpgrades(t *testing.T) {
	stored := legacyHash("somesalt", "tr0ub4dor&3")

	ok, rehash := VerifyPassword(stored, "tr0ub4dor&3")
	if !ok {
		t.Fatal("VerifyPassword() = false, want true for a correct legacy password")
	}
	if rehash == "" {
		t.Fatal("VerifyPassword() rehash is empty, want a fresh bcrypt hash to persist")
	}

	ok2, rehash2 := VerifyPassword(rehash, "tr0ub4dor&3")
	if !ok2 {
		t.Error("VerifyPassword() on the rehashed value = false, want true")
	}
	if rehash2 != "" {
		t.Errorf("VerifyPassword() on the rehashed value produced another rehash %q, want empty", rehash2)
	}
}

func TestVerifyPassword_LegacySchemeWrongPassword(t *testing.T) {
	stored := legacyHash("somesalt", "tr0ub4dor&3")
	ok, rehash := VerifyPassword(stored, "wrong")
	if ok {
		t.Error("VerifyPassword() = true, want false for a wrong legacy password")
	}
	if rehash != "" {
		t.Errorf("VerifyPassword() rehash = %q, want empty on mismatch", rehash)
	}
}

func TestDummyHash_DoesNotVerify(t *testing.T) {
	ok, _ := VerifyPassword(DummyHash, "anything")
	if ok {
		t.Error("DummyHash should never verify against any plaintext")
	}
}
