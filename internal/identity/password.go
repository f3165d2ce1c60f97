package identity

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// passwordScheme distinguishes the hash encoding stored in users.password_hash
// so a legacy scheme can be verified and transparently upgraded.
type passwordScheme int

const (
	schemeBcrypt passwordScheme = iota
	schemeLegacySHA256
)

// legacyPrefix marks a password hash produced by the pre-bcrypt scheme this
// system is assumed to have migrated from: sha256(salt || password), stored
// as "sha256$<hex salt>$<hex digest>".
const legacyPrefix = "sha256$"

// HashPassword hashes a plaintext password with bcrypt for storage.
func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword checks plain against the stored hash, accepting either the
// current bcrypt scheme or the legacy sha256 scheme. It returns whether the
// password matched and, if matched via the legacy scheme, a freshly computed
// bcrypt hash the caller should persist in place of the legacy one.
func VerifyPassword(stored, plain string) (ok bool, rehash string) {
	if len(stored) >= len(legacyPrefix) && stored[:len(legacyPrefix)] == legacyPrefix {
		if !verifyLegacySHA256(stored, plain) {
			return false, ""
		}
		newHash, err := HashPassword(plain)
		if err != nil {
			return true, "" // matched, but rehash failed — leave the legacy hash in place
		}
		return true, newHash
	}

	err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(plain))
	return err == nil, ""
}

func verifyLegacySHA256(stored, plain string) bool {
	rest := stored[len(legacyPrefix):]
	sep := -1
	for i := 0; i < len(rest); i++ {
		if rest[i] == '$' {
			sep = i
			break
		}
	}
	if sep < 0 {
		return false
	}
	salt, err := hex.DecodeString(rest[:sep])
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(rest[sep+1:])
	if err != nil {
		return false
	}

	h := sha256.New()
	h.Write(salt)
	h.Write([]byte(plain))
	got := h.Sum(nil)

	return subtle.ConstantTimeCompare(got, want) == 1
}

// DummyHash is a bcrypt hash of a random value, compared against on login
// attempts for unknown identifiers so response timing/shape doesn't reveal
// whether the identifier exists.
const DummyHash = "$2a$10$CwTycUXWue0Thq9StjUM0uJ8JDxQKSVrLkd8Q/gTQcvZqDb3rjM7K"
