package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// NewResetToken returns a random password-reset token for the user, the sha256 hash
// that gets stored, and the expiry. Only the hash is ever persisted.
func NewResetToken(ttl time.Duration) (raw, hash string, expires time.Time, err error) {
	b, err := generateRandomBytes(20)
	if err != nil {
		return "", "", time.Time{}, err
	}
	raw = hex.EncodeToString(b)
	return raw, HashResetToken(raw), time.Now().Add(ttl), nil
}

// HashResetToken maps a raw reset token onto its stored form.
func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
