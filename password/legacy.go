package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// IsLegacy reports whether storedHash is a legacy digest rather than a
// PHC string. Legacy hashes are bare 64-char hex.
func IsLegacy(storedHash string) bool {
	return !strings.HasPrefix(storedHash, "$")
}

// LegacyHash reproduces the pre-migration digest contract:
// hex(sha256(secret ‖ salt ‖ installationKey)).
func LegacyHash(secret, salt, installKey string) string {
	sum := sha256.Sum256([]byte(secret + salt + installKey))
	return hex.EncodeToString(sum[:])
}

func (h *Hasher) verifyLegacy(secret, storedHash, salt string) bool {
	computed := LegacyHash(secret, salt, h.installKey)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}

// NewSalt returns a fresh random per-user salt.
func NewSalt() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
