// Package secret generates and verifies the opaque refresh secrets that pair
// with stored sessions. The raw secret leaves the server exactly once, inside
// the refresh cookie; only its hash is persisted.
package secret

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const rawLen = 32

// Generate returns a fresh refresh secret with 256 bits of entropy, encoded
// as unpadded base64url so it is cookie-safe.
func Generate() (string, error) {
	buf := make([]byte, rawLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Hash returns the hex-encoded SHA-256 digest of a raw secret. This is the
// only form that may be persisted.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether raw hashes to storedHash, in constant time with
// respect to the digest contents.
func Verify(raw, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(Hash(raw)), []byte(storedHash)) == 1
}
