package common

import (
	"crypto/rand"
	"encoding/base64"
	"regexp"
	"strings"
)

// MakeRandBase64String generates size random bytes and encodes them with
// unpadded URL-safe base64. It returns an error only if the random number
// generator fails.
func MakeRandBase64String(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateRandByteArray returns size cryptographically random bytes.
// It panics if the system randomness source is unavailable.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

var labelStrip = regexp.MustCompile(`[<>"';()&+]`)

// SanitizeLabel strips characters that have no business in a display label
// and trims surrounding whitespace. Labels are free text chosen by untrusted
// callers and are echoed back to other users.
func SanitizeLabel(s string) string {
	return strings.TrimSpace(labelStrip.ReplaceAllString(s, ""))
}

// WipeByteArray overwrites the contents of b with zeros. Useful for removing
// credentials from memory after use. A nil slice is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
