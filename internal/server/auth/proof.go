// Package auth defines the two proof mechanisms a caller can present to act
// on a link, and the primitive checks behind them. The tagged union keeps
// credential-vs-signature branching out of the request handlers: every
// protected operation hands a Proof to the auth gate and gets back an
// authenticated link token or an error.
package auth

import (
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
)

// Proof is either a BearerProof or a ChallengeProof.
type Proof interface {
	isProof()
}

// BearerProof carries the long-lived fetch token issued at registration.
type BearerProof struct {
	Token string
}

// ChallengeProof carries a previously issued nonce and the caller's
// signature over the nonce bytes.
type ChallengeProof struct {
	Nonce     string
	Signature string
}

func (BearerProof) isProof()    {}
func (ChallengeProof) isProof() {}

// HashToken returns the hex-encoded SHA-256 of a bearer token, the only form
// in which tokens are stored.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// CheckToken reports whether candidate matches the stored token hash.
// The candidate is hashed first, so the comparison always runs over two
// equal-length digests and subtle.ConstantTimeCompare examines every byte
// regardless of where a mismatch occurs.
func CheckToken(storedHash, candidate string) bool {
	candidateHash := HashToken(candidate)
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(candidateHash)) == 1
}

// VerifySignature checks an Ed25519 signature over the nonce bytes.
// publicKey and signature are base64-encoded, the nonce is signed as the
// literal string handed out at issuance.
func VerifySignature(publicKey, nonce, signature string) bool {
	key, err := base64.StdEncoding.DecodeString(publicKey)
	if err != nil || len(key) != ed25519.PublicKeySize {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(key), []byte(nonce), sig)
}

// ValidPublicKey reports whether s is a base64-encoded 32-byte Ed25519
// public key. Only ed25519 keys are accepted at registration.
func ValidPublicKey(s string) bool {
	key, err := base64.StdEncoding.DecodeString(s)
	return err == nil && len(key) == ed25519.PublicKeySize
}
