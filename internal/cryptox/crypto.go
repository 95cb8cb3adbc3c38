// Package cryptox wraps the cryptographic primitives the relay client needs:
// Ed25519 signing keys for challenge-response authentication and X25519
// sealed boxes for the message payloads themselves. The relay server never
// uses this package to touch plaintext; it only verifies signatures.
package cryptox

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/box"
)

// ErrDecrypt is returned when a sealed box cannot be opened with the given
// key pair.
var ErrDecrypt = errors.New("sealed box open failed")

// SigningKeyPair holds an Ed25519 key pair used to prove link ownership.
type SigningKeyPair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// BoxKeyPair holds an X25519 key pair used for sealed-box encryption.
type BoxKeyPair struct {
	Public  [32]byte
	Private [32]byte
}

// GenerateSigningKey creates a new Ed25519 key pair.
func GenerateSigningKey() (*SigningKeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("ed25519 keygen: %w", err)
	}
	return &SigningKeyPair{Public: pub, Private: priv}, nil
}

// GenerateBoxKey creates a new X25519 key pair for sealed boxes.
func GenerateBoxKey() (*BoxKeyPair, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("box keygen: %w", err)
	}
	return &BoxKeyPair{Public: *pub, Private: *priv}, nil
}

// SignNonce signs the raw nonce string handed out by the relay's challenge
// endpoint. The relay verifies the signature over the exact nonce bytes it
// issued, so the nonce must not be re-encoded before signing.
func SignNonce(priv ed25519.PrivateKey, nonce string) string {
	sig := ed25519.Sign(priv, []byte(nonce))
	return base64.StdEncoding.EncodeToString(sig)
}

// Seal encrypts plaintext to the recipient's box public key using an
// anonymous sealed box. Each call uses a fresh ephemeral key, so the
// ciphertext carries no sender identity.
func Seal(plaintext []byte, recipient *[32]byte) ([]byte, error) {
	out, err := box.SealAnonymous(nil, plaintext, recipient, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("seal: %w", err)
	}
	return out, nil
}

// Open decrypts a sealed box with the recipient's key pair.
func Open(ciphertext []byte, keys *BoxKeyPair) ([]byte, error) {
	out, ok := box.OpenAnonymous(nil, ciphertext, &keys.Public, &keys.Private)
	if !ok {
		return nil, ErrDecrypt
	}
	return out, nil
}

// EncodeKey renders a 32-byte public key in the base64 form the relay's
// register endpoint expects.
func EncodeKey(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}

// DecodeKey parses a base64 public key and checks its length.
func DecodeKey(s string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("decode key: expected 32 bytes, got %d", len(raw))
	}
	return raw, nil
}
