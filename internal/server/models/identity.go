// Package models holds the row-level types persisted by the relay server.
package models

import "time"

// Identity is one registered recipient: the owner of a shareable link.
// FetchTokenHash stores the SHA-256 of the bearer credential issued at
// registration; the plaintext credential is never persisted.
type Identity struct {
	ID             string
	LinkToken      string
	PublicKey      string
	PublicKeyHash  string
	KeyType        string
	DisplayName    string
	FetchTokenHash string
	CreatedAt      time.Time
}
