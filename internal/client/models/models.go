// Package models holds the row-level types cached by the relay CLI.
package models

import "time"

// CachedMessage is one fetched envelope mirrored into the local cache.
// IDs come from the relay and survive re-fetches; merging is by id.
type CachedMessage struct {
	ID         int64
	Ciphertext string
	Metadata   *string
	Seen       bool
	CreatedAt  time.Time
}

// Contact is a known peer: their shareable link plus the keys needed to
// verify and encrypt for them. BoxPublicKey is exchanged out of band; the
// relay only publishes the signing key.
type Contact struct {
	LinkToken    string
	Nickname     string
	PublicKey    string
	KeyType      string
	BoxPublicKey string
}
