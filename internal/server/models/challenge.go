package models

import "time"

// Challenge is a single-use authentication nonce bound to a link token.
// Used flips to true exactly once, on successful verification.
type Challenge struct {
	ID        string
	LinkToken string
	Nonce     string
	CreatedAt time.Time
	ExpiresAt time.Time
	Used      bool
}
