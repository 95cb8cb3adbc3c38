package models

import "time"

// MessageEnvelope is one opaque ciphertext blob queued for a recipient.
// ID comes from a global BIGSERIAL sequence, so ids are strictly increasing
// in insertion order and double as the pagination cursor.
type MessageEnvelope struct {
	ID         int64
	LinkToken  string
	Ciphertext string
	Metadata   *string
	SizeBytes  int64
	Seen       bool
	CreatedAt  time.Time
}
