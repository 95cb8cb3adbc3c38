package messages

import (
	"context"

	"github.com/chicrypt/relay/internal/server/models"
)

// PageQuery selects a cursor window over one recipient's message stream.
// BeforeID restricts to ids strictly below the cursor, SinceID strictly
// above; Limit is the exact number of rows to fetch (callers add one to
// probe for more).
type PageQuery struct {
	LinkToken   string
	IncludeSeen bool
	Limit       int
	BeforeID    *int64
	SinceID     *int64
	Descending  bool
}

// Repository describes message-envelope persistence. Every operation is
// scoped by the recipient's link token; the id sequence is durable and
// strictly increasing in insertion order.
type Repository interface {
	Create(ctx context.Context, envelope *models.MessageEnvelope) (*models.MessageEnvelope, error)
	Page(ctx context.Context, q PageQuery) ([]*models.MessageEnvelope, error)

	// MarkSeen flips seen on the given ids where they belong to linkToken.
	// Ids owned by other recipients are ignored, not an error. Returns the
	// number of rows actually flipped.
	MarkSeen(ctx context.Context, linkToken string, ids []int64) (int64, error)
}
