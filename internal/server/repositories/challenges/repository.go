package challenges

import (
	"context"
	"time"

	"github.com/chicrypt/relay/internal/server/models"
)

// Repository describes challenge persistence. Challenges are short-lived
// rows; Consume is the single atomic step that prevents nonce replay.
type Repository interface {
	Create(ctx context.Context, challenge *models.Challenge) error

	// FindValid returns the most recent unused, unexpired challenge for the
	// link token matching nonce, or common.ErrorNotFound.
	FindValid(ctx context.Context, linkToken, nonce string) (*models.Challenge, error)

	// Consume marks the challenge used if and only if it is still unused and
	// unexpired. Exactly one of any number of concurrent callers observes
	// true; everyone else gets false.
	Consume(ctx context.Context, id string) (bool, error)

	// CountOutstanding counts unused, unexpired challenges for a link token.
	CountOutstanding(ctx context.Context, linkToken string) (int, error)

	// LastIssuedAt returns the creation time of the newest challenge for the
	// link token, or common.ErrorNotFound if none was ever issued.
	LastIssuedAt(ctx context.Context, linkToken string) (time.Time, error)

	// DeleteExpired purges challenges past their expiry and reports how many
	// rows went away.
	DeleteExpired(ctx context.Context) (int64, error)
}
