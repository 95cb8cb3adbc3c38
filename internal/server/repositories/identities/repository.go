package identities

import (
	"context"

	"github.com/chicrypt/relay/internal/server/models"
)

// Repository describes identity persistence. Identities are created at
// registration and looked up by link token on nearly every request path.
type Repository interface {
	Create(ctx context.Context, identity *models.Identity) (*models.Identity, error)
	GetByLinkToken(ctx context.Context, linkToken string) (*models.Identity, error)
}
