package permissions

import (
	"context"

	"github.com/chicrypt/relay/internal/server/models"
)

// Repository describes permission-request persistence.
type Repository interface {
	Create(ctx context.Context, request *models.PermissionRequest) error
	GetByID(ctx context.Context, id string) (*models.PermissionRequest, error)
	ListPending(ctx context.Context, toLinkToken string) ([]*models.PermissionRequest, error)
	UpdateStatus(ctx context.Context, id, status string) error

	// HasAccepted reports whether any accepted request exists for the
	// (from, to) pair. This is the read behind every gated send.
	HasAccepted(ctx context.Context, fromLinkToken, toLinkToken string) (bool, error)
}
