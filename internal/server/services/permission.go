package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/chicrypt/relay/internal/common"
	"github.com/chicrypt/relay/internal/server/models"
	"github.com/chicrypt/relay/internal/server/repositories/repomanager"
)

// RequestOutcome reports the result of a permission request: either the id
// of a freshly created pending request, or the already-granted status.
type RequestOutcome struct {
	RequestID string
	Status    string
}

// PermissionService keeps the ledger of who may send to whom.
type PermissionService struct {
	db    *sql.DB
	repos repomanager.RepositoryManager
}

// NewPermissionService constructs a PermissionService.
func NewPermissionService(db *sql.DB, repos repomanager.RepositoryManager) *PermissionService {
	return &PermissionService{db: db, repos: repos}
}

// Request asks for standing to send from one link to another. If the pair is
// already granted, the call is idempotent and reports the accepted status
// without inserting a row. Otherwise a new pending request is created, also
// after an earlier rejection, which a fresh request re-opens.
// Duplicate pendings for the same pair are allowed.
func (s *PermissionService) Request(ctx context.Context, fromLinkToken, toLinkToken, nickname string) (*RequestOutcome, error) {
	identityRepo := s.repos.Identities(s.db)
	if _, err := identityRepo.GetByLinkToken(ctx, fromLinkToken); err != nil {
		return nil, err
	}
	if _, err := identityRepo.GetByLinkToken(ctx, toLinkToken); err != nil {
		return nil, err
	}

	permRepo := s.repos.Permissions(s.db)

	granted, err := permRepo.HasAccepted(ctx, fromLinkToken, toLinkToken)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if granted {
		return &RequestOutcome{Status: models.RequestAccepted}, nil
	}

	request := &models.PermissionRequest{
		ID:            uuid.NewString(),
		FromLinkToken: fromLinkToken,
		ToLinkToken:   toLinkToken,
		FromNickname:  common.SanitizeLabel(nickname),
		Status:        models.RequestPending,
	}
	if err := permRepo.Create(ctx, request); err != nil {
		return nil, common.ErrorInternal
	}

	return &RequestOutcome{RequestID: request.ID, Status: models.RequestPending}, nil
}

// ListPending returns the pending requests addressed to the authenticated
// owner, newest first.
func (s *PermissionService) ListPending(ctx context.Context, toLinkToken string) ([]*models.PermissionRequest, error) {
	requests, err := s.repos.Permissions(s.db).ListPending(ctx, toLinkToken)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return requests, nil
}

// Respond accepts or rejects a pending request. The actor must be the
// request's recipient; anyone else gets common.ErrorForbidden. Responding to
// a request that already left pending is an invalid argument; accept and
// reject are terminal per request row.
func (s *PermissionService) Respond(ctx context.Context, actorLinkToken, requestID, action string) (string, error) {
	var status string
	switch action {
	case "accept":
		status = models.RequestAccepted
	case "reject":
		status = models.RequestRejected
	default:
		return "", fmt.Errorf("%w: action must be accept or reject", common.ErrorInvalidArgument)
	}

	repo := s.repos.Permissions(s.db)

	request, err := repo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorNotFound
		}
		return "", common.ErrorInternal
	}

	if request.ToLinkToken != actorLinkToken {
		return "", common.ErrorForbidden
	}
	if request.Status != models.RequestPending {
		return "", fmt.Errorf("%w: request already processed", common.ErrorInvalidArgument)
	}

	if err := repo.UpdateStatus(ctx, requestID, status); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorNotFound
		}
		return "", common.ErrorInternal
	}

	return status, nil
}

// IsGranted reports whether fromLinkToken holds accepted standing to send to
// toLinkToken. Pure read.
func (s *PermissionService) IsGranted(ctx context.Context, fromLinkToken, toLinkToken string) (bool, error) {
	granted, err := s.repos.Permissions(s.db).HasAccepted(ctx, fromLinkToken, toLinkToken)
	if err != nil {
		return false, common.ErrorInternal
	}
	return granted, nil
}
