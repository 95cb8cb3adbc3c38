package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/chicrypt/relay/internal/common"
	"github.com/chicrypt/relay/internal/server/models"
)

// PermissionRepository stores permission requests keyed by id.
type PermissionRepository struct {
	mu   sync.Mutex
	byID map[string]*models.PermissionRequest
}

func NewPermissionRepository() *PermissionRepository {
	return &PermissionRepository{byID: make(map[string]*models.PermissionRequest)}
}

func (r *PermissionRepository) Create(ctx context.Context, request *models.PermissionRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *request
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	stored.UpdatedAt = stored.CreatedAt
	r.byID[stored.ID] = &stored
	return nil
}

func (r *PermissionRepository) GetByID(ctx context.Context, id string) (*models.PermissionRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	result := *request
	return &result, nil
}

func (r *PermissionRepository) ListPending(ctx context.Context, toLinkToken string) ([]*models.PermissionRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pending []*models.PermissionRequest
	for _, request := range r.byID {
		if request.ToLinkToken == toLinkToken && request.Status == models.RequestPending {
			result := *request
			pending = append(pending, &result)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.After(pending[j].CreatedAt)
	})
	return pending, nil
}

func (r *PermissionRepository) UpdateStatus(ctx context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	request.Status = status
	request.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *PermissionRepository) HasAccepted(ctx context.Context, fromLinkToken, toLinkToken string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, request := range r.byID {
		if request.FromLinkToken == fromLinkToken && request.ToLinkToken == toLinkToken &&
			request.Status == models.RequestAccepted {
			return true, nil
		}
	}
	return false, nil
}
