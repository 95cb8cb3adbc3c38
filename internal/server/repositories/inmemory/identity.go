package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/chicrypt/relay/internal/common"
	"github.com/chicrypt/relay/internal/server/models"
)

// IdentityRepository stores identities keyed by link token.
type IdentityRepository struct {
	mu     sync.Mutex
	byLink map[string]*models.Identity
	byHash map[string]struct{}
}

func NewIdentityRepository() *IdentityRepository {
	return &IdentityRepository{
		byLink: make(map[string]*models.Identity),
		byHash: make(map[string]struct{}),
	}
}

func (r *IdentityRepository) Create(ctx context.Context, identity *models.Identity) (*models.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byHash[identity.PublicKeyHash]; ok {
		return nil, common.ErrorConflict
	}
	if _, ok := r.byLink[identity.LinkToken]; ok {
		return nil, common.ErrorConflict
	}
	stored := *identity
	stored.CreatedAt = time.Now().UTC()
	r.byLink[stored.LinkToken] = &stored
	r.byHash[stored.PublicKeyHash] = struct{}{}
	result := stored
	return &result, nil
}

func (r *IdentityRepository) GetByLinkToken(ctx context.Context, linkToken string) (*models.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	identity, ok := r.byLink[linkToken]
	if !ok {
		return nil, common.ErrorNotFound
	}
	result := *identity
	return &result, nil
}
