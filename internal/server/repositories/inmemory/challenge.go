package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/chicrypt/relay/internal/common"
	"github.com/chicrypt/relay/internal/server/models"
)

// ChallengeRepository stores challenges in insertion order. Consume is
// serialized by the mutex, so exactly one caller wins a given nonce.
type ChallengeRepository struct {
	mu   sync.Mutex
	rows []*models.Challenge
}

func NewChallengeRepository() *ChallengeRepository {
	return &ChallengeRepository{}
}

func (r *ChallengeRepository) Create(ctx context.Context, challenge *models.Challenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *challenge
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.rows = append(r.rows, &stored)
	return nil
}

func (r *ChallengeRepository) FindValid(ctx context.Context, linkToken, nonce string) (*models.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for i := len(r.rows) - 1; i >= 0; i-- {
		row := r.rows[i]
		if row.LinkToken == linkToken && row.Nonce == nonce && !row.Used && row.ExpiresAt.After(now) {
			result := *row
			return &result, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *ChallengeRepository) Consume(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, row := range r.rows {
		if row.ID == id {
			if row.Used || !row.ExpiresAt.After(now) {
				return false, nil
			}
			row.Used = true
			return true, nil
		}
	}
	return false, nil
}

func (r *ChallengeRepository) CountOutstanding(ctx context.Context, linkToken string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	count := 0
	for _, row := range r.rows {
		if row.LinkToken == linkToken && !row.Used && row.ExpiresAt.After(now) {
			count++
		}
	}
	return count, nil
}

func (r *ChallengeRepository) LastIssuedAt(ctx context.Context, linkToken string) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var last time.Time
	found := false
	for _, row := range r.rows {
		if row.LinkToken == linkToken && row.CreatedAt.After(last) {
			last = row.CreatedAt
			found = true
		}
	}
	if !found {
		return time.Time{}, common.ErrorNotFound
	}
	return last, nil
}

func (r *ChallengeRepository) DeleteExpired(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	kept := r.rows[:0]
	var purged int64
	for _, row := range r.rows {
		if row.ExpiresAt.After(now) {
			kept = append(kept, row)
		} else {
			purged++
		}
	}
	r.rows = kept
	return purged, nil
}
