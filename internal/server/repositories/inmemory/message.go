package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/chicrypt/relay/internal/server/models"
	"github.com/chicrypt/relay/internal/server/repositories/messages"
)

// MessageRepository stores envelopes in a slice ordered by id. Ids come
// from a local counter, strictly increasing in insertion order like the
// BIGSERIAL column they stand in for.
type MessageRepository struct {
	mu     sync.Mutex
	nextID int64
	rows   []*models.MessageEnvelope
}

func NewMessageRepository() *MessageRepository {
	return &MessageRepository{nextID: 1}
}

func (r *MessageRepository) Create(ctx context.Context, envelope *models.MessageEnvelope) (*models.MessageEnvelope, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *envelope
	stored.ID = r.nextID
	r.nextID++
	stored.CreatedAt = time.Now().UTC()
	r.rows = append(r.rows, &stored)
	result := stored
	return &result, nil
}

func (r *MessageRepository) Page(ctx context.Context, q messages.PageQuery) ([]*models.MessageEnvelope, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*models.MessageEnvelope
	for _, row := range r.rows {
		if row.LinkToken != q.LinkToken {
			continue
		}
		if row.Seen && !q.IncludeSeen {
			continue
		}
		if q.BeforeID != nil && row.ID >= *q.BeforeID {
			continue
		}
		if q.SinceID != nil && row.ID <= *q.SinceID {
			continue
		}
		result := *row
		matched = append(matched, &result)
	}
	if q.Descending {
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

func (r *MessageRepository) MarkSeen(ctx context.Context, linkToken string, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	var flipped int64
	for _, row := range r.rows {
		if _, ok := wanted[row.ID]; ok && row.LinkToken == linkToken {
			row.Seen = true
			flipped++
		}
	}
	return flipped, nil
}
