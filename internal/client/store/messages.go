package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/chicrypt/relay/internal/client/models"
)

type MessageRepository struct {
	db *sql.DB
}

func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Merge upserts a fetched envelope by its relay id. Seen state moves only
// forward: a locally seen message is not reset by a re-fetch that still
// carries it as unseen.
func (r *MessageRepository) Merge(ctx context.Context, m *models.CachedMessage) error {
	query := `INSERT INTO messages (id, ciphertext, metadata, seen, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET seen = MAX(messages.seen, excluded.seen)`
	seen := 0
	if m.Seen {
		seen = 1
	}
	_, err := r.db.ExecContext(ctx, query, m.ID, m.Ciphertext, m.Metadata, seen, m.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to merge message: %w", err)
	}
	return nil
}

func (r *MessageRepository) GetAll(ctx context.Context, includeSeen bool) ([]*models.CachedMessage, error) {
	query := `SELECT id, ciphertext, metadata, seen, created_at FROM messages`
	if !includeSeen {
		query += ` WHERE seen = 0`
	}
	query += ` ORDER BY id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select messages: %w", err)
	}
	defer rows.Close()

	var result []*models.CachedMessage
	for rows.Next() {
		item := &models.CachedMessage{}
		var seen int
		var createdAt string
		if err := rows.Scan(&item.ID, &item.Ciphertext, &item.Metadata, &seen, &createdAt); err != nil {
			return nil, err
		}
		item.Seen = seen != 0
		item.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		result = append(result, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id int64) (*models.CachedMessage, error) {
	query := `SELECT id, ciphertext, metadata, seen, created_at FROM messages WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	item := &models.CachedMessage{}
	var seen int
	var createdAt string
	if err := row.Scan(&item.ID, &item.Ciphertext, &item.Metadata, &seen, &createdAt); err != nil {
		return nil, fmt.Errorf("failed to select message: %w", err)
	}
	item.Seen = seen != 0
	item.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return item, nil
}

func (r *MessageRepository) MarkSeen(ctx context.Context, ids []int64) error {
	for _, id := range ids {
		if _, err := r.db.ExecContext(ctx, `UPDATE messages SET seen = 1 WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to mark message seen: %w", err)
		}
	}
	return nil
}
