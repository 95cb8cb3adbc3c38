// Package messages provides the PostgreSQL-backed repository for the
// append-only per-recipient message log.
package messages

import (
	"context"
	"fmt"
	"strings"

	"github.com/chicrypt/relay/internal/dbx"
	"github.com/chicrypt/relay/internal/server/models"
)

// PostgresRepository implements message storage over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create appends an envelope and returns it with the assigned id and
// creation timestamp. The id comes from the table's sequence inside the same
// statement, so concurrent appends get strictly increasing ids.
func (r *PostgresRepository) Create(ctx context.Context, envelope *models.MessageEnvelope) (*models.MessageEnvelope, error) {
	query := `
		INSERT INTO messages (link_token, ciphertext, metadata, size_bytes)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		envelope.LinkToken, envelope.Ciphertext, envelope.Metadata, envelope.SizeBytes,
	).Scan(&envelope.ID, &envelope.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return envelope, nil
}

// Page returns up to q.Limit envelopes for q.LinkToken under the cursor and
// seen-filter conditions, ordered by id.
func (r *PostgresRepository) Page(ctx context.Context, q PageQuery) ([]*models.MessageEnvelope, error) {
	conds := []string{"link_token = $1"}
	args := []any{q.LinkToken}

	if !q.IncludeSeen {
		conds = append(conds, "seen = FALSE")
	}
	if q.BeforeID != nil {
		args = append(args, *q.BeforeID)
		conds = append(conds, fmt.Sprintf("id < $%d", len(args)))
	}
	if q.SinceID != nil {
		args = append(args, *q.SinceID)
		conds = append(conds, fmt.Sprintf("id > $%d", len(args)))
	}

	direction := "ASC"
	if q.Descending {
		direction = "DESC"
	}
	args = append(args, q.Limit)

	query := fmt.Sprintf(`
		SELECT id, link_token, ciphertext, metadata, size_bytes, seen, created_at
		FROM messages
		WHERE %s
		ORDER BY id %s
		LIMIT $%d
	`, strings.Join(conds, " AND "), direction, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.MessageEnvelope
	for rows.Next() {
		var m models.MessageEnvelope
		if err := rows.Scan(
			&m.ID, &m.LinkToken, &m.Ciphertext, &m.Metadata, &m.SizeBytes, &m.Seen, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// MarkSeen flips seen on ids belonging to linkToken and reports the rows
// actually updated. Empty ids is a no-op.
func (r *PostgresRepository) MarkSeen(ctx context.Context, linkToken string, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args = append(args, id)
	}
	args = append(args, linkToken)

	query := fmt.Sprintf(`
		UPDATE messages
		SET seen = TRUE
		WHERE id IN (%s) AND link_token = $%d
	`, strings.Join(placeholders, ","), len(args))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}
