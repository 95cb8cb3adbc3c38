// Package challenges provides the PostgreSQL-backed repository for
// single-use authentication nonces.
package challenges

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/chicrypt/relay/internal/common"
	"github.com/chicrypt/relay/internal/dbx"
	"github.com/chicrypt/relay/internal/server/models"
)

// PostgresRepository implements challenge storage over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new challenge row.
func (r *PostgresRepository) Create(ctx context.Context, challenge *models.Challenge) error {
	query := `
		INSERT INTO challenges (id, link_token, nonce, expires_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, query,
		challenge.ID, challenge.LinkToken, challenge.Nonce, challenge.ExpiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// FindValid returns the most recent unused, unexpired challenge for
// linkToken matching nonce.
func (r *PostgresRepository) FindValid(ctx context.Context, linkToken, nonce string) (*models.Challenge, error) {
	query := `
		SELECT id, link_token, nonce, created_at, expires_at, used
		FROM challenges
		WHERE link_token = $1 AND nonce = $2 AND used = FALSE AND expires_at > now()
		ORDER BY created_at DESC
		LIMIT 1
	`
	c := &models.Challenge{}
	err := r.db.QueryRowContext(ctx, query, linkToken, nonce).Scan(
		&c.ID, &c.LinkToken, &c.Nonce, &c.CreatedAt, &c.ExpiresAt, &c.Used)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

// Consume flips used on the challenge in a single conditional update. The
// WHERE clause re-checks used and expiry so two concurrent verifications of
// the same nonce cannot both succeed.
func (r *PostgresRepository) Consume(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE challenges
		SET used = TRUE
		WHERE id = $1 AND used = FALSE AND expires_at > now()
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n == 1, nil
}

// CountOutstanding counts unused, unexpired challenges for linkToken.
func (r *PostgresRepository) CountOutstanding(ctx context.Context, linkToken string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM challenges
		WHERE link_token = $1 AND used = FALSE AND expires_at > now()
	`
	var n int
	if err := r.db.QueryRowContext(ctx, query, linkToken).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// LastIssuedAt returns the creation time of the newest challenge for
// linkToken.
func (r *PostgresRepository) LastIssuedAt(ctx context.Context, linkToken string) (time.Time, error) {
	query := `
		SELECT created_at
		FROM challenges
		WHERE link_token = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	var created time.Time
	if err := r.db.QueryRowContext(ctx, query, linkToken).Scan(&created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, common.ErrorNotFound
		}
		return time.Time{}, fmt.Errorf("db error: %w", err)
	}
	return created, nil
}

// DeleteExpired removes challenges past their expiry.
func (r *PostgresRepository) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM challenges WHERE expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}
