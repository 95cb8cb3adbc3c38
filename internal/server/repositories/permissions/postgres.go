// Package permissions provides the PostgreSQL-backed repository for
// sender-to-recipient permission requests.
package permissions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/chicrypt/relay/internal/common"
	"github.com/chicrypt/relay/internal/dbx"
	"github.com/chicrypt/relay/internal/server/models"
)

// PostgresRepository implements permission-request storage over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new pending request.
func (r *PostgresRepository) Create(ctx context.Context, request *models.PermissionRequest) error {
	query := `
		INSERT INTO message_requests (id, from_link_token, to_link_token, from_nickname, status)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.ExecContext(ctx, query,
		request.ID, request.FromLinkToken, request.ToLinkToken,
		request.FromNickname, request.Status); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByID returns a request by id, or common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.PermissionRequest, error) {
	query := `
		SELECT id, from_link_token, to_link_token, from_nickname, status, created_at, updated_at
		FROM message_requests
		WHERE id = $1
	`
	req := &models.PermissionRequest{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&req.ID, &req.FromLinkToken, &req.ToLinkToken, &req.FromNickname,
		&req.Status, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return req, nil
}

// ListPending returns all pending requests addressed to toLinkToken,
// newest first.
func (r *PostgresRepository) ListPending(ctx context.Context, toLinkToken string) ([]*models.PermissionRequest, error) {
	query := `
		SELECT id, from_link_token, to_link_token, from_nickname, status, created_at, updated_at
		FROM message_requests
		WHERE to_link_token = $1 AND status = 'pending'
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, toLinkToken)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.PermissionRequest
	for rows.Next() {
		var req models.PermissionRequest
		if err := rows.Scan(
			&req.ID, &req.FromLinkToken, &req.ToLinkToken, &req.FromNickname,
			&req.Status, &req.CreatedAt, &req.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, &req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateStatus sets the request status and stamps updated_at.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := `
		UPDATE message_requests
		SET status = $2, updated_at = now()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// HasAccepted reports whether an accepted request exists for the pair.
func (r *PostgresRepository) HasAccepted(ctx context.Context, fromLinkToken, toLinkToken string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM message_requests
			WHERE from_link_token = $1 AND to_link_token = $2 AND status = 'accepted'
		)
	`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, fromLinkToken, toLinkToken).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}
