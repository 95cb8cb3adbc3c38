// Package identities provides the PostgreSQL-backed repository for
// registered recipients.
package identities

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/chicrypt/relay/internal/common"
	"github.com/chicrypt/relay/internal/dbx"
	"github.com/chicrypt/relay/internal/server/models"
)

// pgUniqueViolation is the PostgreSQL error code for unique_violation.
const pgUniqueViolation = "23505"

// PostgresRepository implements identity storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new identity and returns it with the stored creation
// timestamp. A duplicate public key (unique public_key_hash) is reported as
// common.ErrorConflict.
func (r *PostgresRepository) Create(ctx context.Context, identity *models.Identity) (*models.Identity, error) {
	query := `
		INSERT INTO identities (id, link_token, public_key, public_key_hash, key_type, display_name, fetch_token_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		identity.ID, identity.LinkToken, identity.PublicKey, identity.PublicKeyHash,
		identity.KeyType, identity.DisplayName, identity.FetchTokenHash,
	).Scan(&identity.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return identity, nil
}

// GetByLinkToken returns the identity owning linkToken, or
// common.ErrorNotFound.
func (r *PostgresRepository) GetByLinkToken(ctx context.Context, linkToken string) (*models.Identity, error) {
	query := `
		SELECT id, link_token, public_key, public_key_hash, key_type, display_name, fetch_token_hash, created_at
		FROM identities
		WHERE link_token = $1
	`
	identity := &models.Identity{}
	err := r.db.QueryRowContext(ctx, query, linkToken).Scan(
		&identity.ID, &identity.LinkToken, &identity.PublicKey, &identity.PublicKeyHash,
		&identity.KeyType, &identity.DisplayName, &identity.FetchTokenHash, &identity.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return identity, nil
}
