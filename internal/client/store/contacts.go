package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/chicrypt/relay/internal/client/models"
	"github.com/chicrypt/relay/internal/common"
)

type ContactRepository struct {
	db *sql.DB
}

func NewContactRepository(db *sql.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// Save upserts a contact by link token.
func (r *ContactRepository) Save(ctx context.Context, c *models.Contact) error {
	query := `INSERT INTO contacts (link_token, nickname, public_key, key_type, box_public_key)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (link_token) DO UPDATE SET
				nickname = excluded.nickname,
				public_key = excluded.public_key,
				key_type = excluded.key_type,
				box_public_key = excluded.box_public_key`
	_, err := r.db.ExecContext(ctx, query, c.LinkToken, c.Nickname, c.PublicKey, c.KeyType, c.BoxPublicKey)
	if err != nil {
		return fmt.Errorf("failed to save contact: %w", err)
	}
	return nil
}

func (r *ContactRepository) GetByLinkToken(ctx context.Context, linkToken string) (*models.Contact, error) {
	query := `SELECT link_token, nickname, public_key, key_type, box_public_key FROM contacts WHERE link_token = ?`
	row := r.db.QueryRowContext(ctx, query, linkToken)

	c := &models.Contact{}
	err := row.Scan(&c.LinkToken, &c.Nickname, &c.PublicKey, &c.KeyType, &c.BoxPublicKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select contact: %w", err)
	}
	return c, nil
}

func (r *ContactRepository) GetAll(ctx context.Context) ([]*models.Contact, error) {
	query := `SELECT link_token, nickname, public_key, key_type, box_public_key FROM contacts ORDER BY nickname`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select contacts: %w", err)
	}
	defer rows.Close()

	var result []*models.Contact
	for rows.Next() {
		c := &models.Contact{}
		if err := rows.Scan(&c.LinkToken, &c.Nickname, &c.PublicKey, &c.KeyType, &c.BoxPublicKey); err != nil {
			return nil, err
		}
		result = append(result, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
