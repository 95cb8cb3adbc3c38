// Package store is the CLI's local sqlite cache: fetched envelopes and the
// contact list. The cache is a convenience copy; the relay stays the source
// of truth for unseen state.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/chicrypt/relay/internal/client/migrations"
)

type Repositories struct {
	Messages *MessageRepository
	Contacts *ContactRepository
	DB       *sql.DB
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

func InitDatabase(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Repositories{
		Messages: NewMessageRepository(db),
		Contacts: NewContactRepository(db),
		DB:       db,
	}, nil
}
