package repomanager

import (
	"context"
	"database/sql"

	"github.com/chicrypt/relay/internal/dbx"
	"github.com/chicrypt/relay/internal/server/repositories/challenges"
	"github.com/chicrypt/relay/internal/server/repositories/identities"
	"github.com/chicrypt/relay/internal/server/repositories/messages"
	"github.com/chicrypt/relay/internal/server/repositories/permissions"
)

// RepositoryManager vends repositories bound to a DBTX, so services can use
// the same repository code on a plain connection or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Identities(db dbx.DBTX) identities.Repository
	Challenges(db dbx.DBTX) challenges.Repository
	Permissions(db dbx.DBTX) permissions.Repository
	Messages(db dbx.DBTX) messages.Repository
}
