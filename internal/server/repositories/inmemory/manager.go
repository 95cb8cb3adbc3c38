// Package inmemory implements the repository layer with process-local maps.
// It backs unit tests and makes the service layer runnable without a
// database; the semantics mirror the PostgreSQL repositories, including
// single-use challenge consumption and owner-scoped message updates.
package inmemory

import (
	"context"
	"database/sql"

	"github.com/chicrypt/relay/internal/dbx"
	"github.com/chicrypt/relay/internal/server/repositories/challenges"
	"github.com/chicrypt/relay/internal/server/repositories/identities"
	"github.com/chicrypt/relay/internal/server/repositories/messages"
	"github.com/chicrypt/relay/internal/server/repositories/permissions"
)

// Manager vends the in-memory repositories. The same repository instances
// are returned regardless of the DBTX argument; transactional callers simply
// operate on the shared state.
type Manager struct {
	identities  *IdentityRepository
	challenges  *ChallengeRepository
	permissions *PermissionRepository
	messages    *MessageRepository
}

// NewManager constructs an empty in-memory repository set.
func NewManager() *Manager {
	return &Manager{
		identities:  NewIdentityRepository(),
		challenges:  NewChallengeRepository(),
		permissions: NewPermissionRepository(),
		messages:    NewMessageRepository(),
	}
}

// RunMigrations is a no-op: there is no schema.
func (m *Manager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return nil
}

func (m *Manager) Identities(db dbx.DBTX) identities.Repository {
	return m.identities
}

func (m *Manager) Challenges(db dbx.DBTX) challenges.Repository {
	return m.challenges
}

func (m *Manager) Permissions(db dbx.DBTX) permissions.Repository {
	return m.permissions
}

func (m *Manager) Messages(db dbx.DBTX) messages.Repository {
	return m.messages
}
