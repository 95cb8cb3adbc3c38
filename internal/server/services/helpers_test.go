package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/chicrypt/relay/internal/cryptox"
	"github.com/chicrypt/relay/internal/logging"
	"github.com/chicrypt/relay/internal/server/repositories/inmemory"
)

// fixture wires the services over the in-memory repositories. The sqlite
// handle only provides Begin/Commit for transactional paths; all state lives
// in the repositories.
type fixture struct {
	db          *sql.DB
	repos       *inmemory.Manager
	identities  *IdentityService
	challenges  *ChallengeService
	gate        *AuthGate
	permissions *PermissionService
	messages    *MessageService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	repos := inmemory.NewManager()

	challenges := NewChallengeService(db, repos, logger)
	return &fixture{
		db:          db,
		repos:       repos,
		identities:  NewIdentityService(db, repos),
		challenges:  challenges,
		gate:        NewAuthGate(db, repos, challenges),
		permissions: NewPermissionService(db, repos),
		messages:    NewMessageService(db, repos),
	}
}

// register creates an identity with a fresh Ed25519 key and returns the
// registration result together with the key pair.
func (f *fixture) register(t *testing.T, displayName string) (*RegisteredIdentity, *cryptox.SigningKeyPair) {
	t.Helper()

	keys, err := cryptox.GenerateSigningKey()
	require.NoError(t, err)

	registered, err := f.identities.Register(context.Background(), cryptox.EncodeKey(keys.Public), KeyTypeEd25519, displayName)
	require.NoError(t, err)
	return registered, keys
}
