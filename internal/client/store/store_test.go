package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/chicrypt/relay/internal/client/models"
	"github.com/chicrypt/relay/internal/common"
)

func setupRepos(t *testing.T) *Repositories {
	t.Helper()

	repos, err := InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repos.DB.Close() })
	return repos
}

func TestMessageMerge(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	msg := &models.CachedMessage{ID: 7, Ciphertext: "blob", CreatedAt: time.Now()}
	require.NoError(t, repos.Messages.Merge(ctx, msg))

	// Re-fetching the same envelope is a no-op, not a duplicate.
	require.NoError(t, repos.Messages.Merge(ctx, msg))

	all, err := repos.Messages.GetAll(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(7), all[0].ID)
}

func TestMessageMerge_SeenOnlyMovesForward(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	msg := &models.CachedMessage{ID: 1, Ciphertext: "blob", CreatedAt: time.Now()}
	require.NoError(t, repos.Messages.Merge(ctx, msg))
	require.NoError(t, repos.Messages.MarkSeen(ctx, []int64{1}))

	// A re-fetch that still reports the envelope unseen must not reset it.
	require.NoError(t, repos.Messages.Merge(ctx, msg))

	got, err := repos.Messages.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.True(t, got.Seen)

	unseen, err := repos.Messages.GetAll(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, unseen)
}

func TestMessageGetAll_Ordering(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	for _, id := range []int64{3, 1, 2} {
		require.NoError(t, repos.Messages.Merge(ctx, &models.CachedMessage{ID: id, Ciphertext: "x", CreatedAt: time.Now()}))
	}

	all, err := repos.Messages.GetAll(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(3), all[0].ID)
	assert.Equal(t, int64(1), all[2].ID)
}

func TestContacts(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	contact := &models.Contact{
		LinkToken: "link_abc",
		Nickname:  "bob",
		PublicKey: "pk",
		KeyType:   "ed25519",
	}
	require.NoError(t, repos.Contacts.Save(ctx, contact))

	// Upsert replaces fields for the same link.
	contact.Nickname = "bobby"
	contact.BoxPublicKey = "boxpk"
	require.NoError(t, repos.Contacts.Save(ctx, contact))

	got, err := repos.Contacts.GetByLinkToken(ctx, "link_abc")
	require.NoError(t, err)
	assert.Equal(t, "bobby", got.Nickname)
	assert.Equal(t, "boxpk", got.BoxPublicKey)

	all, err := repos.Contacts.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = repos.Contacts.GetByLinkToken(ctx, "link_missing")
	assert.True(t, errors.Is(err, common.ErrorNotFound))
}
