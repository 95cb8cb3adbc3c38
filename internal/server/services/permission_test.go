package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chicrypt/relay/internal/common"
	"github.com/chicrypt/relay/internal/server/models"
)

func TestRequest_CreatesPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sender, _ := f.register(t, "alice")
	recipient, _ := f.register(t, "bob")

	outcome, err := f.permissions.Request(ctx, sender.Identity.LinkToken, recipient.Identity.LinkToken, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, outcome.Status)
	assert.NotEmpty(t, outcome.RequestID)

	pending, err := f.permissions.ListPending(ctx, recipient.Identity.LinkToken)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, outcome.RequestID, pending[0].ID)
	assert.Equal(t, sender.Identity.LinkToken, pending[0].FromLinkToken)
	assert.Equal(t, "alice", pending[0].FromNickname)
}

func TestRequest_UnknownIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	registered, _ := f.register(t, "alice")

	_, err := f.permissions.Request(ctx, "link_missing", registered.Identity.LinkToken, "x")
	assert.True(t, errors.Is(err, common.ErrorNotFound))

	_, err = f.permissions.Request(ctx, registered.Identity.LinkToken, "link_missing", "x")
	assert.True(t, errors.Is(err, common.ErrorNotFound))
}

func TestRequest_IdempotentWhenGranted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sender, _ := f.register(t, "alice")
	recipient, _ := f.register(t, "bob")

	outcome, err := f.permissions.Request(ctx, sender.Identity.LinkToken, recipient.Identity.LinkToken, "alice")
	require.NoError(t, err)

	_, err = f.permissions.Respond(ctx, recipient.Identity.LinkToken, outcome.RequestID, "accept")
	require.NoError(t, err)

	// Re-requesting a granted pair reports the grant and leaves the pending
	// list empty.
	outcome, err = f.permissions.Request(ctx, sender.Identity.LinkToken, recipient.Identity.LinkToken, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.RequestAccepted, outcome.Status)
	assert.Empty(t, outcome.RequestID)

	pending, err := f.permissions.ListPending(ctx, recipient.Identity.LinkToken)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRespond_Accept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sender, _ := f.register(t, "alice")
	recipient, _ := f.register(t, "bob")

	outcome, err := f.permissions.Request(ctx, sender.Identity.LinkToken, recipient.Identity.LinkToken, "alice")
	require.NoError(t, err)

	status, err := f.permissions.Respond(ctx, recipient.Identity.LinkToken, outcome.RequestID, "accept")
	require.NoError(t, err)
	assert.Equal(t, models.RequestAccepted, status)

	granted, err := f.permissions.IsGranted(ctx, sender.Identity.LinkToken, recipient.Identity.LinkToken)
	require.NoError(t, err)
	assert.True(t, granted)

	// Grants are directional.
	granted, err = f.permissions.IsGranted(ctx, recipient.Identity.LinkToken, sender.Identity.LinkToken)
	require.NoError(t, err)
	assert.False(t, granted)
}

func TestRespond_RejectThenReopen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sender, _ := f.register(t, "alice")
	recipient, _ := f.register(t, "bob")

	outcome, err := f.permissions.Request(ctx, sender.Identity.LinkToken, recipient.Identity.LinkToken, "alice")
	require.NoError(t, err)

	status, err := f.permissions.Respond(ctx, recipient.Identity.LinkToken, outcome.RequestID, "reject")
	require.NoError(t, err)
	assert.Equal(t, models.RequestRejected, status)

	granted, err := f.permissions.IsGranted(ctx, sender.Identity.LinkToken, recipient.Identity.LinkToken)
	require.NoError(t, err)
	assert.False(t, granted)

	// A rejection is not a ban; a fresh request goes back to pending.
	outcome, err = f.permissions.Request(ctx, sender.Identity.LinkToken, recipient.Identity.LinkToken, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, outcome.Status)
	assert.NotEmpty(t, outcome.RequestID)
}

func TestRespond_NotRecipient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sender, _ := f.register(t, "alice")
	recipient, _ := f.register(t, "bob")
	outsider, _ := f.register(t, "mallory")

	outcome, err := f.permissions.Request(ctx, sender.Identity.LinkToken, recipient.Identity.LinkToken, "alice")
	require.NoError(t, err)

	// Neither the sender nor a third party may decide the request.
	_, err = f.permissions.Respond(ctx, sender.Identity.LinkToken, outcome.RequestID, "accept")
	assert.True(t, errors.Is(err, common.ErrorForbidden))

	_, err = f.permissions.Respond(ctx, outsider.Identity.LinkToken, outcome.RequestID, "accept")
	assert.True(t, errors.Is(err, common.ErrorForbidden))
}

func TestRespond_AlreadyProcessed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sender, _ := f.register(t, "alice")
	recipient, _ := f.register(t, "bob")

	outcome, err := f.permissions.Request(ctx, sender.Identity.LinkToken, recipient.Identity.LinkToken, "alice")
	require.NoError(t, err)

	_, err = f.permissions.Respond(ctx, recipient.Identity.LinkToken, outcome.RequestID, "accept")
	require.NoError(t, err)

	_, err = f.permissions.Respond(ctx, recipient.Identity.LinkToken, outcome.RequestID, "reject")
	assert.True(t, errors.Is(err, common.ErrorInvalidArgument))
}

func TestRespond_UnknownRequest(t *testing.T) {
	f := newFixture(t)

	registered, _ := f.register(t, "bob")

	_, err := f.permissions.Respond(context.Background(), registered.Identity.LinkToken, "no-such-id", "accept")
	assert.True(t, errors.Is(err, common.ErrorNotFound))
}

func TestRespond_InvalidAction(t *testing.T) {
	f := newFixture(t)

	registered, _ := f.register(t, "bob")

	_, err := f.permissions.Respond(context.Background(), registered.Identity.LinkToken, "any", "maybe")
	assert.True(t, errors.Is(err, common.ErrorInvalidArgument))
}
