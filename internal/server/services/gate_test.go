package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chicrypt/relay/internal/common"
	"github.com/chicrypt/relay/internal/cryptox"
	"github.com/chicrypt/relay/internal/server/auth"
)

func TestAuthenticate_Bearer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	registered, _ := f.register(t, "alice")

	identity, err := f.gate.Authenticate(ctx, registered.Identity.LinkToken, auth.BearerProof{Token: registered.FetchToken})
	require.NoError(t, err)
	assert.Equal(t, registered.Identity.ID, identity.ID)
}

func TestAuthenticate_BearerWrongToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	registered, _ := f.register(t, "alice")
	other, _ := f.register(t, "bob")

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"someone else's token", other.FetchToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.gate.Authenticate(ctx, registered.Identity.LinkToken, auth.BearerProof{Token: tt.token})
			assert.True(t, errors.Is(err, common.ErrorUnauthorized))
		})
	}
}

func TestAuthenticate_Challenge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	registered, keys := f.register(t, "alice")

	issued, err := f.challenges.Issue(ctx, registered.Identity.LinkToken)
	require.NoError(t, err)

	proof := auth.ChallengeProof{
		Nonce:     issued.Nonce,
		Signature: cryptox.SignNonce(keys.Private, issued.Nonce),
	}
	identity, err := f.gate.Authenticate(ctx, registered.Identity.LinkToken, proof)
	require.NoError(t, err)
	assert.Equal(t, registered.Identity.ID, identity.ID)

	// The challenge was consumed on success; the same proof does not pass
	// twice.
	_, err = f.gate.Authenticate(ctx, registered.Identity.LinkToken, proof)
	assert.True(t, errors.Is(err, common.ErrorUnauthorized))
}

func TestAuthenticate_UnknownLink(t *testing.T) {
	f := newFixture(t)

	_, err := f.gate.Authenticate(context.Background(), "link_missing", auth.BearerProof{Token: "x"})
	assert.True(t, errors.Is(err, common.ErrorNotFound))
}

func TestAuthenticate_NoProof(t *testing.T) {
	f := newFixture(t)

	registered, _ := f.register(t, "alice")

	_, err := f.gate.Authenticate(context.Background(), registered.Identity.LinkToken, nil)
	assert.True(t, errors.Is(err, common.ErrorUnauthorized))
}
