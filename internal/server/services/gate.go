package services

import (
	"context"
	"database/sql"

	"github.com/chicrypt/relay/internal/common"
	"github.com/chicrypt/relay/internal/server/auth"
	"github.com/chicrypt/relay/internal/server/models"
	"github.com/chicrypt/relay/internal/server/repositories/repomanager"
)

// challengeVerifier is the slice of ChallengeService the gate needs.
type challengeVerifier interface {
	Verify(ctx context.Context, identity *models.Identity, nonce, signature string) error
}

// AuthGate is the single authorization decision point for every protected
// operation. It resolves a Proof against the identity that owns linkToken
// and either returns that identity or fails. There is no path through the
// gate that authenticates a caller as a link other than the one named.
type AuthGate struct {
	db         *sql.DB
	repos      repomanager.RepositoryManager
	challenges challengeVerifier
}

// NewAuthGate constructs an AuthGate.
func NewAuthGate(db *sql.DB, repos repomanager.RepositoryManager, challenges challengeVerifier) *AuthGate {
	return &AuthGate{db: db, repos: repos, challenges: challenges}
}

// Authenticate proves that the caller owns linkToken. An unknown link is
// common.ErrorNotFound (the caller could not have credentials for it); a nil
// or failing proof is common.ErrorUnauthorized.
func (g *AuthGate) Authenticate(ctx context.Context, linkToken string, proof auth.Proof) (*models.Identity, error) {
	identity, err := g.repos.Identities(g.db).GetByLinkToken(ctx, linkToken)
	if err != nil {
		return nil, err
	}

	switch p := proof.(type) {
	case auth.BearerProof:
		if !auth.CheckToken(identity.FetchTokenHash, p.Token) {
			return nil, common.ErrorUnauthorized
		}
		return identity, nil
	case auth.ChallengeProof:
		if err := g.challenges.Verify(ctx, identity, p.Nonce, p.Signature); err != nil {
			return nil, err
		}
		return identity, nil
	default:
		return nil, common.ErrorUnauthorized
	}
}
