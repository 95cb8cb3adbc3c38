package services

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/chicrypt/relay/internal/common"
	"github.com/chicrypt/relay/internal/logging"
	"github.com/chicrypt/relay/internal/server/auth"
	"github.com/chicrypt/relay/internal/server/models"
	"github.com/chicrypt/relay/internal/server/repositories/repomanager"
)

// IssuedChallenge is what the caller gets back from Issue: the nonce to sign
// and the moment it stops being valid.
type IssuedChallenge struct {
	Nonce     string
	ExpiresAt time.Time
}

// ChallengeService issues single-use nonces and verifies signatures over
// them. Consumption is atomic per challenge row: of any number of concurrent
// verifications with the same nonce, at most one succeeds.
type ChallengeService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	logger logging.Logger
}

// NewChallengeService constructs a ChallengeService.
func NewChallengeService(db *sql.DB, repos repomanager.RepositoryManager, logger logging.Logger) *ChallengeService {
	return &ChallengeService{db: db, repos: repos, logger: logger.With("module", "challenges")}
}

// Issue creates a fresh challenge for linkToken. Unknown links get
// common.ErrorNotFound. Issuance is throttled per link: at most
// MaxOutstandingChallenges live nonces and one issuance per
// ChallengeIssueCooldown.
func (s *ChallengeService) Issue(ctx context.Context, linkToken string) (*IssuedChallenge, error) {
	if _, err := s.repos.Identities(s.db).GetByLinkToken(ctx, linkToken); err != nil {
		return nil, err
	}

	repo := s.repos.Challenges(s.db)

	outstanding, err := repo.CountOutstanding(ctx, linkToken)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if outstanding >= MaxOutstandingChallenges {
		return nil, common.ErrorRateLimited
	}

	last, err := repo.LastIssuedAt(ctx, linkToken)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrorInternal
	}
	if err == nil && timeNow().Sub(last) < ChallengeIssueCooldown {
		return nil, common.ErrorRateLimited
	}

	nonce := base64.StdEncoding.EncodeToString(common.GenerateRandByteArray(nonceBytes))
	challenge := &models.Challenge{
		ID:        uuid.NewString(),
		LinkToken: linkToken,
		Nonce:     nonce,
		ExpiresAt: timeNow().Add(ChallengeTTL),
	}
	if err := repo.Create(ctx, challenge); err != nil {
		return nil, common.ErrorInternal
	}

	// Opportunistic cleanup; an external periodic purge is not required for
	// correctness because every lookup re-checks expiry.
	if n, err := repo.DeleteExpired(ctx); err != nil {
		s.logger.Warn(ctx, "expired challenge purge failed", "error", err)
	} else if n > 0 {
		s.logger.Info(ctx, "purged expired challenges", "count", n)
	}

	return &IssuedChallenge{Nonce: nonce, ExpiresAt: challenge.ExpiresAt}, nil
}

// Verify checks signature over nonce for the given identity and consumes the
// challenge. Every failure mode (unknown, expired, or already-used nonce,
// bad signature) is common.ErrorUnauthorized; the caller learns nothing
// about which check failed.
func (s *ChallengeService) Verify(ctx context.Context, identity *models.Identity, nonce, signature string) error {
	repo := s.repos.Challenges(s.db)

	challenge, err := repo.FindValid(ctx, identity.LinkToken, nonce)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		return common.ErrorInternal
	}

	if !auth.VerifySignature(identity.PublicKey, nonce, signature) {
		return common.ErrorUnauthorized
	}

	// The conditional update is the replay barrier: losing the race to
	// another verification of the same nonce is an auth failure, not a
	// retryable condition.
	consumed, err := repo.Consume(ctx, challenge.ID)
	if err != nil {
		return common.ErrorInternal
	}
	if !consumed {
		return common.ErrorUnauthorized
	}

	return nil
}
