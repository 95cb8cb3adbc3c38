// Package services implements the relay's domain operations over the
// repository layer: identity registration, challenge-response issuance and
// verification, the auth gate, the permission ledger, and the message log.
package services

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/chicrypt/relay/internal/common"
	"github.com/chicrypt/relay/internal/server/auth"
	"github.com/chicrypt/relay/internal/server/models"
	"github.com/chicrypt/relay/internal/server/repositories/repomanager"
)

// RegisteredIdentity is the registration result. FetchToken is the plaintext
// bearer credential; this is the only moment it exists server-side.
type RegisteredIdentity struct {
	Identity   *models.Identity
	FetchToken string
}

// IdentityService creates and resolves identities.
type IdentityService struct {
	db    *sql.DB
	repos repomanager.RepositoryManager
}

// NewIdentityService constructs an IdentityService.
func NewIdentityService(db *sql.DB, repos repomanager.RepositoryManager) *IdentityService {
	return &IdentityService{db: db, repos: repos}
}

// Register creates a new identity for the given public key and returns the
// link token plus the one-time fetch token. Only ed25519 keys are accepted;
// an empty keyType defaults to ed25519. A public key that is already
// registered yields common.ErrorConflict.
func (s *IdentityService) Register(ctx context.Context, publicKey, keyType, displayName string) (*RegisteredIdentity, error) {
	if keyType == "" {
		keyType = KeyTypeEd25519
	}
	if keyType != KeyTypeEd25519 {
		return nil, fmt.Errorf("%w: unsupported key_type", common.ErrorInvalidArgument)
	}
	if !auth.ValidPublicKey(publicKey) {
		return nil, fmt.Errorf("%w: invalid public key", common.ErrorInvalidArgument)
	}

	linkSuffix, err := common.MakeRandBase64String(linkTokenBytes)
	if err != nil {
		return nil, common.ErrorInternal
	}
	fetchToken, err := common.MakeRandBase64String(fetchTokenBytes)
	if err != nil {
		return nil, common.ErrorInternal
	}

	keyHash := sha256.Sum256([]byte(publicKey))

	identity := &models.Identity{
		ID:             uuid.NewString(),
		LinkToken:      LinkTokenPrefix + linkSuffix,
		PublicKey:      publicKey,
		PublicKeyHash:  hex.EncodeToString(keyHash[:]),
		KeyType:        keyType,
		DisplayName:    common.SanitizeLabel(displayName),
		FetchTokenHash: auth.HashToken(fetchToken),
	}

	identity, err = s.repos.Identities(s.db).Create(ctx, identity)
	if err != nil {
		return nil, err
	}

	return &RegisteredIdentity{Identity: identity, FetchToken: fetchToken}, nil
}

// Check resolves a link token to its public fields. Returns
// common.ErrorNotFound when the link is unknown; callers decide whether that
// is an error or just "does not exist".
func (s *IdentityService) Check(ctx context.Context, linkToken string) (*models.Identity, error) {
	return s.repos.Identities(s.db).GetByLinkToken(ctx, linkToken)
}
