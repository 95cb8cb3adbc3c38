// Package services drives the relay protocol for the CLI: registration,
// contact management, the permission workflow, and the send/fetch/ack loop
// with client-side sealed-box cryptography.
package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/chicrypt/relay/internal/client/api"
	"github.com/chicrypt/relay/internal/client/keystore"
	"github.com/chicrypt/relay/internal/client/models"
	"github.com/chicrypt/relay/internal/client/store"
	"github.com/chicrypt/relay/internal/common"
	"github.com/chicrypt/relay/internal/cryptox"
)

// relayAPI is the slice of the HTTP client the service needs; tests swap in
// a fake.
type relayAPI interface {
	Register(ctx context.Context, publicKey, keyType, displayName string) (*api.RegisterResult, error)
	CheckContact(ctx context.Context, linkToken string) (*api.Contact, error)
	RequestChallenge(ctx context.Context, linkToken string) (*api.Challenge, error)
	Send(ctx context.Context, linkToken, encryptedMessage string, metadata json.RawMessage, fromLinkToken *string) (*api.SendResult, error)
	Fetch(ctx context.Context, linkToken string, auth api.Auth, params api.FetchParams) (*api.FetchResult, error)
	Ack(ctx context.Context, linkToken string, auth api.Auth, messageIDs []int64) (int64, error)
	RequestPermission(ctx context.Context, fromLinkToken, toLinkToken, nickname string) (*api.PermissionOutcome, error)
	GetRequests(ctx context.Context, linkToken string, auth api.Auth) ([]api.PendingRequest, error)
	RespondRequest(ctx context.Context, linkToken string, auth api.Auth, requestID, action string) (*api.PermissionOutcome, error)
}

type RelayService struct {
	api   relayAPI
	keys  *keystore.Keystore
	repos *store.Repositories
}

func NewRelayService(apiClient relayAPI, keys *keystore.Keystore, repos *store.Repositories) *RelayService {
	return &RelayService{api: apiClient, keys: keys, repos: repos}
}

// Register creates fresh key pairs, registers the signing key with the
// relay and persists the resulting identity. Registering twice on the same
// data directory is a conflict; the keystore holds the only copy of the
// fetch token and must not be overwritten.
func (s *RelayService) Register(ctx context.Context, displayName string) (*keystore.Identity, string, error) {
	if s.keys.Exists() {
		return nil, "", fmt.Errorf("%w: identity already registered in this data directory", common.ErrorConflict)
	}

	id, err := keystore.NewIdentity(displayName)
	if err != nil {
		return nil, "", err
	}

	result, err := s.api.Register(ctx, id.SigningPublic, "ed25519", displayName)
	if err != nil {
		return nil, "", err
	}

	id.LinkToken = result.LinkToken
	id.FetchToken = result.FetchToken

	if err := s.keys.Save(id); err != nil {
		return nil, "", err
	}

	return id, result.ShareLink, nil
}

// Identity loads the stored identity, or common.ErrorNotFound when the user
// has not registered yet.
func (s *RelayService) Identity() (*keystore.Identity, error) {
	return s.keys.Load()
}

// Adopt re-attaches this data directory to an existing link using its fetch
// token, for the case where the original keystore was lost. The token is
// verified with a probe fetch before anything is written. The recovered
// identity has no key material, so old envelopes stay unreadable; fetching
// and acknowledging keep working.
func (s *RelayService) Adopt(ctx context.Context, linkToken, fetchToken string) (*keystore.Identity, error) {
	if s.keys.Exists() {
		return nil, fmt.Errorf("%w: identity already registered in this data directory", common.ErrorConflict)
	}

	auth := api.Auth{FetchToken: fetchToken}
	if _, err := s.api.Fetch(ctx, linkToken, auth, api.FetchParams{Limit: 1, IncludeSeen: true}); err != nil {
		return nil, err
	}

	id := &keystore.Identity{LinkToken: linkToken, FetchToken: fetchToken}
	if remote, err := s.api.CheckContact(ctx, linkToken); err == nil && remote.Exists {
		id.DisplayName = remote.DisplayName
		id.SigningPublic = remote.PublicKey
	}

	if err := s.keys.Save(id); err != nil {
		return nil, err
	}
	return id, nil
}

// AddContact resolves a link on the relay and stores it locally. The box
// public key cannot be learned from the relay (it only publishes signing
// keys) and is passed in from an out-of-band exchange; it may be empty, in
// which case sending to this contact is not possible yet.
func (s *RelayService) AddContact(ctx context.Context, linkToken, nickname, boxPublicKey string) (*models.Contact, error) {
	remote, err := s.api.CheckContact(ctx, linkToken)
	if err != nil {
		return nil, err
	}
	if !remote.Exists {
		return nil, fmt.Errorf("%w: no identity behind %s", common.ErrorNotFound, linkToken)
	}

	if boxPublicKey != "" {
		if _, err := cryptox.DecodeKey(boxPublicKey); err != nil {
			return nil, fmt.Errorf("%w: bad box key: %v", common.ErrorInvalidArgument, err)
		}
	}

	contact := &models.Contact{
		LinkToken:    linkToken,
		Nickname:     nickname,
		PublicKey:    remote.PublicKey,
		KeyType:      remote.KeyType,
		BoxPublicKey: boxPublicKey,
	}
	if err := s.repos.Contacts.Save(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}

func (s *RelayService) CheckContact(ctx context.Context, linkToken string) (*api.Contact, error) {
	return s.api.CheckContact(ctx, linkToken)
}

func (s *RelayService) Contacts(ctx context.Context) ([]*models.Contact, error) {
	return s.repos.Contacts.GetAll(ctx)
}

// RequestPermission asks a contact for standing to send gated messages.
func (s *RelayService) RequestPermission(ctx context.Context, toLinkToken string) (*api.PermissionOutcome, error) {
	id, err := s.keys.Load()
	if err != nil {
		return nil, err
	}
	return s.api.RequestPermission(ctx, id.LinkToken, toLinkToken, id.DisplayName)
}

func (s *RelayService) PendingRequests(ctx context.Context) ([]api.PendingRequest, error) {
	id, err := s.keys.Load()
	if err != nil {
		return nil, err
	}
	auth, err := s.proof(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.api.GetRequests(ctx, id.LinkToken, auth)
}

func (s *RelayService) RespondRequest(ctx context.Context, requestID, action string) (*api.PermissionOutcome, error) {
	id, err := s.keys.Load()
	if err != nil {
		return nil, err
	}
	auth, err := s.proof(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.api.RespondRequest(ctx, id.LinkToken, auth, requestID, action)
}

// Send seals plaintext to the contact's box key and delivers it. Anonymous
// sends omit the sender link, skipping the permission gate on the relay.
func (s *RelayService) Send(ctx context.Context, toLinkToken string, plaintext []byte, anonymous bool) (*api.SendResult, error) {
	contact, err := s.repos.Contacts.GetByLinkToken(ctx, toLinkToken)
	if err != nil {
		return nil, err
	}
	if contact.BoxPublicKey == "" {
		return nil, fmt.Errorf("%w: contact %s has no box key, cannot encrypt", common.ErrorInvalidArgument, toLinkToken)
	}

	raw, err := cryptox.DecodeKey(contact.BoxPublicKey)
	if err != nil {
		return nil, err
	}
	var recipient [32]byte
	copy(recipient[:], raw)

	sealed, err := cryptox.Seal(plaintext, &recipient)
	if err != nil {
		return nil, err
	}

	var from *string
	var metadata json.RawMessage
	if !anonymous {
		id, err := s.keys.Load()
		if err != nil {
			return nil, err
		}
		from = &id.LinkToken
		metadata, _ = json.Marshal(map[string]string{"from_nickname": id.DisplayName})
	}

	return s.api.Send(ctx, toLinkToken, base64.StdEncoding.EncodeToString(sealed), metadata, from)
}

// Fetch pulls every page of unseen envelopes from the relay and merges them
// into the local cache by id. Returns how many envelopes the relay handed
// back.
func (s *RelayService) Fetch(ctx context.Context, includeSeen bool) (int, error) {
	id, err := s.keys.Load()
	if err != nil {
		return 0, err
	}

	total := 0
	var cursor *int64
	for {
		auth, err := s.proof(ctx, id)
		if err != nil {
			return total, err
		}

		page, err := s.api.Fetch(ctx, id.LinkToken, auth, api.FetchParams{
			IncludeSeen: includeSeen,
			BeforeID:    cursor,
		})
		if err != nil {
			return total, err
		}

		for _, envelope := range page.Messages {
			var metadata *string
			if len(envelope.Metadata) > 0 {
				str := string(envelope.Metadata)
				metadata = &str
			}
			err := s.repos.Messages.Merge(ctx, &models.CachedMessage{
				ID:         envelope.ID,
				Ciphertext: envelope.EncryptedMessage,
				Metadata:   metadata,
				Seen:       envelope.Seen,
				CreatedAt:  envelope.Timestamp,
			})
			if err != nil {
				return total, err
			}
		}

		total += page.Count
		if !page.HasMore || page.NextCursor == nil {
			return total, nil
		}
		cursor = page.NextCursor
	}
}

// Messages lists the cached envelopes, newest first.
func (s *RelayService) Messages(ctx context.Context, includeSeen bool) ([]*models.CachedMessage, error) {
	return s.repos.Messages.GetAll(ctx, includeSeen)
}

// Read opens a cached envelope with the local box keys.
func (s *RelayService) Read(ctx context.Context, messageID int64) ([]byte, error) {
	id, err := s.keys.Load()
	if err != nil {
		return nil, err
	}
	boxKeys, err := id.BoxKeys()
	if err != nil {
		return nil, err
	}

	cached, err := s.repos.Messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}

	sealed, err := base64.StdEncoding.DecodeString(cached.Ciphertext)
	if err != nil {
		return nil, err
	}
	return cryptox.Open(sealed, boxKeys)
}

// Ack acknowledges envelopes on the relay and mirrors the seen flag locally.
func (s *RelayService) Ack(ctx context.Context, messageIDs []int64) (int64, error) {
	id, err := s.keys.Load()
	if err != nil {
		return 0, err
	}
	auth, err := s.proof(ctx, id)
	if err != nil {
		return 0, err
	}

	n, err := s.api.Ack(ctx, id.LinkToken, auth, messageIDs)
	if err != nil {
		return 0, err
	}
	if err := s.repos.Messages.MarkSeen(ctx, messageIDs); err != nil {
		return n, err
	}
	return n, nil
}

// proof builds the caller's authentication: the bearer fetch token when we
// have one, otherwise a freshly signed challenge.
func (s *RelayService) proof(ctx context.Context, id *keystore.Identity) (api.Auth, error) {
	if id.FetchToken != "" {
		return api.Auth{FetchToken: id.FetchToken}, nil
	}

	signing, err := id.SigningKeys()
	if err != nil {
		return api.Auth{}, err
	}
	challenge, err := s.api.RequestChallenge(ctx, id.LinkToken)
	if err != nil {
		return api.Auth{}, err
	}
	return api.Auth{
		Challenge:          challenge.Challenge,
		ChallengeSignature: cryptox.SignNonce(signing.Private, challenge.Challenge),
	}, nil
}
