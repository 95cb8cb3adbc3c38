// Package keystore persists the CLI's identity: the link token, the bearer
// fetch token, and both key pairs (Ed25519 for challenge signatures, X25519
// for sealed boxes). Keys live in a single JSON file with owner-only
// permissions under the data directory.
package keystore

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chicrypt/relay/internal/common"
	"github.com/chicrypt/relay/internal/cryptox"
)

const identityFile = "identity.json"

// Identity is the stored form of the user's keys and credentials. All byte
// fields are base64.
type Identity struct {
	LinkToken      string `json:"link_token"`
	DisplayName    string `json:"display_name"`
	FetchToken     string `json:"fetch_token"`
	SigningPublic  string `json:"signing_public"`
	SigningPrivate string `json:"signing_private"`
	BoxPublic      string `json:"box_public"`
	BoxPrivate     string `json:"box_private"`
}

// NewIdentity generates fresh signing and box key pairs for a registration.
// LinkToken and FetchToken are filled in after the relay answers.
func NewIdentity(displayName string) (*Identity, error) {
	signing, err := cryptox.GenerateSigningKey()
	if err != nil {
		return nil, err
	}
	box, err := cryptox.GenerateBoxKey()
	if err != nil {
		return nil, err
	}

	return &Identity{
		DisplayName:    displayName,
		SigningPublic:  cryptox.EncodeKey(signing.Public),
		SigningPrivate: base64.StdEncoding.EncodeToString(signing.Private),
		BoxPublic:      cryptox.EncodeKey(box.Public[:]),
		BoxPrivate:     cryptox.EncodeKey(box.Private[:]),
	}, nil
}

// SigningKeys decodes the stored Ed25519 pair.
func (id *Identity) SigningKeys() (*cryptox.SigningKeyPair, error) {
	pub, err := cryptox.DecodeKey(id.SigningPublic)
	if err != nil {
		return nil, fmt.Errorf("signing public: %w", err)
	}
	priv, err := base64.StdEncoding.DecodeString(id.SigningPrivate)
	if err != nil {
		return nil, fmt.Errorf("signing private: %w", err)
	}
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("signing private: expected %d bytes, got %d", ed25519.PrivateKeySize, len(priv))
	}
	return &cryptox.SigningKeyPair{Public: pub, Private: priv}, nil
}

// BoxKeys decodes the stored X25519 pair.
func (id *Identity) BoxKeys() (*cryptox.BoxKeyPair, error) {
	pub, err := cryptox.DecodeKey(id.BoxPublic)
	if err != nil {
		return nil, fmt.Errorf("box public: %w", err)
	}
	priv, err := cryptox.DecodeKey(id.BoxPrivate)
	if err != nil {
		return nil, fmt.Errorf("box private: %w", err)
	}
	keys := &cryptox.BoxKeyPair{}
	copy(keys.Public[:], pub)
	copy(keys.Private[:], priv)
	return keys, nil
}

// Keystore reads and writes the identity file in a data directory.
type Keystore struct {
	dir string
}

func New(dir string) *Keystore {
	return &Keystore{dir: dir}
}

func (k *Keystore) path() string {
	return filepath.Join(k.dir, identityFile)
}

// Exists reports whether an identity has been stored.
func (k *Keystore) Exists() bool {
	_, err := os.Stat(k.path())
	return err == nil
}

// Save writes the identity with owner-only permissions, creating the data
// directory if needed.
func (k *Keystore) Save(id *Identity) error {
	if err := os.MkdirAll(k.dir, 0o700); err != nil {
		return fmt.Errorf("keystore dir: %w", err)
	}
	data, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(k.path(), data, 0o600); err != nil {
		return fmt.Errorf("keystore write: %w", err)
	}
	return nil
}

// Load reads the stored identity. A missing file is common.ErrorNotFound so
// callers can distinguish "not registered yet" from a broken keystore.
func (k *Keystore) Load() (*Identity, error) {
	data, err := os.ReadFile(k.path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("keystore read: %w", err)
	}
	id := &Identity{}
	if err := json.Unmarshal(data, id); err != nil {
		return nil, fmt.Errorf("keystore parse: %w", err)
	}
	return id, nil
}
