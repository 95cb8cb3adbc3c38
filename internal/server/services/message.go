package services

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chicrypt/relay/internal/common"
	"github.com/chicrypt/relay/internal/dbx"
	"github.com/chicrypt/relay/internal/server/models"
	"github.com/chicrypt/relay/internal/server/repositories/messages"
	"github.com/chicrypt/relay/internal/server/repositories/repomanager"
)

// PageOptions carries the caller's pagination parameters before validation.
// Order is the raw string from the request; anything that is not "asc"
// (case-insensitive) means descending.
type PageOptions struct {
	IncludeSeen bool
	Limit       int
	BeforeID    *int64
	SinceID     *int64
	Order       string
}

// PageResult is one window of a recipient's stream plus continuation
// metadata. NextCursor is nil once the stream is exhausted.
type PageResult struct {
	Envelopes  []*models.MessageEnvelope
	Count      int
	HasMore    bool
	NextCursor *int64
}

// MessageService owns the append-only message log and its pagination.
type MessageService struct {
	db    *sql.DB
	repos repomanager.RepositoryManager
}

// NewMessageService constructs a MessageService.
func NewMessageService(db *sql.DB, repos repomanager.RepositoryManager) *MessageService {
	return &MessageService{db: db, repos: repos}
}

// Append stores a ciphertext envelope for toLinkToken. When fromLinkToken is
// non-nil the send is gated: the sender must exist and hold accepted
// standing, checked in the same transaction as the insert so a concurrent
// accept or reject either fully admits or fully blocks the send. Anonymous
// sends (nil sender) skip the ledger entirely.
func (s *MessageService) Append(ctx context.Context, toLinkToken, ciphertext string, metadata json.RawMessage, fromLinkToken *string) (*models.MessageEnvelope, error) {
	decoded, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext is not valid base64", common.ErrorInvalidArgument)
	}
	if len(decoded) == 0 {
		return nil, fmt.Errorf("%w: empty ciphertext", common.ErrorInvalidArgument)
	}
	if len(decoded) > MaxCiphertextBytes {
		return nil, common.ErrorPayloadTooLarge
	}

	var metadataStr *string
	if len(metadata) > 0 {
		if !json.Valid(metadata) {
			return nil, fmt.Errorf("%w: metadata is not valid JSON", common.ErrorInvalidArgument)
		}
		if len(metadata) > MaxMetadataBytes {
			return nil, common.ErrorPayloadTooLarge
		}
		str := string(metadata)
		metadataStr = &str
	}

	envelope := &models.MessageEnvelope{
		LinkToken:  toLinkToken,
		Ciphertext: ciphertext,
		Metadata:   metadataStr,
		SizeBytes:  int64(len(decoded)),
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		identityRepo := s.repos.Identities(tx)

		if _, err := identityRepo.GetByLinkToken(ctx, toLinkToken); err != nil {
			return err
		}

		if fromLinkToken != nil {
			if _, err := identityRepo.GetByLinkToken(ctx, *fromLinkToken); err != nil {
				return err
			}
			granted, err := s.repos.Permissions(tx).HasAccepted(ctx, *fromLinkToken, toLinkToken)
			if err != nil {
				return err
			}
			if !granted {
				return common.ErrorPermissionRequired
			}
		}

		stored, err := s.repos.Messages(tx).Create(ctx, envelope)
		if err != nil {
			return err
		}
		envelope = stored
		return nil
	})
	if err != nil {
		return nil, err
	}

	return envelope, nil
}

// Page returns one cursor window over the owner's stream. The limit is
// clamped to [1, MaxPageSize] with DefaultPageSize for unspecified values;
// an unknown order string coerces to descending. A cursor that contradicts
// the order (since_id while descending, before_id while ascending, or both
// cursors at once) is an invalid argument.
func (s *MessageService) Page(ctx context.Context, ownerLinkToken string, opts PageOptions) (*PageResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	descending := !strings.EqualFold(opts.Order, "asc")

	if opts.BeforeID != nil && opts.SinceID != nil {
		return nil, fmt.Errorf("%w: before_id and since_id are mutually exclusive", common.ErrorInvalidArgument)
	}
	if opts.BeforeID != nil && !descending {
		return nil, fmt.Errorf("%w: before_id requires descending order", common.ErrorInvalidArgument)
	}
	if opts.SinceID != nil && descending {
		return nil, fmt.Errorf("%w: since_id requires ascending order", common.ErrorInvalidArgument)
	}

	// Probe one row past the window so has_more reflects actual rows, not a
	// full-page heuristic.
	rows, err := s.repos.Messages(s.db).Page(ctx, messages.PageQuery{
		LinkToken:   ownerLinkToken,
		IncludeSeen: opts.IncludeSeen,
		Limit:       limit + 1,
		BeforeID:    opts.BeforeID,
		SinceID:     opts.SinceID,
		Descending:  descending,
	})
	if err != nil {
		return nil, common.ErrorInternal
	}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}

	result := &PageResult{
		Envelopes: rows,
		Count:     len(rows),
		HasMore:   hasMore,
	}
	if len(rows) > 0 && hasMore {
		// The boundary id of the returned window: pass it back as before_id
		// (descending) or since_id (ascending) to continue.
		cursor := rows[len(rows)-1].ID
		result.NextCursor = &cursor
	}

	return result, nil
}

// MarkSeen flips unseen envelopes to seen for the owner and reports how many
// rows changed. Ids that belong to other recipients are silently ignored;
// re-acking seen messages is a no-op. The transition is one-way.
func (s *MessageService) MarkSeen(ctx context.Context, ownerLinkToken string, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := s.repos.Messages(s.db).MarkSeen(ctx, ownerLinkToken, ids)
	if err != nil {
		return 0, common.ErrorInternal
	}
	return n, nil
}
