package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chicrypt/relay/internal/common"
)

func testCiphertext(n int) string {
	return base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0x5a}, n))
}

func TestAppend_Anonymous(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	recipient, _ := f.register(t, "bob")

	envelope, err := f.messages.Append(ctx, recipient.Identity.LinkToken, testCiphertext(64), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), envelope.ID)
	assert.Equal(t, int64(64), envelope.SizeBytes)
	assert.False(t, envelope.Seen)
	assert.Nil(t, envelope.Metadata)
}

func TestAppend_WithMetadata(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	recipient, _ := f.register(t, "bob")

	meta := json.RawMessage(`{"sender_hint":"sealed"}`)
	envelope, err := f.messages.Append(ctx, recipient.Identity.LinkToken, testCiphertext(10), meta, nil)
	require.NoError(t, err)
	require.NotNil(t, envelope.Metadata)
	assert.JSONEq(t, string(meta), *envelope.Metadata)
}

func TestAppend_UnknownRecipient(t *testing.T) {
	f := newFixture(t)

	_, err := f.messages.Append(context.Background(), "link_missing", testCiphertext(10), nil, nil)
	assert.True(t, errors.Is(err, common.ErrorNotFound))
}

func TestAppend_InvalidPayload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	recipient, _ := f.register(t, "bob")

	tests := []struct {
		name       string
		ciphertext string
		metadata   json.RawMessage
		want       error
	}{
		{"not base64", "%%%", nil, common.ErrorInvalidArgument},
		{"empty", "", nil, common.ErrorInvalidArgument},
		{"oversize ciphertext", testCiphertext(MaxCiphertextBytes + 1), nil, common.ErrorPayloadTooLarge},
		{"invalid metadata", testCiphertext(10), json.RawMessage(`{broken`), common.ErrorInvalidArgument},
		{"oversize metadata", testCiphertext(10), oversizeMetadata(), common.ErrorPayloadTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.messages.Append(ctx, recipient.Identity.LinkToken, tt.ciphertext, tt.metadata, nil)
			assert.True(t, errors.Is(err, tt.want))
		})
	}
}

func oversizeMetadata() json.RawMessage {
	padding := bytes.Repeat([]byte{'a'}, MaxMetadataBytes)
	return json.RawMessage(fmt.Sprintf(`{"pad":%q}`, padding))
}

func TestAppend_BoundaryCiphertext(t *testing.T) {
	f := newFixture(t)

	recipient, _ := f.register(t, "bob")

	// Exactly at the cap is accepted.
	_, err := f.messages.Append(context.Background(), recipient.Identity.LinkToken, testCiphertext(MaxCiphertextBytes), nil, nil)
	require.NoError(t, err)
}

func TestAppend_GatedWithoutGrant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sender, _ := f.register(t, "alice")
	recipient, _ := f.register(t, "bob")

	from := sender.Identity.LinkToken
	_, err := f.messages.Append(ctx, recipient.Identity.LinkToken, testCiphertext(10), nil, &from)
	assert.True(t, errors.Is(err, common.ErrorPermissionRequired))

	// A pending request is not a grant.
	_, err = f.permissions.Request(ctx, from, recipient.Identity.LinkToken, "alice")
	require.NoError(t, err)
	_, err = f.messages.Append(ctx, recipient.Identity.LinkToken, testCiphertext(10), nil, &from)
	assert.True(t, errors.Is(err, common.ErrorPermissionRequired))
}

func TestAppend_GatedWithGrant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sender, _ := f.register(t, "alice")
	recipient, _ := f.register(t, "bob")

	from := sender.Identity.LinkToken
	outcome, err := f.permissions.Request(ctx, from, recipient.Identity.LinkToken, "alice")
	require.NoError(t, err)
	_, err = f.permissions.Respond(ctx, recipient.Identity.LinkToken, outcome.RequestID, "accept")
	require.NoError(t, err)

	envelope, err := f.messages.Append(ctx, recipient.Identity.LinkToken, testCiphertext(10), nil, &from)
	require.NoError(t, err)
	assert.NotZero(t, envelope.ID)
}

func TestAppend_GatedUnknownSender(t *testing.T) {
	f := newFixture(t)

	recipient, _ := f.register(t, "bob")

	from := "link_missing"
	_, err := f.messages.Append(context.Background(), recipient.Identity.LinkToken, testCiphertext(10), nil, &from)
	assert.True(t, errors.Is(err, common.ErrorNotFound))
}

func TestPage_DescendingWalk(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	recipient, _ := f.register(t, "bob")

	const total = 25
	for i := 0; i < total; i++ {
		_, err := f.messages.Append(ctx, recipient.Identity.LinkToken, testCiphertext(8), nil, nil)
		require.NoError(t, err)
	}

	seen := make(map[int64]bool)
	var cursor *int64
	pages := 0
	for {
		page, err := f.messages.Page(ctx, recipient.Identity.LinkToken, PageOptions{Limit: 10, BeforeID: cursor})
		require.NoError(t, err)
		pages++

		var prev int64
		for i, envelope := range page.Envelopes {
			assert.False(t, seen[envelope.ID], "duplicate id %d", envelope.ID)
			seen[envelope.ID] = true
			if i > 0 {
				assert.Less(t, envelope.ID, prev)
			}
			prev = envelope.ID
		}

		if !page.HasMore {
			assert.Nil(t, page.NextCursor)
			break
		}
		require.NotNil(t, page.NextCursor)
		assert.Equal(t, page.Envelopes[len(page.Envelopes)-1].ID, *page.NextCursor)
		cursor = page.NextCursor
	}

	assert.Equal(t, 3, pages)
	assert.Len(t, seen, total)
}

func TestPage_AscendingWalk(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	recipient, _ := f.register(t, "bob")

	const total = 12
	for i := 0; i < total; i++ {
		_, err := f.messages.Append(ctx, recipient.Identity.LinkToken, testCiphertext(8), nil, nil)
		require.NoError(t, err)
	}

	page, err := f.messages.Page(ctx, recipient.Identity.LinkToken, PageOptions{Limit: 5, Order: "asc"})
	require.NoError(t, err)
	require.Len(t, page.Envelopes, 5)
	assert.Equal(t, int64(1), page.Envelopes[0].ID)
	assert.True(t, page.HasMore)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, int64(5), *page.NextCursor)

	page, err = f.messages.Page(ctx, recipient.Identity.LinkToken, PageOptions{Limit: 10, Order: "asc", SinceID: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, page.Envelopes, 7)
	assert.Equal(t, int64(6), page.Envelopes[0].ID)
	assert.False(t, page.HasMore)
	assert.Nil(t, page.NextCursor)
}

func TestPage_CursorOrderContradictions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	recipient, _ := f.register(t, "bob")
	cursor := int64(5)

	tests := []struct {
		name string
		opts PageOptions
	}{
		{"both cursors", PageOptions{BeforeID: &cursor, SinceID: &cursor}},
		{"before_id ascending", PageOptions{BeforeID: &cursor, Order: "asc"}},
		{"since_id descending", PageOptions{SinceID: &cursor, Order: "desc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.messages.Page(ctx, recipient.Identity.LinkToken, tt.opts)
			assert.True(t, errors.Is(err, common.ErrorInvalidArgument))
		})
	}
}

func TestPage_LimitClamp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	recipient, _ := f.register(t, "bob")

	for i := 0; i < MaxPageSize+5; i++ {
		_, err := f.messages.Append(ctx, recipient.Identity.LinkToken, testCiphertext(1), nil, nil)
		require.NoError(t, err)
	}

	page, err := f.messages.Page(ctx, recipient.Identity.LinkToken, PageOptions{Limit: 10000})
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, page.Count)
	assert.True(t, page.HasMore)
}

func TestMarkSeen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	recipient, _ := f.register(t, "bob")

	var ids []int64
	for i := 0; i < 3; i++ {
		envelope, err := f.messages.Append(ctx, recipient.Identity.LinkToken, testCiphertext(8), nil, nil)
		require.NoError(t, err)
		ids = append(ids, envelope.ID)
	}

	n, err := f.messages.MarkSeen(ctx, recipient.Identity.LinkToken, ids[:2])
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Default fetch hides the acked envelopes.
	page, err := f.messages.Page(ctx, recipient.Identity.LinkToken, PageOptions{})
	require.NoError(t, err)
	require.Len(t, page.Envelopes, 1)
	assert.Equal(t, ids[2], page.Envelopes[0].ID)

	// include_seen brings the full stream back.
	page, err = f.messages.Page(ctx, recipient.Identity.LinkToken, PageOptions{IncludeSeen: true})
	require.NoError(t, err)
	assert.Len(t, page.Envelopes, 3)
}

func TestMarkSeen_CrossOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner, _ := f.register(t, "bob")
	other, _ := f.register(t, "mallory")

	envelope, err := f.messages.Append(ctx, owner.Identity.LinkToken, testCiphertext(8), nil, nil)
	require.NoError(t, err)

	// Acking someone else's envelope flips nothing.
	n, err := f.messages.MarkSeen(ctx, other.Identity.LinkToken, []int64{envelope.ID})
	require.NoError(t, err)
	assert.Zero(t, n)

	page, err := f.messages.Page(ctx, owner.Identity.LinkToken, PageOptions{})
	require.NoError(t, err)
	assert.Len(t, page.Envelopes, 1)
}

func TestMarkSeen_Empty(t *testing.T) {
	f := newFixture(t)

	owner, _ := f.register(t, "bob")

	n, err := f.messages.MarkSeen(context.Background(), owner.Identity.LinkToken, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
