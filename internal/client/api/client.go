// Package api is the HTTP client for the relay's JSON endpoints. It mirrors
// the wire contract one method per endpoint and translates HTTP statuses
// back into the shared error taxonomy, so callers branch on errors.Is
// instead of status codes.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/chicrypt/relay/internal/common"
)

// Auth carries the caller's proof for protected endpoints: either a bearer
// fetch token, or a signed challenge pair. The zero value means no proof.
type Auth struct {
	FetchToken         string
	Challenge          string
	ChallengeSignature string
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type RegisterResult struct {
	LinkToken  string `json:"link_token"`
	FetchToken string `json:"fetch_token"`
	ShareLink  string `json:"share_link"`
}

type Contact struct {
	Exists      bool   `json:"exists"`
	DisplayName string `json:"display_name"`
	PublicKey   string `json:"public_key"`
	KeyType     string `json:"key_type"`
}

type Challenge struct {
	Challenge string    `json:"challenge"`
	ExpiresAt time.Time `json:"expires_at"`
}

type SendResult struct {
	MessageID int64     `json:"message_id"`
	Timestamp time.Time `json:"timestamp"`
}

type Envelope struct {
	ID               int64           `json:"id"`
	EncryptedMessage string          `json:"encrypted_message"`
	Metadata         json.RawMessage `json:"metadata"`
	Seen             bool            `json:"seen"`
	Timestamp        time.Time       `json:"timestamp"`
}

type FetchResult struct {
	Messages   []Envelope `json:"messages"`
	Count      int        `json:"count"`
	HasMore    bool       `json:"has_more"`
	NextCursor *int64     `json:"next_cursor"`
}

type FetchParams struct {
	IncludeSeen bool
	Limit       int
	BeforeID    *int64
	SinceID     *int64
	Order       string
}

type PermissionOutcome struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

type PendingRequest struct {
	RequestID     string    `json:"request_id"`
	FromLinkToken string    `json:"from_link_token"`
	FromNickname  string    `json:"from_nickname"`
	Timestamp     time.Time `json:"timestamp"`
}

func (c *Client) Register(ctx context.Context, publicKey, keyType, displayName string) (*RegisterResult, error) {
	body := map[string]string{
		"public_key":   publicKey,
		"key_type":     keyType,
		"display_name": displayName,
	}
	var result RegisterResult
	if err := c.post(ctx, "/register", body, Auth{}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) CheckContact(ctx context.Context, linkToken string) (*Contact, error) {
	var result Contact
	if err := c.post(ctx, "/check_contact", map[string]string{"link_token": linkToken}, Auth{}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) RequestChallenge(ctx context.Context, linkToken string) (*Challenge, error) {
	var result Challenge
	if err := c.post(ctx, "/challenge_request", map[string]string{"link_token": linkToken}, Auth{}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Send delivers a ciphertext to linkToken. A nil fromLinkToken is an
// anonymous send; a non-nil one asserts sender identity and requires
// accepted standing on the server.
func (c *Client) Send(ctx context.Context, linkToken, encryptedMessage string, metadata json.RawMessage, fromLinkToken *string) (*SendResult, error) {
	body := map[string]any{
		"link_token":        linkToken,
		"encrypted_message": encryptedMessage,
	}
	if len(metadata) > 0 {
		body["metadata"] = metadata
	}
	if fromLinkToken != nil {
		body["from_link_token"] = *fromLinkToken
	}
	var result SendResult
	if err := c.post(ctx, "/send", body, Auth{}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Fetch(ctx context.Context, linkToken string, auth Auth, params FetchParams) (*FetchResult, error) {
	body := map[string]any{
		"link_token":   linkToken,
		"include_seen": params.IncludeSeen,
	}
	if params.Limit > 0 {
		body["limit"] = params.Limit
	}
	if params.BeforeID != nil {
		body["before_id"] = *params.BeforeID
	}
	if params.SinceID != nil {
		body["since_id"] = *params.SinceID
	}
	if params.Order != "" {
		body["order"] = params.Order
	}
	var result FetchResult
	if err := c.post(ctx, "/fetch", body, auth, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Ack(ctx context.Context, linkToken string, auth Auth, messageIDs []int64) (int64, error) {
	body := map[string]any{
		"link_token":  linkToken,
		"message_ids": messageIDs,
	}
	var result struct {
		Acknowledged int64 `json:"acknowledged"`
	}
	if err := c.post(ctx, "/ack", body, auth, &result); err != nil {
		return 0, err
	}
	return result.Acknowledged, nil
}

func (c *Client) RequestPermission(ctx context.Context, fromLinkToken, toLinkToken, nickname string) (*PermissionOutcome, error) {
	body := map[string]string{
		"from_link_token": fromLinkToken,
		"link_token":      toLinkToken,
		"from_nickname":   nickname,
	}
	var result PermissionOutcome
	if err := c.post(ctx, "/request_message_permission", body, Auth{}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetRequests(ctx context.Context, linkToken string, auth Auth) ([]PendingRequest, error) {
	var result struct {
		Requests []PendingRequest `json:"requests"`
	}
	if err := c.post(ctx, "/get_message_requests", map[string]string{"link_token": linkToken}, auth, &result); err != nil {
		return nil, err
	}
	return result.Requests, nil
}

func (c *Client) RespondRequest(ctx context.Context, linkToken string, auth Auth, requestID, action string) (*PermissionOutcome, error) {
	body := map[string]string{
		"link_token": linkToken,
		"request_id": requestID,
		"action":     action,
	}
	var result PermissionOutcome
	if err := c.post(ctx, "/respond_message_request", body, auth, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) post(ctx context.Context, path string, body any, auth Auth, dst any) error {
	payload, err := encodeBody(body, auth)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if auth.FetchToken != "" {
		req.Header.Set("Authorization", "Bearer "+auth.FetchToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("relay request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return taxonomyError(resp)
	}

	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("relay response: %w", err)
	}
	return nil
}

// encodeBody merges the challenge-proof fields into the request body, since
// the wire contract carries them alongside the operation's own fields.
func encodeBody(body any, auth Auth) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	if auth.Challenge == "" && auth.ChallengeSignature == "" {
		return raw, nil
	}

	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &merged); err != nil {
		return nil, err
	}
	challenge, _ := json.Marshal(auth.Challenge)
	signature, _ := json.Marshal(auth.ChallengeSignature)
	merged["challenge"] = challenge
	merged["challenge_signature"] = signature
	return json.Marshal(merged)
}

// taxonomyError maps an error response back onto the shared sentinels so
// callers can use errors.Is. The server's message is kept for display.
func taxonomyError(resp *http.Response) error {
	var body struct {
		Error          string `json:"error"`
		ActionRequired string `json:"action_required"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.Error == "" {
		body.Error = resp.Status
	}

	var sentinel error
	switch resp.StatusCode {
	case http.StatusBadRequest:
		sentinel = common.ErrorInvalidArgument
	case http.StatusUnauthorized:
		sentinel = common.ErrorUnauthorized
	case http.StatusForbidden:
		if body.ActionRequired == "request_permission" {
			sentinel = common.ErrorPermissionRequired
		} else {
			sentinel = common.ErrorForbidden
		}
	case http.StatusNotFound:
		sentinel = common.ErrorNotFound
	case http.StatusConflict:
		sentinel = common.ErrorConflict
	case http.StatusRequestEntityTooLarge:
		sentinel = common.ErrorPayloadTooLarge
	case http.StatusTooManyRequests:
		sentinel = common.ErrorRateLimited
	default:
		sentinel = common.ErrorInternal
	}

	return fmt.Errorf("%w: %s", sentinel, body.Error)
}
