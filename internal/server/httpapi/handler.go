package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/chicrypt/relay/internal/common"
	"github.com/chicrypt/relay/internal/server/auth"
	"github.com/chicrypt/relay/internal/server/models"
	"github.com/chicrypt/relay/internal/server/services"
)

type registerRequest struct {
	PublicKey   string `json:"public_key"`
	KeyType     string `json:"key_type"`
	DisplayName string `json:"display_name"`
}

type registerResponse struct {
	LinkToken  string `json:"link_token"`
	FetchToken string `json:"fetch_token"`
	ShareLink  string `json:"share_link"`
}

type checkContactRequest struct {
	LinkToken string `json:"link_token"`
}

type checkContactResponse struct {
	Exists      bool   `json:"exists"`
	DisplayName string `json:"display_name,omitempty"`
	PublicKey   string `json:"public_key,omitempty"`
	KeyType     string `json:"key_type,omitempty"`
}

type challengeRequest struct {
	LinkToken string `json:"link_token"`
}

type challengeResponse struct {
	Challenge string    `json:"challenge"`
	ExpiresAt time.Time `json:"expires_at"`
}

type sendRequest struct {
	LinkToken        string          `json:"link_token"`
	EncryptedMessage string          `json:"encrypted_message"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
	FromLinkToken    *string         `json:"from_link_token,omitempty"`
}

type sendResponse struct {
	MessageID int64     `json:"message_id"`
	Timestamp time.Time `json:"timestamp"`
}

// proofFields are the challenge-proof members shared by every protected
// request body. The bearer variant travels in the Authorization header
// instead.
type proofFields struct {
	Challenge          string `json:"challenge,omitempty"`
	ChallengeSignature string `json:"challenge_signature,omitempty"`
}

type fetchRequest struct {
	proofFields
	LinkToken   string `json:"link_token"`
	IncludeSeen bool   `json:"include_seen"`
	Limit       int    `json:"limit"`
	BeforeID    *int64 `json:"before_id,omitempty"`
	SinceID     *int64 `json:"since_id,omitempty"`
	Order       string `json:"order,omitempty"`
}

type envelopeDTO struct {
	ID               int64           `json:"id"`
	EncryptedMessage string          `json:"encrypted_message"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
	Seen             bool            `json:"seen"`
	Timestamp        time.Time       `json:"timestamp"`
}

type fetchResponse struct {
	Messages   []envelopeDTO `json:"messages"`
	Count      int           `json:"count"`
	HasMore    bool          `json:"has_more"`
	NextCursor *int64        `json:"next_cursor,omitempty"`
}

type ackRequest struct {
	proofFields
	LinkToken  string  `json:"link_token"`
	MessageIDs []int64 `json:"message_ids"`
}

type ackResponse struct {
	Acknowledged int64 `json:"acknowledged"`
}

type permissionRequestRequest struct {
	FromLinkToken string `json:"from_link_token"`
	LinkToken     string `json:"link_token"`
	FromNickname  string `json:"from_nickname"`
}

type permissionRequestResponse struct {
	RequestID string `json:"request_id,omitempty"`
	Status    string `json:"status"`
}

type getRequestsRequest struct {
	proofFields
	LinkToken string `json:"link_token"`
}

type requestDTO struct {
	RequestID     string    `json:"request_id"`
	FromLinkToken string    `json:"from_link_token"`
	FromNickname  string    `json:"from_nickname,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

type getRequestsResponse struct {
	Requests []requestDTO `json:"requests"`
}

type respondRequestRequest struct {
	proofFields
	LinkToken string `json:"link_token"`
	RequestID string `json:"request_id"`
	Action    string `json:"action"`
}

type respondRequestResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

type errorResponse struct {
	Error          string `json:"error"`
	ActionRequired string `json:"action_required,omitempty"`
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decode(w, r, &req) {
		return
	}

	registered, err := s.identities.Register(r.Context(), req.PublicKey, req.KeyType, req.DisplayName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, registerResponse{
		LinkToken:  registered.Identity.LinkToken,
		FetchToken: registered.FetchToken,
		ShareLink:  strings.TrimRight(s.baseURL, "/") + "/l/" + registered.Identity.LinkToken,
	})
}

func (s *HTTPServer) handleCheckContact(w http.ResponseWriter, r *http.Request) {
	var req checkContactRequest
	if !s.decode(w, r, &req) {
		return
	}

	identity, err := s.identities.Check(r.Context(), req.LinkToken)
	if err != nil {
		// An unknown link is a negative answer here, not an error.
		if errors.Is(err, common.ErrorNotFound) {
			s.writeJSON(w, http.StatusOK, checkContactResponse{Exists: false})
			return
		}
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, checkContactResponse{
		Exists:      true,
		DisplayName: identity.DisplayName,
		PublicKey:   identity.PublicKey,
		KeyType:     identity.KeyType,
	})
}

func (s *HTTPServer) handleChallengeRequest(w http.ResponseWriter, r *http.Request) {
	var req challengeRequest
	if !s.decode(w, r, &req) {
		return
	}

	issued, err := s.challenges.Issue(r.Context(), req.LinkToken)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, challengeResponse{Challenge: issued.Nonce, ExpiresAt: issued.ExpiresAt})
}

func (s *HTTPServer) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if !s.decode(w, r, &req) {
		return
	}

	envelope, err := s.messages.Append(r.Context(), req.LinkToken, req.EncryptedMessage, req.Metadata, req.FromLinkToken)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, sendResponse{MessageID: envelope.ID, Timestamp: envelope.CreatedAt})
}

func (s *HTTPServer) handleFetch(w http.ResponseWriter, r *http.Request) {
	var req fetchRequest
	if !s.decode(w, r, &req) {
		return
	}

	identity, err := s.gate.Authenticate(r.Context(), req.LinkToken, extractProof(r, req.proofFields))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	page, err := s.messages.Page(r.Context(), identity.LinkToken, services.PageOptions{
		IncludeSeen: req.IncludeSeen,
		Limit:       req.Limit,
		BeforeID:    req.BeforeID,
		SinceID:     req.SinceID,
		Order:       req.Order,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := fetchResponse{
		Messages:   make([]envelopeDTO, 0, len(page.Envelopes)),
		Count:      page.Count,
		HasMore:    page.HasMore,
		NextCursor: page.NextCursor,
	}
	for _, envelope := range page.Envelopes {
		resp.Messages = append(resp.Messages, toEnvelopeDTO(envelope))
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleAck(w http.ResponseWriter, r *http.Request) {
	var req ackRequest
	if !s.decode(w, r, &req) {
		return
	}

	identity, err := s.gate.Authenticate(r.Context(), req.LinkToken, extractProof(r, req.proofFields))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	n, err := s.messages.MarkSeen(r.Context(), identity.LinkToken, req.MessageIDs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, ackResponse{Acknowledged: n})
}

func (s *HTTPServer) handleRequestPermission(w http.ResponseWriter, r *http.Request) {
	var req permissionRequestRequest
	if !s.decode(w, r, &req) {
		return
	}

	outcome, err := s.permissions.Request(r.Context(), req.FromLinkToken, req.LinkToken, req.FromNickname)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	// An already-granted pair answers 200; a fresh pending row is 201.
	status := http.StatusCreated
	if outcome.Status == models.RequestAccepted {
		status = http.StatusOK
	}
	s.writeJSON(w, status, permissionRequestResponse{RequestID: outcome.RequestID, Status: outcome.Status})
}

func (s *HTTPServer) handleGetRequests(w http.ResponseWriter, r *http.Request) {
	var req getRequestsRequest
	if !s.decode(w, r, &req) {
		return
	}

	identity, err := s.gate.Authenticate(r.Context(), req.LinkToken, extractProof(r, req.proofFields))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	pending, err := s.permissions.ListPending(r.Context(), identity.LinkToken)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := getRequestsResponse{Requests: make([]requestDTO, 0, len(pending))}
	for _, request := range pending {
		resp.Requests = append(resp.Requests, requestDTO{
			RequestID:     request.ID,
			FromLinkToken: request.FromLinkToken,
			FromNickname:  request.FromNickname,
			Timestamp:     request.CreatedAt,
		})
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleRespondRequest(w http.ResponseWriter, r *http.Request) {
	var req respondRequestRequest
	if !s.decode(w, r, &req) {
		return
	}

	identity, err := s.gate.Authenticate(r.Context(), req.LinkToken, extractProof(r, req.proofFields))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	status, err := s.permissions.Respond(r.Context(), identity.LinkToken, req.RequestID, req.Action)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, respondRequestResponse{RequestID: req.RequestID, Status: status})
}

// extractProof prefers the Authorization header; a challenge pair in the
// body is the fallback. Returns nil when the caller presented nothing.
func extractProof(r *http.Request, fields proofFields) auth.Proof {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok && token != "" {
		return auth.BearerProof{Token: token}
	}
	if fields.Challenge != "" || fields.ChallengeSignature != "" {
		return auth.ChallengeProof{Nonce: fields.Challenge, Signature: fields.ChallengeSignature}
	}
	return nil
}

func toEnvelopeDTO(envelope *models.MessageEnvelope) envelopeDTO {
	dto := envelopeDTO{
		ID:               envelope.ID,
		EncryptedMessage: envelope.Ciphertext,
		Seen:             envelope.Seen,
		Timestamp:        envelope.CreatedAt,
	}
	if envelope.Metadata != nil {
		dto.Metadata = json.RawMessage(*envelope.Metadata)
	}
	return dto
}

func (s *HTTPServer) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return false
	}
	return true
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error(context.Background(), "response encoding failed", "error", err)
	}
}

// writeError maps the error taxonomy onto HTTP statuses. Anything outside
// the taxonomy is a storage or programming failure: logged with detail,
// reported generically.
func (s *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	resp := errorResponse{Error: err.Error()}

	switch {
	case errors.Is(err, common.ErrorInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrorUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, common.ErrorPermissionRequired):
		status = http.StatusForbidden
		resp.ActionRequired = "request_permission"
	case errors.Is(err, common.ErrorForbidden):
		status = http.StatusForbidden
	case errors.Is(err, common.ErrorNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrorConflict):
		status = http.StatusConflict
	case errors.Is(err, common.ErrorPayloadTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, common.ErrorRateLimited):
		status = http.StatusTooManyRequests
	default:
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		status = http.StatusInternalServerError
		resp.Error = "internal error"
	}

	s.writeJSON(w, status, resp)
}
