package models

import "time"

// Permission request states. A request leaves pending exactly once; a
// rejected pair can be re-opened by inserting a fresh pending row.
const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
	RequestRejected = "rejected"
)

// PermissionRequest records one sender's ask to message one recipient.
type PermissionRequest struct {
	ID            string
	FromLinkToken string
	ToLinkToken   string
	FromNickname  string
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
