// Package common defines shared constants and sentinel errors used across
// the client and server layers of the relay. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// Validation errors.
	ErrorInvalidArgument = errors.New("invalid argument")
	ErrorPayloadTooLarge = errors.New("payload too large")

	// Registration errors (public key already registered).
	ErrorConflict = errors.New("already exists")

	// Challenge issuance throttling.
	ErrorRateLimited = errors.New("rate limited")

	// Gated-send rejection; the caller's remedy is a permission request.
	ErrorPermissionRequired = errors.New("permission required")
)
