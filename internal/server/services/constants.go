package services

import "time"

// Protocol constants. These are normative for every client of the relay and
// are deliberately not configurable.
const (
	// MaxCiphertextBytes caps the decoded size of one message payload.
	MaxCiphertextBytes = 16 * 1024

	// MaxMetadataBytes caps the serialized metadata attached to a message.
	MaxMetadataBytes = 4 * 1024

	// MaxPageSize is the hard ceiling on rows per fetch; DefaultPageSize
	// applies when the caller does not ask for a limit.
	MaxPageSize     = 200
	DefaultPageSize = 50

	// ChallengeTTL is how long an issued nonce stays verifiable.
	ChallengeTTL = 5 * time.Minute

	// Challenge issuance throttling per link token.
	MaxOutstandingChallenges = 5
	ChallengeIssueCooldown   = 3 * time.Second

	// KeyTypeEd25519 is the only accepted signing scheme.
	KeyTypeEd25519 = "ed25519"

	// Token shapes: a link token is the shareable inbox handle, a fetch
	// token is the bearer credential returned once at registration.
	LinkTokenPrefix = "link_"
	linkTokenBytes  = 24
	fetchTokenBytes = 48
	nonceBytes      = 32
)

// timeNow is a seam for tests.
var timeNow = time.Now
