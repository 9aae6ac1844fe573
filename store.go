// store.go

package sessiontoken

import (
	"context"
	"time"
)

// Session store hash fields, part of the wire contract with other consumers
// of the store.
const (
	fieldLoginID = "loginId"
	fieldRole    = "role"
	fieldUserID  = "userId"
	fieldCode    = "code"
)

// SessionStore is the contract for per-session state. Implementations must
// provide atomic single-key operations; all cross-process coordination in
// this package happens through them, never via in-process locks.
type SessionStore interface {
	// Put writes all attributes as a single record with the store's session
	// TTL. A record must never be left visible without a TTL: if the TTL
	// cannot be set the record is removed and the write reported failed.
	Put(ctx context.Context, sessionID string, attrs SessionAttributes) error

	// Get returns the stored attributes, or empty attributes when the record
	// is absent or expired. Infrastructure failures are returned as errors,
	// never as an empty result.
	Get(ctx context.Context, sessionID string) (SessionAttributes, error)

	// Take atomically reads and deletes the record in one step. At most one
	// concurrent caller observes the attributes; the rest see empty. This is
	// the primitive that serializes concurrent rotations.
	Take(ctx context.Context, sessionID string) (SessionAttributes, error)

	// Remove deletes the record. Deleting a non-existent key is not an
	// error; infrastructure failures are.
	Remove(ctx context.Context, sessionID string) error
}

// ChallengeStore is the contract for dormant-reactivation challenge records.
type ChallengeStore interface {
	// PutChallenge writes {loginId, code} under key with the given TTL.
	PutChallenge(ctx context.Context, key, loginID, code string, ttl time.Duration) error

	// ChallengeExists reports whether a live record with both the code and
	// loginId fields is present under key.
	ChallengeExists(ctx context.Context, key string) (bool, error)

	// ConsumeChallenge atomically compares the supplied code against the
	// stored one and, on match, deletes the record and returns the loginId.
	// A mismatch or absent record yields ErrActivationFailed and leaves the
	// record untouched; a matching code on a record whose loginId is already
	// gone yields ErrChallengeConsumed.
	ConsumeChallenge(ctx context.Context, key, code string) (string, error)
}

// Store combines both contracts; every backend in this package implements it.
type Store interface {
	SessionStore
	ChallengeStore
}
