// errors.go

package sessiontoken

import (
	"errors"
	"fmt"
)

var (
	// ErrForgedToken marks a token with valid structure but a signature that
	// does not verify against the expected key. Unlike routine invalidity it
	// is escalated to the caller so upstream alerting can react.
	ErrForgedToken = errors.New("token signature mismatch")

	// ErrRefreshDenied is returned when rotation cannot proceed: invalid
	// refresh token, unreadable access claims, or a missing session record.
	ErrRefreshDenied = errors.New("refresh denied")

	// ErrInvalidSession is returned by session-bound reads when the presented
	// token or its backing session is no longer usable.
	ErrInvalidSession = errors.New("invalid session")

	// ErrActivationFailed is the uniform dormant-challenge failure: absent
	// key or code mismatch. It carries no detail about which field failed.
	ErrActivationFailed = errors.New("activation failed")

	// ErrChallengeConsumed is returned when a challenge code matches but the
	// record was already used or timed out mid-verification.
	ErrChallengeConsumed = errors.New("challenge already consumed or timed out")

	// ErrDeliveryFailed is returned when the messaging collaborator reports
	// a non-success sending a one-time code. Retryable.
	ErrDeliveryFailed = errors.New("code delivery failed")

	// ErrStoreUnavailable wraps infrastructure-level store failures.
	// Retryable; never silently mapped to an empty result.
	ErrStoreUnavailable = errors.New("session store unavailable")
)

// wrapStoreErr tags an infrastructure failure as retryable while keeping the
// underlying cause in the chain.
func wrapStoreErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrStoreUnavailable, err))
}
