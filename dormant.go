// dormant.go

package sessiontoken

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// dormantKeyPrefix namespaces challenge records in the shared store.
const dormantKeyPrefix = "DH_"

// DormantService orchestrates the dormant-account reactivation workflow:
// challenge creation, out-of-band code delivery, and single-use verification.
//
// Challenge lifecycle: CREATED -> CONSUMED (successful verify deletes the
// record) or CREATED -> GONE (TTL expiry). There are no other transitions; a
// second verify on a consumed or expired key fails, it never resurrects
// state.
type DormantService struct {
	store     ChallengeStore
	messenger Messenger
	config    Config
	logger    zerolog.Logger
}

// NewDormantService wires the workflow to its store and messaging
// collaborator. Pass zerolog.Nop() when no logging is wanted.
func NewDormantService(store ChallengeStore, messenger Messenger, config Config, logger zerolog.Logger) (*DormantService, error) {
	if store == nil {
		return nil, fmt.Errorf("challenge store cannot be nil")
	}
	if messenger == nil {
		return nil, fmt.Errorf("messenger cannot be nil")
	}
	if config.ChallengeTTL <= 0 {
		return nil, fmt.Errorf("challenge TTL must be positive")
	}
	return &DormantService{
		store:     store,
		messenger: messenger,
		config:    config,
		logger:    logger,
	}, nil
}

// IssueChallenge writes a {loginId, code} record under a fresh "DH_"-prefixed
// key with the challenge TTL, then delivers the code through the messenger.
// Delivery failure fails the whole operation with a retryable error; the
// stored record is left for the TTL to reap, so a retry simply issues a
// fresh key and code.
func (s *DormantService) IssueChallenge(ctx context.Context, loginID string) (string, error) {
	if loginID == "" {
		return "", fmt.Errorf("login id is required")
	}

	challengeID, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate challenge ID: %w", err)
	}

	code, err := GenerateCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}

	key := dormantKeyPrefix + challengeID.String()
	if err := s.store.PutChallenge(ctx, key, loginID, code, s.config.ChallengeTTL); err != nil {
		return "", fmt.Errorf("persist challenge: %w", err)
	}

	if err := s.messenger.Send(ctx, code, s.config.SenderName, s.config.SenderIcon); err != nil {
		s.logger.Error().Err(err).Msg("one-time code delivery failed")
		return "", errors.Join(ErrDeliveryFailed, err)
	}

	s.logger.Debug().Str("challenge_key", key).Msg("issued dormant challenge")
	return key, nil
}

// Exists reports whether a live challenge with both its code and loginId
// fields is present under key. A partially deleted or malformed record does
// not count.
func (s *DormantService) Exists(ctx context.Context, key string) (bool, error) {
	return s.store.ChallengeExists(ctx, key)
}

// Verify checks the supplied code against the challenge record and consumes
// it on success, returning the loginId it was issued for.
//
// A mismatch or absent record yields ErrActivationFailed with no hint about
// which field failed and leaves the record untouched. A matching code whose
// loginId is already gone yields ErrChallengeConsumed.
func (s *DormantService) Verify(ctx context.Context, key, code string) (string, error) {
	loginID, err := s.store.ConsumeChallenge(ctx, key, code)
	if err != nil {
		switch {
		case errors.Is(err, ErrActivationFailed):
			s.logger.Debug().Str("challenge_key", key).Msg("code verification failed")
		case errors.Is(err, ErrChallengeConsumed):
			s.logger.Debug().Str("challenge_key", key).Msg("challenge already consumed or timed out")
		}
		return "", err
	}

	s.logger.Debug().Str("challenge_key", key).Msg("dormant challenge consumed")
	return loginID, nil
}
