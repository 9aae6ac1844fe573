// File: sessiontoken_dormant_test.go

package sessiontoken

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDormantService(t *testing.T, store ChallengeStore, messenger Messenger) *DormantService {
	t.Helper()
	service, err := NewDormantService(store, messenger, testConfig(), zerolog.Nop())
	require.NoError(t, err)
	return service
}

func TestIssueChallenge(t *testing.T) {
	ctx := context.Background()

	t.Run("Creates Record And Delivers Code", func(t *testing.T) {
		store := newTestStore(t)
		messenger := &fakeMessenger{}
		service := newTestDormantService(t, store, messenger)

		key, err := service.IssueChallenge(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(key, "DH_"))

		exists, err := service.Exists(ctx, key)
		require.NoError(t, err)
		assert.True(t, exists)

		code := messenger.lastSent(t)
		assert.Len(t, code, CodeLength)
	})

	t.Run("Empty Login ID", func(t *testing.T) {
		service := newTestDormantService(t, newTestStore(t), &fakeMessenger{})
		_, err := service.IssueChallenge(ctx, "")
		require.Error(t, err)
	})

	t.Run("Delivery Failure Fails The Issue", func(t *testing.T) {
		store := newTestStore(t)
		service := newTestDormantService(t, store, &fakeMessenger{fail: true})

		_, err := service.IssueChallenge(ctx, "u1")
		require.ErrorIs(t, err, ErrDeliveryFailed)
	})

	t.Run("Fresh Key And Code Per Issue", func(t *testing.T) {
		store := newTestStore(t)
		messenger := &fakeMessenger{}
		service := newTestDormantService(t, store, messenger)

		first, err := service.IssueChallenge(ctx, "u1")
		require.NoError(t, err)
		second, err := service.IssueChallenge(ctx, "u1")
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})
}

func TestVerifyChallenge(t *testing.T) {
	ctx := context.Background()

	t.Run("Single Use", func(t *testing.T) {
		store := newTestStore(t)
		messenger := &fakeMessenger{}
		service := newTestDormantService(t, store, messenger)

		key, err := service.IssueChallenge(ctx, "u1")
		require.NoError(t, err)
		code := messenger.lastSent(t)

		loginID, err := service.Verify(ctx, key, code)
		require.NoError(t, err)
		assert.Equal(t, "u1", loginID)

		// The record is consumed: a replay never re-validates.
		_, err = service.Verify(ctx, key, code)
		require.ErrorIs(t, err, ErrActivationFailed)

		exists, err := service.Exists(ctx, key)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("Mismatch Never Deletes", func(t *testing.T) {
		store := newTestStore(t)
		messenger := &fakeMessenger{}
		service := newTestDormantService(t, store, messenger)

		key, err := service.IssueChallenge(ctx, "u1")
		require.NoError(t, err)

		_, err = service.Verify(ctx, key, "wrong")
		require.ErrorIs(t, err, ErrActivationFailed)

		exists, err := service.Exists(ctx, key)
		require.NoError(t, err)
		assert.True(t, exists)

		loginID, err := service.Verify(ctx, key, messenger.lastSent(t))
		require.NoError(t, err)
		assert.Equal(t, "u1", loginID)
	})

	t.Run("Expired Challenge", func(t *testing.T) {
		store := newTestStore(t)
		messenger := &fakeMessenger{}
		config := testConfig()
		config.ChallengeTTL = 50 * time.Millisecond
		service, err := NewDormantService(store, messenger, config, zerolog.Nop())
		require.NoError(t, err)

		key, err := service.IssueChallenge(ctx, "u1")
		require.NoError(t, err)

		time.Sleep(80 * time.Millisecond)

		exists, err := service.Exists(ctx, key)
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = service.Verify(ctx, key, messenger.lastSent(t))
		require.ErrorIs(t, err, ErrActivationFailed)
	})
}

func TestNewDormantService(t *testing.T) {
	t.Run("Nil Store", func(t *testing.T) {
		_, err := NewDormantService(nil, &fakeMessenger{}, testConfig(), zerolog.Nop())
		require.Error(t, err)
	})

	t.Run("Nil Messenger", func(t *testing.T) {
		_, err := NewDormantService(newTestStore(t), nil, testConfig(), zerolog.Nop())
		require.Error(t, err)
	})

	t.Run("Invalid TTL", func(t *testing.T) {
		config := testConfig()
		config.ChallengeTTL = 0
		_, err := NewDormantService(newTestStore(t), &fakeMessenger{}, config, zerolog.Nop())
		require.Error(t, err)
	})
}
