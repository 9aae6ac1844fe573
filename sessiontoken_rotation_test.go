// File: sessiontoken_rotation_test.go

package sessiontoken

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotateProducesFreshIdentity(t *testing.T) {
	store := newTestStore(t)
	engine := newTestEngine(t, store)
	ctx := context.Background()
	attrs := SessionAttributes{LoginID: "u1", Role: "USER", UserID: 42}

	pair, err := engine.Mint(ctx, attrs)
	require.NoError(t, err)

	rotated, err := engine.Rotate(ctx, pair.RefreshToken, pair.AccessToken)
	require.NoError(t, err)

	assert.NotEqual(t, pair.SessionID, rotated.SessionID)
	assert.NotEqual(t, pair.AccessToken, rotated.AccessToken)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	valid, err := engine.Validate(rotated.AccessToken, AccessToken)
	require.NoError(t, err)
	assert.True(t, valid)

	old, err := store.Get(ctx, pair.SessionID.String())
	require.NoError(t, err)
	assert.True(t, old.Empty())

	fresh, err := store.Get(ctx, rotated.SessionID.String())
	require.NoError(t, err)
	assert.Equal(t, attrs, fresh)
}

// TestRotateAfterAccessExpiry walks the full refresh path: the access token
// expires, stops validating, and the original refresh token still buys a
// fresh pair carrying the same session attributes.
func TestRotateAfterAccessExpiry(t *testing.T) {
	store := newTestStore(t)
	engine := newTestEngine(t, store)
	ctx := context.Background()
	attrs := SessionAttributes{LoginID: "u1", Role: "USER", UserID: 42}

	now := time.Now()
	engine.now = func() time.Time { return now }

	pair, err := engine.Mint(ctx, attrs)
	require.NoError(t, err)

	valid, err := engine.Validate(pair.AccessToken, AccessToken)
	require.NoError(t, err)
	require.True(t, valid)

	now = now.Add(DefaultAccessDuration + time.Minute)

	valid, err = engine.Validate(pair.AccessToken, AccessToken)
	require.NoError(t, err)
	require.False(t, valid)

	rotated, err := engine.Rotate(ctx, pair.RefreshToken, pair.AccessToken)
	require.NoError(t, err)

	valid, err = engine.Validate(rotated.AccessToken, AccessToken)
	require.NoError(t, err)
	assert.True(t, valid)

	fresh, err := store.Get(ctx, rotated.SessionID.String())
	require.NoError(t, err)
	assert.Equal(t, attrs, fresh)
}

func TestRotateDenied(t *testing.T) {
	store := newTestStore(t)
	engine := newTestEngine(t, store)
	ctx := context.Background()

	pair, err := engine.Mint(ctx, SessionAttributes{LoginID: "u1", Role: "USER", UserID: 42})
	require.NoError(t, err)

	t.Run("Garbage Refresh Token", func(t *testing.T) {
		_, err := engine.Rotate(ctx, "garbage", pair.AccessToken)
		require.ErrorIs(t, err, ErrRefreshDenied)
	})

	t.Run("Expired Refresh Token", func(t *testing.T) {
		expiring := newTestEngine(t, store)
		now := time.Now()
		expiring.now = func() time.Time { return now }

		p, err := expiring.Mint(ctx, SessionAttributes{LoginID: "u2", Role: "USER", UserID: 2})
		require.NoError(t, err)

		now = now.Add(DefaultRefreshDuration + time.Minute)
		_, err = expiring.Rotate(ctx, p.RefreshToken, p.AccessToken)
		require.ErrorIs(t, err, ErrRefreshDenied)
	})

	t.Run("Forged Refresh Token", func(t *testing.T) {
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshMapClaims(
			time.Now(), time.Now().Add(time.Hour),
		)).SignedString([]byte("attacker-controlled-key-32-bytes-xx"))
		require.NoError(t, err)

		_, err = engine.Rotate(ctx, forged, pair.AccessToken)
		require.ErrorIs(t, err, ErrForgedToken)
	})

	t.Run("Unreadable Access Claims", func(t *testing.T) {
		_, err := engine.Rotate(ctx, pair.RefreshToken, "garbage")
		require.ErrorIs(t, err, ErrRefreshDenied)
	})

	t.Run("Missing Session Record", func(t *testing.T) {
		p, err := engine.Mint(ctx, SessionAttributes{LoginID: "u3", Role: "USER", UserID: 3})
		require.NoError(t, err)
		require.NoError(t, store.Remove(ctx, p.SessionID.String()))

		_, err = engine.Rotate(ctx, p.RefreshToken, p.AccessToken)
		require.ErrorIs(t, err, ErrRefreshDenied)
	})

	t.Run("No Tokens Issued On Denial", func(t *testing.T) {
		rotated, err := engine.Rotate(ctx, "garbage", pair.AccessToken)
		require.Error(t, err)
		assert.Nil(t, rotated)
	})
}

// TestRotateReplay exercises the single-use property of a session id: once a
// pair has been rotated, replaying the old pair is denied instead of minting
// a second divergent session.
func TestRotateReplay(t *testing.T) {
	store := newTestStore(t)
	engine := newTestEngine(t, store)
	ctx := context.Background()

	pair, err := engine.Mint(ctx, SessionAttributes{LoginID: "u1", Role: "USER", UserID: 42})
	require.NoError(t, err)

	_, err = engine.Rotate(ctx, pair.RefreshToken, pair.AccessToken)
	require.NoError(t, err)

	_, err = engine.Rotate(ctx, pair.RefreshToken, pair.AccessToken)
	require.ErrorIs(t, err, ErrRefreshDenied)
}

func TestConcurrentRotationSingleWinner(t *testing.T) {
	store := newTestStore(t)
	engine := newTestEngine(t, store)
	ctx := context.Background()

	pair, err := engine.Mint(ctx, SessionAttributes{LoginID: "u1", Role: "USER", UserID: 42})
	require.NoError(t, err)

	const rotators = 8
	results := make([]error, rotators)
	sessions := make([]uuid.UUID, rotators)

	var wg sync.WaitGroup
	for i := 0; i < rotators; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rotated, err := engine.Rotate(ctx, pair.RefreshToken, pair.AccessToken)
			results[i] = err
			if err == nil {
				sessions[i] = rotated.SessionID
			}
		}(i)
	}
	wg.Wait()

	winners := 0
	for i, err := range results {
		if err == nil {
			winners++
			assert.NotEqual(t, pair.SessionID, sessions[i])
			continue
		}
		require.True(t, errors.Is(err, ErrRefreshDenied), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, winners, "exactly one concurrent rotation must win")
}
