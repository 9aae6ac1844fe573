// engine.go

package sessiontoken

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Engine defines the credential lifecycle operations.
//
// Methods:
//   - Mint: creates a session and its signed token pair
//   - Validate: checks signature and expiry for one token kind
//   - Rotate: exchanges a valid refresh token for a fresh pair
//   - ExtractClaims: decodes claims even from an expired token
//   - Revoke: destroys the session referenced by an access token
//   - Inspect: returns the stored attributes behind a valid access token
type Engine interface {
	Mint(ctx context.Context, attrs SessionAttributes) (*TokenPair, error)
	Validate(token string, kind TokenKind) (bool, error)
	Rotate(ctx context.Context, refreshToken, accessToken string) (*TokenPair, error)
	ExtractClaims(token string, kind TokenKind) (*Claims, bool, error)
	Revoke(ctx context.Context, accessToken string) error
	Inspect(ctx context.Context, accessToken string) (SessionAttributes, error)
}

// HMACEngine is the HMAC-SHA256 implementation of Engine. It is stateless
// between calls; the session store is the single source of truth.
type HMACEngine struct {
	config     Config
	store      SessionStore
	accessKey  []byte
	refreshKey []byte
	logger     zerolog.Logger
	now        func() time.Time
}

// NewHMACEngine validates the configuration and returns a ready engine.
// Pass zerolog.Nop() when no logging is wanted. The engine is safe for
// concurrent use by multiple goroutines.
func NewHMACEngine(config Config, store SessionStore, logger zerolog.Logger) (*HMACEngine, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if store == nil {
		return nil, fmt.Errorf("session store cannot be nil")
	}
	return &HMACEngine{
		config:     config,
		store:      store,
		accessKey:  []byte(config.AccessKey),
		refreshKey: []byte(config.RefreshKey),
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Mint generates a fresh session id, writes the attributes to the store with
// the session TTL, and signs an access/refresh pair referencing it. One store
// write per mint.
func (e *HMACEngine) Mint(ctx context.Context, attrs SessionAttributes) (*TokenPair, error) {
	if attrs.LoginID == "" {
		return nil, fmt.Errorf("login id is required")
	}

	sessionID, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	if err := e.store.Put(ctx, sessionID.String(), attrs); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	now := e.now()
	accessExpiresAt := now.Add(e.config.AccessDuration)
	refreshExpiresAt := now.Add(e.config.RefreshDuration)

	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256,
		accessMapClaims(sessionID, now, accessExpiresAt)).SignedString(e.accessKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256,
		refreshMapClaims(now, refreshExpiresAt)).SignedString(e.refreshKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	e.logger.Debug().Str("session_id", sessionID.String()).Msg("minted token pair")

	return &TokenPair{
		TokenType:        TokenTypeBearer,
		AccessToken:      access,
		RefreshToken:     refresh,
		SessionID:        sessionID,
		AccessExpiresAt:  accessExpiresAt,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

// Validate verifies signature and expiry against the key for kind.
//
// Routine failures (malformed encoding, expired, unsupported algorithm,
// empty input) resolve to (false, nil) and are logged at debug level without
// leaking parser detail. A structurally valid token whose signature does not
// verify returns (false, ErrForgedToken): forgery is an anomalous condition,
// not a routine invalid session.
//
// A token is treated as expired from the exact exp instant onward.
func (e *HMACEngine) Validate(token string, kind TokenKind) (bool, error) {
	_, err := jwt.Parse(token, e.keyFunc(kind), jwt.WithTimeFunc(e.now))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		e.logger.Warn().Str("kind", string(kind)).Msg("token signature mismatch")
		return false, ErrForgedToken
	case errors.Is(err, jwt.ErrTokenExpired):
		e.logger.Debug().Str("kind", string(kind)).Msg("expired token")
	case errors.Is(err, jwt.ErrTokenMalformed):
		e.logger.Debug().Str("kind", string(kind)).Msg("malformed token")
	default:
		e.logger.Debug().Str("kind", string(kind)).Msg("unsupported or unverifiable token")
	}
	return false, nil
}

// ExtractClaims decodes the claim set of a token in two steps: the signature
// is verified independent of expiry, then expiry is checked separately. The
// claims are returned regardless of the expiry outcome together with an
// explicit expired flag, so rotation can read the session id out of the very
// access token whose expiry triggered it.
func (e *HMACEngine) ExtractClaims(token string, kind TokenKind) (*Claims, bool, error) {
	parsed, err := jwt.Parse(token, e.keyFunc(kind), jwt.WithoutClaimsValidation())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, false, ErrForgedToken
		}
		return nil, false, fmt.Errorf("decode token: %w", err)
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, false, fmt.Errorf("decode token: unexpected claims type")
	}

	claims, err := mapToClaims(mapClaims)
	if err != nil {
		return nil, false, fmt.Errorf("decode token: %w", err)
	}

	expired := !e.now().Before(claims.ExpiresAt)
	return claims, expired, nil
}

// Rotate validates the refresh token, recovers the session id from the
// paired access token (whose expiry is typically the trigger), atomically
// takes the old session record and mints a fresh pair with the same
// attributes under a new session id.
//
// Concurrent rotations of the same session serialize through the store's
// atomic take: exactly one caller wins, the rest get ErrRefreshDenied. On
// any denial no tokens are issued and no store mutation has happened beyond
// the winning take.
func (e *HMACEngine) Rotate(ctx context.Context, refreshToken, accessToken string) (*TokenPair, error) {
	valid, err := e.Validate(refreshToken, RefreshToken)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, ErrRefreshDenied
	}

	claims, _, err := e.ExtractClaims(accessToken, AccessToken)
	if err != nil {
		if errors.Is(err, ErrForgedToken) {
			return nil, err
		}
		e.logger.Debug().Err(err).Msg("unreadable access claims during rotation")
		return nil, ErrRefreshDenied
	}
	if claims.Subject == uuid.Nil {
		return nil, ErrRefreshDenied
	}

	oldSessionID := claims.Subject.String()
	attrs, err := e.store.Take(ctx, oldSessionID)
	if err != nil {
		return nil, fmt.Errorf("take session: %w", err)
	}
	if attrs.Empty() {
		e.logger.Debug().Str("session_id", oldSessionID).Msg("session missing during rotation")
		return nil, ErrRefreshDenied
	}

	pair, err := e.Mint(ctx, attrs)
	if err != nil {
		return nil, err
	}

	e.logger.Debug().
		Str("old_session_id", oldSessionID).
		Str("new_session_id", pair.SessionID.String()).
		Msg("rotated session")
	return pair, nil
}

// Revoke destroys the session referenced by a valid access token. Revoking
// with an invalid token is a no-op; forgery and store failures propagate.
func (e *HMACEngine) Revoke(ctx context.Context, accessToken string) error {
	valid, err := e.Validate(accessToken, AccessToken)
	if err != nil {
		return err
	}
	if !valid {
		return nil
	}

	claims, _, err := e.ExtractClaims(accessToken, AccessToken)
	if err != nil {
		return err
	}
	if err := e.store.Remove(ctx, claims.Subject.String()); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}

	e.logger.Debug().Str("session_id", claims.Subject.String()).Msg("revoked session")
	return nil
}

// Inspect returns the stored attributes behind a valid access token.
// An invalid token or a vanished session yields ErrInvalidSession.
func (e *HMACEngine) Inspect(ctx context.Context, accessToken string) (SessionAttributes, error) {
	valid, err := e.Validate(accessToken, AccessToken)
	if err != nil {
		return SessionAttributes{}, err
	}
	if !valid {
		return SessionAttributes{}, ErrInvalidSession
	}

	claims, _, err := e.ExtractClaims(accessToken, AccessToken)
	if err != nil {
		return SessionAttributes{}, err
	}

	attrs, err := e.store.Get(ctx, claims.Subject.String())
	if err != nil {
		return SessionAttributes{}, fmt.Errorf("read session: %w", err)
	}
	if attrs.Empty() {
		return SessionAttributes{}, ErrInvalidSession
	}
	return attrs, nil
}

func (e *HMACEngine) keyFunc(kind TokenKind) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		switch kind {
		case AccessToken:
			return e.accessKey, nil
		case RefreshToken:
			return e.refreshKey, nil
		default:
			return nil, fmt.Errorf("unknown token kind: %s", kind)
		}
	}
}
