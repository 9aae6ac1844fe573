// claims.go

package sessiontoken

import (
	"time"

	"github.com/google/uuid"
)

// TokenKind selects which signing key a token is bound to.
type TokenKind string

const (
	AccessToken  TokenKind = "access"  // short-lived per-request credential
	RefreshToken TokenKind = "refresh" // long-lived credential used only for rotation
)

// TokenTypeBearer is the fixed token-type label returned with every pair.
const TokenTypeBearer = "Bearer"

// SessionAttributes is the server-side state written to the session store
// when a pair is minted. UserID is set at creation and immutable for the
// session lifetime.
type SessionAttributes struct {
	LoginID string
	Role    string
	UserID  int64
}

// Empty reports whether the attributes describe no session. Callers must
// treat an empty result and "not found" identically.
func (a SessionAttributes) Empty() bool {
	return a == SessionAttributes{}
}

// TokenPair is the result of minting: two independently-signed compact
// token strings plus the session identity they reference.
type TokenPair struct {
	TokenType        string    `json:"grantType"`
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	SessionID        uuid.UUID `json:"-"`
	AccessExpiresAt  time.Time `json:"-"`
	RefreshExpiresAt time.Time `json:"-"`
}

// Claims is the decoded claim set of a token. Subject and UserID are only
// populated for access tokens; refresh tokens deliberately carry no session
// claim, so rotation must source the session id from the paired access token.
type Claims struct {
	Subject   uuid.UUID // session id ("sub")
	UserID    uuid.UUID // session id mirror ("user_id")
	IssuedAt  time.Time
	ExpiresAt time.Time
}
