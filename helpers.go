// helpers.go

package sessiontoken

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const bearerPrefix = "Bearer "

// FormatBearer renders a compact token string in the transport convention
// used by the Authorization and Refresh-Token headers.
func FormatBearer(token string) string {
	return bearerPrefix + token
}

// StripBearer extracts the compact token from a "Bearer <token>" header
// value. The second return is false when the prefix is missing.
func StripBearer(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	return header[len(bearerPrefix):], true
}

// accessMapClaims builds the claim set for an access token. The session id
// doubles as subject and user_id so downstream services can read either.
func accessMapClaims(sessionID uuid.UUID, issuedAt, expiresAt time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":     sessionID.String(),
		"user_id": sessionID.String(),
		"iat":     issuedAt.Unix(),
		"exp":     expiresAt.Unix(),
	}
}

// refreshMapClaims builds the claim set for a refresh token. It carries no
// session claim; rotation recovers the session id from the paired access
// token instead.
func refreshMapClaims(issuedAt, expiresAt time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"iat": issuedAt.Unix(),
		"exp": expiresAt.Unix(),
	}
}

// mapToClaims converts decoded JWT claims to Claims.
func mapToClaims(mc jwt.MapClaims) (*Claims, error) {
	claims := &Claims{}

	if sub, ok := mc["sub"].(string); ok {
		sessionID, err := uuid.Parse(sub)
		if err != nil {
			return nil, fmt.Errorf("invalid session ID: %w", err)
		}
		claims.Subject = sessionID
	}

	if raw, ok := mc["user_id"].(string); ok {
		userID, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid user_id claim: %w", err)
		}
		claims.UserID = userID
	}

	iat, ok := mc["iat"].(float64)
	if !ok {
		return nil, fmt.Errorf("invalid iat claim type")
	}
	claims.IssuedAt = time.Unix(int64(iat), 0)

	exp, ok := mc["exp"].(float64)
	if !ok {
		return nil, fmt.Errorf("invalid exp claim type")
	}
	claims.ExpiresAt = time.Unix(int64(exp), 0)

	return claims, nil
}
