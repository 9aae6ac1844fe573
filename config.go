// config.go

package sessiontoken

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Protocol defaults. The durations are part of the wire contract with token
// consumers and should only be changed in lockstep with them.
const (
	DefaultAccessDuration  = 30 * time.Minute
	DefaultRefreshDuration = 24 * time.Hour
	DefaultSessionTTL      = 7 * 24 * time.Hour
	DefaultChallengeTTL    = 180 * time.Second
)

const minKeyBytes = 32

// Config holds the complete configuration for the token engine and the
// dormant-reactivation workflow.
//
// The access and refresh signing keys are independent secrets and must never
// be interchangeable: a token validated against the wrong key fails closed.
type Config struct {
	AccessKey  string `env:"SESSIONTOKEN_ACCESS_KEY"`  // HMAC key for access tokens (min 32 bytes)
	RefreshKey string `env:"SESSIONTOKEN_REFRESH_KEY"` // HMAC key for refresh tokens (min 32 bytes)

	AccessDuration  time.Duration `env:"SESSIONTOKEN_ACCESS_DURATION" envDefault:"30m"`
	RefreshDuration time.Duration `env:"SESSIONTOKEN_REFRESH_DURATION" envDefault:"24h"`
	SessionTTL      time.Duration `env:"SESSIONTOKEN_SESSION_TTL" envDefault:"168h"`
	ChallengeTTL    time.Duration `env:"SESSIONTOKEN_CHALLENGE_TTL" envDefault:"180s"`

	// Sender identity handed to the messaging collaborator when delivering
	// one-time reactivation codes.
	SenderName string `env:"SESSIONTOKEN_SENDER_NAME" envDefault:"auth-bot"`
	SenderIcon string `env:"SESSIONTOKEN_SENDER_ICON"`
}

// DefaultConfig returns a Config carrying the fixed protocol durations
// (30m access, 24h refresh, 7d sessions, 180s challenges) with the given
// signing keys.
func DefaultConfig(accessKey, refreshKey string) Config {
	return Config{
		AccessKey:       accessKey,
		RefreshKey:      refreshKey,
		AccessDuration:  DefaultAccessDuration,
		RefreshDuration: DefaultRefreshDuration,
		SessionTTL:      DefaultSessionTTL,
		ChallengeTTL:    DefaultChallengeTTL,
		SenderName:      "auth-bot",
	}
}

// ConfigFromEnv loads and validates configuration from environment variables.
func ConfigFromEnv() (Config, error) {
	var config Config
	if err := env.Parse(&config); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Validate checks the configuration for completeness and key strength.
func (c Config) Validate() error {
	if len(c.AccessKey) < minKeyBytes {
		return fmt.Errorf("access signing key must be at least %d bytes", minKeyBytes)
	}
	if len(c.RefreshKey) < minKeyBytes {
		return fmt.Errorf("refresh signing key must be at least %d bytes", minKeyBytes)
	}
	if c.AccessKey == c.RefreshKey {
		return fmt.Errorf("access and refresh signing keys must differ")
	}
	if c.AccessDuration <= 0 {
		return fmt.Errorf("access token duration must be positive")
	}
	if c.RefreshDuration <= 0 {
		return fmt.Errorf("refresh token duration must be positive")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}
	if c.ChallengeTTL <= 0 {
		return fmt.Errorf("challenge TTL must be positive")
	}
	return nil
}
