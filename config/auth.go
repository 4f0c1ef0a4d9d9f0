package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the identity backend for the application.
type AuthMode string

const (
	// AuthModeSupabase uses the hosted Supabase auth and data APIs.
	AuthModeSupabase AuthMode = "supabase"
	// AuthModeMock uses in-process dev accounts (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "supabase", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: supabase, mock)", v)
	}
}

// TokenVerifyMode selects how session credentials are resolved to identities.
type TokenVerifyMode string

const (
	// TokenVerifyRemote asks GoTrue for the user behind each token.
	TokenVerifyRemote TokenVerifyMode = "remote"
	// TokenVerifyJWKS checks the token signature locally against the project key set.
	TokenVerifyJWKS TokenVerifyMode = "jwks"
)

// UnmarshalText implements encoding.TextUnmarshaler for TokenVerifyMode.
func (m *TokenVerifyMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "remote", "jwks":
		*m = TokenVerifyMode(v)
		return nil
	default:
		return fmt.Errorf("invalid TokenVerifyMode: %q (valid options: remote, jwks)", v)
	}
}

// ProfileStoreKind selects where users-table profiles are read and written.
type ProfileStoreKind string

const (
	// ProfileStoreREST uses the PostgREST data API.
	ProfileStoreREST ProfileStoreKind = "rest"
	// ProfileStorePostgres connects to the project database directly.
	ProfileStorePostgres ProfileStoreKind = "postgres"
)

// UnmarshalText implements encoding.TextUnmarshaler for ProfileStoreKind.
func (k *ProfileStoreKind) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "rest", "postgres":
		*k = ProfileStoreKind(v)
		return nil
	default:
		return fmt.Errorf("invalid ProfileStoreKind: %q (valid options: rest, postgres)", v)
	}
}

// SupabaseConfig contains the hosted project settings.
type SupabaseConfig struct {
	URL     string `env:"URL"`
	AnonKey string `env:"ANON_KEY"`
	// ServiceKey, when set, is used for PostgREST calls so profile reads bypass row-level security.
	ServiceKey  string          `env:"SERVICE_ROLE_KEY"`
	TokenVerify TokenVerifyMode `env:"TOKEN_VERIFY"     envDefault:"remote"`
	JWTAudience string          `env:"JWT_AUDIENCE"     envDefault:"authenticated"`
	Timeout     time.Duration   `env:"TIMEOUT"          envDefault:"10s"`
	MaxRetries  int             `env:"MAX_RETRIES"      envDefault:"1"`
}

// Sanitize trims keys and clamps the retry budget.
func (c *SupabaseConfig) Sanitize() {
	c.URL = strings.TrimRight(strings.TrimSpace(c.URL), "/")
	c.AnonKey = strings.TrimSpace(c.AnonKey)
	c.ServiceKey = strings.TrimSpace(c.ServiceKey)
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.MaxRetries > 5 {
		c.MaxRetries = 5
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
}

// DevAuthConfig controls the in-process dev accounts.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	// Users is "email:password:role" entries separated by ';'.
	Users           string        `env:"USERS"            envDefault:"admin@hostel.local:admin123:admin;student@hostel.local:student123:student"`
	SessionDuration time.Duration `env:"SESSION_DURATION" envDefault:"8h"`
}

// LoginThrottleConfig limits failed sign-in attempts per email.
type LoginThrottleConfig struct {
	Enabled     bool          `env:"ENABLED" envDefault:"true"`
	MaxAttempts int           `env:"MAX"     envDefault:"5"`
	Window      time.Duration `env:"WINDOW"  envDefault:"15m"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which identity backend to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"supabase"`

	// ProfileStore selects the users-table backend in supabase mode.
	ProfileStore ProfileStoreKind `env:"PROFILE_STORE" envDefault:"rest"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	Throttle LoginThrottleConfig `envPrefix:"LOGIN_THROTTLE_"`
}

// Sanitize applies defaults to throttle values.
func (c *AuthConfig) Sanitize() {
	if c.Throttle.MaxAttempts <= 0 {
		c.Throttle.MaxAttempts = 5
	}
	if c.Throttle.Window <= 0 {
		c.Throttle.Window = 15 * time.Minute
	}
}
