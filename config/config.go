package config

import (
	"errors"
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: Authentication, Supabase and login throttle configuration
//   - database.go: Postgres and Redis configuration
//   - http.go: HTTP server and access gate configuration
//   - observability.go: Logging and metrics configuration
type AppConfig struct {
	// IsDev enables development-only features such as AUTH_MODE=mock.
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	Auth     AuthConfig
	Supabase SupabaseConfig `envPrefix:"SUPABASE_"`

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	HTTP HTTPConfig
	Gate GateConfig

	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.detectDevMode()

	c.Auth.Sanitize()
	c.Supabase.Sanitize()
	c.HTTP.Sanitize()
	c.Gate.Sanitize()
	c.Observability.Sanitize()

	// Throttling is Redis-backed; without Redis there is nothing to count in.
	if !c.Redis.Enabled {
		c.Auth.Throttle.Enabled = false
	}
}

// Validate reports configuration that cannot start the selected identity mode.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Auth.Mode == AuthModeSupabase {
		if c.Supabase.URL == "" {
			errs = append(errs, errors.New("SUPABASE_URL is required when AUTH_MODE=supabase"))
		}
		if c.Supabase.AnonKey == "" {
			errs = append(errs, errors.New("SUPABASE_ANON_KEY is required when AUTH_MODE=supabase"))
		}
	}
	if c.Auth.Mode == AuthModeMock && !c.IsDev {
		errs = append(errs, errors.New("AUTH_MODE=mock requires DEV=true"))
	}
	return errors.Join(errs...)
}

// UsesPostgres reports whether the HTTP server needs a direct database connection.
func (c *AppConfig) UsesPostgres() bool {
	return c.Auth.Mode == AuthModeSupabase && c.Auth.ProfileStore == ProfileStorePostgres
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}
