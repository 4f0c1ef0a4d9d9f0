package config

import (
	"log/slog"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func parse(t *testing.T, vars map[string]string) AppConfig {
	t.Helper()
	var cfg AppConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()
	return cfg
}

func TestAppConfig_Defaults(t *testing.T) {
	t.Setenv("NODE_ENV", "")
	cfg := parse(t, map[string]string{})

	if cfg.Auth.Mode != AuthModeSupabase {
		t.Errorf("Auth.Mode = %q, want supabase", cfg.Auth.Mode)
	}
	if cfg.Auth.ProfileStore != ProfileStoreREST {
		t.Errorf("Auth.ProfileStore = %q, want rest", cfg.Auth.ProfileStore)
	}
	if cfg.Supabase.TokenVerify != TokenVerifyRemote || cfg.Supabase.MaxRetries != 1 {
		t.Errorf("unexpected supabase defaults: %+v", cfg.Supabase)
	}
	if cfg.Gate.CookieName != DefaultSessionCookie || cfg.Gate.LookupTimeout != 3*time.Second {
		t.Errorf("unexpected gate defaults: %+v", cfg.Gate)
	}
	if cfg.Auth.Throttle.Enabled {
		t.Error("throttle should be disabled without Redis")
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want INFO", cfg.Observability.LogLevel)
	}
	if !cfg.Observability.Prometheus.Enabled || cfg.Observability.Metrics.IsEnabled() {
		t.Errorf("unexpected metrics defaults: %+v", cfg.Observability)
	}
	if cfg.UsesPostgres() {
		t.Error("rest profile store should not need Postgres")
	}
}

func TestAppConfig_ParseAuthEnv(t *testing.T) {
	cfg := parse(t, map[string]string{
		"AUTH_MODE":                 "Supabase",
		"PROFILE_STORE":             "postgres",
		"SUPABASE_URL":              "https://demo.supabase.co/",
		"SUPABASE_ANON_KEY":         " anon ",
		"SUPABASE_SERVICE_ROLE_KEY": "service",
		"SUPABASE_TOKEN_VERIFY":     "jwks",
		"SUPABASE_MAX_RETRIES":      "9",
		"REDIS_ENABLED":             "true",
		"LOGIN_THROTTLE_MAX":        "3",
		"LOGIN_THROTTLE_WINDOW":     "5m",
		"GATE_LOOKUP_TIMEOUT":       "750ms",
		"SESSION_COOKIE_NAME":       "portal-session",
		"LOG_LEVEL":                 "debug",
	})

	if cfg.Supabase.URL != "https://demo.supabase.co" || cfg.Supabase.AnonKey != "anon" {
		t.Errorf("supabase URL/key not normalised: %+v", cfg.Supabase)
	}
	if cfg.Supabase.TokenVerify != TokenVerifyJWKS {
		t.Errorf("TokenVerify = %q, want jwks", cfg.Supabase.TokenVerify)
	}
	if cfg.Supabase.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want clamp to 5", cfg.Supabase.MaxRetries)
	}
	if !cfg.Auth.Throttle.Enabled || cfg.Auth.Throttle.MaxAttempts != 3 || cfg.Auth.Throttle.Window != 5*time.Minute {
		t.Errorf("unexpected throttle: %+v", cfg.Auth.Throttle)
	}
	if cfg.Gate.LookupTimeout != 750*time.Millisecond || cfg.Gate.CookieName != "portal-session" {
		t.Errorf("unexpected gate: %+v", cfg.Gate)
	}
	if cfg.Observability.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want DEBUG", cfg.Observability.LogLevel)
	}
	if !cfg.UsesPostgres() {
		t.Error("postgres profile store should need Postgres")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestAppConfig_InvalidEnums(t *testing.T) {
	for _, vars := range []map[string]string{
		{"AUTH_MODE": "oauth"},
		{"PROFILE_STORE": "sqlite"},
		{"SUPABASE_TOKEN_VERIFY": "local"},
	} {
		var cfg AppConfig
		if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err == nil {
			t.Errorf("expected parse error for %v", vars)
		}
	}
}

func TestAppConfig_Validate(t *testing.T) {
	t.Setenv("NODE_ENV", "")

	cfg := parse(t, map[string]string{})
	if err := cfg.Validate(); err == nil {
		t.Error("supabase mode without URL/key should fail validation")
	}

	cfg = parse(t, map[string]string{"AUTH_MODE": "mock"})
	if err := cfg.Validate(); err == nil {
		t.Error("mock mode outside dev should fail validation")
	}

	cfg = parse(t, map[string]string{"AUTH_MODE": "mock", "DEV": "true"})
	if err := cfg.Validate(); err != nil {
		t.Errorf("mock dev config should validate: %v", err)
	}
	if cfg.UsesPostgres() {
		t.Error("mock mode never needs Postgres")
	}
}

func TestAppConfig_DetectDevModeFromNodeEnv(t *testing.T) {
	t.Setenv("NODE_ENV", "development")
	cfg := parse(t, map[string]string{})
	if !cfg.IsDev {
		t.Error("NODE_ENV=development should enable dev mode")
	}
}

func TestHTTPConfig_Sanitize(t *testing.T) {
	h := HTTPConfig{Addr: "  ", BaseURL: "HTTPS://portal.example.com"}
	h.Sanitize()
	if h.Addr != ":8080" || h.ShutdownTimeout != 10*time.Second {
		t.Errorf("unexpected sanitised config: %+v", h)
	}
	if !h.SecureCookies() {
		t.Error("https base URL should use secure cookies")
	}
}

func TestObservabilityMetricsConfig_Sanitize(t *testing.T) {
	tests := []struct {
		name        string
		cfg         ObservabilityMetricsConfig
		wantEnabled bool
		wantNS      string
	}{
		{"enabled with address", ObservabilityMetricsConfig{Enabled: true, StatsdAddress: " 127.0.0.1:8125 "}, true, "hostel"},
		{"blank address disables", ObservabilityMetricsConfig{Enabled: true, StatsdAddress: "  "}, false, "hostel"},
		{"namespace trimmed", ObservabilityMetricsConfig{StatsdAddress: "x:1", Namespace: ".portal."}, false, "portal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Sanitize()
			if tt.cfg.IsEnabled() != tt.wantEnabled {
				t.Errorf("IsEnabled() = %v, want %v", tt.cfg.IsEnabled(), tt.wantEnabled)
			}
			if tt.cfg.Namespace != tt.wantNS {
				t.Errorf("Namespace = %q, want %q", tt.cfg.Namespace, tt.wantNS)
			}
		})
	}
}
