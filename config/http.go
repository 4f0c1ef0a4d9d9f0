package config

import (
	"strings"
	"time"
)

// DefaultSessionCookie is the cookie carrying the Supabase access token.
const DefaultSessionCookie = "sb-access-token"

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// BaseURL is the base URL of the application (e.g., "https://portal.example.com").
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`

	// CookieDomain is the domain for session cookies.
	// Leave empty to use the request domain.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`

	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT"     envDefault:"30s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT"    envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	h.Addr = strings.TrimSpace(h.Addr)
	if h.Addr == "" {
		h.Addr = ":8080"
	}
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 10 * time.Second
	}
}

// SecureCookies reports whether cookies should carry the Secure attribute.
func (h *HTTPConfig) SecureCookies() bool {
	return strings.HasPrefix(strings.ToLower(h.BaseURL), "https://")
}

// GateConfig controls the route access gate.
type GateConfig struct {
	// CookieName is the cookie the session credential is read from.
	CookieName string `env:"SESSION_COOKIE_NAME" envDefault:"sb-access-token"`

	// LookupTimeout bounds each identity and role lookup.
	LookupTimeout time.Duration `env:"GATE_LOOKUP_TIMEOUT" envDefault:"3s"`
}

// Sanitize applies defaults to gate values.
func (g *GateConfig) Sanitize() {
	g.CookieName = strings.TrimSpace(g.CookieName)
	if g.CookieName == "" {
		g.CookieName = DefaultSessionCookie
	}
	if g.LookupTimeout <= 0 {
		g.LookupTimeout = 3 * time.Second
	}
}
