// Package jwks verifies Supabase access tokens locally against the project's published signing keys.
package jwks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	domainauth "github.com/hostelhub/portal/internal/domain/auth"
	"github.com/hostelhub/portal/internal/ports"
)

// DefaultAudience is the aud claim GoTrue stamps on user access tokens.
const DefaultAudience = "authenticated"

// Config holds configuration for the JWKS resolver.
type Config struct {
	URL        string // project URL, e.g. https://xyz.supabase.co
	Audience   string
	HTTPClient *http.Client // optional; used to fetch the key set
	// KeySet overrides the remote key set fetched from URL.
	KeySet gooidc.KeySet
	Now    func() time.Time
}

// Resolver implements ports.TokenResolver without a network round trip per request.
type Resolver struct {
	verifier *gooidc.IDTokenVerifier
}

var _ ports.TokenResolver = (*Resolver)(nil)

// NewResolver builds a verifier for tokens issued by <URL>/auth/v1.
func NewResolver(ctx context.Context, cfg Config) (*Resolver, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		return nil, errors.New("supabase URL is required")
	}
	issuer := base + "/auth/v1"

	keys := cfg.KeySet
	if keys == nil {
		hc := cfg.HTTPClient
		if hc == nil {
			hc = &http.Client{Timeout: 10 * time.Second}
		}
		ctx = context.WithValue(ctx, oauth2.HTTPClient, hc)
		keys = gooidc.NewRemoteKeySet(ctx, issuer+"/.well-known/jwks.json")
	}

	aud := cfg.Audience
	if aud == "" {
		aud = DefaultAudience
	}
	return &Resolver{
		verifier: gooidc.NewVerifier(issuer, keys, &gooidc.Config{
			ClientID:             aud,
			SupportedSigningAlgs: []string{gooidc.RS256, gooidc.ES256},
			Now:                  cfg.Now,
		}),
	}, nil
}

type accessClaims struct {
	Email        string `json:"email"`
	UserMetadata struct {
		FullName string `json:"full_name"`
	} `json:"user_metadata"`
}

// GetUser verifies signature, issuer, audience and expiry, then maps the claims to an identity.
func (r *Resolver) GetUser(ctx context.Context, accessToken string) (domainauth.Identity, error) {
	if accessToken == "" {
		return domainauth.Identity{}, ports.ErrInvalidCredential
	}
	tok, err := r.verifier.Verify(ctx, accessToken)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("%w: %w", ports.ErrInvalidCredential, err)
	}
	var claims accessClaims
	if err := tok.Claims(&claims); err != nil {
		return domainauth.Identity{}, fmt.Errorf("decode token claims: %w", err)
	}
	id := domainauth.Identity{ID: tok.Subject, Email: claims.Email, FullName: claims.UserMetadata.FullName}
	if id.IsZero() {
		return domainauth.Identity{}, ports.ErrInvalidCredential
	}
	return id, nil
}
