package service

import (
	"context"
	"errors"
	"fmt"

	domainauth "github.com/hostelhub/portal/internal/domain/auth"
	"github.com/hostelhub/portal/internal/ports"
)

// IdentityResolver implements ports.IdentityService by combining a token resolver
// with the users profile table.
type IdentityResolver struct {
	tokens   ports.TokenResolver
	profiles ports.ProfileStore
}

var _ ports.IdentityService = (*IdentityResolver)(nil)

// NewIdentityResolver constructs an IdentityResolver.
func NewIdentityResolver(tokens ports.TokenResolver, profiles ports.ProfileStore) *IdentityResolver {
	return &IdentityResolver{tokens: tokens, profiles: profiles}
}

// Resolve maps the session credential to the signed-in identity.
func (r *IdentityResolver) Resolve(ctx context.Context, credential string) (domainauth.Identity, error) {
	if credential == "" {
		return domainauth.Identity{}, ports.ErrInvalidCredential
	}
	id, err := r.tokens.GetUser(ctx, credential)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("get user: %w", err)
	}
	return id, nil
}

// Role returns the role stored on the identity's profile row.
func (r *IdentityResolver) Role(ctx context.Context, identityID string) (domainauth.Role, error) {
	if identityID == "" {
		return "", errors.New("identity ID is required")
	}
	p, err := r.profiles.GetProfile(ctx, identityID)
	if err != nil {
		return "", fmt.Errorf("get profile: %w", err)
	}
	return p.Role, nil
}
