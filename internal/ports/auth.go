// Package ports defines interfaces (hexagonal ports) for identity and account behavior.
// Implementations live in internal/adapters; orchestration in internal/service.
package ports

import (
	"context"
	"errors"

	domainauth "github.com/hostelhub/portal/internal/domain/auth"
)

var (
	// ErrProfileNotFound is returned when no users row exists for an identity.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrInvalidCredential is returned when a session credential does not resolve to a user.
	ErrInvalidCredential = errors.New("invalid session credential")
	// ErrInvalidCredentials is returned when an email/password pair is rejected.
	ErrInvalidCredentials = errors.New("invalid login credentials")
	// ErrTooManyAttempts is returned when sign-in attempts are throttled.
	ErrTooManyAttempts = errors.New("too many sign-in attempts")
)

// IdentityService is the narrow port the access gate depends on.
type IdentityService interface {
	// Resolve maps an opaque session credential to the signed-in identity.
	Resolve(ctx context.Context, credential string) (domainauth.Identity, error)
	// Role returns the role stored in the profile keyed by the identity id.
	Role(ctx context.Context, identityID string) (domainauth.Role, error)
}

// TokenResolver validates an access token and returns the identity it belongs to.
type TokenResolver interface {
	GetUser(ctx context.Context, accessToken string) (domainauth.Identity, error)
}

// ProfileStore reads and writes users-table records.
type ProfileStore interface {
	GetProfile(ctx context.Context, id string) (domainauth.Profile, error)
	InsertProfile(ctx context.Context, p domainauth.Profile) error
}

// SignUpInput groups the account fields sent to the identity provider.
type SignUpInput struct {
	Email    string
	Password string
	FullName string
}

// Accounts issues credential operations against the identity provider.
type Accounts interface {
	SignInWithPassword(ctx context.Context, email, password string) (domainauth.Session, error)
	SignUp(ctx context.Context, in SignUpInput) (domainauth.Identity, error)
	SignOut(ctx context.Context, accessToken string) error
}

// LoginThrottle limits repeated failed sign-in attempts per key.
type LoginThrottle interface {
	Allow(ctx context.Context, key string) error
	Fail(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}
