package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	domainauth "github.com/hostelhub/portal/internal/domain/auth"
	apperrors "github.com/hostelhub/portal/internal/errors"
	"github.com/hostelhub/portal/internal/ports"
)

// AuthClient implements ports.Accounts and ports.TokenResolver against GoTrue.
type AuthClient struct {
	c *Client
}

var (
	_ ports.Accounts      = (*AuthClient)(nil)
	_ ports.TokenResolver = (*AuthClient)(nil)
)

// NewAuthClient wraps c for the /auth/v1 endpoints.
func NewAuthClient(c *Client) *AuthClient {
	return &AuthClient{c: c}
}

type gotrueUser struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	UserMetadata struct {
		FullName string `json:"full_name"`
	} `json:"user_metadata"`
}

func (u gotrueUser) identity() domainauth.Identity {
	return domainauth.Identity{ID: u.ID, Email: u.Email, FullName: u.UserMetadata.FullName}
}

type tokenResponse struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresIn    int64      `json:"expires_in"`
	ExpiresAt    int64      `json:"expires_at"`
	User         gotrueUser `json:"user"`
}

func (t tokenResponse) expiry(now time.Time) time.Time {
	switch {
	case t.ExpiresAt > 0:
		return time.Unix(t.ExpiresAt, 0)
	case t.ExpiresIn > 0:
		return now.Add(time.Duration(t.ExpiresIn) * time.Second)
	default:
		return now.Add(time.Hour)
	}
}

// SignInWithPassword exchanges email and password for a session.
func (a *AuthClient) SignInWithPassword(ctx context.Context, email, password string) (domainauth.Session, error) {
	var tok tokenResponse
	err := a.c.send(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"password"}},
		body:   map[string]string{"email": email, "password": password},
		apiKey: a.c.anonKey,
	}, &tok)
	if err != nil {
		return domainauth.Session{}, mapSignInError(err)
	}
	if tok.AccessToken == "" {
		return domainauth.Session{}, errors.New("supabase: sign-in response carried no access token")
	}
	return domainauth.Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.expiry(time.Now()),
		User:         tok.User.identity(),
	}, nil
}

// signUpResponse is either a bare user (email confirmation pending) or a session with a nested user.
type signUpResponse struct {
	gotrueUser
	User *gotrueUser `json:"user"`
}

// SignUp registers a new account with full_name stored in the user metadata.
func (a *AuthClient) SignUp(ctx context.Context, in ports.SignUpInput) (domainauth.Identity, error) {
	var resp signUpResponse
	err := a.c.send(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/signup",
		body: map[string]any{
			"email":    in.Email,
			"password": in.Password,
			"data":     map[string]string{"full_name": in.FullName},
		},
		apiKey: a.c.anonKey,
	}, &resp)
	if err != nil {
		return domainauth.Identity{}, mapAccountError(err)
	}
	user := resp.gotrueUser
	if resp.User != nil && resp.User.ID != "" {
		user = *resp.User
	}
	id := user.identity()
	if id.FullName == "" {
		id.FullName = in.FullName
	}
	return id, nil
}

// GetUser resolves an access token to its user. Rejected tokens return ports.ErrInvalidCredential.
func (a *AuthClient) GetUser(ctx context.Context, accessToken string) (domainauth.Identity, error) {
	if accessToken == "" {
		return domainauth.Identity{}, ports.ErrInvalidCredential
	}
	var u gotrueUser
	err := a.c.send(ctx, request{
		method: http.MethodGet,
		path:   "/auth/v1/user",
		bearer: accessToken,
		apiKey: a.c.anonKey,
	}, &u)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden) {
			return domainauth.Identity{}, fmt.Errorf("%w: %w", ports.ErrInvalidCredential, err)
		}
		return domainauth.Identity{}, err
	}
	if u.ID == "" {
		return domainauth.Identity{}, ports.ErrInvalidCredential
	}
	return u.identity(), nil
}

// SignOut revokes the session behind accessToken. Already-invalid tokens are not an error.
func (a *AuthClient) SignOut(ctx context.Context, accessToken string) error {
	err := a.c.send(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/logout",
		bearer: accessToken,
		apiKey: a.c.anonKey,
	}, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden ||
		apiErr.Status == http.StatusNotFound) {
		return nil
	}
	return err
}

func mapSignInError(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && (apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusUnauthorized) {
		return apperrors.Wrap(fmt.Errorf("%w: %w", ports.ErrInvalidCredentials, err),
			apperrors.ErrCodeUnauthorized, apiErr.Message)
	}
	return mapAccountError(err)
}

func mapAccountError(err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return apperrors.Wrap(err, apperrors.ErrCodeUpstream, "An unexpected error occurred. Please try again.")
	}
	switch {
	case apiErr.Status == http.StatusTooManyRequests:
		return apperrors.Wrap(err, apperrors.ErrCodeRateLimited, apiErr.Message)
	case apiErr.Status >= 400 && apiErr.Status < 500:
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, apiErr.Message)
	default:
		return apperrors.Wrap(err, apperrors.ErrCodeUpstream, "An unexpected error occurred. Please try again.")
	}
}
