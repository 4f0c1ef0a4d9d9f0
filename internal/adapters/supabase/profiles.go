package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jackc/pgerrcode"

	domainauth "github.com/hostelhub/portal/internal/domain/auth"
	apperrors "github.com/hostelhub/portal/internal/errors"
	"github.com/hostelhub/portal/internal/ports"
)

const usersTable = "/rest/v1/users"

// ProfileTable implements ports.ProfileStore over the PostgREST users endpoint.
type ProfileTable struct {
	c *Client
}

var _ ports.ProfileStore = (*ProfileTable)(nil)

// NewProfileTable wraps c for the users table.
func NewProfileTable(c *Client) *ProfileTable {
	return &ProfileTable{c: c}
}

// GetProfile fetches the users row for id. An empty result is ports.ErrProfileNotFound.
func (p *ProfileTable) GetProfile(ctx context.Context, id string) (domainauth.Profile, error) {
	if id == "" {
		return domainauth.Profile{}, ports.ErrProfileNotFound
	}
	var rows []domainauth.Profile
	err := p.c.send(ctx, request{
		method: http.MethodGet,
		path:   usersTable,
		query:  url.Values{"id": {"eq." + id}, "select": {"*"}},
		bearer: p.c.dataKey(),
		apiKey: p.c.dataKey(),
	}, &rows)
	if err != nil {
		return domainauth.Profile{}, fmt.Errorf("get profile: %w", mapDataError(err))
	}
	if len(rows) == 0 {
		return domainauth.Profile{}, ports.ErrProfileNotFound
	}
	prof := rows[0]
	prof.Role = domainauth.ParseRole(string(prof.Role))
	return prof, nil
}

// InsertProfile creates the users row for a new account.
func (p *ProfileTable) InsertProfile(ctx context.Context, prof domainauth.Profile) error {
	if prof.ID == "" {
		return apperrors.ValidationField("id", "Profile id is required.")
	}
	if prof.Role == "" {
		prof.Role = domainauth.RoleStudent
	}
	err := p.c.send(ctx, request{
		method:  http.MethodPost,
		path:    usersTable,
		body:    prof,
		bearer:  p.c.dataKey(),
		apiKey:  p.c.dataKey(),
		headers: map[string]string{"Prefer": "return=minimal"},
	}, nil)
	if err != nil {
		return fmt.Errorf("insert profile: %w", mapDataError(err))
	}
	return nil
}

// mapDataError translates PostgREST errors, whose codes are Postgres SQLSTATEs, into AppErrors.
func mapDataError(err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return apperrors.Wrap(err, apperrors.ErrCodeUpstream, "The data service is unavailable.")
	}
	switch apiErr.Code {
	case pgerrcode.UniqueViolation:
		return apperrors.Wrap(err, apperrors.ErrCodeConflict, apiErr.Message)
	case pgerrcode.CheckViolation, pgerrcode.NotNullViolation, pgerrcode.InvalidTextRepresentation:
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, apiErr.Message)
	case pgerrcode.InsufficientPrivilege:
		return apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, apiErr.Message)
	}
	if apiErr.Status >= 400 && apiErr.Status < 500 {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, apiErr.Message)
	}
	return apperrors.Wrap(err, apperrors.ErrCodeUpstream, apiErr.Message)
}
