package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/hostelhub/portal/internal/domain/auth"
	apperrors "github.com/hostelhub/portal/internal/errors"
	"github.com/hostelhub/portal/internal/ports"
)

// profileColumns defines the column list for users SELECT queries to ensure consistent field mapping.
const profileColumns = `id, email, full_name, role, school, phone_number, home_county, age, gender,
	parent_name, parent_contact, guardian_name, guardian_contact, created_at`

// ProfileRepo reads and writes the users table directly over database/sql.
type ProfileRepo struct {
	DB  *sql.DB
	now func() time.Time
}

var _ ports.ProfileStore = (*ProfileRepo)(nil)

// NewProfileRepo creates a new ProfileRepo with the given database connection.
func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{DB: db, now: time.Now}
}

// NewProfileRepoWithClock creates a ProfileRepo with a custom clock (useful for testing).
func NewProfileRepoWithClock(db *sql.DB, now func() time.Time) *ProfileRepo {
	return &ProfileRepo{DB: db, now: now}
}

// GetProfile retrieves the users row for id. Unknown or malformed ids return ports.ErrProfileNotFound.
func (r *ProfileRepo) GetProfile(ctx context.Context, id string) (domainauth.Profile, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domainauth.Profile{}, ports.ErrProfileNotFound
	}

	row := r.DB.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM users WHERE id = $1`, id)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domainauth.Profile{}, ports.ErrProfileNotFound
		}
		return domainauth.Profile{}, fmt.Errorf("get profile: %w", apperrors.MapDBError(err))
	}
	return p, nil
}

// InsertProfile creates the users row for a freshly registered identity.
func (r *ProfileRepo) InsertProfile(ctx context.Context, p domainauth.Profile) error {
	if _, err := uuid.Parse(p.ID); err != nil {
		return apperrors.ValidationField("id", "Profile id must be a UUID.")
	}
	role := p.Role
	if role == "" {
		role = domainauth.RoleStudent
	}
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now().UTC()
	}

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO users (id, email, full_name, role, school, phone_number, home_county, age, gender,
			parent_name, parent_contact, guardian_name, guardian_contact, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		p.ID, p.Email, p.FullName, string(role), p.School, p.PhoneNumber, p.HomeCounty, nullableAge(p.Age),
		p.Gender, p.ParentName, p.ParentContact, p.GuardianName, p.GuardianContact, createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert profile: %w", apperrors.MapDBError(err))
	}
	return nil
}

// UpdateRole sets the role on an existing users row.
func (r *ProfileRepo) UpdateRole(ctx context.Context, id string, role domainauth.Role) error {
	if role == "" {
		return apperrors.ValidationField("role", "Role is required.")
	}
	if _, err := uuid.Parse(id); err != nil {
		return ports.ErrProfileNotFound
	}

	res, err := r.DB.ExecContext(ctx, `UPDATE users SET role = $1 WHERE id = $2`, string(role), id)
	if err != nil {
		return fmt.Errorf("update role: %w", apperrors.MapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update role rows affected: %w", err)
	}
	if n == 0 {
		return ports.ErrProfileNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (domainauth.Profile, error) {
	var (
		p    domainauth.Profile
		role string
		age  sql.NullInt32
	)
	err := row.Scan(
		&p.ID, &p.Email, &p.FullName, &role, &p.School, &p.PhoneNumber, &p.HomeCounty, &age, &p.Gender,
		&p.ParentName, &p.ParentContact, &p.GuardianName, &p.GuardianContact, &p.CreatedAt,
	)
	if err != nil {
		return domainauth.Profile{}, err
	}
	p.Role = domainauth.ParseRole(role)
	if age.Valid {
		p.Age = int(age.Int32)
	}
	return p, nil
}

func nullableAge(age int) sql.NullInt32 {
	if age <= 0 {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(age), Valid: true}
}
