// Package auth contains domain-level types for identities, profiles and sessions.
// It is pure and free of framework/adapter concerns.
package auth

import (
	"strings"
	"time"
)

// Role represents an application's authorization role.
// Kept in string form because it is stored as-is in the users profile table.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// ParseRole normalizes a stored role value. Unknown roles are preserved so that
// policy checks can compare them without widening access.
func ParseRole(v string) Role {
	return Role(strings.ToLower(strings.TrimSpace(v)))
}

// Identity represents the authenticated principal returned by the identity service.
// Adapters map provider-specific payloads into this shape.
type Identity struct {
	ID       string // stable user identifier (provider subject)
	Email    string
	FullName string
}

// IsZero reports whether the identity carries no user id.
func (i Identity) IsZero() bool { return strings.TrimSpace(i.ID) == "" }

// Profile is the users-table record keyed by the identity id.
// Role is the single source of truth for authorization decisions.
type Profile struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	FullName        string    `json:"full_name"`
	Role            Role      `json:"role"`
	School          string    `json:"school,omitempty"`
	PhoneNumber     string    `json:"phone_number,omitempty"`
	HomeCounty      string    `json:"home_county,omitempty"`
	Age             int       `json:"age,omitempty"`
	Gender          string    `json:"gender,omitempty"`
	ParentName      string    `json:"parent_name,omitempty"`
	ParentContact   string    `json:"parent_contact,omitempty"`
	GuardianName    string    `json:"guardian_name,omitempty"`
	GuardianContact string    `json:"guardian_contact,omitempty"`
	CreatedAt       time.Time `json:"created_at,omitzero"`
}

// Session is the token pair issued by a successful password sign-in.
// AccessToken is the opaque session credential carried by the browser cookie.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         Identity
}

// SessionContext is the per-request view of the signed-in user established by the access gate.
// It is never shared across requests.
type SessionContext struct {
	Identity Identity
	Role     Role
}

// IsAdmin returns true if the session role is admin.
func (s SessionContext) IsAdmin() bool { return s.Role == RoleAdmin }
