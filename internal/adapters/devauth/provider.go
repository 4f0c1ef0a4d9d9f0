// Package devauth provides a config-driven, in-process account directory for local development.
package devauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"

	domainauth "github.com/hostelhub/portal/internal/domain/auth"
	apperrors "github.com/hostelhub/portal/internal/errors"
	"github.com/hostelhub/portal/internal/ports"
)

// Config controls the dev directory.
type Config struct {
	// Users is the DEV_AUTH_USERS list: "email:password:role;email:password:role".
	Users           string
	SessionDuration time.Duration // default 8h when zero
	// Params overrides the argon2id cost; nil uses argon2id.DefaultParams.
	Params *argon2id.Params
	Now    func() time.Time
}

type account struct {
	id   string
	hash string
}

type session struct {
	userID  string
	expires time.Time
}

// Directory implements ports.Accounts, ports.TokenResolver and ports.ProfileStore in memory.
// Passwords are held only as argon2id hashes; tokens are random and opaque.
type Directory struct {
	mu       sync.RWMutex
	accounts map[string]account // by lower-cased email
	profiles map[string]domainauth.Profile
	sessions map[string]session

	params *argon2id.Params
	ttl    time.Duration
	now    func() time.Time
	hash   func(password string) (string, error) // runs outside mu
}

var (
	_ ports.Accounts      = (*Directory)(nil)
	_ ports.TokenResolver = (*Directory)(nil)
	_ ports.ProfileStore  = (*Directory)(nil)
)

// SeedUser is one parsed DEV_AUTH_USERS entry.
type SeedUser struct {
	Email    string
	Password string
	Role     domainauth.Role
}

// ParseUsers parses "email:password:role" entries separated by ';'. Role defaults to student.
func ParseUsers(list string) ([]SeedUser, error) {
	var out []SeedUser
	for i, entry := range strings.Split(list, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) < 2 {
			return nil, fmt.Errorf("dev auth: entry %d: want email:password[:role]", i+1)
		}
		u := SeedUser{
			Email:    strings.ToLower(strings.TrimSpace(parts[0])),
			Password: parts[1],
			Role:     domainauth.RoleStudent,
		}
		if len(parts) == 3 && strings.TrimSpace(parts[2]) != "" {
			u.Role = domainauth.ParseRole(parts[2])
		}
		if u.Email == "" || u.Password == "" {
			return nil, fmt.Errorf("dev auth: entry %d: email and password are required", i+1)
		}
		out = append(out, u)
	}
	return out, nil
}

// NewDirectory hashes the configured users and returns a ready Directory.
func NewDirectory(cfg Config) (*Directory, error) {
	seeds, err := ParseUsers(cfg.Users)
	if err != nil {
		return nil, err
	}
	d := &Directory{
		accounts: make(map[string]account, len(seeds)),
		profiles: make(map[string]domainauth.Profile, len(seeds)),
		sessions: make(map[string]session),
		params:   cfg.Params,
		ttl:      cfg.SessionDuration,
		now:      cfg.Now,
	}
	if d.params == nil {
		d.params = argon2id.DefaultParams
	}
	if d.ttl == 0 {
		d.ttl = 8 * time.Hour
	}
	if d.now == nil {
		d.now = time.Now
	}
	d.hash = func(password string) (string, error) {
		return argon2id.CreateHash(password, d.params)
	}

	for _, s := range seeds {
		if _, dup := d.accounts[s.Email]; dup {
			return nil, fmt.Errorf("dev auth: duplicate user %q", s.Email)
		}
		hash, err := d.hashPassword(s.Password)
		if err != nil {
			return nil, err
		}
		id := d.addAccount(s.Email, hash)
		d.profiles[id] = domainauth.Profile{
			ID:        id,
			Email:     s.Email,
			FullName:  displayName(s.Email),
			Role:      s.Role,
			CreatedAt: d.now(),
		}
	}
	return d, nil
}

func (d *Directory) hashPassword(password string) (string, error) {
	hash, err := d.hash(password)
	if err != nil {
		return "", fmt.Errorf("dev auth: hash password: %w", err)
	}
	return hash, nil
}

// addAccount requires mu held for writing (or exclusive access during construction).
func (d *Directory) addAccount(email, hash string) string {
	id := uuid.NewString()
	d.accounts[email] = account{id: id, hash: hash}
	return id
}

// SignInWithPassword checks the password against the stored hash and issues a fresh token.
func (d *Directory) SignInWithPassword(_ context.Context, email, password string) (domainauth.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	d.mu.RLock()
	acct, ok := d.accounts[email]
	prof := d.profiles[acct.id]
	d.mu.RUnlock()
	if !ok {
		return domainauth.Session{}, invalidCredentials()
	}
	match, err := argon2id.ComparePasswordAndHash(password, acct.hash)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("dev auth: compare hash: %w", err)
	}
	if !match {
		return domainauth.Session{}, invalidCredentials()
	}

	token, err := randomString(32)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("dev auth: generate token: %w", err)
	}
	expires := d.now().Add(d.ttl)
	d.mu.Lock()
	d.sessions[token] = session{userID: acct.id, expires: expires}
	d.mu.Unlock()

	return domainauth.Session{
		AccessToken: token,
		ExpiresAt:   expires,
		User:        domainauth.Identity{ID: acct.id, Email: email, FullName: prof.FullName},
	}, nil
}

// SignUp registers a new account. The caller inserts the profile.
func (d *Directory) SignUp(_ context.Context, in ports.SignUpInput) (domainauth.Identity, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return domainauth.Identity{}, apperrors.Validation("Email and password are required.")
	}
	if d.registered(email) {
		return domainauth.Identity{}, alreadyRegistered()
	}

	hash, err := d.hashPassword(in.Password)
	if err != nil {
		return domainauth.Identity{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.accounts[email]; exists {
		return domainauth.Identity{}, alreadyRegistered()
	}
	id := d.addAccount(email, hash)
	return domainauth.Identity{ID: id, Email: email, FullName: in.FullName}, nil
}

// SignOut forgets the token. Unknown tokens are ignored.
func (d *Directory) SignOut(_ context.Context, accessToken string) error {
	d.mu.Lock()
	delete(d.sessions, accessToken)
	d.mu.Unlock()
	return nil
}

func (d *Directory) registered(email string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.accounts[email]
	return ok
}

// GetUser resolves a live token to its identity. An expired token is dropped on the way out.
func (d *Directory) GetUser(_ context.Context, accessToken string) (domainauth.Identity, error) {
	d.mu.RLock()
	s, ok := d.sessions[accessToken]
	expired := ok && !d.now().Before(s.expires)
	var (
		identity domainauth.Identity
		found    bool
	)
	if ok && !expired {
		identity, found = d.identityLocked(s.userID)
	}
	d.mu.RUnlock()

	if expired {
		d.pruneSession(accessToken)
	}
	if !found {
		return domainauth.Identity{}, ports.ErrInvalidCredential
	}
	return identity, nil
}

// identityLocked requires mu held for reading.
func (d *Directory) identityLocked(userID string) (domainauth.Identity, bool) {
	for email, acct := range d.accounts {
		if acct.id == userID {
			return domainauth.Identity{ID: acct.id, Email: email, FullName: d.profiles[acct.id].FullName}, true
		}
	}
	return domainauth.Identity{}, false
}

// pruneSession deletes token if it is still expired once the write lock is held.
func (d *Directory) pruneSession(token string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.sessions[token]; ok && !d.now().Before(s.expires) {
		delete(d.sessions, token)
	}
}

// GetProfile returns the stored profile for id.
func (d *Directory) GetProfile(_ context.Context, id string) (domainauth.Profile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.profiles[id]
	if !ok {
		return domainauth.Profile{}, ports.ErrProfileNotFound
	}
	return p, nil
}

// InsertProfile stores p. Duplicate ids are a conflict.
func (d *Directory) InsertProfile(_ context.Context, p domainauth.Profile) error {
	if p.ID == "" {
		return apperrors.ValidationField("id", "Profile id is required.")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.profiles[p.ID]; exists {
		return apperrors.New(apperrors.ErrCodeConflict, "A profile already exists for this account.")
	}
	if p.Role == "" {
		p.Role = domainauth.RoleStudent
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = d.now()
	}
	d.profiles[p.ID] = p
	return nil
}

func alreadyRegistered() error {
	return apperrors.ValidationField("email", "User already registered")
}

func invalidCredentials() error {
	return apperrors.Wrap(ports.ErrInvalidCredentials, apperrors.ErrCodeUnauthorized, "Invalid login credentials")
}

func displayName(email string) string {
	name, _, _ := strings.Cut(email, "@")
	return name
}

// randomString returns n URL-safe characters from crypto/rand.
func randomString(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("length must be positive")
	}
	b := make([]byte, (n*3+3)/4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b)[:n], nil
}
