// Package auth contains simple hand-written test doubles for identity and account ports.
// These are lightweight and suitable for unit tests without codegen.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domainauth "github.com/hostelhub/portal/internal/domain/auth"
	"github.com/hostelhub/portal/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.TokenResolver = (*StaticTokenResolver)(nil)
	_ ports.ProfileStore  = (*MemoryProfileStore)(nil)
	_ ports.Accounts      = (*MockAccounts)(nil)
	_ ports.LoginThrottle = (*MemoryThrottle)(nil)
)

// StaticTokenResolver resolves tokens from a fixed map.
type StaticTokenResolver struct {
	GetUserFunc func(ctx context.Context, accessToken string) (domainauth.Identity, error)

	Tokens map[string]domainauth.Identity
}

func (s *StaticTokenResolver) GetUser(ctx context.Context, accessToken string) (domainauth.Identity, error) {
	if s.GetUserFunc != nil {
		return s.GetUserFunc(ctx, accessToken)
	}
	id, ok := s.Tokens[accessToken]
	if !ok {
		return domainauth.Identity{}, ports.ErrInvalidCredential
	}
	return id, nil
}

// MemoryProfileStore is an in-memory users table for unit tests.
type MemoryProfileStore struct {
	mu       sync.Mutex
	profiles map[string]domainauth.Profile

	// InsertErr, when set, is returned by InsertProfile.
	InsertErr error
}

// NewMemoryProfileStore creates a store seeded with profiles.
func NewMemoryProfileStore(seed ...domainauth.Profile) *MemoryProfileStore {
	m := &MemoryProfileStore{profiles: make(map[string]domainauth.Profile, len(seed))}
	for _, p := range seed {
		m.profiles[p.ID] = p
	}
	return m
}

func (m *MemoryProfileStore) GetProfile(_ context.Context, id string) (domainauth.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return domainauth.Profile{}, ports.ErrProfileNotFound
	}
	return p, nil
}

func (m *MemoryProfileStore) InsertProfile(_ context.Context, p domainauth.Profile) error {
	if m.InsertErr != nil {
		return m.InsertErr
	}
	if p.ID == "" {
		return errors.New("profile ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profiles == nil {
		m.profiles = make(map[string]domainauth.Profile)
	}
	if _, exists := m.profiles[p.ID]; exists {
		return fmt.Errorf("profile %s already exists", p.ID)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	m.profiles[p.ID] = p
	return nil
}

// MockAccounts simulates the identity provider's password flows.
type MockAccounts struct {
	SignInFunc  func(ctx context.Context, email, password string) (domainauth.Session, error)
	SignUpFunc  func(ctx context.Context, in ports.SignUpInput) (domainauth.Identity, error)
	SignOutFunc func(ctx context.Context, accessToken string) error

	// SignedOut records tokens passed to SignOut.
	SignedOut []string
	callCount int
}

func (m *MockAccounts) SignInWithPassword(ctx context.Context, email, password string) (domainauth.Session, error) {
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, email, password)
	}
	m.callCount++
	return domainauth.Session{
		AccessToken:  fmt.Sprintf("access-%d", m.callCount),
		RefreshToken: fmt.Sprintf("refresh-%d", m.callCount),
		ExpiresAt:    time.Now().Add(time.Hour),
		User:         domainauth.Identity{ID: "mock-user-1", Email: email},
	}, nil
}

func (m *MockAccounts) SignUp(ctx context.Context, in ports.SignUpInput) (domainauth.Identity, error) {
	if m.SignUpFunc != nil {
		return m.SignUpFunc(ctx, in)
	}
	m.callCount++
	return domainauth.Identity{
		ID:       fmt.Sprintf("mock-user-%d", m.callCount),
		Email:    in.Email,
		FullName: in.FullName,
	}, nil
}

func (m *MockAccounts) SignOut(ctx context.Context, accessToken string) error {
	m.SignedOut = append(m.SignedOut, accessToken)
	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx, accessToken)
	}
	return nil
}

// MemoryThrottle counts failures per key with no expiry.
type MemoryThrottle struct {
	mu       sync.Mutex
	failures map[string]int

	Max int
}

// NewMemoryThrottle creates a throttle that blocks after max failures.
func NewMemoryThrottle(max int) *MemoryThrottle {
	return &MemoryThrottle{failures: make(map[string]int), Max: max}
}

func (m *MemoryThrottle) Allow(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Max > 0 && m.failures[key] >= m.Max {
		return ports.ErrTooManyAttempts
	}
	return nil
}

func (m *MemoryThrottle) Fail(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures == nil {
		m.failures = make(map[string]int)
	}
	m.failures[key]++
	return nil
}

func (m *MemoryThrottle) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failures, key)
	return nil
}

// Failures returns the recorded failure count for key.
func (m *MemoryThrottle) Failures(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures[key]
}
