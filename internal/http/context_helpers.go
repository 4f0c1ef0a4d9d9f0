package httpx

import (
	"context"

	domainauth "github.com/hostelhub/portal/internal/domain/auth"
)

// sessionKey is an unexported context key type to avoid collisions across packages.
type sessionKey struct{}

type requestIDKey struct{}

// SetSessionInContext returns a child context that carries the session established by the gate.
// If session is nil, the original ctx is returned unchanged.
func SetSessionInContext(ctx context.Context, session *domainauth.SessionContext) context.Context {
	if session == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, session)
}

// GetUserSessionFromContext returns the session and whether one is present.
func GetUserSessionFromContext(ctx context.Context) (*domainauth.SessionContext, bool) {
	if session, ok := ctx.Value(sessionKey{}).(*domainauth.SessionContext); ok && session != nil {
		return session, true
	}
	return nil, false
}

// GetSessionFromContext returns the session or nil for anonymous requests.
func GetSessionFromContext(ctx context.Context) *domainauth.SessionContext {
	s, _ := GetUserSessionFromContext(ctx)
	return s
}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the id assigned by Logging, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
