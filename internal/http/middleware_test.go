package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelhub/portal/internal/domain/access"
	domainauth "github.com/hostelhub/portal/internal/domain/auth"
)

func TestRequireAccess_RedirectsDenials(t *testing.T) {
	tests := []struct {
		name     string
		decision access.Decision
		want     string
	}{
		{"unauthenticated", access.RedirectToLogin(access.ErrMissingCredential), "/login"},
		{"unauthorized", access.RedirectToUnauthorized(&domainauth.SessionContext{Role: domainauth.RoleStudent}), "/unauthorized"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := gateFunc(func(context.Context, string, string) access.Decision { return tt.decision })
			called := false
			handler := RequireAccess(gate, "sb-access-token")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				called = true
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/rooms", nil))

			assert.False(t, called, "next handler must not run on denial")
			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, tt.want, rec.Header().Get("Location"))
			assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
		})
	}
}

func TestRequireAccess_PassesCredentialAndSession(t *testing.T) {
	session := &domainauth.SessionContext{
		Identity: domainauth.Identity{ID: "u1", Email: "amina@hostel.test"},
		Role:     domainauth.RoleAdmin,
	}
	var gotPath, gotCredential string
	gate := gateFunc(func(_ context.Context, path, credential string) access.Decision {
		gotPath, gotCredential = path, credential
		return access.Allow(session)
	})

	handler := RequireAccess(gate, "sb-access-token")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := GetUserSessionFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, "u1", s.Identity.ID)
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: "sb-access-token", Value: "tok-123"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "/admin", gotPath)
	assert.Equal(t, "tok-123", gotCredential)
}

func TestRequireAccess_MissingOrBlankCookie(t *testing.T) {
	for _, cookie := range []*http.Cookie{nil, {Name: "sb-access-token", Value: "   "}, {Name: "other", Value: "x"}} {
		var got = "unset"
		gate := gateFunc(func(_ context.Context, _ string, credential string) access.Decision {
			got = credential
			return access.Allow(nil)
		})
		handler := RequireAccess(gate, "sb-access-token")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, ok := GetUserSessionFromContext(r.Context())
			assert.False(t, ok)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if cookie != nil {
			req.AddCookie(cookie)
		}
		handler.ServeHTTP(httptest.NewRecorder(), req)
		assert.Empty(t, got)
	}
}

func TestLogging_AssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	var seen string
	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/about", nil))

	_, err := uuid.Parse(seen)
	require.NoError(t, err)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "http", entry["msg"])
	assert.Equal(t, "/about", entry["path"])
	assert.InDelta(t, float64(http.StatusTeapot), entry["status"], 0)
	assert.Equal(t, seen, entry["request_id"])
}

func TestLogging_KeepsValidIncomingRequestID(t *testing.T) {
	incoming := uuid.NewString()
	handler := Logging(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", incoming)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, incoming, rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "<script>")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.NotEqual(t, "<script>", rec.Header().Get("X-Request-ID"))
}

func TestRecover(t *testing.T) {
	handler := Recover(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLoggingRecover_PanicCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	handler := Logging(logger)(Recover(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/profile", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	id := rec.Header().Get("X-Request-ID")
	require.NotEmpty(t, id)

	dec := json.NewDecoder(&buf)
	var panicEntry, accessEntry map[string]any
	require.NoError(t, dec.Decode(&panicEntry))
	require.NoError(t, dec.Decode(&accessEntry))
	assert.Equal(t, "panic", panicEntry["msg"])
	assert.Equal(t, id, panicEntry["request_id"])
	assert.Equal(t, "http", accessEntry["msg"])
	assert.InDelta(t, float64(http.StatusInternalServerError), accessEntry["status"], 0)
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, SetSessionInContext(ctx, nil))
	assert.Nil(t, GetSessionFromContext(ctx))

	s := &domainauth.SessionContext{Role: domainauth.RoleStudent}
	assert.Same(t, s, GetSessionFromContext(SetSessionInContext(ctx, s)))
}
