package httpx

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/hostelhub/portal/internal/domain/auth"
	authmocks "github.com/hostelhub/portal/internal/mocks/auth"
	"github.com/hostelhub/portal/internal/observability/metrics"
	"github.com/hostelhub/portal/internal/service"
)

type routerFixture struct {
	handler  http.Handler
	profiles *authmocks.MemoryProfileStore
	accounts *authmocks.MockAccounts
}

// newRouterFixture wires the real gate and auth service over in-memory ports.
// Tokens: "admin-token" (admin), "student-token" (student), "orphan-token" (no profile row).
func newRouterFixture(t *testing.T) routerFixture {
	t.Helper()
	tokens := &authmocks.StaticTokenResolver{Tokens: map[string]domainauth.Identity{
		"admin-token":   {ID: "a1", Email: "warden@hostel.test", FullName: "Warden"},
		"student-token": {ID: "s1", Email: "amina@hostel.test", FullName: "Amina Otieno"},
		"orphan-token":  {ID: "o1", Email: "ghost@hostel.test"},
	}}
	profiles := authmocks.NewMemoryProfileStore(
		domainauth.Profile{ID: "a1", Email: "warden@hostel.test", FullName: "Warden", Role: domainauth.RoleAdmin},
		domainauth.Profile{ID: "s1", Email: "amina@hostel.test", FullName: "Amina Otieno", Role: domainauth.RoleStudent, School: "Moi Girls", HomeCounty: "Kisumu"},
	)
	accounts := &authmocks.MockAccounts{}

	reg := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(metrics.RecorderOptions{Registry: reg})
	gate := service.NewAccessGate(service.AccessGateOptions{
		Identity: service.NewIdentityResolver(tokens, profiles),
		Logger:   discardLogger(),
		Recorder: recorder,
	})
	auth := service.NewAuthService(service.AuthServiceOptions{
		Accounts: accounts,
		Profiles: profiles,
		Recorder: recorder,
		Logger:   discardLogger(),
	})

	return routerFixture{
		handler: NewRouter(RouterServices{
			Gate:       gate,
			Auth:       auth,
			CookieName: "sb-access-token",
			Metrics:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			Logger:     discardLogger(),
		}),
		profiles: profiles,
		accounts: accounts,
	}
}

func (f routerFixture) get(t *testing.T, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "sb-access-token", Value: token})
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestRouter_GateDecisions(t *testing.T) {
	f := newRouterFixture(t)
	tests := []struct {
		name     string
		path     string
		token    string
		wantCode int
		wantLoc  string
	}{
		{"public page without credential", "/about", "", http.StatusOK, ""},
		{"public page with bad credential", "/facilities", "garbage", http.StatusOK, ""},
		{"dashboard without credential", "/dashboard", "", http.StatusFound, "/login"},
		{"profile subtree without credential", "/profile/edit", "", http.StatusFound, "/login"},
		{"admin as student", "/admin/x", "student-token", http.StatusFound, "/unauthorized"},
		{"admin as admin", "/admin", "admin-token", http.StatusOK, ""},
		{"student as admin", "/student", "admin-token", http.StatusFound, "/unauthorized"},
		{"student without profile row", "/student/x", "orphan-token", http.StatusFound, "/login"},
		{"profile with unknown token", "/profile", "expired", http.StatusFound, "/login"},
		{"prefix lookalike is public", "/administrator", "", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.get(t, tt.path, tt.token)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantLoc, rec.Header().Get("Location"))
		})
	}
}

func TestRouter_ProfilePage(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.get(t, "/profile", "student-token")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Amina Otieno")
	assert.Contains(t, body, "Moi Girls")
	assert.Contains(t, body, "Kisumu")
	assert.Contains(t, body, `action="/logout"`, "signed-in header")
}

func TestRouter_DashboardGreeting(t *testing.T) {
	f := newRouterFixture(t)
	rec := f.get(t, "/dashboard", "student-token")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome back, Amina Otieno.")
}

func TestRouter_HomeShowsSignedInStateOnPublicPath(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.get(t, "/", "admin-token")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Signed in as warden@hostel.test.")
	assert.Contains(t, rec.Body.String(), `href="/admin"`)

	rec = f.get(t, "/", "")
	assert.Contains(t, rec.Body.String(), `href="/login"`)
	assert.NotContains(t, rec.Body.String(), "Signed in as")
}

func TestRouter_RegisterThenLogin(t *testing.T) {
	f := newRouterFixture(t)

	form := url.Values{
		"full_name":        {"Brian Kip"},
		"email":            {"Brian@Hostel.test"},
		"password":         {"secret1"},
		"confirm_password": {"secret1"},
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, csrfPostForm("/register", form))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	loc := rec.Header().Get("Location")
	assert.Equal(t, "/login?notice=registered", loc)

	p, err := f.profiles.GetProfile(t.Context(), "mock-user-1")
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleStudent, p.Role)
	assert.Equal(t, "brian@hostel.test", p.Email)

	rec = f.get(t, loc, "")
	assert.Contains(t, rec.Body.String(), "Registration successful! Please check your email to verify your account.")

	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, csrfPostForm("/login", url.Values{"email": {"brian@hostel.test"}, "password": {"secret1"}}))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/profile", rec.Header().Get("Location"))
	require.NotNil(t, findCookie(rec, "sb-access-token"))
}

func TestRouter_RegisterValidation(t *testing.T) {
	f := newRouterFixture(t)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, csrfPostForm("/register", url.Values{
		"full_name": {"Brian"}, "email": {"brian@hostel.test"},
		"password": {"secret1"}, "confirm_password": {"secret2"},
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Passwords do not match.")
}

func TestRouter_LogoutAndStatus(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.get(t, "/auth/status", "student-token")
	assert.Contains(t, rec.Body.String(), `"authenticated":true`)

	req := csrfPostForm("/logout", nil)
	req.AddCookie(&http.Cookie{Name: "sb-access-token", Value: "student-token"})
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, "/login?notice=signed_out", rec.Header().Get("Location"))
	assert.Equal(t, []string{"student-token"}, f.accounts.SignedOut)
}

func TestRouter_FormsCarryCSRFToken(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.get(t, "/login", "")
	require.Equal(t, http.StatusOK, rec.Code)
	c := findCookie(rec, DefaultCSRFCookieName)
	require.NotNil(t, c)
	assert.NotEmpty(t, c.Value)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.Contains(t, rec.Body.String(), `name="csrf_token" value="`+c.Value+`"`)

	rec = f.get(t, "/register", "")
	assert.Contains(t, rec.Body.String(), `name="csrf_token"`)

	rec = f.get(t, "/dashboard", "student-token")
	assert.Contains(t, rec.Body.String(), `name="csrf_token"`, "sign-out form in the header")
}

func TestRouter_PostsWithoutCSRFTokenRejected(t *testing.T) {
	tests := []struct {
		name string
		req  func() *http.Request
	}{
		{"login without cookie or field", func() *http.Request {
			return postForm("/login", url.Values{"email": {"brian@hostel.test"}, "password": {"secret1"}})
		}},
		{"register with field but no cookie", func() *http.Request {
			return postForm("/register", url.Values{"csrf_token": {"forged"}, "full_name": {"B"}})
		}},
		{"logout with mismatched token", func() *http.Request {
			req := postForm("/logout", url.Values{"csrf_token": {"forged"}})
			req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: testCSRFToken})
			req.AddCookie(&http.Cookie{Name: "sb-access-token", Value: "student-token"})
			return req
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRouterFixture(t)
			rec := httptest.NewRecorder()
			f.handler.ServeHTTP(rec, tt.req())

			assert.Equal(t, http.StatusForbidden, rec.Code)
			assert.Nil(t, findCookie(rec, "sb-access-token"), "session cookie untouched")
			assert.Empty(t, f.accounts.SignedOut)
		})
	}
}

func TestRouter_OperationalEndpointsBypassGate(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.get(t, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodHead, "/healthz", nil)
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	f.get(t, "/admin", "student-token")
	rec = f.get(t, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `hostel_gate_decisions_total{outcome="denied_unauthorized",reason="role_mismatch"}`))

	rec = f.get(t, "/static/css/portal.css", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/css")
}

func TestRouter_NotFound(t *testing.T) {
	f := newRouterFixture(t)
	rec := f.get(t, "/no/such/page", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Page not found")
}
