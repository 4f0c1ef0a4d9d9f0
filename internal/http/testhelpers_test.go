package httpx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hostelhub/portal/internal/domain/access"
	domainauth "github.com/hostelhub/portal/internal/domain/auth"
	"github.com/hostelhub/portal/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRenderer(t *testing.T) *TemplateRenderer {
	t.Helper()
	r, err := NewTemplateRenderer(TemplateRendererConfig{TemplateFS: templateFS(nil), Logger: discardLogger()})
	require.NoError(t, err)
	return r
}

// mockAuthFlows is a function-field fake for AuthFlows.
type mockAuthFlows struct {
	signInFunc  func(ctx context.Context, in service.SignInInput) (*domainauth.Session, error)
	signUpFunc  func(ctx context.Context, in service.SignUpInput) (domainauth.Identity, error)
	signOutFunc func(ctx context.Context, token string) error
	profileFunc func(ctx context.Context, id string) (domainauth.Profile, error)
}

func (m *mockAuthFlows) SignIn(ctx context.Context, in service.SignInInput) (*domainauth.Session, error) {
	if m.signInFunc != nil {
		return m.signInFunc(ctx, in)
	}
	return nil, nil
}

func (m *mockAuthFlows) SignUp(ctx context.Context, in service.SignUpInput) (domainauth.Identity, error) {
	if m.signUpFunc != nil {
		return m.signUpFunc(ctx, in)
	}
	return domainauth.Identity{}, nil
}

func (m *mockAuthFlows) SignOut(ctx context.Context, token string) error {
	if m.signOutFunc != nil {
		return m.signOutFunc(ctx, token)
	}
	return nil
}

func (m *mockAuthFlows) Profile(ctx context.Context, id string) (domainauth.Profile, error) {
	if m.profileFunc != nil {
		return m.profileFunc(ctx, id)
	}
	return domainauth.Profile{}, nil
}

// gateFunc adapts a function to AccessEvaluator.
type gateFunc func(ctx context.Context, path, credential string) access.Decision

func (f gateFunc) Evaluate(ctx context.Context, path, credential string) access.Decision {
	return f(ctx, path, credential)
}

func postForm(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

const testCSRFToken = "test-csrf-token"

// csrfPostForm is postForm with a matching double-submit cookie and field.
func csrfPostForm(target string, values url.Values) *http.Request {
	form := url.Values{DefaultCSRFFieldName: {testCSRFToken}}
	for k, v := range values {
		form[k] = v
	}
	req := postForm(target, form)
	req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: testCSRFToken})
	return req
}

func withSession(req *http.Request, s *domainauth.SessionContext) *http.Request {
	return req.WithContext(SetSessionInContext(req.Context(), s))
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
