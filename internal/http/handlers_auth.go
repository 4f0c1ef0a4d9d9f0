package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	domainauth "github.com/hostelhub/portal/internal/domain/auth"
	apperrors "github.com/hostelhub/portal/internal/errors"
	"github.com/hostelhub/portal/internal/service"
)

// AuthFlows is the subset of service.AuthService the handlers use.
type AuthFlows interface {
	SignIn(ctx context.Context, in service.SignInInput) (*domainauth.Session, error)
	SignUp(ctx context.Context, in service.SignUpInput) (domainauth.Identity, error)
	SignOut(ctx context.Context, accessToken string) error
	Profile(ctx context.Context, identityID string) (domainauth.Profile, error)
}

const defaultPostLoginPath = "/profile"

// AuthHandlers serves the login, registration, sign-out and status endpoints.
type AuthHandlers struct {
	Svc           AuthFlows
	Renderer      *TemplateRenderer
	CookieName    string
	CookieDomain  string
	SecureCookies bool
	Logger        *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// LoginPage renders the login form.
// GET /login.
func (h *AuthHandlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	data := basePageData(r, "Login")
	data.RedirectURI = safeRedirectPath(r.URL.Query().Get("redirect_uri"), "")
	h.render(w, http.StatusOK, "login", data)
}

// Login verifies the submitted credentials and sets the session cookie.
// POST /login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	data := basePageData(r, "Login")
	if err := r.ParseForm(); err != nil {
		data.Error = "Invalid form submission."
		h.render(w, http.StatusBadRequest, "login", data)
		return
	}

	email := r.PostFormValue("email")
	data.Form = map[string]string{"email": email}
	data.RedirectURI = safeRedirectPath(r.PostFormValue("redirect_uri"), "")

	sess, err := h.Svc.SignIn(r.Context(), service.SignInInput{
		Email:    email,
		Password: r.PostFormValue("password"),
	})
	if err != nil {
		status := statusForError(err)
		if status >= http.StatusInternalServerError {
			h.logger().WarnContext(r.Context(), "sign in failed", "error", err,
				"request_id", RequestIDFromContext(r.Context()))
		}
		data.Error = apperrors.UserMessage(err, service.MsgUnexpected)
		h.render(w, status, "login", data)
		return
	}

	h.setSessionCookie(w, r, sess)
	http.Redirect(w, r, safeRedirectPath(data.RedirectURI, defaultPostLoginPath), http.StatusSeeOther)
}

// RegisterPage renders the registration form.
// GET /register.
func (h *AuthHandlers) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "register", basePageData(r, "Register"))
}

// registerFields are echoed back into the form when registration fails. Passwords never are.
var registerFields = []string{ //nolint:gochecknoglobals // read-only field list
	"full_name", "email", "school", "phone_number", "home_county", "age", "gender",
	"parent_name", "parent_contact", "guardian_name", "guardian_contact",
}

// Register creates the account and the student profile.
// POST /register.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	data := basePageData(r, "Register")
	if err := r.ParseForm(); err != nil {
		data.Error = "Invalid form submission."
		h.render(w, http.StatusBadRequest, "register", data)
		return
	}

	data.Form = make(map[string]string, len(registerFields))
	for _, f := range registerFields {
		data.Form[f] = r.PostFormValue(f)
	}

	var age *int
	if raw := strings.TrimSpace(data.Form["age"]); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			data.Error = "Age must be a number."
			h.render(w, http.StatusBadRequest, "register", data)
			return
		}
		if n < 1 {
			data.Error = "Age must be at least 1."
			h.render(w, http.StatusBadRequest, "register", data)
			return
		}
		age = &n
	}

	_, err := h.Svc.SignUp(r.Context(), service.SignUpInput{
		FullName:        data.Form["full_name"],
		Email:           data.Form["email"],
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
		School:          data.Form["school"],
		PhoneNumber:     data.Form["phone_number"],
		HomeCounty:      data.Form["home_county"],
		Age:             age,
		Gender:          data.Form["gender"],
		ParentName:      data.Form["parent_name"],
		ParentContact:   data.Form["parent_contact"],
		GuardianName:    data.Form["guardian_name"],
		GuardianContact: data.Form["guardian_contact"],
	})
	if err != nil {
		status := statusForError(err)
		if status >= http.StatusInternalServerError {
			h.logger().WarnContext(r.Context(), "registration failed", "error", err,
				"request_id", RequestIDFromContext(r.Context()))
		}
		data.Error = apperrors.UserMessage(err, service.MsgUnexpected)
		h.render(w, status, "register", data)
		return
	}

	http.Redirect(w, r, noticeURL("/login", "registered"), http.StatusSeeOther)
}

// Logout revokes the session at the provider (best effort) and clears the cookie.
// POST /logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if token := credentialFromRequest(r, h.CookieName); token != "" {
		if err := h.Svc.SignOut(r.Context(), token); err != nil {
			h.logger().WarnContext(r.Context(), "logout failed", "error", err,
				"request_id", RequestIDFromContext(r.Context()))
		}
	}
	h.clearCookie(w, r, h.CookieName)
	http.Redirect(w, r, noticeURL("/login", "signed_out"), http.StatusSeeOther)
}

// Status returns the authentication state established by the gate.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	session, ok := GetUserSessionFromContext(r.Context())
	if !ok {
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user": map[string]any{
			"id":        session.Identity.ID,
			"email":     session.Identity.Email,
			"full_name": session.Identity.FullName,
			"role":      session.Role,
		},
	})
}

func (h *AuthHandlers) render(w http.ResponseWriter, status int, page string, data PageData) {
	if err := h.Renderer.Render(w, status, page, data); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *AuthHandlers) secure(r *http.Request) bool {
	return h.SecureCookies || r.TLS != nil || isForwardedHTTPS(r)
}

// setSessionCookie stores the access token. MaxAge follows the token expiry when the provider sent one.
func (h *AuthHandlers) setSessionCookie(w http.ResponseWriter, r *http.Request, s *domainauth.Session) {
	c := &http.Cookie{
		Name:     h.CookieName,
		Value:    s.AccessToken,
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   h.secure(r),
		SameSite: http.SameSiteLaxMode,
	}
	if !s.ExpiresAt.IsZero() {
		if ttl := int(time.Until(s.ExpiresAt).Seconds()); ttl > 0 {
			c.MaxAge = ttl
		}
	}
	http.SetCookie(w, c)
}

// clearCookie expires a cookie, mirroring the attributes it was set with.
func (h *AuthHandlers) clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   h.secure(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

// statusForError maps an AppError code to the status the form is re-rendered with.
func statusForError(err error) int {
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest
	case apperrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrCodeConflict:
		return http.StatusConflict
	case apperrors.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// safeRedirectPath returns candidate when it is a same-origin relative path, otherwise fallback.
func safeRedirectPath(candidate, fallback string) string {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" || strings.HasPrefix(candidate, "//") || strings.Contains(candidate, `\`) {
		return fallback
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return fallback
	}
	return candidate
}

func noticeURL(path, notice string) string {
	u := url.URL{Path: path, RawQuery: url.Values{"notice": {notice}}.Encode()}
	return u.String()
}
