package httpx

import (
	"net/http"
	"time"

	domainauth "github.com/hostelhub/portal/internal/domain/auth"
)

// PageData is the view model every page template receives.
type PageData struct {
	Title       string
	Session     *domainauth.SessionContext
	Notice      string
	Error       string
	Form        map[string]string
	Profile     *domainauth.Profile
	RedirectURI string
	CSRFToken   string
	Year        int
}

// notices maps the ?notice= query value to the banner shown above the page.
var notices = map[string]string{ //nolint:gochecknoglobals // read-only lookup table
	"registered": "Registration successful! Please check your email to verify your account.",
	"signed_out": "You have been signed out.",
}

// basePageData fills the fields shared by all pages from the request.
func basePageData(r *http.Request, title string) PageData {
	return PageData{
		Title:     title,
		Session:   GetSessionFromContext(r.Context()),
		Notice:    notices[r.URL.Query().Get("notice")],
		CSRFToken: CSRFTokenFromContext(r.Context()),
		Year:      time.Now().Year(),
	}
}
