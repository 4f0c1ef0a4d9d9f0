package httpx

import (
	"io/fs"
	"log/slog"
	"net/http"

	portal "github.com/hostelhub/portal"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Gate          AccessEvaluator
	Auth          AuthFlows
	CookieName    string
	CookieDomain  string
	SecureCookies bool

	// Metrics is served at MetricsPath outside the gate when non-nil.
	Metrics     http.Handler
	MetricsPath string

	// TemplateFS and StaticFS default to the embedded assets.
	TemplateFS fs.FS
	StaticFS   fs.FS

	Logger *slog.Logger
}

// NewRouter builds the portal routes. Pages and auth endpoints run behind the access gate and
// CSRF protection; health, metrics and static assets do not.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if services.CookieName == "" {
		services.CookieName = "sb-access-token"
	}

	renderer, err := NewTemplateRenderer(TemplateRendererConfig{
		TemplateFS: templateFS(services.TemplateFS),
		Logger:     logger,
	})
	if err != nil {
		panic(err)
	}

	pages := &PageHandlers{Renderer: renderer, Auth: services.Auth, Logger: logger}
	authHandlers := &AuthHandlers{
		Svc:           services.Auth,
		Renderer:      renderer,
		CookieName:    services.CookieName,
		CookieDomain:  services.CookieDomain,
		SecureCookies: services.SecureCookies,
		Logger:        logger,
	}

	gated := http.NewServeMux()
	registerPageRoutes(gated, pages)
	registerAuthRoutes(gated, authHandlers)

	mux := http.NewServeMux()
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	if services.Metrics != nil {
		path := services.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, services.Metrics)
	}
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS(services.StaticFS))))
	csrf := CSRFProtection(CSRFConfig{
		CookieDomain:  services.CookieDomain,
		SecureCookies: services.SecureCookies,
	})
	mux.Handle("/", RequireAccess(services.Gate, services.CookieName)(csrf(gated)))
	return mux
}

func registerPageRoutes(mux *http.ServeMux, h *PageHandlers) {
	mux.HandleFunc("GET /{$}", h.Home)
	mux.HandleFunc("GET /about", h.static("about", "About"))
	mux.HandleFunc("GET /facilities", h.static("facilities", "Facilities"))
	mux.HandleFunc("GET /unauthorized", h.static("unauthorized", "Unauthorized"))
	mux.HandleFunc("GET /profile", h.Profile)
	mux.HandleFunc("GET /dashboard", h.static("dashboard", "Dashboard"))
	mux.HandleFunc("GET /admin", h.static("admin", "Administration"))
	mux.HandleFunc("GET /student", h.static("student", "Student"))
	mux.HandleFunc("/", h.NotFound)
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("GET /login", h.LoginPage)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("GET /register", h.RegisterPage)
	mux.HandleFunc("POST /register", h.Register)
	mux.HandleFunc("POST /logout", h.Logout)
	mux.HandleFunc("GET /auth/status", h.Status)
}

func templateFS(override fs.FS) fs.FS {
	if override != nil {
		return override
	}
	sub, err := fs.Sub(portal.TemplateFS, "web/templates")
	if err != nil {
		panic(err)
	}
	return sub
}

func staticFS(override fs.FS) fs.FS {
	if override != nil {
		return override
	}
	sub, err := fs.Sub(portal.StaticFS, "web/static")
	if err != nil {
		panic(err)
	}
	return sub
}
