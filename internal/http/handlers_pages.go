package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hostelhub/portal/internal/ports"
)

// PageHandlers renders the marketing pages and the gated area pages.
type PageHandlers struct {
	Renderer *TemplateRenderer
	Auth     AuthFlows
	Logger   *slog.Logger
}

func (h *PageHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// static returns a handler for a page that only needs the shared page data.
func (h *PageHandlers) static(page, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, http.StatusOK, page, basePageData(r, title))
	}
}

// Home serves "/".
func (h *PageHandlers) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "home", basePageData(r, ""))
}

// NotFound renders the 404 page.
func (h *PageHandlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusNotFound, "not_found", basePageData(r, "Not found"))
}

// Profile shows the users row of the signed-in identity.
// The gate guarantees a session on this path; a missing row renders "No profile found.".
func (h *PageHandlers) Profile(w http.ResponseWriter, r *http.Request) {
	data := basePageData(r, "Profile")
	if data.Session == nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	profile, err := h.Auth.Profile(r.Context(), data.Session.Identity.ID)
	switch {
	case err == nil:
		data.Profile = &profile
	case errors.Is(err, ports.ErrProfileNotFound):
	default:
		h.logger().WarnContext(r.Context(), "load profile failed",
			"user_id", data.Session.Identity.ID, "error", err,
			"request_id", RequestIDFromContext(r.Context()))
	}
	h.render(w, http.StatusOK, "profile", data)
}

func (h *PageHandlers) render(w http.ResponseWriter, status int, page string, data PageData) {
	if err := h.Renderer.Render(w, status, page, data); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
