package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-portal/meridian/internal/activity"
	"github.com/meridian-portal/meridian/internal/auth"
	"github.com/meridian-portal/meridian/internal/contact"
	"github.com/meridian-portal/meridian/internal/files"
	"github.com/meridian-portal/meridian/internal/observability"
	"github.com/meridian-portal/meridian/internal/profiles"
	"github.com/meridian-portal/meridian/internal/rbac"
	"github.com/meridian-portal/meridian/internal/search"
	"github.com/meridian-portal/meridian/internal/shared"
	"github.com/meridian-portal/meridian/internal/view"
	"github.com/meridian-portal/meridian/jobs"
	"github.com/meridian-portal/meridian/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	Templates       *view.Engine
	SessionManager  *shared.SessionManager
	CSRFManager     *shared.CSRFManager
	Guard           *rbac.Guard
	AuthHandler     *auth.Handler
	ProfilesHandler *profiles.Handler
	FilesHandler    *files.Handler
	SearchHandler   *search.Handler
	ContactHandler  *contact.Handler
	ActivityHandler *activity.Handler
	JobsHandler     *jobs.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router for the portal.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	// Every route sees the principal when a valid session exists; the
	// protected groups below add their own requirements on top.
	r.Use(params.Guard.Resolve)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Public marketing pages.
	r.Get("/", params.staticPage("pages/home.html", "Home"))
	r.Get("/about", params.staticPage("pages/about.html", "About Us"))
	r.Get("/privacy", params.staticPage("pages/privacy.html", "Privacy Policy"))
	r.Get("/terms", params.staticPage("pages/terms.html", "Terms of Service"))
	r.Route("/contact", params.ContactHandler.MountPublicRoutes)

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Route("/api/search", params.SearchHandler.MountRoutes)

	r.Route("/dashboard", func(r chi.Router) {
		r.Use(params.Guard.RequireAuth())
		r.Get("/", params.staticPage("pages/dashboard/home.html", "Dashboard"))
		r.Route("/profile", params.ProfilesHandler.MountProfileRoutes)
		r.Route("/password", params.AuthHandler.MountPasswordRoutes)
		r.Route("/files", params.FilesHandler.MountRoutes)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(params.Guard.RequireRole(rbac.RoleAdmin))
		r.Get("/", params.staticPage("pages/admin/home.html", "Admin"))
		r.Route("/users", params.ProfilesHandler.MountAdminRoutes)
		r.Route("/activity", params.ActivityHandler.MountAdminRoutes)
		if params.JobsHandler != nil {
			r.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	r.Route("/manager", func(r chi.Router) {
		r.Use(params.Guard.RequireAnyRole(rbac.RoleManager, rbac.RoleAdmin))
		r.Get("/", params.staticPage("pages/manager/home.html", "Manager"))
		r.Route("/activity", params.ActivityHandler.MountManagerRoutes)
		r.Route("/messages", params.ContactHandler.MountInboxRoutes)
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticPage renders a template that needs no handler-specific data.
func (p RouterParams) staticPage(template, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		csrfToken, _ := p.CSRFManager.EnsureToken(r.Context(), sess)
		var flash *shared.FlashMessage
		if sess != nil {
			flash = sess.PopFlash()
		}
		data := view.TemplateData{
			Title:       title,
			CSRFToken:   csrfToken,
			Flash:       flash,
			CurrentPath: r.URL.Path,
			Principal:   rbac.PrincipalFromContext(r.Context()),
		}
		if err := p.Templates.Render(w, template, data); err != nil {
			p.Logger.Error("render page", slog.String("template", template), slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}
}

// staticCacheHandler wraps a file server with a one hour Cache-Control
// header for static assets.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
