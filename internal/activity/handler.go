package activity

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-portal/meridian/internal/rbac"
	"github.com/meridian-portal/meridian/internal/shared"
	"github.com/meridian-portal/meridian/internal/view"
)

const (
	entriesPerPage = 100
	recentLimit    = 50
)

// Handler serves the admin activity panel and the manager overview.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf}
}

// MountAdminRoutes registers the admin activity pages.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/", h.showLogs)
	r.Get("/export", h.exportCSV)
}

// MountManagerRoutes registers the manager activity overview.
func (h *Handler) MountManagerRoutes(r chi.Router) {
	r.Get("/", h.showOverview)
}

func (h *Handler) showLogs(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	entries, pagination, err := h.service.Page(r.Context(), page, entriesPerPage)
	if err != nil {
		h.logger.Error("list activity", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/admin/activity.html", "Activity Logs", map[string]any{
		"Entries":    entries,
		"Pagination": pagination,
	})
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	filename := "activity-" + time.Now().UTC().Format("2006-01-02") + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := h.service.ExportCSV(r.Context(), w); err != nil {
		// Headers are already out; all we can do is log.
		h.logger.Error("export activity csv", slog.Any("error", err))
	}
}

func (h *Handler) showOverview(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Recent(r.Context(), recentLimit)
	if err != nil {
		h.logger.Error("recent activity", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/manager/activity.html", "Activity Overview", map[string]any{"Entries": entries})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template, title string, data any) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Principal:   rbac.PrincipalFromContext(r.Context()),
		Data:        data,
	}
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.String("template", template), slog.Any("error", err))
	}
}
