package search

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-portal/meridian/internal/platform/httpx"
	"github.com/meridian-portal/meridian/internal/rbac"
)

// MetricsRecorder counts search requests by scope and outcome.
type MetricsRecorder interface {
	ObserveSearch(scope, outcome string)
}

// Handler exposes the search API.
type Handler struct {
	logger  *slog.Logger
	service *Service
	metrics MetricsRecorder
}

// NewHandler builds Handler instance. metrics may be nil.
func NewHandler(logger *slog.Logger, service *Service, metrics MetricsRecorder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, metrics: metrics}
}

// MountRoutes registers the search endpoint. The route group should run
// behind the optional-principal middleware so authenticated callers get
// their user and file results.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleSearch)
}

type errorBody struct {
	Error string `json:"error"`
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	scope := r.URL.Query().Get("type")
	if scope == "" {
		scope = ScopeAll
	}
	principal := rbac.PrincipalFromContext(r.Context())

	resp, err := h.service.Search(r.Context(), principal, query, scope)
	if err != nil {
		if errors.Is(err, ErrQueryTooShort) {
			h.observe(scope, "rejected")
			httpx.JSON(w, http.StatusBadRequest, errorBody{Error: "Query must be at least 2 characters"})
			return
		}
		h.observe(scope, "failed")
		h.logger.Error("search", slog.Any("error", err))
		httpx.JSON(w, http.StatusInternalServerError, errorBody{Error: "Search failed"})
		return
	}

	h.observe(scope, "ok")
	if resp.Results == nil {
		resp.Results = []Result{}
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) observe(scope, outcome string) {
	if h.metrics != nil {
		h.metrics.ObserveSearch(scope, outcome)
	}
}
