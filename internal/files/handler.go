package files

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/meridian-portal/meridian/internal/rbac"
	"github.com/meridian-portal/meridian/internal/shared"
	"github.com/meridian-portal/meridian/internal/view"
)

// maxUploadBytes caps a single upload at 20 MiB.
const maxUploadBytes = 20 << 20

// Handler serves the dashboard file manager.
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

// MountRoutes registers the file manager routes. The caller guards the
// group with an authentication requirement.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listFiles)
	r.Post("/", h.uploadFile)
	r.Get("/{id}", h.downloadFile)
	r.Post("/{id}/delete", h.deleteFile)
}

func (h *Handler) listFiles(w http.ResponseWriter, r *http.Request) {
	principal := rbac.PrincipalFromContext(r.Context())
	if principal == nil {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}
	h.renderList(w, r, principal, map[string]string{}, http.StatusOK)
}

func (h *Handler) uploadFile(w http.ResponseWriter, r *http.Request) {
	principal := rbac.PrincipalFromContext(r.Context())
	if principal == nil {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		h.renderList(w, r, principal, map[string]string{"general": "Choose a file to upload"}, http.StatusBadRequest)
		return
	}
	defer file.Close()

	_, err = h.service.Upload(r.Context(), principal, header.Filename, header.Header.Get("Content-Type"), file)
	switch {
	case errors.Is(err, ErrInvalidName):
		h.renderList(w, r, principal, map[string]string{"general": "That file name cannot be used"}, http.StatusBadRequest)
		return
	case errors.Is(err, ErrNameTaken):
		h.renderList(w, r, principal, map[string]string{"general": "A file with that name already exists"}, http.StatusBadRequest)
		return
	case err != nil:
		h.logger.Error("upload file", slog.Any("error", err))
		h.renderList(w, r, principal, map[string]string{"general": "Upload failed"}, http.StatusInternalServerError)
		return
	}

	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "File uploaded"})
	}
	http.Redirect(w, r, "/dashboard/files", http.StatusSeeOther)
}

func (h *Handler) downloadFile(w http.ResponseWriter, r *http.Request) {
	principal := rbac.PrincipalFromContext(r.Context())
	if principal == nil {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	f, rc, err := h.service.Download(r.Context(), principal.ID, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("download file", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Name))
	if f.Size > 0 {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", f.Size))
	}
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("stream file", slog.Any("error", err))
	}
}

func (h *Handler) deleteFile(w http.ResponseWriter, r *http.Request) {
	principal := rbac.PrincipalFromContext(r.Context())
	if principal == nil {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if err := h.service.Delete(r.Context(), principal, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("delete file", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "File deleted"})
	}
	http.Redirect(w, r, "/dashboard/files", http.StatusSeeOther)
}

func (h *Handler) renderList(w http.ResponseWriter, r *http.Request, principal *rbac.Principal, errs map[string]string, status int) {
	list, err := h.service.List(r.Context(), principal.ID)
	if err != nil {
		h.logger.Error("list files", slog.Any("error", err))
		errs["general"] = "Could not load files"
		status = http.StatusInternalServerError
	}

	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "My Files",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Principal:   principal,
		Data: map[string]any{
			"Files":  list,
			"Errors": errs,
		},
	}
	if status != http.StatusOK {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
	}
	if err := h.templates.Render(w, "pages/dashboard/files.html", viewData); err != nil {
		h.logger.Error("render files", slog.Any("error", err))
	}
}
