package profiles

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meridian-portal/meridian/internal/rbac"
	"github.com/meridian-portal/meridian/internal/shared"
	"github.com/meridian-portal/meridian/internal/view"
)

const usersPerPage = 20

// Handler serves the admin user-management pages and the dashboard
// profile editor.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		templates: templates,
		csrf:      csrf,
		validator: validator.New(),
	}
}

// MountAdminRoutes registers the user-management routes. The caller is
// responsible for guarding the group with the admin requirement.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/", h.listUsers)
	r.Get("/{id}", h.showUser)
	r.Post("/{id}/role", h.assignRole)
	r.Post("/{id}/deactivate", h.deactivateUser)
	r.Post("/{id}/delete", h.deleteUser)
}

// MountProfileRoutes registers the self-service profile editor.
func (h *Handler) MountProfileRoutes(r chi.Router) {
	r.Get("/", h.showProfile)
	r.Post("/", h.updateProfile)
}

type formErrors map[string]string

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	users, pagination, err := h.service.ListProfiles(r.Context(), page, usersPerPage)
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		h.render(w, r, "pages/admin/users.html", "User Management", map[string]any{
			"Users":  []Profile{},
			"Errors": formErrors{"general": "Could not load users"},
			"Roles":  roleNames(),
		}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/admin/users.html", "User Management", map[string]any{
		"Users":      users,
		"Pagination": pagination,
		"Roles":      roleNames(),
		"Errors":     formErrors{},
	}, http.StatusOK)
}

func (h *Handler) showUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	user, err := h.service.GetProfile(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("get user", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/admin/user_detail.html", user.DisplayName(), map[string]any{"User": user}, http.StatusOK)
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	actor := rbac.PrincipalFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if actor != nil && actor.ID == id {
		h.redirectWithFlash(w, r, "/admin/users", "error", "You cannot change your own role")
		return
	}
	role, err := rbac.ParseRole(r.PostFormValue("role"))
	if err != nil {
		h.redirectWithFlash(w, r, "/admin/users", "error", "Unknown role")
		return
	}
	if err := h.service.AssignRole(r.Context(), actor, id, role); err != nil {
		h.logger.Error("assign role", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/admin/users", "error", "Could not update role")
		return
	}
	h.redirectWithFlash(w, r, "/admin/users", "success", "Role updated to "+role.String())
}

func (h *Handler) deactivateUser(w http.ResponseWriter, r *http.Request) {
	actor := rbac.PrincipalFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if actor != nil && actor.ID == id {
		h.redirectWithFlash(w, r, "/admin/users", "error", "You cannot deactivate your own account")
		return
	}
	if err := h.service.Deactivate(r.Context(), actor, id); err != nil {
		h.logger.Error("deactivate user", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/admin/users", "error", "Could not deactivate user")
		return
	}
	h.redirectWithFlash(w, r, "/admin/users", "success", "User deactivated")
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	actor := rbac.PrincipalFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if actor != nil && actor.ID == id {
		h.redirectWithFlash(w, r, "/admin/users", "error", "You cannot delete your own account")
		return
	}
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		h.logger.Error("delete user", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/admin/users", "error", "Could not delete user")
		return
	}
	h.redirectWithFlash(w, r, "/admin/users", "success", "User deleted")
}

type profileForm struct {
	FirstName string `validate:"required,max=100"`
	LastName  string `validate:"required,max=100"`
}

func (h *Handler) showProfile(w http.ResponseWriter, r *http.Request) {
	principal := rbac.PrincipalFromContext(r.Context())
	if principal == nil {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}
	form := profileForm{FirstName: principal.FirstName, LastName: principal.LastName}
	h.render(w, r, "pages/dashboard/profile.html", "Profile", map[string]any{
		"Form":   form,
		"Email":  principal.Email,
		"Errors": formErrors{},
	}, http.StatusOK)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	principal := rbac.PrincipalFromContext(r.Context())
	if principal == nil {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := profileForm{
		FirstName: r.PostFormValue("first_name"),
		LastName:  r.PostFormValue("last_name"),
	}
	errs := make(formErrors)
	if err := h.validator.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				errs[fe.Field()] = "This field is required"
			}
		}
	}
	if len(errs) > 0 {
		h.render(w, r, "pages/dashboard/profile.html", "Profile", map[string]any{
			"Form":   form,
			"Email":  principal.Email,
			"Errors": errs,
		}, http.StatusBadRequest)
		return
	}
	if err := h.service.UpdateName(r.Context(), principal.ID, form.FirstName, form.LastName); err != nil {
		h.logger.Error("update profile", slog.Any("error", err))
		h.render(w, r, "pages/dashboard/profile.html", "Profile", map[string]any{
			"Form":   form,
			"Email":  principal.Email,
			"Errors": formErrors{"general": "Could not save changes"},
		}, http.StatusInternalServerError)
		return
	}
	h.redirectWithFlash(w, r, "/dashboard/profile", "success", "Profile updated")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template, title string, data map[string]any, status int) {
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
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func roleNames() []string {
	roles := rbac.Roles()
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = role.String()
	}
	return names
}
