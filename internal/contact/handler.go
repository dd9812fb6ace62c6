package contact

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meridian-portal/meridian/internal/rbac"
	"github.com/meridian-portal/meridian/internal/shared"
	"github.com/meridian-portal/meridian/internal/view"
)

// Handler serves the public contact form and the manager inbox.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		templates: templates,
		csrf:      csrf,
		validator: validator.New(),
	}
}

// MountPublicRoutes registers the contact form.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Get("/", h.showForm)
	r.Post("/", h.handleSubmit)
}

// MountInboxRoutes registers the manager inbox. The caller guards the
// group with the manager requirement.
func (h *Handler) MountInboxRoutes(r chi.Router) {
	r.Get("/", h.showInbox)
	r.Post("/{id}/review", h.handleReview)
}

type contactForm struct {
	Name    string `validate:"required,max=100"`
	Email   string `validate:"required,email"`
	Message string `validate:"required,max=5000"`
}

type contactPageData struct {
	Form   contactForm
	Errors map[string]string
}

func (h *Handler) showForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, contactPageData{Errors: map[string]string{}}, http.StatusOK)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	form := contactForm{
		Name:    r.PostFormValue("name"),
		Email:   r.PostFormValue("email"),
		Message: r.PostFormValue("message"),
	}

	fieldErrors := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			for _, fieldErr := range errs {
				switch fieldErr.Tag() {
				case "email":
					fieldErrors[fieldErr.Field()] = "A valid email is required"
				default:
					fieldErrors[fieldErr.Field()] = "This field is required"
				}
			}
		}
	}
	if len(fieldErrors) > 0 {
		h.renderForm(w, r, contactPageData{Form: form, Errors: fieldErrors}, http.StatusBadRequest)
		return
	}

	if _, err := h.service.Submit(r.Context(), form.Name, form.Email, form.Message, clientIP(r)); err != nil {
		h.logger.Error("submit contact message", slog.Any("error", err))
		h.renderForm(w, r, contactPageData{Form: form, Errors: map[string]string{"general": "Could not send your message, try again later"}}, http.StatusInternalServerError)
		return
	}

	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Thanks, we received your message"})
	}
	http.Redirect(w, r, "/contact", http.StatusSeeOther)
}

func (h *Handler) showInbox(w http.ResponseWriter, r *http.Request) {
	messages, err := h.service.Inbox(r.Context())
	if err != nil {
		h.logger.Error("load inbox", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/manager/messages.html", "Contact Messages", map[string]any{"Messages": messages}, http.StatusOK)
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	reviewer := rbac.PrincipalFromContext(r.Context())
	if err := h.service.MarkReviewed(r.Context(), reviewer, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("mark reviewed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Message marked as reviewed"})
	}
	http.Redirect(w, r, "/manager/messages", http.StatusSeeOther)
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, data contactPageData, status int) {
	h.render(w, r, "pages/contact.html", "Contact Us", data, status)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template, title string, data any, status int) {
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
	if status != http.StatusOK {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
	}
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.String("template", template), slog.Any("error", err))
	}
}

func clientIP(r *http.Request) string {
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return host
}
