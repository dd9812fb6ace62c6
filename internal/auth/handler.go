package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meridian-portal/meridian/internal/rbac"
	"github.com/meridian-portal/meridian/internal/shared"
	"github.com/meridian-portal/meridian/internal/view"
)

const defaultLandingPath = "/dashboard"

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
	baseURL        string
}

// NewHandler constructs a Handler instance. baseURL is the externally
// reachable origin used to build password reset links.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager, baseURL string) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
		baseURL:        strings.TrimRight(baseURL, "/"),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Get("/register", h.showRegister)
	r.Post("/register", h.handleRegister)
	r.Post("/logout", h.handleLogout)
	r.Get("/forgot-password", h.showForgotPassword)
	r.Post("/forgot-password", h.handleForgotPassword)
	r.Get("/reset-password", h.showResetPassword)
	r.Post("/reset-password", h.handleResetPassword)
}

// MountPasswordRoutes registers the authenticated password change page.
func (h *Handler) MountPasswordRoutes(r chi.Router) {
	r.Get("/", h.showChangePassword)
	r.Post("/", h.handleChangePassword)
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type loginPageData struct {
	Form   loginForm
	Next   string
	Errors map[string]string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	data := loginPageData{Next: sanitizeNext(r.URL.Query().Get("next")), Errors: map[string]string{}}
	h.render(w, r, "pages/auth/login.html", "Sign in", data, http.StatusOK)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())

	form := loginForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	next := sanitizeNext(r.PostFormValue("next"))

	fieldErrors := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			for _, fieldErr := range errs {
				fieldErrors[fieldErr.Field()] = "This field is required"
			}
		}
	}

	if len(fieldErrors) == 0 {
		account, err := h.service.Authenticate(r.Context(), form.Email, form.Password, clientIP(r))
		switch {
		case errors.Is(err, shared.ErrAccountInactive):
			fieldErrors["general"] = "This account has been deactivated"
		case err != nil:
			fieldErrors["general"] = "Invalid email or password"
		default:
			h.establishSession(w, r, sess, account)
			target := next
			if target == "" {
				target = defaultLandingPath
			}
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
	}

	form.Password = ""
	data := loginPageData{Form: form, Next: next, Errors: fieldErrors}
	h.render(w, r, "pages/auth/login.html", "Sign in", data, http.StatusBadRequest)
}

func (h *Handler) establishSession(w http.ResponseWriter, r *http.Request, sess *shared.Session, account *Account) {
	if sess == nil {
		h.logger.Error("session missing during login")
		return
	}
	sess.SetUser(account.ID.String())
	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Welcome back"})

	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, account.ID, expiresAt, clientIP(r), r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}
}

type registerForm struct {
	FirstName       string `validate:"required,max=100"`
	LastName        string `validate:"required,max=100"`
	Email           string `validate:"required,email"`
	Password        string `validate:"required"`
	ConfirmPassword string `validate:"required"`
}

type registerPageData struct {
	Form   registerForm
	Errors map[string]string
}

func (h *Handler) showRegister(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/auth/register.html", "Sign up", registerPageData{Errors: map[string]string{}}, http.StatusOK)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())

	form := registerForm{
		FirstName:       r.PostFormValue("first_name"),
		LastName:        r.PostFormValue("last_name"),
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
	}

	fieldErrors := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			for _, fieldErr := range errs {
				fieldErrors[fieldErr.Field()] = "This field is required"
			}
		}
	}
	if form.Password != form.ConfirmPassword {
		fieldErrors["ConfirmPassword"] = "Passwords do not match"
	}

	if len(fieldErrors) == 0 {
		account, err := h.service.Register(r.Context(), form.Email, form.Password, form.FirstName, form.LastName, clientIP(r))
		switch {
		case errors.Is(err, ErrWeakPassword):
			fieldErrors["Password"] = ErrWeakPassword.Error()
		case errors.Is(err, shared.ErrEmailTaken):
			fieldErrors["Email"] = "This email is already registered"
		case err != nil:
			h.logger.Error("register account", slog.Any("error", err))
			fieldErrors["general"] = "Could not create the account"
		default:
			h.establishSession(w, r, sess, account)
			http.Redirect(w, r, defaultLandingPath, http.StatusSeeOther)
			return
		}
	}

	form.Password = ""
	form.ConfirmPassword = ""
	h.render(w, r, "pages/auth/register.html", "Sign up", registerPageData{Form: form, Errors: fieldErrors}, http.StatusBadRequest)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		userID := uuid.Nil
		if principal := rbac.PrincipalFromContext(r.Context()); principal != nil {
			userID = principal.ID
		} else if raw := sess.User(); raw != "" {
			if parsed, err := uuid.Parse(raw); err == nil {
				userID = parsed
			}
		}
		if err := h.service.RemoveSession(r.Context(), sess.ID, userID, clientIP(r)); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type forgotForm struct {
	Email string `validate:"required,email"`
}

type forgotPageData struct {
	Form   forgotForm
	Errors map[string]string
}

func (h *Handler) showForgotPassword(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/auth/forgot_password.html", "Reset password", forgotPageData{Errors: map[string]string{}}, http.StatusOK)
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	form := forgotForm{Email: r.PostFormValue("email")}
	if err := h.validator.Struct(form); err != nil {
		h.render(w, r, "pages/auth/forgot_password.html", "Reset password",
			forgotPageData{Form: form, Errors: map[string]string{"Email": "A valid email is required"}}, http.StatusBadRequest)
		return
	}

	resetURL := h.baseURL + "/auth/reset-password"
	if err := h.service.StartPasswordReset(r.Context(), form.Email, resetURL, clientIP(r)); err != nil {
		h.logger.Error("start password reset", slog.Any("error", err))
	}

	// The outcome is identical for known and unknown addresses.
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "If that email is registered, a reset link is on its way"})
	}
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

type resetPageData struct {
	Token  string
	Errors map[string]string
}

func (h *Handler) showResetPassword(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Redirect(w, r, "/auth/forgot-password", http.StatusSeeOther)
		return
	}
	h.render(w, r, "pages/auth/reset_password.html", "Choose a new password",
		resetPageData{Token: token, Errors: map[string]string{}}, http.StatusOK)
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	token := r.PostFormValue("token")
	password := r.PostFormValue("password")
	confirm := r.PostFormValue("confirm_password")

	fieldErrors := make(map[string]string)
	if token == "" {
		fieldErrors["general"] = "The reset link is invalid"
	}
	if password != confirm {
		fieldErrors["ConfirmPassword"] = "Passwords do not match"
	}

	if len(fieldErrors) == 0 {
		err := h.service.ResetPassword(r.Context(), token, password)
		switch {
		case errors.Is(err, ErrWeakPassword):
			fieldErrors["Password"] = ErrWeakPassword.Error()
		case errors.Is(err, shared.ErrTokenInvalid):
			fieldErrors["general"] = "The reset link is invalid or has expired"
		case err != nil:
			h.logger.Error("reset password", slog.Any("error", err))
			fieldErrors["general"] = "Could not reset the password"
		default:
			if sess := shared.SessionFromContext(r.Context()); sess != nil {
				sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Password updated, you can sign in now"})
			}
			http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
			return
		}
	}

	h.render(w, r, "pages/auth/reset_password.html", "Choose a new password",
		resetPageData{Token: token, Errors: fieldErrors}, http.StatusBadRequest)
}

type changePasswordPageData struct {
	Errors map[string]string
}

func (h *Handler) showChangePassword(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/dashboard/password.html", "Change Password",
		changePasswordPageData{Errors: map[string]string{}}, http.StatusOK)
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	principal := rbac.PrincipalFromContext(r.Context())
	if principal == nil {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	current := r.PostFormValue("current_password")
	next := r.PostFormValue("new_password")
	confirm := r.PostFormValue("confirm_password")

	fieldErrors := make(map[string]string)
	if current == "" {
		fieldErrors["CurrentPassword"] = "This field is required"
	}
	if next != confirm {
		fieldErrors["ConfirmPassword"] = "Passwords do not match"
	}

	if len(fieldErrors) == 0 {
		err := h.service.ChangePassword(r.Context(), principal.ID, current, next)
		switch {
		case errors.Is(err, shared.ErrInvalidCredentials):
			fieldErrors["CurrentPassword"] = "Current password is incorrect"
		case errors.Is(err, ErrWeakPassword):
			fieldErrors["NewPassword"] = ErrWeakPassword.Error()
		case err != nil:
			h.logger.Error("change password", slog.Any("error", err))
			fieldErrors["general"] = "Could not change the password"
		default:
			if sess := shared.SessionFromContext(r.Context()); sess != nil {
				sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Password changed"})
			}
			http.Redirect(w, r, "/dashboard/password", http.StatusSeeOther)
			return
		}
	}

	h.render(w, r, "pages/dashboard/password.html", "Change Password",
		changePasswordPageData{Errors: fieldErrors}, http.StatusBadRequest)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template, title string, data any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)
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

// sanitizeNext keeps redirects on-site. Anything that is not a local
// absolute path is dropped.
func sanitizeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return ""
	}
	return next
}

func clientIP(r *http.Request) string {
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return host
}

// ShowLoginForTest exposes the GET handler for tests.
func (h *Handler) ShowLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.showLogin(w, r)
}

// HandleLoginForTest exposes the POST handler for tests.
func (h *Handler) HandleLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogin(w, r)
}

// HandleRegisterForTest exposes the POST handler for tests.
func (h *Handler) HandleRegisterForTest(w http.ResponseWriter, r *http.Request) {
	h.handleRegister(w, r)
}
