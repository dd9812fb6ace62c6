package rbac

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/meridian-portal/meridian/internal/shared"
)

const (
	loginPath   = "/auth/login"
	landingPath = "/dashboard"
)

// Guard wires the resolver into HTTP middleware. Each middleware resolves
// the principal at most once per request and stores it in the context so
// downstream handlers never repeat the lookup.
type Guard struct {
	resolver *Resolver
	logger   *slog.Logger
}

// NewGuard constructs a Guard.
func NewGuard(resolver *Resolver, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{resolver: resolver, logger: logger}
}

// Resolve attaches the principal to the context when a valid session
// exists, and proceeds regardless. Public routes with optional
// personalisation (and the search endpoint) use this.
func (g *Guard) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := g.currentPrincipal(r)
		if p != nil {
			r = r.WithContext(ContextWithPrincipal(r.Context(), p))
		}
		next.ServeHTTP(w, r)
	})
}

// Require enforces a requirement on every request passing through.
// Unauthenticated callers are redirected to the login page with the
// original path preserved; under-privileged callers are silently
// redirected to the dashboard so protected sections are never revealed.
func (g *Guard) Require(req Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := g.currentPrincipal(r)
			if p == nil {
				redirectToLogin(w, r)
				return
			}
			if !CanAccess(p, req) {
				http.Redirect(w, r, landingPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
		})
	}
}

// RequireAuth admits any authenticated principal.
func (g *Guard) RequireAuth() func(http.Handler) http.Handler {
	return g.Require(Requirement{})
}

// RequireRole admits principals at or above the given role.
func (g *Guard) RequireRole(minimum Role) func(http.Handler) http.Handler {
	return g.Require(MinimumRole(minimum))
}

// RequireAnyRole admits principals whose role is in the allow-list,
// ignoring hierarchy.
func (g *Guard) RequireAnyRole(roles ...Role) func(http.Handler) http.Handler {
	return g.Require(AnyOfRoles(roles...))
}

func (g *Guard) currentPrincipal(r *http.Request) *Principal {
	if p := PrincipalFromContext(r.Context()); p != nil {
		return p
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return nil
	}
	p, err := g.resolver.ResolveSessionUser(r.Context(), sess.User())
	if err != nil {
		// Fail closed: the caller is treated as anonymous.
		return nil
	}
	return p
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := loginPath
	if next := r.URL.Path; next != "" && next != "/" {
		target += "?next=" + url.QueryEscape(next)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
