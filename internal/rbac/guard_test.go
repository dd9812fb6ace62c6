package rbac_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/meridian-portal/meridian/internal/rbac"
	"github.com/meridian-portal/meridian/internal/shared"
)

func newSession(t *testing.T, userID string) *shared.Session {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	manager := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if userID != "" {
		sess.SetUser(userID)
	}
	return sess
}

func guardRequest(t *testing.T, guard *rbac.Guard, req rbac.Requirement, sess *shared.Session, path string) (*httptest.ResponseRecorder, *rbac.Principal) {
	t.Helper()
	var seen *rbac.Principal
	handler := guard.Require(req)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = rbac.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, path, nil)
	if sess != nil {
		r = r.WithContext(shared.ContextWithSession(r.Context(), sess))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	return rec, seen
}

func TestGuardRedirectsAnonymousToLogin(t *testing.T) {
	guard := rbac.NewGuard(rbac.NewResolver(&stubSource{err: shared.ErrNotFound}, nil), nil)

	rec, _ := guardRequest(t, guard, rbac.MinimumRole(rbac.RoleUser), newSession(t, ""), "/admin/users")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login?next=%2Fadmin%2Fusers", rec.Header().Get("Location"))
}

func TestGuardRedirectsUnderPrivilegedToDashboard(t *testing.T) {
	id := uuid.New()
	source := &stubSource{record: rbac.ProfileRecord{ID: id, RoleName: "user", IsActive: true}}
	guard := rbac.NewGuard(rbac.NewResolver(source, nil), nil)

	rec, _ := guardRequest(t, guard, rbac.MinimumRole(rbac.RoleManager), newSession(t, id.String()), "/manager")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	assert.Empty(t, rec.Body.String(), "denied requests must not render page content")
}

func TestGuardAdmitsAndInjectsPrincipal(t *testing.T) {
	id := uuid.New()
	source := &stubSource{record: rbac.ProfileRecord{ID: id, Email: "a@example.com", RoleName: "admin", IsActive: true}}
	guard := rbac.NewGuard(rbac.NewResolver(source, nil), nil)

	rec, seen := guardRequest(t, guard, rbac.MinimumRole(rbac.RoleAdmin), newSession(t, id.String()), "/admin")
	assert.Equal(t, http.StatusOK, rec.Code)
	if assert.NotNil(t, seen) {
		assert.Equal(t, rbac.RoleAdmin, seen.Role)
	}
}

func TestGuardFailsClosedOnLookupError(t *testing.T) {
	id := uuid.New()
	source := &stubSource{err: context.DeadlineExceeded}
	guard := rbac.NewGuard(rbac.NewResolver(source, nil), nil)

	rec, _ := guardRequest(t, guard, rbac.MinimumRole(rbac.RoleUser), newSession(t, id.String()), "/dashboard/files")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/auth/login")
}

func TestGuardAllowListExcludesAdmin(t *testing.T) {
	id := uuid.New()
	source := &stubSource{record: rbac.ProfileRecord{ID: id, RoleName: "admin", IsActive: true}}
	guard := rbac.NewGuard(rbac.NewResolver(source, nil), nil)

	// Allow-list checks are membership, not a minimum bar.
	rec, _ := guardRequest(t, guard, rbac.AnyOfRoles(rbac.RoleManager), newSession(t, id.String()), "/manager")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
}

func TestGuardResolveOptional(t *testing.T) {
	id := uuid.New()
	source := &stubSource{record: rbac.ProfileRecord{ID: id, RoleName: "user", IsActive: true}}
	guard := rbac.NewGuard(rbac.NewResolver(source, nil), nil)

	var seen *rbac.Principal
	handler := guard.Resolve(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = rbac.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// Anonymous request proceeds with no principal.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, seen)

	// Authenticated request carries the principal.
	sess := newSession(t, id.String())
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(shared.ContextWithSession(r.Context(), sess))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	assert.NotNil(t, seen)
}
