package rbac_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/meridian-portal/meridian/internal/rbac"
	"github.com/meridian-portal/meridian/internal/shared"
)

type stubSource struct {
	record rbac.ProfileRecord
	err    error
}

func (s *stubSource) ProfileByID(ctx context.Context, id uuid.UUID) (rbac.ProfileRecord, error) {
	if s.err != nil {
		return rbac.ProfileRecord{}, s.err
	}
	return s.record, nil
}

func TestResolve(t *testing.T) {
	id := uuid.New()
	source := &stubSource{record: rbac.ProfileRecord{
		ID: id, Email: "mira@example.com", FirstName: "Mira", RoleName: "manager", IsActive: true,
	}}
	resolver := rbac.NewResolver(source, nil)

	p, err := resolver.Resolve(context.Background(), id)
	assert.NoError(t, err)
	assert.Equal(t, rbac.RoleManager, p.Role)
	assert.Equal(t, "mira@example.com", p.Email)
}

func TestResolveFailsClosed(t *testing.T) {
	resolver := rbac.NewResolver(&stubSource{err: errors.New("connection refused")}, nil)

	p, err := resolver.Resolve(context.Background(), uuid.New())
	assert.Error(t, err)
	assert.Nil(t, p)
}

func TestResolveNotFound(t *testing.T) {
	resolver := rbac.NewResolver(&stubSource{err: shared.ErrNotFound}, nil)

	p, err := resolver.Resolve(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Nil(t, p)
}

func TestResolveInactiveAccount(t *testing.T) {
	source := &stubSource{record: rbac.ProfileRecord{ID: uuid.New(), RoleName: "admin", IsActive: false}}
	resolver := rbac.NewResolver(source, nil)

	p, err := resolver.Resolve(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrAccountInactive)
	assert.Nil(t, p)
}

func TestResolveUnknownRoleDegradesToUser(t *testing.T) {
	source := &stubSource{record: rbac.ProfileRecord{ID: uuid.New(), RoleName: "superuser", IsActive: true}}
	resolver := rbac.NewResolver(source, nil)

	p, err := resolver.Resolve(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Equal(t, rbac.RoleUser, p.Role)
}

func TestResolveUnsetRoleDefaultsToUser(t *testing.T) {
	source := &stubSource{record: rbac.ProfileRecord{ID: uuid.New(), RoleName: "", IsActive: true}}
	resolver := rbac.NewResolver(source, nil)

	p, err := resolver.Resolve(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Equal(t, rbac.RoleUser, p.Role)
}

func TestResolveSessionUser(t *testing.T) {
	resolver := rbac.NewResolver(&stubSource{}, nil)

	p, err := resolver.ResolveSessionUser(context.Background(), "")
	assert.NoError(t, err)
	assert.Nil(t, p)

	p, err = resolver.ResolveSessionUser(context.Background(), "not-a-uuid")
	assert.NoError(t, err)
	assert.Nil(t, p)
}
