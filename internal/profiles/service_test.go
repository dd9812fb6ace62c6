package profiles

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-portal/meridian/internal/rbac"
	"github.com/meridian-portal/meridian/internal/shared"
)

type stubRepo struct {
	profiles map[uuid.UUID]Profile
	listErr  error

	assignedRole string
	assignedID   uuid.UUID
	setActive    *bool
	deletedID    uuid.UUID
	updatedFirst string
	updatedLast  string
}

func newStubRepo() *stubRepo {
	return &stubRepo{profiles: make(map[uuid.UUID]Profile)}
}

func (s *stubRepo) GetProfile(_ context.Context, id uuid.UUID) (Profile, error) {
	p, ok := s.profiles[id]
	if !ok {
		return Profile{}, shared.ErrNotFound
	}
	return p, nil
}

func (s *stubRepo) ListProfiles(_ context.Context, limit, offset int) ([]Profile, int, error) {
	if s.listErr != nil {
		return nil, 0, s.listErr
	}
	var out []Profile
	for _, p := range s.profiles {
		out = append(out, p)
	}
	return out, len(s.profiles), nil
}

func (s *stubRepo) SearchProfiles(_ context.Context, query string, limit int) ([]Profile, error) {
	return nil, nil
}

func (s *stubRepo) UpdateName(_ context.Context, id uuid.UUID, firstName, lastName string) error {
	s.updatedFirst = firstName
	s.updatedLast = lastName
	return nil
}

func (s *stubRepo) AssignRole(_ context.Context, id uuid.UUID, roleName string) error {
	s.assignedID = id
	s.assignedRole = roleName
	return nil
}

func (s *stubRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	s.setActive = &active
	return nil
}

func (s *stubRepo) DeleteProfile(_ context.Context, id uuid.UUID) error {
	s.deletedID = id
	return nil
}

type recordedActivity struct {
	entries []shared.ActivityEntry
	err     error
}

func (r *recordedActivity) Record(_ context.Context, entry shared.ActivityEntry) error {
	r.entries = append(r.entries, entry)
	return r.err
}

func adminPrincipal() *rbac.Principal {
	return &rbac.Principal{ID: uuid.New(), Email: "admin@example.com", Role: rbac.RoleAdmin}
}

func TestAssignRoleRecordsActivity(t *testing.T) {
	repo := newStubRepo()
	activity := &recordedActivity{}
	svc := NewService(repo, activity)

	actor := adminPrincipal()
	subject := uuid.New()

	err := svc.AssignRole(context.Background(), actor, subject, rbac.RoleManager)
	require.NoError(t, err)

	assert.Equal(t, subject, repo.assignedID)
	assert.Equal(t, "manager", repo.assignedRole)

	require.Len(t, activity.entries, 1)
	entry := activity.entries[0]
	assert.Equal(t, shared.ActionRoleAssigned, entry.Action)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, actor.ID, *entry.ActorID)
	assert.Equal(t, subject.String(), entry.Details["subject"])
	assert.Equal(t, "manager", entry.Details["role"])
}

func TestAssignRoleRejectsInvalidRole(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, nil)

	err := svc.AssignRole(context.Background(), adminPrincipal(), uuid.New(), rbac.Role(99))
	assert.Error(t, err)
	assert.Empty(t, repo.assignedRole)
}

func TestAssignRoleSurvivesActivityFailure(t *testing.T) {
	repo := newStubRepo()
	activity := &recordedActivity{err: errors.New("log store down")}
	svc := NewService(repo, activity)

	err := svc.AssignRole(context.Background(), adminPrincipal(), uuid.New(), rbac.RoleAdmin)
	assert.NoError(t, err)
	assert.Equal(t, "admin", repo.assignedRole)
}

func TestDeactivateSetsInactive(t *testing.T) {
	repo := newStubRepo()
	activity := &recordedActivity{}
	svc := NewService(repo, activity)

	err := svc.Deactivate(context.Background(), adminPrincipal(), uuid.New())
	require.NoError(t, err)
	require.NotNil(t, repo.setActive)
	assert.False(t, *repo.setActive)
	require.Len(t, activity.entries, 1)
	assert.Equal(t, shared.ActionUserDeactivated, activity.entries[0].Action)
}

func TestDeleteRecordsActivity(t *testing.T) {
	repo := newStubRepo()
	activity := &recordedActivity{}
	svc := NewService(repo, activity)

	subject := uuid.New()
	err := svc.Delete(context.Background(), adminPrincipal(), subject)
	require.NoError(t, err)
	assert.Equal(t, subject, repo.deletedID)
	require.Len(t, activity.entries, 1)
	assert.Equal(t, shared.ActionUserDeleted, activity.entries[0].Action)
}

func TestUpdateNameTrimsWhitespace(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, nil)

	err := svc.UpdateName(context.Background(), uuid.New(), "  Alice ", " Smith  ")
	require.NoError(t, err)
	assert.Equal(t, "Alice", repo.updatedFirst)
	assert.Equal(t, "Smith", repo.updatedLast)
}

func TestListProfilesPagination(t *testing.T) {
	repo := newStubRepo()
	for i := 0; i < 3; i++ {
		id := uuid.New()
		repo.profiles[id] = Profile{ID: id}
	}
	svc := NewService(repo, nil)

	list, pagination, err := svc.ListProfiles(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Len(t, list, 3)
	assert.Equal(t, 3, pagination.Total)
	assert.Equal(t, 2, pagination.TotalPages)
	assert.True(t, pagination.HasNext())
	assert.False(t, pagination.HasPrev())
}

func TestListProfilesPropagatesError(t *testing.T) {
	repo := newStubRepo()
	repo.listErr = errors.New("connection reset")
	svc := NewService(repo, nil)

	_, _, err := svc.ListProfiles(context.Background(), 1, 20)
	assert.Error(t, err)
}
