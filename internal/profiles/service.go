package profiles

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/meridian-portal/meridian/internal/rbac"
	"github.com/meridian-portal/meridian/internal/shared"
)

// RepositoryPort defines data access methods for profiles.
type RepositoryPort interface {
	GetProfile(ctx context.Context, id uuid.UUID) (Profile, error)
	ListProfiles(ctx context.Context, limit, offset int) ([]Profile, int, error)
	SearchProfiles(ctx context.Context, query string, limit int) ([]Profile, error)
	UpdateName(ctx context.Context, id uuid.UUID, firstName, lastName string) error
	AssignRole(ctx context.Context, id uuid.UUID, roleName string) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	DeleteProfile(ctx context.Context, id uuid.UUID) error
}

// Service handles profile business logic.
type Service struct {
	repo     RepositoryPort
	activity shared.ActivityRecorder
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, activity shared.ActivityRecorder) *Service {
	return &Service{repo: repo, activity: activity}
}

// GetProfile fetches one profile.
func (s *Service) GetProfile(ctx context.Context, id uuid.UUID) (Profile, error) {
	return s.repo.GetProfile(ctx, id)
}

// ListProfiles returns one page of profiles plus pagination metadata.
func (s *Service) ListProfiles(ctx context.Context, page, perPage int) ([]Profile, shared.Pagination, error) {
	pagination := shared.NewPagination(page, perPage, 0)
	list, total, err := s.repo.ListProfiles(ctx, pagination.PerPage, pagination.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(pagination.Page, pagination.PerPage, total), nil
}

// UpdateName updates the profile's display name parts.
func (s *Service) UpdateName(ctx context.Context, id uuid.UUID, firstName, lastName string) error {
	return s.repo.UpdateName(ctx, id, strings.TrimSpace(firstName), strings.TrimSpace(lastName))
}

// AssignRole reassigns the profile's role. The actor is recorded in the
// activity log.
func (s *Service) AssignRole(ctx context.Context, actor *rbac.Principal, id uuid.UUID, role rbac.Role) error {
	if !role.Valid() {
		return shared.ErrNotFound
	}
	if err := s.repo.AssignRole(ctx, id, role.String()); err != nil {
		return err
	}
	s.record(ctx, actor, shared.ActionRoleAssigned, map[string]any{
		"subject": id.String(),
		"role":    role.String(),
	})
	return nil
}

// Deactivate disables the account without removing data.
func (s *Service) Deactivate(ctx context.Context, actor *rbac.Principal, id uuid.UUID) error {
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.record(ctx, actor, shared.ActionUserDeactivated, map[string]any{"subject": id.String()})
	return nil
}

// Delete removes the profile and its file metadata.
func (s *Service) Delete(ctx context.Context, actor *rbac.Principal, id uuid.UUID) error {
	if err := s.repo.DeleteProfile(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actor, shared.ActionUserDeleted, map[string]any{"subject": id.String()})
	return nil
}

func (s *Service) record(ctx context.Context, actor *rbac.Principal, action string, details map[string]any) {
	if s.activity == nil {
		return
	}
	entry := shared.ActivityEntry{Action: action, Details: details}
	if actor != nil {
		actorID := actor.ID
		entry.ActorID = &actorID
	}
	// Activity logging is best effort; failures never abort the operation.
	_ = s.activity.Record(ctx, entry)
}
