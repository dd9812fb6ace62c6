package contact

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/meridian-portal/meridian/internal/rbac"
	"github.com/meridian-portal/meridian/internal/shared"
)

const inboxLimit = 100

// RepositoryPort defines data access methods for contact messages.
type RepositoryPort interface {
	Insert(ctx context.Context, m Message) (Message, error)
	List(ctx context.Context, limit int) ([]Message, error)
	MarkReviewed(ctx context.Context, id uuid.UUID) error
}

// Service handles contact form business logic.
type Service struct {
	repo     RepositoryPort
	activity shared.ActivityRecorder
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, activity shared.ActivityRecorder) *Service {
	return &Service{repo: repo, activity: activity}
}

// Submit stores a message from the public form.
func (s *Service) Submit(ctx context.Context, name, email, body, ip string) (Message, error) {
	msg, err := s.repo.Insert(ctx, Message{
		Name:    strings.TrimSpace(name),
		Email:   strings.TrimSpace(email),
		Message: strings.TrimSpace(body),
	})
	if err != nil {
		return Message{}, err
	}
	if s.activity != nil {
		_ = s.activity.Record(ctx, shared.ActivityEntry{
			Action:  shared.ActionContactSubmitted,
			Details: map[string]any{"email": msg.Email},
			IP:      ip,
		})
	}
	return msg, nil
}

// Inbox returns the messages for the manager panel.
func (s *Service) Inbox(ctx context.Context) ([]Message, error) {
	return s.repo.List(ctx, inboxLimit)
}

// MarkReviewed flags a message as handled by the given reviewer.
func (s *Service) MarkReviewed(ctx context.Context, reviewer *rbac.Principal, id uuid.UUID) error {
	return s.repo.MarkReviewed(ctx, id)
}
