package files

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/meridian-portal/meridian/internal/rbac"
	"github.com/meridian-portal/meridian/internal/shared"
)

// ErrInvalidName is returned for empty or reserved file names.
var ErrInvalidName = errors.New("invalid file name")

const maxNameLength = 255

// RepositoryPort defines data access methods for file metadata.
type RepositoryPort interface {
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]File, error)
	SearchByOwner(ctx context.Context, ownerID uuid.UUID, query string, limit int) ([]File, error)
	GetOwned(ctx context.Context, ownerID, id uuid.UUID) (File, error)
	Insert(ctx context.Context, f File) (File, error)
	DeleteOwned(ctx context.Context, ownerID, id uuid.UUID) error
}

// Service coordinates metadata rows and blob storage.
type Service struct {
	repo     RepositoryPort
	store    Store
	activity shared.ActivityRecorder
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, store Store, activity shared.ActivityRecorder) *Service {
	return &Service{repo: repo, store: store, activity: activity}
}

// List returns the owner's files, newest first.
func (s *Service) List(ctx context.Context, ownerID uuid.UUID) ([]File, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// SearchOwned matches the owner's files by name.
func (s *Service) SearchOwned(ctx context.Context, ownerID uuid.UUID, query string, limit int) ([]File, error) {
	return s.repo.SearchByOwner(ctx, ownerID, query, limit)
}

// Upload stores the blob and its metadata row. The blob is written first;
// if the metadata insert fails the blob is removed again.
func (s *Service) Upload(ctx context.Context, owner *rbac.Principal, name, contentType string, r io.Reader) (File, error) {
	cleaned, err := cleanName(name)
	if err != nil {
		return File{}, err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	fileID := uuid.New()
	size, err := s.store.Save(owner.ID, fileID, r)
	if err != nil {
		return File{}, err
	}

	stored, err := s.repo.Insert(ctx, File{
		ID:          fileID,
		OwnerID:     owner.ID,
		Name:        cleaned,
		Size:        size,
		ContentType: contentType,
	})
	if err != nil {
		_ = s.store.Remove(owner.ID, fileID)
		return File{}, err
	}

	s.record(ctx, owner, shared.ActionFileUploaded, map[string]any{
		"file": stored.Name,
		"size": stored.Size,
	})
	return stored, nil
}

// Download returns the file metadata plus a reader over its contents.
// The caller closes the reader.
func (s *Service) Download(ctx context.Context, ownerID, id uuid.UUID) (File, io.ReadCloser, error) {
	f, err := s.repo.GetOwned(ctx, ownerID, id)
	if err != nil {
		return File{}, nil, err
	}
	rc, err := s.store.Open(ownerID, id)
	if err != nil {
		return File{}, nil, err
	}
	return f, rc, nil
}

// Delete removes metadata and blob. Blob removal is best effort once the
// row is gone.
func (s *Service) Delete(ctx context.Context, owner *rbac.Principal, id uuid.UUID) error {
	f, err := s.repo.GetOwned(ctx, owner.ID, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteOwned(ctx, owner.ID, id); err != nil {
		return err
	}
	_ = s.store.Remove(owner.ID, id)

	s.record(ctx, owner, shared.ActionFileDeleted, map[string]any{"file": f.Name})
	return nil
}

func (s *Service) record(ctx context.Context, actor *rbac.Principal, action string, details map[string]any) {
	if s.activity == nil || actor == nil {
		return
	}
	actorID := actor.ID
	_ = s.activity.Record(ctx, shared.ActivityEntry{ActorID: &actorID, Action: action, Details: details})
}

// cleanName strips any path component and rejects reserved names.
func cleanName(name string) (string, error) {
	cleaned := filepath.Base(strings.TrimSpace(name))
	if cleaned == "" || cleaned == "." || cleaned == string(filepath.Separator) {
		return "", ErrInvalidName
	}
	if cleaned == placeholderName {
		return "", ErrInvalidName
	}
	if len(cleaned) > maxNameLength {
		return "", ErrInvalidName
	}
	return cleaned, nil
}
