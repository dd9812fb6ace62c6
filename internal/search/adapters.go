package search

import (
	"context"

	"github.com/google/uuid"

	"github.com/meridian-portal/meridian/internal/files"
	"github.com/meridian-portal/meridian/internal/profiles"
)

// ProfileDirectory adapts the profiles repository to the UserSource
// interface.
type ProfileDirectory struct {
	repo *profiles.Repository
}

// NewProfileDirectory builds the adapter.
func NewProfileDirectory(repo *profiles.Repository) *ProfileDirectory {
	return &ProfileDirectory{repo: repo}
}

// SearchUsers implements UserSource.
func (d *ProfileDirectory) SearchUsers(ctx context.Context, query string, limit int) ([]UserRecord, error) {
	matches, err := d.repo.SearchProfiles(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	out := make([]UserRecord, 0, len(matches))
	for _, p := range matches {
		out = append(out, UserRecord{
			ID:        p.ID,
			FirstName: p.FirstName,
			LastName:  p.LastName,
			Email:     p.Email,
			Role:      p.RoleName,
		})
	}
	return out, nil
}

// FileIndex adapts the files service to the FileSource interface.
type FileIndex struct {
	service *files.Service
}

// NewFileIndex builds the adapter.
func NewFileIndex(service *files.Service) *FileIndex {
	return &FileIndex{service: service}
}

// SearchFiles implements FileSource.
func (i *FileIndex) SearchFiles(ctx context.Context, ownerID uuid.UUID, query string, limit int) ([]FileRecord, error) {
	matches, err := i.service.SearchOwned(ctx, ownerID, query, limit)
	if err != nil {
		return nil, err
	}
	out := make([]FileRecord, 0, len(matches))
	for _, f := range matches {
		out = append(out, FileRecord{Name: f.Name, Size: f.Size})
	}
	return out, nil
}

var (
	_ UserSource = (*ProfileDirectory)(nil)
	_ FileSource = (*FileIndex)(nil)
)
