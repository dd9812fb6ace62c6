package files

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Store persists file contents. Metadata lives in PostgreSQL; the store
// only deals in raw bytes keyed by owner and file ID.
type Store interface {
	Save(ownerID, fileID uuid.UUID, r io.Reader) (int64, error)
	Open(ownerID, fileID uuid.UUID) (io.ReadCloser, error)
	Remove(ownerID, fileID uuid.UUID) error
}

// DiskStore keeps blobs on the local filesystem, one directory per owner.
type DiskStore struct {
	root string
}

// NewDiskStore creates the root directory if needed.
func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("files: create store root: %w", err)
	}
	return &DiskStore{root: root}, nil
}

func (s *DiskStore) path(ownerID, fileID uuid.UUID) string {
	return filepath.Join(s.root, ownerID.String(), fileID.String())
}

// Save writes the blob and returns the number of bytes stored.
func (s *DiskStore) Save(ownerID, fileID uuid.UUID, r io.Reader) (int64, error) {
	dir := filepath.Join(s.root, ownerID.String())
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return 0, fmt.Errorf("files: create owner dir: %w", err)
	}
	f, err := os.Create(s.path(ownerID, fileID))
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(s.path(ownerID, fileID))
		return 0, err
	}
	return n, nil
}

// Open returns a reader over the stored blob.
func (s *DiskStore) Open(ownerID, fileID uuid.UUID) (io.ReadCloser, error) {
	return os.Open(s.path(ownerID, fileID))
}

// Remove deletes the blob. A missing blob is not an error so metadata
// cleanup can proceed.
func (s *DiskStore) Remove(ownerID, fileID uuid.UUID) error {
	err := os.Remove(s.path(ownerID, fileID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

var _ Store = (*DiskStore)(nil)
