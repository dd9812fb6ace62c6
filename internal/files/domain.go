package files

import (
	"time"

	"github.com/google/uuid"
)

// placeholderName is the synthetic object some storage clients create to
// materialise empty folders. It never shows up in listings or search.
const placeholderName = ".emptyFolderPlaceholder"

// File describes one stored object owned by a user.
type File struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Name        string
	Size        int64
	ContentType string
	CreatedAt   time.Time
}
