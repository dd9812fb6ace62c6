package profiles

import (
	"time"

	"github.com/google/uuid"
)

// Profile is a principal's stored record. The role is kept as its stored
// name here; parsing into rbac.Role happens at the rbac boundary.
type Profile struct {
	ID            uuid.UUID
	Email         string
	FirstName     string
	LastName      string
	RoleName      string
	IsActive      bool
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DisplayName combines the name parts, falling back to the ID.
func (p Profile) DisplayName() string {
	name := p.FirstName
	if p.LastName != "" {
		if name != "" {
			name += " "
		}
		name += p.LastName
	}
	if name == "" {
		return p.ID.String()
	}
	return name
}
