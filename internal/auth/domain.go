package auth

import (
	"time"

	"github.com/google/uuid"
)

// Account is the credential-bearing view of a profile row.
type Account struct {
	ID            uuid.UUID
	Email         string
	PasswordHash  string
	FirstName     string
	LastName      string
	RoleName      string
	IsActive      bool
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Registration carries validated input for account creation. New accounts
// always start with the default role; role escalation happens only through
// the admin panel.
type Registration struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
}
