package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-portal/meridian/internal/platform/db"
)

// Activity actions recorded across the application.
const (
	ActionLoginSuccess           = "LOGIN_SUCCESS"
	ActionLoginFailed            = "LOGIN_FAILED"
	ActionLogout                 = "LOGOUT"
	ActionSignupSuccess          = "SIGNUP_SUCCESS"
	ActionSignupFailed           = "SIGNUP_FAILED"
	ActionPasswordChanged        = "PASSWORD_CHANGED"
	ActionPasswordResetRequested = "PASSWORD_RESET_REQUESTED"
	ActionPasswordResetSuccess   = "PASSWORD_RESET_SUCCESS"
	ActionRoleAssigned           = "ROLE_ASSIGNED"
	ActionUserDeactivated        = "USER_DEACTIVATED"
	ActionUserDeleted            = "USER_DELETED"
	ActionFileUploaded           = "FILE_UPLOADED"
	ActionFileDeleted            = "FILE_DELETED"
	ActionContactSubmitted       = "CONTACT_SUBMITTED"
)

// ActivityEntry represents a record stored in activity_logs. ActorID is
// nil for anonymous events such as failed logins.
type ActivityEntry struct {
	ActorID *uuid.UUID
	Action  string
	Details map[string]any
	IP      string
	At      time.Time
}

// ActivityRecorder is the write side of the activity log.
type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry) error
}

// ActivityLogger writes records into activity_logs.
type ActivityLogger struct {
	pool db.Querier
}

// NewActivityLogger returns a new ActivityLogger.
func NewActivityLogger(pool db.Querier) *ActivityLogger {
	return &ActivityLogger{pool: pool}
}

// Record persists the log entry.
func (l *ActivityLogger) Record(ctx context.Context, entry ActivityEntry) error {
	if l == nil {
		return errors.New("activity logger not initialised")
	}
	if entry.Action == "" {
		return errors.New("activity entry requires an action")
	}
	detailsJSON, err := json.Marshal(entry.Details)
	if err != nil {
		return err
	}
	var actor any
	if entry.ActorID != nil {
		actor = *entry.ActorID
	}
	var ip any
	if entry.IP != "" {
		ip = entry.IP
	}
	occurredAt := entry.At
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO activity_logs (actor_id, action, details, ip_address, occurred_at) VALUES ($1, $2, $3, $4, $5)`,
		actor, entry.Action, detailsJSON, ip, occurredAt)
	return err
}

var _ ActivityRecorder = (*ActivityLogger)(nil)
