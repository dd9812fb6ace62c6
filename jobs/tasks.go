package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionsPurge removes expired session rows.
	TaskSessionsPurge = "sessions:purge"
	// TaskActivityPrune trims the activity log to the retention window.
	TaskActivityPrune = "activity:prune"
	// TaskTokensSweep removes used and expired password reset tokens.
	TaskTokensSweep = "tokens:sweep"
)

// SessionsPurgePayload configures a session purge run. An empty payload
// purges everything past its expiry.
type SessionsPurgePayload struct {
	// GraceHours keeps expired rows around for the given number of hours
	// before deleting them.
	GraceHours int `json:"grace_hours"`
}

// ActivityPrunePayload configures an activity prune run.
type ActivityPrunePayload struct {
	RetentionHours int `json:"retention_hours"`
}

// TokensSweepPayload configures a reset token sweep run.
type TokensSweepPayload struct{}

// NewSessionsPurgeTask constructs an Asynq task.
func NewSessionsPurgeTask(payload SessionsPurgePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionsPurge, data), nil
}

// NewActivityPruneTask constructs an Asynq task.
func NewActivityPruneTask(payload ActivityPrunePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskActivityPrune, data), nil
}

// NewTokensSweepTask constructs an Asynq task.
func NewTokensSweepTask() (*asynq.Task, error) {
	data, err := json.Marshal(TokensSweepPayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTokensSweep, data), nil
}
