package activity

import (
	"time"

	"github.com/google/uuid"
)

// LogEntry is one row from activity_logs as shown in the panels.
type LogEntry struct {
	ID          int64
	ActorID     *uuid.UUID
	Action      string
	DetailsJSON string
	IP          string
	OccurredAt  time.Time
}
