package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/meridian-portal/meridian/internal/jobs"
	"github.com/meridian-portal/meridian/internal/platform/db"
)

const defaultActivityRetention = 90 * 24 * time.Hour

// SessionPurgeJob deletes session rows past their expiry.
type SessionPurgeJob struct {
	DB      db.Querier
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewSessionPurgeJob initialises the session purge handler.
func NewSessionPurgeJob(querier db.Querier, logger *slog.Logger, metrics *jobmetrics.Metrics) *SessionPurgeJob {
	return &SessionPurgeJob{
		DB:      querier,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the session purge.
func (j *SessionPurgeJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.DB == nil {
		return errors.New("sessions purge: handler not configured")
	}
	var payload SessionsPurgePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	cutoff := j.now()
	if payload.GraceHours > 0 {
		cutoff = cutoff.Add(-time.Duration(payload.GraceHours) * time.Hour)
	}

	tracker := j.Metrics.Track(TaskSessionsPurge)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	tag, err := j.DB.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, cutoff)
	if err != nil {
		resultErr = err
		j.logger().Error("sessions purge failed", slog.Any("error", err))
		return resultErr
	}
	j.Metrics.AddSweptRows(TaskSessionsPurge, tag.RowsAffected())
	j.logger().Info("sessions purged",
		slog.Int64("rows", tag.RowsAffected()),
		slog.Time("cutoff", cutoff),
	)
	return nil
}

func (j *SessionPurgeJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func (j *SessionPurgeJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

// ActivityPruner trims the activity log to a retention window and reports the
// number of removed rows.
type ActivityPruner interface {
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

// ActivityPruneJob trims the activity log.
type ActivityPruneJob struct {
	Pruner  ActivityPruner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewActivityPruneJob initialises the activity prune handler.
func NewActivityPruneJob(pruner ActivityPruner, logger *slog.Logger, metrics *jobmetrics.Metrics) *ActivityPruneJob {
	return &ActivityPruneJob{Pruner: pruner, Logger: logger, Metrics: metrics}
}

// Handle executes the activity prune.
func (j *ActivityPruneJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pruner == nil {
		return errors.New("activity prune: handler not configured")
	}
	var payload ActivityPrunePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	retention := defaultActivityRetention
	if payload.RetentionHours > 0 {
		retention = time.Duration(payload.RetentionHours) * time.Hour
	}

	tracker := j.Metrics.Track(TaskActivityPrune)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	removed, err := j.Pruner.Prune(ctx, retention)
	if err != nil {
		resultErr = err
		j.logger().Error("activity prune failed", slog.Any("error", err))
		return resultErr
	}
	j.Metrics.AddSweptRows(TaskActivityPrune, removed)
	j.logger().Info("activity log pruned",
		slog.Int64("rows", removed),
		slog.Duration("retention", retention),
	)
	return nil
}

func (j *ActivityPruneJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

// TokenSweepJob removes password reset tokens that are expired or already used.
type TokenSweepJob struct {
	DB      db.Querier
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewTokenSweepJob initialises the reset token sweep handler.
func NewTokenSweepJob(querier db.Querier, logger *slog.Logger, metrics *jobmetrics.Metrics) *TokenSweepJob {
	return &TokenSweepJob{DB: querier, Logger: logger, Metrics: metrics}
}

// Handle executes the token sweep.
func (j *TokenSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.DB == nil {
		return errors.New("tokens sweep: handler not configured")
	}
	var payload TokensSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskTokensSweep)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	tag, err := j.DB.Exec(ctx, `DELETE FROM password_reset_tokens WHERE expires_at <= NOW() OR used_at IS NOT NULL`)
	if err != nil {
		resultErr = err
		j.logger().Error("tokens sweep failed", slog.Any("error", err))
		return resultErr
	}
	j.Metrics.AddSweptRows(TaskTokensSweep, tag.RowsAffected())
	j.logger().Info("reset tokens swept", slog.Int64("rows", tag.RowsAffected()))
	return nil
}

func (j *TokenSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
