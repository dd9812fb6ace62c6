package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func TestSessionPurgeJobDeletesExpiredRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2026, 3, 1, 4, 0, 0, 0, time.UTC)
	job := NewSessionPurgeJob(mock, nil, nil)
	job.clock = func() time.Time { return now }

	mock.ExpectExec("DELETE FROM sessions").
		WithArgs(now).
		WillReturnResult(pgxmock.NewResult("DELETE", 7))

	task, err := NewSessionsPurgeTask(SessionsPurgePayload{})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionPurgeJobAppliesGracePeriod(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2026, 3, 1, 4, 0, 0, 0, time.UTC)
	job := NewSessionPurgeJob(mock, nil, nil)
	job.clock = func() time.Time { return now }

	mock.ExpectExec("DELETE FROM sessions").
		WithArgs(now.Add(-48 * time.Hour)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	task, err := NewSessionsPurgeTask(SessionsPurgePayload{GraceHours: 48})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionPurgeJobSkipsRetryOnBadPayload(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	job := NewSessionPurgeJob(mock, nil, nil)
	task := asynq.NewTask(TaskSessionsPurge, []byte("{not json"))
	require.ErrorIs(t, job.Handle(context.Background(), task), asynq.SkipRetry)
}

type stubPruner struct {
	retention time.Duration
	removed   int64
	err       error
}

func (s *stubPruner) Prune(_ context.Context, retention time.Duration) (int64, error) {
	s.retention = retention
	return s.removed, s.err
}

func TestActivityPruneJobUsesPayloadRetention(t *testing.T) {
	pruner := &stubPruner{removed: 12}
	job := NewActivityPruneJob(pruner, nil, nil)

	task, err := NewActivityPruneTask(ActivityPrunePayload{RetentionHours: 24})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 24*time.Hour, pruner.retention)
}

func TestActivityPruneJobDefaultsRetention(t *testing.T) {
	pruner := &stubPruner{}
	job := NewActivityPruneJob(pruner, nil, nil)

	payload, err := json.Marshal(ActivityPrunePayload{})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskActivityPrune, payload)))
	require.Equal(t, defaultActivityRetention, pruner.retention)
}

func TestActivityPruneJobPropagatesError(t *testing.T) {
	pruner := &stubPruner{err: errors.New("boom")}
	job := NewActivityPruneJob(pruner, nil, nil)

	task, err := NewActivityPruneTask(ActivityPrunePayload{RetentionHours: 1})
	require.NoError(t, err)
	require.Error(t, job.Handle(context.Background(), task))
}

func TestTokenSweepJobDeletesSpentTokens(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	job := NewTokenSweepJob(mock, nil, nil)

	mock.ExpectExec("DELETE FROM password_reset_tokens").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	task, err := NewTokensSweepTask()
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewWorkerRejectsBadCronSpec(t *testing.T) {
	task, err := NewTokensSweepTask()
	require.NoError(t, err)

	_, err = NewWorker(WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:6379"},
		Cron: []CronRegistration{
			{Spec: "not a cron spec", Task: task},
		},
	})
	require.Error(t, err)
}
