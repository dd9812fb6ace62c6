package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/meridian-portal/meridian/internal/activity"
	"github.com/meridian-portal/meridian/internal/app"
	jobmetrics "github.com/meridian-portal/meridian/internal/jobs"
	"github.com/meridian-portal/meridian/internal/platform/db"
	"github.com/meridian-portal/meridian/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := jobmetrics.NewMetrics(nil)

	sessionsJob := jobs.NewSessionPurgeJob(pool, logger, metrics)
	activityJob := jobs.NewActivityPruneJob(activity.NewService(activity.NewRepository(pool)), logger, metrics)
	tokensJob := jobs.NewTokenSweepJob(pool, logger, metrics)

	purgeTask, err := jobs.NewSessionsPurgeTask(jobs.SessionsPurgePayload{})
	if err != nil {
		logger.Error("build sessions purge task", slog.Any("error", err))
		os.Exit(1)
	}
	pruneTask, err := jobs.NewActivityPruneTask(jobs.ActivityPrunePayload{
		RetentionHours: int(cfg.ActivityRetention.Hours()),
	})
	if err != nil {
		logger.Error("build activity prune task", slog.Any("error", err))
		os.Exit(1)
	}
	sweepTask, err := jobs.NewTokensSweepTask()
	if err != nil {
		logger.Error("build tokens sweep task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSessionsPurge, Handler: sessionsJob.Handle},
			{Type: jobs.TaskActivityPrune, Handler: activityJob.Handle},
			{Type: jobs.TaskTokensSweep, Handler: tokensJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "15 3 * * *", Task: purgeTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 3 * * *", Task: pruneTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "45 3 * * *", Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
