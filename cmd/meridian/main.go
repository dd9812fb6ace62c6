package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/meridian-portal/meridian/internal/activity"
	"github.com/meridian-portal/meridian/internal/app"
	"github.com/meridian-portal/meridian/internal/auth"
	"github.com/meridian-portal/meridian/internal/contact"
	"github.com/meridian-portal/meridian/internal/files"
	"github.com/meridian-portal/meridian/internal/observability"
	"github.com/meridian-portal/meridian/internal/platform/cache"
	"github.com/meridian-portal/meridian/internal/platform/db"
	"github.com/meridian-portal/meridian/internal/profiles"
	"github.com/meridian-portal/meridian/internal/rbac"
	"github.com/meridian-portal/meridian/internal/search"
	"github.com/meridian-portal/meridian/internal/shared"
	"github.com/meridian-portal/meridian/internal/view"
	"github.com/meridian-portal/meridian/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Error("run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "meridian_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	activityLogger := shared.NewActivityLogger(pool)

	profilesRepo := profiles.NewRepository(pool)
	profilesService := profiles.NewService(profilesRepo, activityLogger)
	profilesHandler := profiles.NewHandler(logger, profilesService, templates, csrfManager)

	resolver := rbac.NewResolver(profilesRepo, logger)
	guard := rbac.NewGuard(resolver, logger)

	mailer := auth.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, mailer, activityLogger, logger)
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager, cfg.AppBaseURL)

	fileStore, err := files.NewDiskStore(cfg.UploadDir)
	if err != nil {
		logger.Error("init file store", slog.Any("error", err))
		os.Exit(1)
	}
	filesRepo := files.NewRepository(pool)
	filesService := files.NewService(filesRepo, fileStore, activityLogger)
	filesHandler := files.NewHandler(logger, filesService, templates, csrfManager)

	searchService := search.NewService(search.NewProfileDirectory(profilesRepo), search.NewFileIndex(filesService))
	searchHandler := search.NewHandler(logger, searchService, metrics)

	contactService := contact.NewService(contact.NewRepository(pool), activityLogger)
	contactHandler := contact.NewHandler(logger, contactService, templates, csrfManager)

	activityService := activity.NewService(activity.NewRepository(pool))
	activityHandler := activity.NewHandler(logger, activityService, templates, csrfManager)

	jobsInspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobsInspector.Close(); err != nil {
			logger.Warn("jobs inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(jobsInspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		Templates:       templates,
		SessionManager:  sessionManager,
		CSRFManager:     csrfManager,
		Guard:           guard,
		AuthHandler:     authHandler,
		ProfilesHandler: profilesHandler,
		FilesHandler:    filesHandler,
		SearchHandler:   searchHandler,
		ContactHandler:  contactHandler,
		ActivityHandler: activityHandler,
		JobsHandler:     jobsHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server run", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
