package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/erp-console/internal/app"
	"github.com/odyssey-erp/erp-console/internal/erpapi"
	"github.com/odyssey-erp/erp-console/internal/locations"
	"github.com/odyssey-erp/erp-console/internal/platform/cache"
	"github.com/odyssey-erp/erp-console/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadOpsConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	if !cfg.HasServiceAccount() {
		logger.Warn("API_SERVICE_EMAIL/API_SERVICE_PASSWORD unset, warmups will call the API anonymously")
	}

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	apiClient, err := erpapi.NewClient(erpapi.Options{BaseURL: cfg.APIBaseURL, Timeout: cfg.APITimeout, Logger: logger})
	if err != nil {
		logger.Error("init api client", slog.Any("error", err))
		os.Exit(1)
	}

	catalog := locations.NewCatalog(apiClient, cache.NewVersioned(redisClient, "locations", cfg.LocationCacheTTL), cfg.LocationFetchConcurrency, logger)
	warmupJob := &jobs.LocationsWarmupJob{
		Catalog:  catalog,
		Auth:     apiClient,
		Email:    cfg.APIServiceEmail,
		Password: cfg.APIServicePassword,
		Logger:   logger,
	}

	warmupTask, err := jobs.NewLocationsWarmupTask("scheduled")
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	var cron []jobs.CronRegistration
	if cfg.LocationsWarmupCron != "" {
		cron = append(cron, jobs.CronRegistration{
			Spec:    cfg.LocationsWarmupCron,
			Task:    warmupTask,
			Options: []asynq.Option{asynq.MaxRetry(3), asynq.Queue(jobs.QueueDefault)},
		})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Location:    cfg.Location(),
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLocationsWarmup, Handler: warmupJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
