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

	"github.com/odyssey-erp/erp-console/internal/app"
	"github.com/odyssey-erp/erp-console/internal/auth"
	"github.com/odyssey-erp/erp-console/internal/erpapi"
	"github.com/odyssey-erp/erp-console/internal/locations"
	"github.com/odyssey-erp/erp-console/internal/observability"
	"github.com/odyssey-erp/erp-console/internal/platform/cache"
	"github.com/odyssey-erp/erp-console/internal/purchasing"
	"github.com/odyssey-erp/erp-console/internal/shared"
	"github.com/odyssey-erp/erp-console/internal/view"
	"github.com/odyssey-erp/erp-console/jobs"
	"github.com/odyssey-erp/erp-console/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

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

	metrics := observability.NewMetrics()
	apiClient, err := erpapi.NewClient(erpapi.Options{
		BaseURL:  cfg.APIBaseURL,
		Timeout:  cfg.APITimeout,
		Logger:   logger,
		Observer: metrics,
	})
	if err != nil {
		logger.Error("init api client", slog.Any("error", err))
		os.Exit(1)
	}

	sessionManager := shared.NewSessionManager(redisClient, "console_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine(purchasing.TemplateFuncs())
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	authService := auth.NewService(apiClient, time.Minute)
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager)

	locationStore := cache.NewVersioned(redisClient, "locations", cfg.LocationCacheTTL)
	catalog := locations.NewCatalog(apiClient, locationStore, cfg.LocationFetchConcurrency, logger)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	var enqueuer locations.Enqueuer
	if cfg.HasServiceAccount() {
		enqueuer = jobClient
	}
	locationsHandler := locations.NewHandler(catalog, enqueuer, logger)

	reportClient := report.NewClient(cfg.GotenbergURL)
	reportHandler := report.NewHandler(reportClient, logger)

	purchasingHandler := purchasing.NewHandler(purchasing.HandlerDeps{
		Logger:     logger,
		Service:    purchasing.NewService(apiClient, logger, cfg.Location()),
		Dispatcher: purchasing.NewDispatcher(apiClient),
		Catalog:    catalog,
		Templates:  templates,
		CSRF:       csrfManager,
		PDF:        reportClient,
	})

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		CSRFManager:       csrfManager,
		AuthHandler:       authHandler,
		PurchasingHandler: purchasingHandler,
		LocationsHandler:  locationsHandler,
		ReportHandler:     reportHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("api", cfg.APIBaseURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
