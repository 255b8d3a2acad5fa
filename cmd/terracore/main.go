package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/terracore/terracore-pro/cmd/terracore/cli"
	"github.com/terracore/terracore-pro/internal/app"
	"github.com/terracore/terracore-pro/internal/conformity"
	conformityhttp "github.com/terracore/terracore-pro/internal/conformity/http"
	"github.com/terracore/terracore-pro/internal/datasource"
	"github.com/terracore/terracore-pro/internal/kpi"
	kpihttp "github.com/terracore/terracore-pro/internal/kpi/http"
	"github.com/terracore/terracore-pro/internal/observability"
	"github.com/terracore/terracore-pro/internal/platform/cache"
	"github.com/terracore/terracore-pro/internal/platform/db"
	"github.com/terracore/terracore-pro/internal/reminders"
	remindershttp "github.com/terracore/terracore-pro/internal/reminders/http"
	"github.com/terracore/terracore-pro/jobs"
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

	if len(os.Args) > 1 {
		if err := cli.Run(ctx, cfg, os.Args[1:], os.Stdout); err != nil {
			logger.Error("command failed", slog.String("command", os.Args[1]), slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, stop, cfg, logger); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	dbpool, err := db.NewWithOptions(ctx, cfg.PGDSN, cfg.PoolOptions("api"))
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer dbpool.Close()
	store := datasource.NewStore(dbpool)

	metrics := observability.NewMetrics()

	// Redis is optional: without it dashboards are computed on every request
	// and the invalidate route answers 503.
	var (
		kpiCache    *kpi.Cache
		invalidator kpihttp.Invalidator
		jobHandler  *jobs.Handler
	)
	redisClient, err := cache.NewWithOptions(ctx, cfg.RedisOptions())
	if err != nil {
		logger.Warn("redis unavailable, kpi cache disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		kpiCache = kpi.NewCache(redisClient, cfg.KPICacheTTL)
		if err := kpiCache.ListenForInvalidation(ctx, ""); err != nil {
			logger.Warn("subscribe kpi invalidation", slog.Any("error", err))
		}

		redisOpts := cfg.AsynqRedis()
		jobsClient := jobs.NewClient(redisOpts)
		defer func() {
			if err := jobsClient.Close(); err != nil {
				logger.Warn("jobs client close", slog.Any("error", err))
			}
		}()
		invalidator = jobsClient

		inspector := asynq.NewInspector(redisOpts)
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, logger)
	}

	kpiService := kpi.NewService(store, kpiCache)
	kpiService.WithTopClients(cfg.KPITopClients)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		KPIHandler:        kpihttp.NewHandler(logger, kpiService, invalidator),
		ConformityHandler: conformityhttp.NewHandler(logger, conformity.NewService(store), metrics.Registerer()),
		RemindersHandler:  remindershttp.NewHandler(logger, reminders.NewService(store)),
		JobHandler:        jobHandler,
		Database:          dbpool,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
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
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
