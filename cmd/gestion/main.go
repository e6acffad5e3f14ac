package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/advances"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/app"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/audit"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/auth"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/closure"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/earnings"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/platform/cache"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/platform/db"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/rates"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/shared"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/jobs"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/report"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	authRepo := auth.NewPgRepository(dbpool)
	authService := auth.NewService(authRepo)
	authMiddleware := auth.Middleware{Service: authService, Logger: logger}

	auditRepo := audit.NewPgRepository(dbpool)
	auditService := audit.NewService(auditRepo)

	ratesRepo := rates.NewRepository(dbpool)
	ratesService := rates.NewService(ratesRepo)

	earningsRepo := earnings.NewRepository(dbpool)
	closureRepo := closure.NewRepository(dbpool)
	advancesRepo := advances.NewRepository(dbpool)

	earningsService := earnings.NewService(earningsRepo, closureRepo, advancesRepo, ratesService)

	periodLock := shared.NewPeriodLock(redisClient, cfg.ClosureLockTTL)
	closureService := closure.NewService(earningsRepo, closureRepo, ratesService, periodLock, auditService, logger, cfg.ClosureOptions())

	advancesService := advances.NewService(advancesRepo, earningsService, closureRepo, cfg.WindowPolicy(), cfg.AdvanceOptions())

	reportService := report.NewService(earningsService, closureService, advancesRepo)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		Auth:            authMiddleware,
		RatesHandler:    rates.NewHandler(logger, ratesService, authMiddleware),
		EarningsHandler: earnings.NewHandler(logger, earningsService, authMiddleware),
		ClosureHandler:  closure.NewHandler(logger, closureService, authMiddleware),
		AdvancesHandler: advances.NewHandler(logger, advancesService, authMiddleware),
		AuditHandler:    audit.NewHandler(logger, auditService, authMiddleware),
		ReportHandler:   report.NewHandler(logger, reportService, authMiddleware),
		JobHandler:      jobs.NewHandler(inspector, logger),
		Pool:            dbpool,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
