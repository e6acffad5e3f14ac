package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/app"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/audit"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/closure"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/earnings"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/platform/cache"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/platform/db"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/rates"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/shared"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	ratesRepo := rates.NewRepository(pool)
	ratesService := rates.NewService(ratesRepo)

	earningsRepo := earnings.NewRepository(pool)
	closureRepo := closure.NewRepository(pool)
	auditService := audit.NewService(audit.NewPgRepository(pool))
	periodLock := shared.NewPeriodLock(redisClient, cfg.ClosureLockTTL)

	closureService := closure.NewService(earningsRepo, closureRepo, ratesService, periodLock, auditService, logger, cfg.ClosureOptions())

	closeJob := jobs.NewPeriodCloseJob(closureService, logger, nil)
	correctJob := jobs.NewPeriodCorrectJob(closureService, logger, nil)

	// Empty payload closes the half that ended right before the run.
	closeTask, err := jobs.NewPeriodCloseTask("")
	if err != nil {
		logger.Error("build close task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskPeriodClose, Handler: closeJob.Handle},
			{Type: jobs.TaskPeriodCorrect, Handler: correctJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "30 0 1,16 * *", Task: closeTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
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
