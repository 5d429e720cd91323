package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/mandibook/mandibook/internal/app"
	"github.com/mandibook/mandibook/internal/finacct"
	"github.com/mandibook/mandibook/internal/ledger"
	"github.com/mandibook/mandibook/internal/platform/cache"
	"github.com/mandibook/mandibook/internal/platform/db"
	"github.com/mandibook/mandibook/internal/reports"
	"github.com/mandibook/mandibook/internal/tenant"
	"github.com/mandibook/mandibook/jobs"
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
		logger.Warn("redis ping", slog.Any("error", err))
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	tenantRepo := tenant.NewRepository(pool)
	ledgerRepo := ledger.NewRepository(pool)

	reportsCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	finacctRepo := finacct.NewRepository(pool)
	ledgerStrategy := finacct.NewLedgerStrategy(ledgerRepo)
	tradingStrategy := finacct.NewTradingStrategy(finacctRepo)
	financeService := finacct.NewService(ledgerStrategy, tradingStrategy, finacctRepo, reportsCache)

	integrityJob := jobs.NewLedgerIntegrityJob(ledgerRepo, logger, nil)
	warmupJob := jobs.NewReportWarmupJob(financeService, tenantRepo, logger, nil)

	integrityTask, err := jobs.NewLedgerIntegrityTask(jobs.LedgerIntegrityPayload{SinceDays: 30})
	if err != nil {
		logger.Error("build integrity task", slog.Any("error", err))
		os.Exit(1)
	}
	warmupTask, err := jobs.NewReportWarmupTask(jobs.ReportWarmupPayload{})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLedgerIntegrity, Handler: integrityJob.Handle},
			{Type: jobs.TaskReportWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "15 1 * * *", Task: integrityTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "45 1 * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
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
