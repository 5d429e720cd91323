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
	"github.com/redis/go-redis/v9"

	"github.com/mandibook/mandibook/internal/app"
	"github.com/mandibook/mandibook/internal/billing"
	"github.com/mandibook/mandibook/internal/finacct"
	"github.com/mandibook/mandibook/internal/ledger"
	"github.com/mandibook/mandibook/internal/lots"
	"github.com/mandibook/mandibook/internal/observability"
	"github.com/mandibook/mandibook/internal/platform/cache"
	"github.com/mandibook/mandibook/internal/platform/db"
	"github.com/mandibook/mandibook/internal/reports"
	"github.com/mandibook/mandibook/internal/shared"
	"github.com/mandibook/mandibook/internal/tenant"
	"github.com/mandibook/mandibook/jobs"
	"github.com/mandibook/mandibook/report"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
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

	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	tenantRepo := tenant.NewRepository(pool)
	ratesResolver := tenant.NewResolver(tenantRepo)

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, auditLogger)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	lotsRepo := lots.NewRepository(pool)
	lotsService := lots.NewService(lotsRepo, logger)
	lotsHandler := lots.NewHandler(logger, lotsService)

	reportsCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportsService := reports.NewService(lotsRepo, ratesResolver, reportsCache, logger)
	reportsHandler := reports.NewHandler(logger, reportsService)

	billingRepo := billing.NewRepository(pool)
	billingService := billing.NewService(billingRepo, lotsRepo, ratesResolver, ledgerService, idempotencyStore, logger)
	billingService.WithCacheBumper(reportsCache)
	billingHandler := billing.NewHandler(logger, billingService)

	finacctRepo := finacct.NewRepository(pool)
	ledgerStrategy := finacct.NewLedgerStrategy(ledgerRepo)
	tradingStrategy := finacct.NewTradingStrategy(finacctRepo)
	financeService := finacct.NewService(ledgerStrategy, tradingStrategy, finacctRepo, reportsCache)
	financeHandler := finacct.NewHandler(logger, financeService)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	printHandler := report.NewHandler(report.NewClient(cfg.GotenbergURL), logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		LedgerHandler:  ledgerHandler,
		LotsHandler:    lotsHandler,
		BillingHandler: billingHandler,
		ReportsHandler: reportsHandler,
		FinanceHandler: financeHandler,
		JobHandler:     jobHandler,
		PrintHandler:   printHandler,
		Pool:           pool,
		Metrics:        metrics,
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
