package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mandibook/mandibook/internal/finacct"
	jobmetrics "github.com/mandibook/mandibook/internal/jobs"
	"github.com/mandibook/mandibook/internal/shared"
)

// TenantsPort lists the tenants to warm.
type TenantsPort interface {
	ListActiveIDs(ctx context.Context) ([]int64, error)
}

// ReportWarmupJob pre-builds the final accounts caches for active tenants so
// the morning's first statement request is served warm.
type ReportWarmupJob struct {
	Finance *finacct.Service
	Tenants TenantsPort
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewReportWarmupJob wires dependencies for the warmup handler.
func NewReportWarmupJob(finance *finacct.Service, tenants TenantsPort, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportWarmupJob {
	return &ReportWarmupJob{
		Finance: finance,
		Tenants: tenants,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes report warmup tasks.
func (j *ReportWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Finance == nil || j.Tenants == nil {
		return errors.New("report warmup: handler not configured")
	}
	var payload ReportWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.FiscalYear == "" {
		payload.FiscalYear = shared.CurrentFiscalYear()
	}

	tracker := j.metrics().Track(TaskReportWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("fiscal_year", payload.FiscalYear))
	logger.Info("starting report warmup")

	tenants, err := j.Tenants.ListActiveIDs(ctx)
	if err != nil {
		resultErr = err
		logger.Error("list active tenants", slog.Any("error", err))
		return resultErr
	}
	if len(tenants) == 0 {
		logger.Info("no active tenants to warm")
		return resultErr
	}

	start := j.now()
	warmed := 0
	for _, tenantID := range tenants {
		if err := j.warmTenant(ctx, tenantID, payload.FiscalYear); err != nil {
			resultErr = err
			logger.Error("warm tenant", slog.Int64("tenant_id", tenantID), slog.Any("error", err))
			return resultErr
		}
		warmed++
	}

	logger.Info("completed report warmup", slog.Int("tenants", warmed), slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *ReportWarmupJob) warmTenant(ctx context.Context, tenantID int64, fiscalYear string) error {
	// Bound each tenant so a slow one cannot stall the whole run.
	tenantCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	if _, err := j.Finance.ProfitLoss(tenantCtx, tenantID, fiscalYear, time.Time{}, time.Time{}); err != nil {
		return err
	}
	if _, err := j.Finance.BalanceSheet(tenantCtx, tenantID, fiscalYear, time.Time{}, time.Time{}); err != nil {
		return err
	}
	if _, err := j.Finance.CashFlow(tenantCtx, tenantID, fiscalYear, time.Time{}, time.Time{}); err != nil {
		return err
	}
	return nil
}

func (j *ReportWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportWarmup))
	}
	return slog.Default().With(slog.String("job", TaskReportWarmup))
}

func (j *ReportWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ReportWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
