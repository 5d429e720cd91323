package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/mandibook/mandibook/internal/jobs"
	"github.com/mandibook/mandibook/internal/ledger"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// IntegrityPort scans the ledger for unbalanced references.
type IntegrityPort interface {
	ListUnbalancedReferences(ctx context.Context, since time.Time) ([]ledger.UnbalancedReference, error)
}

// LedgerIntegrityJob detects business events whose ledger rows do not net to
// zero. Detection only; nothing is repaired.
type LedgerIntegrityJob struct {
	Ledger  IntegrityPort
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewLedgerIntegrityJob wires dependencies for the integrity handler.
func NewLedgerIntegrityJob(port IntegrityPort, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerIntegrityJob {
	return &LedgerIntegrityJob{
		Ledger:  port,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes ledger integrity tasks.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Ledger == nil {
		return errors.New("ledger integrity: handler not configured")
	}
	var payload LedgerIntegrityPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.SinceDays <= 0 {
		payload.SinceDays = 30
	}

	tracker := j.metrics().Track(TaskLedgerIntegrity)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	since := j.now().AddDate(0, 0, -payload.SinceDays)
	logger := j.logger().With(slog.Time("since", since))
	logger.Info("starting ledger integrity scan")

	refs, err := j.Ledger.ListUnbalancedReferences(ctx, since)
	if err != nil {
		resultErr = err
		logger.Error("scan ledger", slog.Any("error", err))
		return resultErr
	}

	perTenant := make(map[int64]int)
	for _, ref := range refs {
		perTenant[ref.TenantID]++
		logger.Warn("unbalanced ledger reference",
			slog.Int64("tenant_id", ref.TenantID),
			slog.String("reference_type", ref.ReferenceType),
			slog.String("reference_id", ref.ReferenceID),
			slog.Float64("debit", ref.Debit),
			slog.Float64("credit", ref.Credit))
	}
	for tenantID, count := range perTenant {
		j.metrics().AddUnbalanced(tenantID, count)
	}

	logger.Info("completed ledger integrity scan", slog.Int("unbalanced", len(refs)))
	return resultErr
}

func (j *LedgerIntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLedgerIntegrity))
	}
	return slog.Default().With(slog.String("job", TaskLedgerIntegrity))
}

func (j *LedgerIntegrityJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *LedgerIntegrityJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
