package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrity scans the ledger for unbalanced references.
	TaskLedgerIntegrity = "ledger:integrity"
	// TaskReportWarmup pre-builds final accounts caches per active tenant.
	TaskReportWarmup = "reports:warmup"
)

// LedgerIntegrityPayload bounds the integrity scan window.
type LedgerIntegrityPayload struct {
	SinceDays int `json:"sinceDays"`
}

// NewLedgerIntegrityTask constructs the integrity scan task.
func NewLedgerIntegrityTask(payload LedgerIntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, data), nil
}

// ReportWarmupPayload selects the fiscal year to warm; empty means current.
type ReportWarmupPayload struct {
	FiscalYear string `json:"fiscalYear"`
}

// NewReportWarmupTask constructs the warmup task.
func NewReportWarmupTask(payload ReportWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportWarmup, data), nil
}
