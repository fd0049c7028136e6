package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrity is the task type for the trial balance check.
	TaskLedgerIntegrity = "ledger:integrity_check"
	// TaskStatementsWarmup is the task type for statement cache warmup.
	TaskStatementsWarmup = "statements:warmup"
)

// IntegrityPayload scopes a ledger integrity run.
type IntegrityPayload struct {
	// FiscalYearID narrows the check to accounts with journal activity
	// in that year. Zero checks every account.
	FiscalYearID int64 `json:"fiscal_year_id"`
}

// NewLedgerIntegrityTask constructs an Asynq task.
func NewLedgerIntegrityTask(payload IntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, data), nil
}

// StatementsWarmupPayload identifies the fiscal year to precompute.
type StatementsWarmupPayload struct {
	// FiscalYearID selects the year. Zero means the current year.
	FiscalYearID int64 `json:"fiscal_year_id"`
}

// NewStatementsWarmupTask constructs an Asynq task.
func NewStatementsWarmupTask(payload StatementsWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStatementsWarmup, data), nil
}
