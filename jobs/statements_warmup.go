package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian/internal/ledger/statements"
)

// StatementsWarmupJob precomputes financial statements into the cache so
// the first dashboard hit after an invalidation stays fast.
type StatementsWarmupJob struct {
	Statements *statements.Service
	Pool       *pgxpool.Pool
	Logger     *slog.Logger
}

// NewStatementsWarmupJob wires dependencies for the warmup handler.
func NewStatementsWarmupJob(svc *statements.Service, pool *pgxpool.Pool, logger *slog.Logger) *StatementsWarmupJob {
	return &StatementsWarmupJob{Statements: svc, Pool: pool, Logger: logger}
}

// Handle processes statement warmup tasks.
func (j *StatementsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Statements == nil || j.Pool == nil {
		return errors.New("statements warmup: handler not configured")
	}
	var payload StatementsWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	var yearID *int64
	if payload.FiscalYearID > 0 {
		yearID = &payload.FiscalYearID
	}

	logger := j.logger()
	start := time.Now()

	if _, err := j.Statements.CachedIncomeStatement(ctx, j.Pool, yearID); err != nil {
		logger.Error("warm income statement", slog.Any("error", err))
		return err
	}
	if _, err := j.Statements.CachedBalanceSheet(ctx, j.Pool, yearID); err != nil {
		logger.Error("warm balance sheet", slog.Any("error", err))
		return err
	}

	logger.Info("statement warmup completed", slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *StatementsWarmupJob) logger() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
