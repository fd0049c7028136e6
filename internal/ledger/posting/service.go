package posting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/ledger/coa"
	"github.com/meridian-erp/meridian/internal/ledger/shared"
	"github.com/meridian-erp/meridian/internal/platform/db"
	internalShared "github.com/meridian-erp/meridian/internal/shared"
)

// AccountSource is the slice of the chart of accounts the engine needs:
// row-locked loads and the internal balance-delta mutation.
type AccountSource interface {
	GetByCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (coa.Account, error)
	ApplyBalanceDelta(ctx context.Context, tx pgx.Tx, code string, delta decimal.Decimal) error
}

// PeriodSource resolves and locks the fiscal year a posting targets.
type PeriodSource interface {
	PeriodForUpdate(ctx context.Context, tx pgx.Tx, id int64) (FiscalPeriod, error)
	CurrentPeriodForUpdate(ctx context.Context, tx pgx.Tx) (FiscalPeriod, error)
}

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// Engine validates and persists balanced two-leg entries and is the only
// component allowed to move account balances. Every mutating method takes
// a caller-owned pgx.Tx: a document workflow chains several Post calls
// under one transaction and the whole set posts-or-fails together.
type Engine struct {
	repo     Repository
	accounts AccountSource
	periods  PeriodSource
	audit    AuditPort
	now      func() time.Time
}

// NewEngine constructs the posting engine.
func NewEngine(repo Repository, accounts AccountSource, periods PeriodSource, audit AuditPort) *Engine {
	return &Engine{repo: repo, accounts: accounts, periods: periods, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (e *Engine) WithNow(now func() time.Time) {
	if now != nil {
		e.now = now
	}
}

// Post validates the input, resolves the fiscal year, inserts the entry
// row, and applies both balance deltas under the natural-sign rule.
func (e *Engine) Post(ctx context.Context, tx pgx.Tx, in Input) (Entry, error) {
	in = in.normalized()
	if err := in.Validate(); err != nil {
		return Entry{}, err
	}

	period, err := e.resolvePeriod(ctx, tx, in.FiscalYearID)
	if err != nil {
		return Entry{}, err
	}
	if period.Closed {
		return Entry{}, shared.ErrPeriodClosed
	}
	if in.Date.Before(period.StartDate) || in.Date.After(period.EndDate) {
		return Entry{}, shared.ErrDateOutOfPeriod
	}

	debitAcc, creditAcc, err := e.lockAccounts(ctx, tx, in.DebitCode, in.CreditCode)
	if err != nil {
		return Entry{}, err
	}

	entryNo := strings.TrimSpace(in.EntryNo)
	if entryNo == "" {
		seq, err := e.repo.NextDaySequence(ctx, tx, in.Date)
		if err != nil {
			return Entry{}, err
		}
		entryNo = FormatEntryNo(in.Date, seq)
	}

	entry, err := e.repo.InsertEntry(ctx, tx, Entry{
		EntryNo:      entryNo,
		Date:         in.Date,
		Description:  in.Description,
		DebitCode:    in.DebitCode,
		CreditCode:   in.CreditCode,
		Amount:       in.Amount,
		FiscalYearID: period.ID,
		SourceModule: in.SourceModule,
		SourceID:     in.SourceID,
		PostedBy:     in.PostedBy,
	})
	if err != nil {
		return Entry{}, err
	}
	if err := e.repo.LinkSource(ctx, tx, in.SourceModule, in.SourceID, entry.ID); err != nil {
		return Entry{}, err
	}

	if err := e.accounts.ApplyBalanceDelta(ctx, tx, debitAcc.Code, coa.DebitDelta(debitAcc.Type, in.Amount)); err != nil {
		return Entry{}, err
	}
	if err := e.accounts.ApplyBalanceDelta(ctx, tx, creditAcc.Code, coa.CreditDelta(creditAcc.Type, in.Amount)); err != nil {
		return Entry{}, err
	}

	e.record(ctx, in.PostedBy, "journal.post", entry, map[string]any{
		"entry_no":      entry.EntryNo,
		"source_module": entry.SourceModule,
		"source_id":     entry.SourceID.String(),
	})
	return entry, nil
}

// lockAccounts loads both legs FOR UPDATE in code order so two concurrent
// postings touching the same pair cannot deadlock.
func (e *Engine) lockAccounts(ctx context.Context, tx pgx.Tx, debitCode, creditCode string) (coa.Account, coa.Account, error) {
	first, second := debitCode, creditCode
	if second < first {
		first, second = second, first
	}
	load := func(code string) (coa.Account, error) {
		acc, err := e.accounts.GetByCodeForUpdate(ctx, tx, code)
		if errors.Is(err, shared.ErrAccountNotFound) {
			return coa.Account{}, shared.ErrUnknownAccount
		}
		return acc, err
	}
	a, err := load(first)
	if err != nil {
		return coa.Account{}, coa.Account{}, err
	}
	b, err := load(second)
	if err != nil {
		return coa.Account{}, coa.Account{}, err
	}
	if a.Code == debitCode {
		return a, b, nil
	}
	return b, a, nil
}

func (e *Engine) resolvePeriod(ctx context.Context, tx pgx.Tx, fiscalYearID *int64) (FiscalPeriod, error) {
	if fiscalYearID != nil {
		return e.periods.PeriodForUpdate(ctx, tx, *fiscalYearID)
	}
	return e.periods.CurrentPeriodForUpdate(ctx, tx)
}

// Reverse posts an equal-and-opposite entry, the supported way to undo a
// posting. The reversal targets the original entry's fiscal year unless a
// date override is supplied.
func (e *Engine) Reverse(ctx context.Context, tx pgx.Tx, in ReverseInput) (Entry, error) {
	if in.EntryID == 0 {
		return Entry{}, errors.New("ledger: entry id required")
	}
	original, err := e.repo.GetEntry(ctx, tx, in.EntryID)
	if err != nil {
		return Entry{}, err
	}
	date := original.Date
	if in.Date != nil {
		date = *in.Date
	}
	reversal, err := e.Post(ctx, tx, Input{
		Date:         date,
		Description:  reversalDescription(in.Description, original.EntryNo),
		DebitCode:    original.CreditCode,
		CreditCode:   original.DebitCode,
		Amount:       original.Amount,
		FiscalYearID: &original.FiscalYearID,
		SourceModule: original.SourceModule + ":REVERSAL",
		SourceID:     uuid.New(),
		PostedBy:     in.ActorID,
	})
	if err != nil {
		return Entry{}, err
	}
	e.record(ctx, in.ActorID, "journal.reverse", original, map[string]any{
		"reversal_id": reversal.ID,
		"reversal_no": reversal.EntryNo,
	})
	return reversal, nil
}

// UpdateEntry edits date and description only. It is an administrative
// override requiring explicit confirmation; it never touches accounts or
// amount, and the returned warning must be surfaced to the caller. The
// new date must still fall inside the entry's fiscal year, which must
// still be open.
func (e *Engine) UpdateEntry(ctx context.Context, tx pgx.Tx, in UpdateInput) (Entry, string, error) {
	if in.EntryID == 0 {
		return Entry{}, "", errors.New("ledger: entry id required")
	}
	if in.Date.IsZero() {
		return Entry{}, "", errors.New("ledger: entry date required")
	}
	if !in.Confirm {
		return Entry{}, "", fmt.Errorf("%w: %s", shared.ErrConfirmRequired, BalanceDesyncWarning)
	}
	existing, err := e.repo.GetEntry(ctx, tx, in.EntryID)
	if err != nil {
		return Entry{}, "", err
	}
	period, err := e.periods.PeriodForUpdate(ctx, tx, existing.FiscalYearID)
	if err != nil {
		return Entry{}, "", err
	}
	if period.Closed {
		return Entry{}, "", shared.ErrPeriodClosed
	}
	if in.Date.Before(period.StartDate) || in.Date.After(period.EndDate) {
		return Entry{}, "", shared.ErrDateOutOfPeriod
	}
	entry, err := e.repo.UpdateEntryHeader(ctx, tx, in.EntryID, in.Date, in.Description)
	if err != nil {
		return Entry{}, "", err
	}
	e.record(ctx, in.ActorID, "journal.update", entry, map[string]any{"entry_no": entry.EntryNo})
	return entry, BalanceDesyncWarning, nil
}

// DeleteEntry removes an entry WITHOUT reversing its balance impact. It
// is an administrative override requiring explicit confirmation; Reverse
// is the correct way to undo a posting.
func (e *Engine) DeleteEntry(ctx context.Context, tx pgx.Tx, in DeleteInput) (string, error) {
	if in.EntryID == 0 {
		return "", errors.New("ledger: entry id required")
	}
	if !in.Confirm {
		return "", fmt.Errorf("%w: %s", shared.ErrConfirmRequired, BalanceDesyncWarning)
	}
	entry, err := e.repo.GetEntry(ctx, tx, in.EntryID)
	if err != nil {
		return "", err
	}
	if err := e.repo.DeleteEntry(ctx, tx, in.EntryID); err != nil {
		return "", err
	}
	e.record(ctx, in.ActorID, "journal.delete", entry, map[string]any{"entry_no": entry.EntryNo})
	return BalanceDesyncWarning, nil
}

// GetEntry loads a single entry.
func (e *Engine) GetEntry(ctx context.Context, q db.Querier, id int64) (Entry, error) {
	return e.repo.GetEntry(ctx, q, id)
}

// ListEntries returns entries, optionally scoped to one fiscal year,
// newest first.
func (e *Engine) ListEntries(ctx context.Context, q db.Querier, fiscalYearID *int64) ([]Entry, error) {
	return e.repo.ListEntries(ctx, q, fiscalYearID)
}

// ActivityByAccount aggregates journal legs per account for one year.
func (e *Engine) ActivityByAccount(ctx context.Context, q db.Querier, fiscalYearID int64) ([]AccountActivity, error) {
	return e.repo.ActivityByAccount(ctx, q, fiscalYearID)
}

// HasEntriesForYear reports whether any entry references the year.
func (e *Engine) HasEntriesForYear(ctx context.Context, q db.Querier, fiscalYearID int64) (bool, error) {
	return e.repo.HasEntriesForYear(ctx, q, fiscalYearID)
}

func (e *Engine) record(ctx context.Context, actorID int64, action string, entry Entry, meta map[string]any) {
	if e.audit == nil {
		return
	}
	_ = e.audit.Record(ctx, internalShared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "journal_entry",
		EntityID: fmt.Sprintf("%d", entry.ID),
		Meta:     meta,
		At:       e.now(),
	})
}

func reversalDescription(desc, entryNo string) string {
	if desc != "" {
		return desc
	}
	return fmt.Sprintf("Reversal of %s", entryNo)
}
