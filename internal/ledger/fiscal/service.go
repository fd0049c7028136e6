package fiscal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/ledger/coa"
	"github.com/meridian-erp/meridian/internal/ledger/posting"
	"github.com/meridian-erp/meridian/internal/ledger/shared"
	"github.com/meridian-erp/meridian/internal/platform/db"
	internalShared "github.com/meridian-erp/meridian/internal/shared"
)

// PostingPort is the posting primitive the close procedure reuses. The
// closing entries are ordinary balanced entries: one source of truth for
// every balance mutation.
type PostingPort interface {
	Post(ctx context.Context, tx pgx.Tx, in posting.Input) (posting.Entry, error)
}

// ActivityPort aggregates journal activity per account for one year.
type ActivityPort interface {
	ActivityByAccount(ctx context.Context, q db.Querier, fiscalYearID int64) ([]posting.AccountActivity, error)
	HasEntriesForYear(ctx context.Context, q db.Querier, fiscalYearID int64) (bool, error)
}

// AccountPort resolves the retained-earnings account.
type AccountPort interface {
	GetByCode(ctx context.Context, q db.Querier, code string) (coa.Account, error)
}

// AuditPort records fiscal-year events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// Manager tracks fiscal years, validates posting periods, and executes
// the period close.
type Manager struct {
	repo     Repository
	entries  ActivityPort
	accounts AccountPort
	poster   PostingPort
	audit    AuditPort
	now      func() time.Time
}

// NewManager constructs the fiscal year manager. The posting port is set
// separately with UsePoster because the engine and the manager reference
// each other at wiring time.
func NewManager(repo Repository, entries ActivityPort, accounts AccountPort, audit AuditPort) *Manager {
	return &Manager{repo: repo, entries: entries, accounts: accounts, audit: audit, now: time.Now}
}

// UsePoster injects the posting primitive used by Close.
func (m *Manager) UsePoster(poster PostingPort) {
	m.poster = poster
}

// WithNow overrides the clock for testing.
func (m *Manager) WithNow(now func() time.Time) {
	if now != nil {
		m.now = now
	}
}

// List returns all fiscal years ordered by start date.
func (m *Manager) List(ctx context.Context, q db.Querier) ([]FiscalYear, error) {
	return m.repo.List(ctx, q)
}

// Get loads a single fiscal year.
func (m *Manager) Get(ctx context.Context, q db.Querier, id int64) (FiscalYear, error) {
	return m.repo.GetByID(ctx, q, id)
}

// Settings returns the company accounting settings record.
func (m *Manager) Settings(ctx context.Context, q db.Querier) (Settings, error) {
	return m.repo.GetSettings(ctx, q)
}

// UpdateSettings replaces the company accounting settings record.
func (m *Manager) UpdateSettings(ctx context.Context, tx pgx.Tx, settings Settings, actorID int64) error {
	if settings.CurrentFiscalYearID != nil {
		if _, err := m.repo.GetByID(ctx, tx, *settings.CurrentFiscalYearID); err != nil {
			return err
		}
	}
	if settings.RetainedEarningsCode != "" {
		acc, err := m.accounts.GetByCode(ctx, tx, settings.RetainedEarningsCode)
		if err != nil {
			return err
		}
		if acc.Type != coa.AccountTypeEquity {
			return shared.ErrNoRetainedEarnings
		}
	}
	if err := m.repo.UpdateSettings(ctx, tx, settings); err != nil {
		return err
	}
	m.record(ctx, actorID, "settings.update", 1, map[string]any{
		"current_fiscal_year_id": settings.CurrentFiscalYearID,
		"retained_earnings":      settings.RetainedEarningsCode,
	})
	return nil
}

// Create inserts a new open fiscal year.
func (m *Manager) Create(ctx context.Context, tx pgx.Tx, in CreateInput) (FiscalYear, error) {
	if err := in.Validate(); err != nil {
		return FiscalYear{}, err
	}
	year, err := m.repo.Insert(ctx, tx, FiscalYear{Name: in.Name, StartDate: in.StartDate, EndDate: in.EndDate})
	if err != nil {
		return FiscalYear{}, err
	}
	m.record(ctx, in.ActorID, "fiscalyear.create", year.ID, map[string]any{"name": year.Name})
	return year, nil
}

// Update edits an open fiscal year; closed years are immutable.
func (m *Manager) Update(ctx context.Context, tx pgx.Tx, in UpdateInput) (FiscalYear, error) {
	if err := (CreateInput{Name: in.Name, StartDate: in.StartDate, EndDate: in.EndDate}).Validate(); err != nil {
		return FiscalYear{}, err
	}
	current, err := m.repo.GetByIDForUpdate(ctx, tx, in.ID)
	if err != nil {
		return FiscalYear{}, err
	}
	if current.Closed {
		return FiscalYear{}, shared.ErrAlreadyClosed
	}
	current.Name = in.Name
	current.StartDate = in.StartDate
	current.EndDate = in.EndDate
	updated, err := m.repo.Update(ctx, tx, current)
	if err != nil {
		return FiscalYear{}, err
	}
	m.record(ctx, in.ActorID, "fiscalyear.update", updated.ID, map[string]any{"name": updated.Name})
	return updated, nil
}

// Delete removes a fiscal year that is open, not current, and has no
// journal history.
func (m *Manager) Delete(ctx context.Context, tx pgx.Tx, id, actorID int64) error {
	year, err := m.repo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return err
	}
	if year.Closed {
		return shared.ErrAlreadyClosed
	}
	settings, err := m.repo.GetSettings(ctx, tx)
	if err != nil {
		return err
	}
	if settings.CurrentFiscalYearID != nil && *settings.CurrentFiscalYearID == id {
		return shared.ErrIsCurrentYear
	}
	hasEntries, err := m.entries.HasEntriesForYear(ctx, tx, id)
	if err != nil {
		return err
	}
	if hasEntries {
		return shared.ErrHasEntries
	}
	if err := m.repo.Delete(ctx, tx, id); err != nil {
		return err
	}
	m.record(ctx, actorID, "fiscalyear.delete", id, map[string]any{"name": year.Name})
	return nil
}

// Close zeroes every Revenue and Expense account's period activity into
// retained earnings and marks the active year closed. Closing entries go
// through the ordinary posting primitive, inside the caller's
// transaction: the whole close succeeds or nothing changes.
func (m *Manager) Close(ctx context.Context, tx pgx.Tx, actorID int64) (CloseResult, error) {
	if m.poster == nil {
		return CloseResult{}, errors.New("ledger: posting port not wired")
	}
	year, err := m.repo.CurrentForUpdate(ctx, tx)
	if err != nil {
		return CloseResult{}, err
	}
	if year.Closed {
		return CloseResult{}, shared.ErrAlreadyClosed
	}

	settings, err := m.repo.GetSettings(ctx, tx)
	if err != nil {
		return CloseResult{}, err
	}
	if settings.RetainedEarningsCode == "" {
		return CloseResult{}, shared.ErrNoRetainedEarnings
	}
	retained, err := m.accounts.GetByCode(ctx, tx, settings.RetainedEarningsCode)
	if err != nil {
		if errors.Is(err, shared.ErrAccountNotFound) {
			return CloseResult{}, shared.ErrNoRetainedEarnings
		}
		return CloseResult{}, err
	}
	if retained.Type != coa.AccountTypeEquity {
		return CloseResult{}, shared.ErrNoRetainedEarnings
	}

	activity, err := m.entries.ActivityByAccount(ctx, tx, year.ID)
	if err != nil {
		return CloseResult{}, err
	}

	result := CloseResult{Year: year}
	for _, act := range activity {
		var entry posting.Entry
		var posted bool
		switch coa.AccountType(act.Type) {
		case coa.AccountTypeRevenue:
			// Period contribution is credit-net; debiting the account
			// zeroes it out against retained earnings.
			net := act.Credit.Sub(act.Debit)
			result.TotalRevenue = result.TotalRevenue.Add(net)
			entry, posted, err = m.postClosing(ctx, tx, year, actorID, act.Code, settings.RetainedEarningsCode, net)
		case coa.AccountTypeExpense:
			net := act.Debit.Sub(act.Credit)
			result.TotalExpense = result.TotalExpense.Add(net)
			entry, posted, err = m.postClosing(ctx, tx, year, actorID, settings.RetainedEarningsCode, act.Code, net)
		default:
			continue
		}
		if err != nil {
			return CloseResult{}, err
		}
		if posted {
			result.ClosingEntries = append(result.ClosingEntries, entry)
		}
	}
	result.NetIncome = result.TotalRevenue.Sub(result.TotalExpense)

	closedAt := m.now()
	if err := m.repo.MarkClosed(ctx, tx, year.ID, actorID, closedAt); err != nil {
		return CloseResult{}, err
	}
	result.Year.Closed = true
	result.Year.ClosedAt = &closedAt
	result.Year.ClosedBy = &actorID

	m.record(ctx, actorID, "fiscalyear.close", year.ID, map[string]any{
		"name":            year.Name,
		"closing_entries": len(result.ClosingEntries),
		"net_income":      result.NetIncome.String(),
	})
	return result, nil
}

// postClosing posts one closing entry, swapping legs when the period
// activity runs against the account's natural side.
func (m *Manager) postClosing(ctx context.Context, tx pgx.Tx, year FiscalYear, actorID int64, debitCode, creditCode string, net decimal.Decimal) (posting.Entry, bool, error) {
	if net.IsZero() {
		return posting.Entry{}, false, nil
	}
	amount := net
	if net.IsNegative() {
		debitCode, creditCode = creditCode, debitCode
		amount = net.Neg()
	}
	entry, err := m.poster.Post(ctx, tx, posting.Input{
		Date:         year.EndDate,
		Description:  fmt.Sprintf("Closing entry %s", year.Name),
		DebitCode:    debitCode,
		CreditCode:   creditCode,
		Amount:       amount,
		FiscalYearID: &year.ID,
		SourceModule: "CLOSE",
		SourceID:     uuid.New(),
		PostedBy:     actorID,
	})
	if err != nil {
		return posting.Entry{}, false, err
	}
	return entry, true, nil
}

// PeriodForUpdate implements the posting engine's period source.
func (m *Manager) PeriodForUpdate(ctx context.Context, tx pgx.Tx, id int64) (posting.FiscalPeriod, error) {
	year, err := m.repo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return posting.FiscalPeriod{}, err
	}
	return toPeriod(year), nil
}

// CurrentPeriodForUpdate resolves the company's current year and locks it.
func (m *Manager) CurrentPeriodForUpdate(ctx context.Context, tx pgx.Tx) (posting.FiscalPeriod, error) {
	year, err := m.repo.CurrentForUpdate(ctx, tx)
	if err != nil {
		return posting.FiscalPeriod{}, err
	}
	return toPeriod(year), nil
}

func toPeriod(year FiscalYear) posting.FiscalPeriod {
	return posting.FiscalPeriod{ID: year.ID, StartDate: year.StartDate, EndDate: year.EndDate, Closed: year.Closed}
}

func (m *Manager) record(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if m.audit == nil {
		return
	}
	_ = m.audit.Record(ctx, internalShared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "fiscal_year",
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
		At:       m.now(),
	})
}
