package fiscal

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/ledger/posting"
	"github.com/meridian-erp/meridian/internal/ledger/shared"
)

// FiscalYear is a bounded accounting period. The lifecycle is
// Open -> Closed, exactly once, and closed years are immutable.
type FiscalYear struct {
	ID        int64
	Name      string
	StartDate time.Time
	EndDate   time.Time
	Closed    bool
	ClosedAt  *time.Time
	ClosedBy  *int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Contains reports whether the date falls inside [StartDate, EndDate].
func (y FiscalYear) Contains(date time.Time) bool {
	return !date.Before(y.StartDate) && !date.After(y.EndDate)
}

// Settings is the company accounting settings record. It replaces any
// global "current year" pointer: callers resolve defaults through it and
// may always supply an explicit fiscal year id instead.
type Settings struct {
	CurrentFiscalYearID  *int64
	RetainedEarningsCode string
}

// CreateInput groups fields for a new fiscal year.
type CreateInput struct {
	Name      string
	StartDate time.Time
	EndDate   time.Time
	ActorID   int64
}

// Validate enforces the range invariant before any database call.
func (in CreateInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return shared.ErrInvalidRange
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() || !in.EndDate.After(in.StartDate) {
		return shared.ErrInvalidRange
	}
	return nil
}

// UpdateInput groups fields for editing an open fiscal year.
type UpdateInput struct {
	ID        int64
	Name      string
	StartDate time.Time
	EndDate   time.Time
	ActorID   int64
}

// CloseResult summarises a completed period close.
type CloseResult struct {
	Year           FiscalYear
	ClosingEntries []posting.Entry
	TotalRevenue   decimal.Decimal
	TotalExpense   decimal.Decimal
	NetIncome      decimal.Decimal
}
