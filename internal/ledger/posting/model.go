package posting

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Entry is a posted two-leg journal entry. The debit and credit legs are
// account codes; Amount is always positive and the natural-sign rule
// decides which balance goes up.
type Entry struct {
	ID           int64
	EntryNo      string
	Date         time.Time
	Description  string
	DebitCode    string
	CreditCode   string
	Amount       decimal.Decimal
	FiscalYearID int64
	SourceModule string
	SourceID     uuid.UUID
	PostedBy     int64
	CreatedAt    time.Time
}

// FiscalPeriod is the slice of fiscal-year state the engine validates
// against. The fiscal manager supplies it; the engine never mutates it.
type FiscalPeriod struct {
	ID        int64
	StartDate time.Time
	EndDate   time.Time
	Closed    bool
}

// AccountActivity aggregates one account's journal activity inside a
// fiscal year: Debit sums entries where the account took the debit leg,
// Credit the credit leg.
type AccountActivity struct {
	Code   string
	Name   string
	Type   string
	Debit  decimal.Decimal
	Credit decimal.Decimal
}
