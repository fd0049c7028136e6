package posting

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/ledger/shared"
)

// Input groups fields required to post a journal entry. EntryNo and
// FiscalYearID are optional: an empty number is generated from the
// posting date, a nil year falls back to the company's current year.
type Input struct {
	Date         time.Time
	Description  string
	DebitCode    string
	CreditCode   string
	Amount       decimal.Decimal
	EntryNo      string
	FiscalYearID *int64
	SourceModule string
	SourceID     uuid.UUID
	PostedBy     int64
}

// normalized returns a copy with both account codes trimmed so the
// same-account check and the database lookups see identical values.
func (in Input) normalized() Input {
	in.DebitCode = strings.TrimSpace(in.DebitCode)
	in.CreditCode = strings.TrimSpace(in.CreditCode)
	return in
}

// Validate rejects bad input shape before any database call.
func (in Input) Validate() error {
	in = in.normalized()
	if in.Date.IsZero() {
		return errors.New("ledger: entry date required")
	}
	if in.DebitCode == "" || in.CreditCode == "" {
		return errors.New("ledger: debit and credit account codes required")
	}
	if in.DebitCode == in.CreditCode {
		return shared.ErrSameAccount
	}
	if !in.Amount.IsPositive() {
		return shared.ErrInvalidAmount
	}
	if in.SourceModule == "" {
		return errors.New("ledger: source module required")
	}
	if in.SourceID == uuid.Nil {
		return errors.New("ledger: source id required")
	}
	return nil
}

// UpdateInput restricts entry edits to non-financial fields. Changing
// accounts or amount would desynchronise stored balances from the entry
// log, so those fields are deliberately absent.
type UpdateInput struct {
	EntryID     int64
	Date        time.Time
	Description string
	ActorID     int64
	// Confirm acknowledges that editing a posted entry is an
	// administrative override. Without it the call is rejected.
	Confirm bool
}

// DeleteInput wraps parameters for the last-resort delete operation.
type DeleteInput struct {
	EntryID int64
	ActorID int64
	// Confirm acknowledges that deleting a posted entry does not reverse
	// its financial impact. Without it the call is rejected.
	Confirm bool
}

// ReverseInput wraps parameters for posting an equal-and-opposite entry,
// the supported way to undo a posting.
type ReverseInput struct {
	EntryID     int64
	ActorID     int64
	Description string
	Date        *time.Time
}

// BalanceDesyncWarning is attached to the narrow edit/delete operations;
// callers must surface it to the user.
const BalanceDesyncWarning = "operation does not reverse the entry's financial impact; post a reversing entry to undo a posting"
