package shared

import "errors"

var (
	// ErrDuplicateCode indicates the account code is already taken.
	ErrDuplicateCode = errors.New("ledger: account code already exists")
	// ErrInvalidParent indicates the parent account does not exist.
	ErrInvalidParent = errors.New("ledger: parent account not found")
	// ErrSelfParent indicates an account would become its own ancestor.
	ErrSelfParent = errors.New("ledger: account cannot be its own ancestor")
	// ErrHasChildren blocks deleting an account with child accounts.
	ErrHasChildren = errors.New("ledger: account has child accounts")
	// ErrReferenced blocks deleting an account referenced by journal entries.
	ErrReferenced = errors.New("ledger: account referenced by journal entries")
	// ErrAccountNotFound indicates a missing account row.
	ErrAccountNotFound = errors.New("ledger: account not found")

	// ErrUnknownAccount indicates a posting leg names a missing account.
	ErrUnknownAccount = errors.New("ledger: unknown account code")
	// ErrSameAccount indicates debit and credit legs name the same account.
	ErrSameAccount = errors.New("ledger: debit and credit accounts must differ")
	// ErrInvalidAmount indicates a non-positive posting amount.
	ErrInvalidAmount = errors.New("ledger: amount must be positive")
	// ErrPeriodClosed indicates the target fiscal year is closed.
	ErrPeriodClosed = errors.New("ledger: fiscal year is closed")
	// ErrDateOutOfPeriod indicates the entry date falls outside the fiscal year.
	ErrDateOutOfPeriod = errors.New("ledger: date outside fiscal year range")
	// ErrDuplicateEntryNumber indicates an entry number collision.
	ErrDuplicateEntryNumber = errors.New("ledger: entry number already exists")
	// ErrEntryNotFound indicates a missing journal entry.
	ErrEntryNotFound = errors.New("ledger: journal entry not found")
	// ErrSourceAlreadyLinked indicates the source document already posted.
	ErrSourceAlreadyLinked = errors.New("ledger: source document already posted")

	// ErrYearNotFound indicates a missing fiscal year row.
	ErrYearNotFound = errors.New("ledger: fiscal year not found")
	// ErrNoActiveYear indicates no current fiscal year is configured.
	ErrNoActiveYear = errors.New("ledger: no active fiscal year configured")
	// ErrAlreadyClosed indicates the fiscal year was closed before.
	ErrAlreadyClosed = errors.New("ledger: fiscal year already closed")
	// ErrInvalidRange indicates end date is not after start date.
	ErrInvalidRange = errors.New("ledger: end date must be after start date")

	// ErrConfirmRequired indicates a destructive operation was attempted
	// without explicit confirmation.
	ErrConfirmRequired = errors.New("ledger: operation requires explicit confirmation")
	// ErrDuplicateName indicates the fiscal year name is taken.
	ErrDuplicateName = errors.New("ledger: fiscal year name already exists")
	// ErrIsCurrentYear blocks deleting the active fiscal year.
	ErrIsCurrentYear = errors.New("ledger: fiscal year is the current year")
	// ErrHasEntries blocks deleting a fiscal year with journal entries.
	ErrHasEntries = errors.New("ledger: fiscal year has journal entries")
	// ErrNoRetainedEarnings indicates the retained-earnings account is unset or not equity.
	ErrNoRetainedEarnings = errors.New("ledger: retained earnings account not configured")

	// ErrMappingNotFound indicates an account mapping is missing.
	ErrMappingNotFound = errors.New("ledger: account mapping not found")
)
