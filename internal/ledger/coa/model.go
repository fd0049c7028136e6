package coa

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Valid reports whether the value is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	default:
		return false
	}
}

// DebitNatural reports whether the type increases on the debit side.
// Asset and Expense accounts are debit-natural; Liability, Equity, and
// Revenue accounts are credit-natural.
func (t AccountType) DebitNatural() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// DebitDelta returns the signed balance change applied to an account of
// the given type when it takes the debit leg of an entry.
func DebitDelta(t AccountType, amount decimal.Decimal) decimal.Decimal {
	if t.DebitNatural() {
		return amount
	}
	return amount.Neg()
}

// CreditDelta returns the signed balance change applied to an account of
// the given type when it takes the credit leg of an entry.
func CreditDelta(t AccountType, amount decimal.Decimal) decimal.Decimal {
	if t.DebitNatural() {
		return amount.Neg()
	}
	return amount
}

// Account models a chart of accounts node. Balance carries the natural
// sign for the account type and is mutated only by the posting engine.
type Account struct {
	ID        int64
	Code      string
	Name      string
	Type      AccountType
	Balance   decimal.Decimal
	ParentID  *int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AccountNode is an account annotated with its rolled-up balance,
// computed on read and never stored.
type AccountNode struct {
	Account
	RolledUpBalance decimal.Decimal
}
