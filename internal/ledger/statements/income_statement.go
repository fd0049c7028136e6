package statements

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/ledger/coa"
	"github.com/meridian-erp/meridian/internal/ledger/posting"
)

// IncomeStatementAccount is one revenue or expense line, aggregated from
// journal entries rather than stored balances.
type IncomeStatementAccount struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// IncomeStatementSection groups accounts by nature.
type IncomeStatementSection struct {
	Label    string                   `json:"label"`
	Accounts []IncomeStatementAccount `json:"accounts"`
	Total    decimal.Decimal          `json:"total"`
}

// Period labels the fiscal-year window a statement covers.
type Period struct {
	FiscalYearID int64     `json:"fiscal_year_id"`
	Name         string    `json:"name"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
}

// IncomeStatement is the structured profit and loss view.
type IncomeStatement struct {
	Revenue   IncomeStatementSection `json:"revenue"`
	Expense   IncomeStatementSection `json:"expense"`
	NetIncome decimal.Decimal        `json:"net_income"`
	Period    Period                 `json:"period"`
}

// BuildIncomeStatement aggregates per-account journal activity: Revenue
// accounts contribute their credit-net amount, Expense accounts their
// debit-net amount. Net income = total revenue - total expense.
func BuildIncomeStatement(activity []posting.AccountActivity, period Period) IncomeStatement {
	revenue := IncomeStatementSection{Label: "Revenue"}
	expense := IncomeStatementSection{Label: "Expense"}

	for _, act := range activity {
		switch coa.AccountType(act.Type) {
		case coa.AccountTypeRevenue:
			row := IncomeStatementAccount{Code: act.Code, Name: act.Name, Amount: act.Credit.Sub(act.Debit)}
			revenue.Accounts = append(revenue.Accounts, row)
			revenue.Total = revenue.Total.Add(row.Amount)
		case coa.AccountTypeExpense:
			row := IncomeStatementAccount{Code: act.Code, Name: act.Name, Amount: act.Debit.Sub(act.Credit)}
			expense.Accounts = append(expense.Accounts, row)
			expense.Total = expense.Total.Add(row.Amount)
		}
	}

	sort.Slice(revenue.Accounts, func(i, j int) bool { return revenue.Accounts[i].Code < revenue.Accounts[j].Code })
	sort.Slice(expense.Accounts, func(i, j int) bool { return expense.Accounts[i].Code < expense.Accounts[j].Code })

	return IncomeStatement{
		Revenue:   revenue,
		Expense:   expense,
		NetIncome: revenue.Total.Sub(expense.Total),
		Period:    period,
	}
}
