package statements

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian/internal/ledger/posting"
)

func fy2024Period() Period {
	return Period{
		FiscalYearID: 1,
		Name:         "FY2024",
		StartDate:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestBuildIncomeStatement(t *testing.T) {
	activity := []posting.AccountActivity{
		{Code: "4010", Name: "Sales Revenue", Type: "REVENUE", Debit: dec("50.00"), Credit: dec("950.00")},
		{Code: "5010", Name: "Cost of Goods Sold", Type: "EXPENSE", Debit: dec("400.00"), Credit: dec("0")},
		{Code: "5020", Name: "Rent Expense", Type: "EXPENSE", Debit: dec("150.00"), Credit: dec("10.00")},
		{Code: "1010", Name: "Cash", Type: "ASSET", Debit: dec("900.00"), Credit: dec("550.00")},
	}

	stmt := BuildIncomeStatement(activity, fy2024Period())

	require.Len(t, stmt.Revenue.Accounts, 1)
	assert.True(t, stmt.Revenue.Accounts[0].Amount.Equal(dec("900.00")))
	assert.True(t, stmt.Revenue.Total.Equal(dec("900.00")))

	require.Len(t, stmt.Expense.Accounts, 2)
	assert.True(t, stmt.Expense.Accounts[0].Amount.Equal(dec("400.00")))
	assert.True(t, stmt.Expense.Accounts[1].Amount.Equal(dec("140.00")))
	assert.True(t, stmt.Expense.Total.Equal(dec("540.00")))

	assert.True(t, stmt.NetIncome.Equal(dec("360.00")))
	assert.Equal(t, "FY2024", stmt.Period.Name)
}

func TestBuildIncomeStatementIgnoresBalanceSheetAccounts(t *testing.T) {
	activity := []posting.AccountActivity{
		{Code: "1010", Name: "Cash", Type: "ASSET", Debit: dec("500.00")},
		{Code: "2010", Name: "Accounts Payable", Type: "LIABILITY", Credit: dec("500.00")},
		{Code: "3010", Name: "Retained Earnings", Type: "EQUITY", Credit: dec("100.00")},
	}

	stmt := BuildIncomeStatement(activity, fy2024Period())
	assert.Empty(t, stmt.Revenue.Accounts)
	assert.Empty(t, stmt.Expense.Accounts)
	assert.True(t, stmt.NetIncome.IsZero())
}

func TestBuildIncomeStatementNetLoss(t *testing.T) {
	activity := []posting.AccountActivity{
		{Code: "4010", Name: "Sales Revenue", Type: "REVENUE", Credit: dec("100.00")},
		{Code: "5020", Name: "Rent Expense", Type: "EXPENSE", Debit: dec("300.00")},
	}

	stmt := BuildIncomeStatement(activity, fy2024Period())
	assert.True(t, stmt.NetIncome.Equal(dec("-200.00")))
}

func TestBuildIncomeStatementSortsByCode(t *testing.T) {
	activity := []posting.AccountActivity{
		{Code: "5030", Name: "Utilities", Type: "EXPENSE", Debit: dec("1.00")},
		{Code: "5010", Name: "Cost of Goods Sold", Type: "EXPENSE", Debit: dec("2.00")},
	}

	stmt := BuildIncomeStatement(activity, fy2024Period())
	require.Len(t, stmt.Expense.Accounts, 2)
	assert.Equal(t, "5010", stmt.Expense.Accounts[0].Code)
	assert.Equal(t, "5030", stmt.Expense.Accounts[1].Code)
}
