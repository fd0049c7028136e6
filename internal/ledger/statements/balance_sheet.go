package statements

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/ledger/coa"
)

// BalanceSheetAccount summarises a root account for one section.
type BalanceSheetAccount struct {
	Code    string          `json:"code"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

// BalanceSheetSection contains the root accounts and total for a
// classification.
type BalanceSheetSection struct {
	Label    string                `json:"label"`
	Accounts []BalanceSheetAccount `json:"accounts"`
	Total    decimal.Decimal       `json:"total"`
}

// BalanceSheet is the structured balance sheet view.
type BalanceSheet struct {
	Assets                    BalanceSheetSection `json:"assets"`
	Liabilities               BalanceSheetSection `json:"liabilities"`
	Equity                    BalanceSheetSection `json:"equity"`
	TotalAssets               decimal.Decimal     `json:"total_assets"`
	TotalLiabilitiesAndEquity decimal.Decimal     `json:"total_liabilities_and_equity"`
	ReportDate                time.Time           `json:"report_date"`
}

// BuildBalanceSheet partitions root accounts by type using rolled-up
// balances. For an open year the current net income is added to the
// equity total: a presentation-time addition, never a posted amount.
func BuildBalanceSheet(nodes []coa.AccountNode, netIncome decimal.Decimal, includeNetIncome bool, reportDate time.Time) BalanceSheet {
	ids := make(map[int64]struct{}, len(nodes))
	for _, n := range nodes {
		ids[n.ID] = struct{}{}
	}
	isRoot := func(n coa.AccountNode) bool {
		if n.ParentID == nil {
			return true
		}
		_, ok := ids[*n.ParentID]
		return !ok
	}

	assets := BalanceSheetSection{Label: "Assets"}
	liabilities := BalanceSheetSection{Label: "Liabilities"}
	equity := BalanceSheetSection{Label: "Equity"}

	for _, n := range nodes {
		if !isRoot(n) {
			continue
		}
		row := BalanceSheetAccount{Code: n.Code, Name: n.Name, Balance: n.RolledUpBalance}
		switch n.Type {
		case coa.AccountTypeAsset:
			assets.Accounts = append(assets.Accounts, row)
			assets.Total = assets.Total.Add(row.Balance)
		case coa.AccountTypeLiability:
			liabilities.Accounts = append(liabilities.Accounts, row)
			liabilities.Total = liabilities.Total.Add(row.Balance)
		case coa.AccountTypeEquity:
			equity.Accounts = append(equity.Accounts, row)
			equity.Total = equity.Total.Add(row.Balance)
		}
	}

	if includeNetIncome {
		equity.Total = equity.Total.Add(netIncome)
	}

	sortSection := func(s *BalanceSheetSection) {
		sort.Slice(s.Accounts, func(i, j int) bool { return s.Accounts[i].Code < s.Accounts[j].Code })
	}
	sortSection(&assets)
	sortSection(&liabilities)
	sortSection(&equity)

	return BalanceSheet{
		Assets:                    assets,
		Liabilities:               liabilities,
		Equity:                    equity,
		TotalAssets:               assets.Total,
		TotalLiabilitiesAndEquity: liabilities.Total.Add(equity.Total),
		ReportDate:                reportDate,
	}
}
