package mappings

import "time"

// AccountMapping links a business-module key (e.g. SALES/REVENUE) to a
// ledger account code, so document posting resolves default accounts
// from configuration instead of hard-coding them.
type AccountMapping struct {
	Module    string
	Key       string
	Code      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Well-known mapping keys used by the document modules.
const (
	KeyReceivable = "RECEIVABLE"
	KeyRevenue    = "REVENUE"
	KeyCOGS       = "COGS"
	KeyInventory  = "INVENTORY"
	KeyPayable    = "PAYABLE"
	KeyExpense    = "EXPENSE"
	KeyCash       = "CASH"
)
