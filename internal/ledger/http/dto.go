package http

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/ledger/coa"
	"github.com/meridian-erp/meridian/internal/ledger/fiscal"
	"github.com/meridian-erp/meridian/internal/ledger/mappings"
	"github.com/meridian-erp/meridian/internal/ledger/posting"
)

const dateLayout = "2006-01-02"

type createAccountRequest struct {
	Code           string `json:"code" validate:"required,max=32"`
	Name           string `json:"name" validate:"required,max=255"`
	Type           string `json:"type" validate:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	OpeningBalance string `json:"opening_balance"`
	ParentID       *int64 `json:"parent_id" validate:"omitempty,gt=0"`
}

type updateAccountRequest struct {
	Code     string `json:"code" validate:"required,max=32"`
	Name     string `json:"name" validate:"required,max=255"`
	Type     string `json:"type" validate:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	ParentID *int64 `json:"parent_id" validate:"omitempty,gt=0"`
}

type postEntryRequest struct {
	Date         string `json:"date" validate:"required"`
	Description  string `json:"description" validate:"max=500"`
	DebitCode    string `json:"debit_code" validate:"required"`
	CreditCode   string `json:"credit_code" validate:"required"`
	Amount       string `json:"amount" validate:"required"`
	EntryNo      string `json:"entry_no"`
	FiscalYearID *int64 `json:"fiscal_year_id" validate:"omitempty,gt=0"`
	SourceModule string `json:"source_module" validate:"required,max=32"`
	SourceID     string `json:"source_id" validate:"required,uuid"`
}

type updateEntryRequest struct {
	Date        string `json:"date" validate:"required"`
	Description string `json:"description" validate:"max=500"`
}

type reverseEntryRequest struct {
	Description string  `json:"description" validate:"max=500"`
	Date        *string `json:"date"`
}

type yearRequest struct {
	Name      string `json:"name" validate:"required,max=64"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
}

type settingsRequest struct {
	CurrentFiscalYearID  *int64 `json:"current_fiscal_year_id" validate:"omitempty,gt=0"`
	RetainedEarningsCode string `json:"retained_earnings_code" validate:"required,max=32"`
}

type upsertMappingRequest struct {
	Code string `json:"code" validate:"required,max=32"`
}

type accountView struct {
	ID              int64  `json:"id"`
	Code            string `json:"code"`
	Name            string `json:"name"`
	Type            string `json:"type"`
	Balance         string `json:"balance"`
	RolledUpBalance string `json:"rolled_up_balance,omitempty"`
	ParentID        *int64 `json:"parent_id,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

func toAccountView(a coa.Account) accountView {
	return accountView{
		ID:        a.ID,
		Code:      a.Code,
		Name:      a.Name,
		Type:      string(a.Type),
		Balance:   a.Balance.String(),
		ParentID:  a.ParentID,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
		UpdatedAt: a.UpdatedAt.Format(time.RFC3339),
	}
}

func toAccountNodeView(n coa.AccountNode) accountView {
	view := toAccountView(n.Account)
	view.RolledUpBalance = n.RolledUpBalance.String()
	return view
}

type entryView struct {
	ID           int64  `json:"id"`
	EntryNo      string `json:"entry_no"`
	Date         string `json:"date"`
	Description  string `json:"description"`
	DebitCode    string `json:"debit_code"`
	CreditCode   string `json:"credit_code"`
	Amount       string `json:"amount"`
	FiscalYearID int64  `json:"fiscal_year_id"`
	SourceModule string `json:"source_module"`
	SourceID     string `json:"source_id"`
	PostedBy     int64  `json:"posted_by,omitempty"`
	CreatedAt    string `json:"created_at"`
}

func toEntryView(e posting.Entry) entryView {
	view := entryView{
		ID:           e.ID,
		EntryNo:      e.EntryNo,
		Date:         e.Date.Format(dateLayout),
		Description:  e.Description,
		DebitCode:    e.DebitCode,
		CreditCode:   e.CreditCode,
		Amount:       e.Amount.String(),
		FiscalYearID: e.FiscalYearID,
		SourceModule: e.SourceModule,
		PostedBy:     e.PostedBy,
		CreatedAt:    e.CreatedAt.Format(time.RFC3339),
	}
	if e.SourceID != uuid.Nil {
		view.SourceID = e.SourceID.String()
	}
	return view
}

func toEntryViews(entries []posting.Entry) []entryView {
	out := make([]entryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryView(e))
	}
	return out
}

type yearView struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Closed    bool   `json:"closed"`
	ClosedAt  string `json:"closed_at,omitempty"`
	ClosedBy  *int64 `json:"closed_by,omitempty"`
}

func toYearView(y fiscal.FiscalYear) yearView {
	view := yearView{
		ID:        y.ID,
		Name:      y.Name,
		StartDate: y.StartDate.Format(dateLayout),
		EndDate:   y.EndDate.Format(dateLayout),
		Closed:    y.Closed,
		ClosedBy:  y.ClosedBy,
	}
	if y.ClosedAt != nil {
		view.ClosedAt = y.ClosedAt.Format(time.RFC3339)
	}
	return view
}

type settingsView struct {
	CurrentFiscalYearID  *int64 `json:"current_fiscal_year_id,omitempty"`
	RetainedEarningsCode string `json:"retained_earnings_code,omitempty"`
}

type closeResultView struct {
	Year           yearView    `json:"year"`
	ClosingEntries []entryView `json:"closing_entries"`
	TotalRevenue   string      `json:"total_revenue"`
	TotalExpense   string      `json:"total_expense"`
	NetIncome      string      `json:"net_income"`
}

func toCloseResultView(res fiscal.CloseResult) closeResultView {
	return closeResultView{
		Year:           toYearView(res.Year),
		ClosingEntries: toEntryViews(res.ClosingEntries),
		TotalRevenue:   res.TotalRevenue.String(),
		TotalExpense:   res.TotalExpense.String(),
		NetIncome:      res.NetIncome.String(),
	}
}

type mappingView struct {
	Module string `json:"module"`
	Key    string `json:"key"`
	Code   string `json:"code"`
}

func toMappingView(m mappings.AccountMapping) mappingView {
	return mappingView{Module: m.Module, Key: m.Key, Code: m.Code}
}

func parseDate(raw string) (time.Time, bool) {
	t, err := time.Parse(dateLayout, raw)
	return t, err == nil
}

func parseAmount(raw string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(raw)
	return d, err == nil
}
