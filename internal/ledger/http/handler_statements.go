package http

import (
	"net/http"

	"github.com/meridian-erp/meridian/internal/platform/httpx"
)

func (h *Handler) handleBalanceSheet(w http.ResponseWriter, r *http.Request) {
	yearID, ok := queryYearID(r, w)
	if !ok {
		return
	}
	sheet, err := h.statements.CachedBalanceSheet(r.Context(), h.pool, yearID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.metrics.RecordStatement("balance_sheet")
	httpx.JSON(w, http.StatusOK, sheet)
}

func (h *Handler) handleIncomeStatement(w http.ResponseWriter, r *http.Request) {
	yearID, ok := queryYearID(r, w)
	if !ok {
		return
	}
	stmt, err := h.statements.CachedIncomeStatement(r.Context(), h.pool, yearID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.metrics.RecordStatement("income_statement")
	httpx.JSON(w, http.StatusOK, stmt)
}
