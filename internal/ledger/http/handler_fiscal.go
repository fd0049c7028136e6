package http

import (
	"net/http"

	"github.com/jackc/pgx/v5"

	"github.com/meridian-erp/meridian/internal/ledger/fiscal"
	"github.com/meridian-erp/meridian/internal/platform/db"
	"github.com/meridian-erp/meridian/internal/platform/httpx"
)

func (h *Handler) handleListYears(w http.ResponseWriter, r *http.Request) {
	years, err := h.years.List(r.Context(), h.pool)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	views := make([]yearView, 0, len(years))
	for _, y := range years {
		views = append(views, toYearView(y))
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) handleCreateYear(w http.ResponseWriter, r *http.Request) {
	var req yearRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	start, ok := parseDate(req.StartDate)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "start_date must be formatted YYYY-MM-DD")
		return
	}
	end, ok := parseDate(req.EndDate)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "end_date must be formatted YYYY-MM-DD")
		return
	}

	var year fiscal.FiscalYear
	err := db.WithTx(r.Context(), h.pool, func(tx pgx.Tx) error {
		var err error
		year, err = h.years.Create(r.Context(), tx, fiscal.CreateInput{
			Name:      req.Name,
			StartDate: start,
			EndDate:   end,
			ActorID:   h.actorID(r),
		})
		return err
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toYearView(year))
}

func (h *Handler) handleUpdateYear(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be a positive integer")
		return
	}
	var req yearRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	start, ok := parseDate(req.StartDate)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "start_date must be formatted YYYY-MM-DD")
		return
	}
	end, ok := parseDate(req.EndDate)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "end_date must be formatted YYYY-MM-DD")
		return
	}

	var year fiscal.FiscalYear
	err := db.WithTx(r.Context(), h.pool, func(tx pgx.Tx) error {
		var err error
		year, err = h.years.Update(r.Context(), tx, fiscal.UpdateInput{
			ID:        id,
			Name:      req.Name,
			StartDate: start,
			EndDate:   end,
			ActorID:   h.actorID(r),
		})
		return err
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toYearView(year))
}

func (h *Handler) handleDeleteYear(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be a positive integer")
		return
	}
	err := db.WithTx(r.Context(), h.pool, func(tx pgx.Tx) error {
		return h.years.Delete(r.Context(), tx, id, h.actorID(r))
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCloseYear runs the period close for the current fiscal year. The
// whole procedure, closing entries included, commits or fails as one
// transaction.
func (h *Handler) handleCloseYear(w http.ResponseWriter, r *http.Request) {
	var result fiscal.CloseResult
	err := db.WithTx(r.Context(), h.pool, func(tx pgx.Tx) error {
		var err error
		result, err = h.years.Close(r.Context(), tx, h.actorID(r))
		return err
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.metrics.RecordYearClose()
	h.notify(r.Context())
	httpx.JSON(w, http.StatusOK, toCloseResultView(result))
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.years.Settings(r.Context(), h.pool)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, settingsView{
		CurrentFiscalYearID:  settings.CurrentFiscalYearID,
		RetainedEarningsCode: settings.RetainedEarningsCode,
	})
}

func (h *Handler) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	settings := fiscal.Settings{
		CurrentFiscalYearID:  req.CurrentFiscalYearID,
		RetainedEarningsCode: req.RetainedEarningsCode,
	}
	err := db.WithTx(r.Context(), h.pool, func(tx pgx.Tx) error {
		return h.years.UpdateSettings(r.Context(), tx, settings, h.actorID(r))
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, settingsView{
		CurrentFiscalYearID:  settings.CurrentFiscalYearID,
		RetainedEarningsCode: settings.RetainedEarningsCode,
	})
}
