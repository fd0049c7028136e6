package http

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/meridian-erp/meridian/internal/ledger/posting"
	"github.com/meridian-erp/meridian/internal/ledger/shared"
	"github.com/meridian-erp/meridian/internal/platform/db"
	"github.com/meridian-erp/meridian/internal/platform/httpx"
)

func (h *Handler) handleListEntries(w http.ResponseWriter, r *http.Request) {
	yearID, ok := queryYearID(r, w)
	if !ok {
		return
	}
	entries, err := h.engine.ListEntries(r.Context(), h.pool, yearID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryViews(entries))
}

func (h *Handler) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be a positive integer")
		return
	}
	entry, err := h.engine.GetEntry(r.Context(), h.pool, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryView(entry))
}

func (h *Handler) handlePostEntry(w http.ResponseWriter, r *http.Request) {
	var req postEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	date, ok := parseDate(req.Date)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be formatted YYYY-MM-DD")
		return
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "amount must be a decimal string")
		return
	}
	sourceID, err := uuid.Parse(req.SourceID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "source_id must be a UUID")
		return
	}

	input := posting.Input{
		Date:         date,
		Description:  req.Description,
		DebitCode:    req.DebitCode,
		CreditCode:   req.CreditCode,
		Amount:       amount,
		EntryNo:      req.EntryNo,
		FiscalYearID: req.FiscalYearID,
		SourceModule: req.SourceModule,
		SourceID:     sourceID,
		PostedBy:     h.actorID(r),
	}
	var entry posting.Entry
	err = db.WithTx(r.Context(), h.pool, func(tx pgx.Tx) error {
		var err error
		entry, err = h.engine.Post(r.Context(), tx, input)
		return err
	})
	if err != nil {
		h.metrics.RecordPostingError(postingErrorReason(err))
		httpx.RespondError(w, err)
		return
	}
	h.metrics.RecordPosting(entry.SourceModule)
	h.notify(r.Context())
	httpx.JSON(w, http.StatusCreated, toEntryView(entry))
}

func (h *Handler) handleReverseEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be a positive integer")
		return
	}
	var req reverseEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	input := posting.ReverseInput{EntryID: id, ActorID: h.actorID(r), Description: req.Description}
	if req.Date != nil {
		date, ok := parseDate(*req.Date)
		if !ok {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be formatted YYYY-MM-DD")
			return
		}
		input.Date = &date
	}

	var entry posting.Entry
	err := db.WithTx(r.Context(), h.pool, func(tx pgx.Tx) error {
		var err error
		entry, err = h.engine.Reverse(r.Context(), tx, input)
		return err
	})
	if err != nil {
		h.metrics.RecordPostingError(postingErrorReason(err))
		httpx.RespondError(w, err)
		return
	}
	h.metrics.RecordPosting(entry.SourceModule)
	h.notify(r.Context())
	httpx.JSON(w, http.StatusCreated, toEntryView(entry))
}

func (h *Handler) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be a positive integer")
		return
	}
	var req updateEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	date, ok := parseDate(req.Date)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be formatted YYYY-MM-DD")
		return
	}
	confirm := r.URL.Query().Get("confirm") == "true"

	var (
		entry   posting.Entry
		warning string
	)
	err := db.WithTx(r.Context(), h.pool, func(tx pgx.Tx) error {
		var err error
		entry, warning, err = h.engine.UpdateEntry(r.Context(), tx, posting.UpdateInput{
			EntryID:     id,
			Date:        date,
			Description: req.Description,
			ActorID:     h.actorID(r),
			Confirm:     confirm,
		})
		return err
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.notify(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]any{
		"entry":   toEntryView(entry),
		"warning": warning,
	})
}

func (h *Handler) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be a positive integer")
		return
	}
	confirm := r.URL.Query().Get("confirm") == "true"

	var warning string
	err := db.WithTx(r.Context(), h.pool, func(tx pgx.Tx) error {
		var err error
		warning, err = h.engine.DeleteEntry(r.Context(), tx, posting.DeleteInput{
			EntryID: id,
			ActorID: h.actorID(r),
			Confirm: confirm,
		})
		return err
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.notify(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]any{"warning": warning})
}

// postingErrorReason labels rejected postings for metrics.
func postingErrorReason(err error) string {
	switch {
	case errors.Is(err, shared.ErrPeriodClosed):
		return "period_closed"
	case errors.Is(err, shared.ErrDateOutOfPeriod):
		return "date_out_of_period"
	case errors.Is(err, shared.ErrUnknownAccount):
		return "unknown_account"
	case errors.Is(err, shared.ErrSameAccount):
		return "same_account"
	case errors.Is(err, shared.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, shared.ErrDuplicateEntryNumber):
		return "duplicate_entry_number"
	case errors.Is(err, shared.ErrSourceAlreadyLinked):
		return "source_already_linked"
	case errors.Is(err, shared.ErrNoActiveYear):
		return "no_active_year"
	default:
		return "other"
	}
}
