package sales

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/platform/httpx"
	"github.com/meridian-erp/meridian/internal/shared"
)

// Handler exposes invoice confirmation over JSON.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs the sales handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/invoices/confirm", h.handleConfirm)
}

type invoiceLineRequest struct {
	Description string `json:"description" validate:"max=255"`
	Amount      string `json:"amount" validate:"required"`
	Cost        string `json:"cost"`
}

type confirmInvoiceRequest struct {
	ID    string               `json:"id" validate:"required,uuid"`
	Date  string               `json:"date" validate:"required"`
	Memo  string               `json:"memo" validate:"max=255"`
	Lines []invoiceLineRequest `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be a UUID")
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be formatted YYYY-MM-DD")
		return
	}

	inv := Invoice{
		ID:      id,
		Date:    date,
		Memo:    req.Memo,
		ActorID: shared.ActorFromContext(r.Context()),
	}
	for _, line := range req.Lines {
		amount, err := decimal.NewFromString(line.Amount)
		if err != nil || !amount.IsPositive() {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "line amount must be a positive decimal string")
			return
		}
		cost := decimal.Zero
		if line.Cost != "" {
			if cost, err = decimal.NewFromString(line.Cost); err != nil || cost.IsNegative() {
				httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "line cost must be a non-negative decimal string")
				return
			}
		}
		inv.Lines = append(inv.Lines, InvoiceLine{Description: line.Description, Amount: amount, Cost: cost})
	}

	entries, err := h.service.Confirm(r.Context(), inv)
	if err != nil {
		h.logger.Warn("confirm invoice", slog.String("invoice_id", req.ID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	entryNos := make([]string, 0, len(entries))
	for _, e := range entries {
		entryNos = append(entryNos, e.EntryNo)
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"invoice_id": req.ID,
		"entries":    entryNos,
	})
}
