package expenses

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

// Handler exposes expense claim approval over JSON.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs the expenses handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers expenses routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/claims/approve", h.handleApprove)
}

type approveClaimRequest struct {
	ID          string `json:"id" validate:"required,uuid"`
	Date        string `json:"date" validate:"required"`
	Description string `json:"description" validate:"max=255"`
	Amount      string `json:"amount" validate:"required"`
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req approveClaimRequest
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
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "amount must be a positive decimal string")
		return
	}

	entry, err := h.service.Approve(r.Context(), Claim{
		ID:          id,
		Date:        date,
		Description: req.Description,
		Amount:      amount,
		ActorID:     shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.logger.Warn("approve claim", slog.String("claim_id", req.ID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"claim_id": req.ID,
		"entry_no": entry.EntryNo,
	})
}
