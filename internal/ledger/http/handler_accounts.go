package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/ledger/coa"
	"github.com/meridian-erp/meridian/internal/platform/db"
	"github.com/meridian-erp/meridian/internal/platform/httpx"
)

func (h *Handler) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.accounts.List(r.Context(), h.pool)
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]accountView, 0, len(nodes))
	for _, n := range nodes {
		views = append(views, toAccountNodeView(n))
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.GetByCode(r.Context(), h.pool, chi.URLParam(r, "code"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountView(account))
}

func (h *Handler) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	opening := decimal.Zero
	if req.OpeningBalance != "" {
		var ok bool
		if opening, ok = parseAmount(req.OpeningBalance); !ok {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "opening_balance must be a decimal string")
			return
		}
	}

	var account coa.Account
	err := db.WithTx(r.Context(), h.pool, func(tx pgx.Tx) error {
		var err error
		account, err = h.accounts.Create(r.Context(), tx, coa.CreateInput{
			Code:           req.Code,
			Name:           req.Name,
			Type:           coa.AccountType(req.Type),
			OpeningBalance: opening,
			ParentID:       req.ParentID,
			ActorID:        h.actorID(r),
		})
		return err
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.notify(r.Context())
	httpx.JSON(w, http.StatusCreated, toAccountView(account))
}

func (h *Handler) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be a positive integer")
		return
	}
	var req updateAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	var account coa.Account
	err := db.WithTx(r.Context(), h.pool, func(tx pgx.Tx) error {
		var err error
		account, err = h.accounts.Update(r.Context(), tx, coa.UpdateInput{
			ID:       id,
			Code:     req.Code,
			Name:     req.Name,
			Type:     coa.AccountType(req.Type),
			ParentID: req.ParentID,
			ActorID:  h.actorID(r),
		})
		return err
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.notify(r.Context())
	httpx.JSON(w, http.StatusOK, toAccountView(account))
}

func (h *Handler) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be a positive integer")
		return
	}
	err := db.WithTx(r.Context(), h.pool, func(tx pgx.Tx) error {
		return h.accounts.Delete(r.Context(), tx, id, h.actorID(r))
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.notify(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
