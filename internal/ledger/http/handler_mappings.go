package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/meridian-erp/meridian/internal/ledger/mappings"
	"github.com/meridian-erp/meridian/internal/platform/db"
	"github.com/meridian-erp/meridian/internal/platform/httpx"
)

func (h *Handler) handleListMappings(w http.ResponseWriter, r *http.Request) {
	module := chi.URLParam(r, "module")
	rows, err := h.mappings.ListByModule(r.Context(), h.pool, module)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	views := make([]mappingView, 0, len(rows))
	for _, m := range rows {
		views = append(views, toMappingView(m))
	}
	httpx.JSON(w, http.StatusOK, views)
}

// handleUpsertMapping binds a module/key slot to an existing account.
func (h *Handler) handleUpsertMapping(w http.ResponseWriter, r *http.Request) {
	module := strings.ToUpper(chi.URLParam(r, "module"))
	key := strings.ToUpper(chi.URLParam(r, "key"))
	var req upsertMappingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	mapping := mappings.AccountMapping{Module: module, Key: key, Code: req.Code}
	err := db.WithTx(r.Context(), h.pool, func(tx pgx.Tx) error {
		// The account must exist before it can back a mapping slot.
		if _, err := h.accounts.GetByCode(r.Context(), tx, req.Code); err != nil {
			return err
		}
		return h.mappings.Upsert(r.Context(), tx, mapping)
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toMappingView(mapping))
}
