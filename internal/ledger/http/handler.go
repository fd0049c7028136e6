// Package http exposes the ledger over a JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian/internal/ledger/coa"
	"github.com/meridian-erp/meridian/internal/ledger/fiscal"
	"github.com/meridian-erp/meridian/internal/ledger/mappings"
	"github.com/meridian-erp/meridian/internal/ledger/posting"
	"github.com/meridian-erp/meridian/internal/ledger/statements"
	"github.com/meridian-erp/meridian/internal/observability"
	"github.com/meridian-erp/meridian/internal/platform/httpx"
	"github.com/meridian-erp/meridian/internal/shared"
)

// Notifier signals that ledger-derived views are stale.
type Notifier interface {
	LedgerChanged(ctx context.Context)
}

// Handler wires the ledger JSON endpoints. Handlers own the transaction
// boundary: every mutating request runs its whole unit of work inside a
// single database transaction.
type Handler struct {
	logger     *slog.Logger
	pool       *pgxpool.Pool
	accounts   *coa.Store
	engine     *posting.Engine
	years      *fiscal.Manager
	statements *statements.Service
	mappings   mappings.Repository
	metrics    *observability.Metrics
	notifier   Notifier
	validator  *validator.Validate
}

// HandlerConfig collects the handler's dependencies.
type HandlerConfig struct {
	Logger     *slog.Logger
	Pool       *pgxpool.Pool
	Accounts   *coa.Store
	Engine     *posting.Engine
	Years      *fiscal.Manager
	Statements *statements.Service
	Mappings   mappings.Repository
	Metrics    *observability.Metrics
	Notifier   Notifier
}

// NewHandler constructs the ledger handler.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:     logger,
		pool:       cfg.Pool,
		accounts:   cfg.Accounts,
		engine:     cfg.Engine,
		years:      cfg.Years,
		statements: cfg.Statements,
		mappings:   cfg.Mappings,
		metrics:    cfg.Metrics,
		notifier:   cfg.Notifier,
		validator:  validator.New(),
	}
}

// MountRoutes registers the ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/accounts", func(r chi.Router) {
		r.Get("/", h.handleListAccounts)
		r.Post("/", h.handleCreateAccount)
		r.Get("/{code}", h.handleGetAccount)
		r.Put("/{id}", h.handleUpdateAccount)
		r.Delete("/{id}", h.handleDeleteAccount)
	})
	r.Route("/journal", func(r chi.Router) {
		r.Get("/", h.handleListEntries)
		r.Post("/", h.handlePostEntry)
		r.Get("/{id}", h.handleGetEntry)
		r.Patch("/{id}", h.handleUpdateEntry)
		r.Delete("/{id}", h.handleDeleteEntry)
		r.Post("/{id}/reverse", h.handleReverseEntry)
	})
	r.Route("/fiscal-years", func(r chi.Router) {
		r.Get("/", h.handleListYears)
		r.Post("/", h.handleCreateYear)
		r.Put("/{id}", h.handleUpdateYear)
		r.Delete("/{id}", h.handleDeleteYear)
		r.Post("/close", h.handleCloseYear)
	})
	r.Route("/settings", func(r chi.Router) {
		r.Get("/", h.handleGetSettings)
		r.Put("/", h.handleUpdateSettings)
	})
	r.Route("/statements", func(r chi.Router) {
		r.Get("/balance-sheet", h.handleBalanceSheet)
		r.Get("/income-statement", h.handleIncomeStatement)
	})
	r.Route("/mappings", func(r chi.Router) {
		r.Get("/{module}", h.handleListMappings)
		r.Put("/{module}/{key}", h.handleUpsertMapping)
	})
}

// notify runs after a committed mutation.
func (h *Handler) notify(ctx context.Context) {
	if h.notifier != nil {
		h.notifier.LedgerChanged(ctx)
	}
}

func (h *Handler) actorID(r *http.Request) int64 {
	return shared.ActorFromContext(r.Context())
}

// urlID parses the {id} route parameter.
func urlID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// queryYearID parses the optional fiscal_year_id query parameter.
func queryYearID(r *http.Request, w http.ResponseWriter) (*int64, bool) {
	raw := r.URL.Query().Get("fiscal_year_id")
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "fiscal_year_id must be a positive integer")
		return nil, false
	}
	return &id, true
}
