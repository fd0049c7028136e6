// Package expenses records cash expense claims in the ledger.
package expenses

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/ledger/mappings"
	"github.com/meridian-erp/meridian/internal/ledger/posting"
	"github.com/meridian-erp/meridian/internal/platform/db"
)

// PostingPort is the ledger posting primitive.
type PostingPort interface {
	Post(ctx context.Context, tx pgx.Tx, in posting.Input) (posting.Entry, error)
}

// MappingPort resolves configured default account codes.
type MappingPort interface {
	Get(ctx context.Context, q db.Querier, module, key string) (mappings.AccountMapping, error)
}

// Notifier signals that ledger-derived views are stale.
type Notifier interface {
	LedgerChanged(ctx context.Context)
}

// Claim is an approved expense claim paid from cash.
type Claim struct {
	ID          uuid.UUID
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	ActorID     int64
}

// Validate checks claim shape before opening a transaction.
func (c Claim) Validate() error {
	if c.ID == uuid.Nil {
		return errors.New("expenses: claim id required")
	}
	if c.Date.IsZero() {
		return errors.New("expenses: claim date required")
	}
	if !c.Amount.IsPositive() {
		return errors.New("expenses: claim amount must be positive")
	}
	return nil
}

// Service posts approved expense claims.
type Service struct {
	pool     *pgxpool.Pool
	poster   PostingPort
	mappings MappingPort
	notifier Notifier
}

// NewService constructs the expenses posting service.
func NewService(pool *pgxpool.Pool, poster PostingPort, mappings MappingPort, notifier Notifier) *Service {
	return &Service{pool: pool, poster: poster, mappings: mappings, notifier: notifier}
}

// Approve posts the claim, debiting the configured expense account and
// crediting cash.
func (s *Service) Approve(ctx context.Context, claim Claim) (posting.Entry, error) {
	if err := claim.Validate(); err != nil {
		return posting.Entry{}, err
	}
	var entry posting.Entry
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		entry, err = s.PostDocument(ctx, tx, claim)
		return err
	})
	if err != nil {
		return posting.Entry{}, err
	}
	if s.notifier != nil {
		s.notifier.LedgerChanged(ctx)
	}
	return entry, nil
}

// PostDocument posts the claim's entry into a caller-owned transaction.
func (s *Service) PostDocument(ctx context.Context, tx pgx.Tx, claim Claim) (posting.Entry, error) {
	expense, err := s.mappings.Get(ctx, tx, "EXPENSES", mappings.KeyExpense)
	if err != nil {
		return posting.Entry{}, err
	}
	cash, err := s.mappings.Get(ctx, tx, "EXPENSES", mappings.KeyCash)
	if err != nil {
		return posting.Entry{}, err
	}
	return s.poster.Post(ctx, tx, posting.Input{
		Date:         claim.Date,
		Description:  claimDescription(claim),
		DebitCode:    expense.Code,
		CreditCode:   cash.Code,
		Amount:       claim.Amount,
		SourceModule: "EXPENSES",
		SourceID:     claim.ID,
		PostedBy:     claim.ActorID,
	})
}

func claimDescription(c Claim) string {
	if c.Description != "" {
		return c.Description
	}
	return fmt.Sprintf("Expense claim %s", c.ID)
}
