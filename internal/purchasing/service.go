// Package purchasing records supplier bills in the ledger.
package purchasing

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

// BillLine is one billed line. Stock lines debit inventory instead of
// expense.
type BillLine struct {
	Description string
	Amount      decimal.Decimal
	Stock       bool
}

// Bill is a confirmed supplier bill ready for posting.
type Bill struct {
	ID       uuid.UUID
	Date     time.Time
	Supplier string
	Lines    []BillLine
	ActorID  int64
}

// Validate checks document shape before opening a transaction.
func (b Bill) Validate() error {
	if b.ID == uuid.Nil {
		return errors.New("purchasing: bill id required")
	}
	if b.Date.IsZero() {
		return errors.New("purchasing: bill date required")
	}
	if len(b.Lines) == 0 {
		return errors.New("purchasing: bill requires at least one line")
	}
	for i, line := range b.Lines {
		if !line.Amount.IsPositive() {
			return fmt.Errorf("purchasing: line %d amount must be positive", i)
		}
	}
	return nil
}

// Service posts the accounting impact of supplier bills.
type Service struct {
	pool     *pgxpool.Pool
	poster   PostingPort
	mappings MappingPort
	notifier Notifier
}

// NewService constructs the purchasing posting service.
func NewService(pool *pgxpool.Pool, poster PostingPort, mappings MappingPort, notifier Notifier) *Service {
	return &Service{pool: pool, poster: poster, mappings: mappings, notifier: notifier}
}

// Confirm posts every line of the bill inside one transaction, crediting
// accounts payable against expense or inventory per line.
func (s *Service) Confirm(ctx context.Context, bill Bill) ([]posting.Entry, error) {
	if err := bill.Validate(); err != nil {
		return nil, err
	}
	var entries []posting.Entry
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		entries, err = s.PostDocument(ctx, tx, bill)
		return err
	})
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.LedgerChanged(ctx)
	}
	return entries, nil
}

// PostDocument posts the bill's entries into a caller-owned transaction.
func (s *Service) PostDocument(ctx context.Context, tx pgx.Tx, bill Bill) ([]posting.Entry, error) {
	payable, err := s.mappings.Get(ctx, tx, "PURCHASING", mappings.KeyPayable)
	if err != nil {
		return nil, err
	}

	var entries []posting.Entry
	for i, line := range bill.Lines {
		key := mappings.KeyExpense
		if line.Stock {
			key = mappings.KeyInventory
		}
		debit, err := s.mappings.Get(ctx, tx, "PURCHASING", key)
		if err != nil {
			return nil, err
		}
		entry, err := s.poster.Post(ctx, tx, posting.Input{
			Date:         bill.Date,
			Description:  billDescription(bill, line, i),
			DebitCode:    debit.Code,
			CreditCode:   payable.Code,
			Amount:       line.Amount,
			SourceModule: "PURCHASING",
			SourceID:     uuid.NewSHA1(bill.ID, []byte(fmt.Sprintf("LINE:%d", i))),
			PostedBy:     bill.ActorID,
		})
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func billDescription(bill Bill, line BillLine, idx int) string {
	if line.Description != "" {
		return line.Description
	}
	if bill.Supplier != "" {
		return fmt.Sprintf("Bill from %s, line %d", bill.Supplier, idx+1)
	}
	return fmt.Sprintf("Supplier bill line %d", idx+1)
}
