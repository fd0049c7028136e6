// Package sales records the monetary side of confirmed sales documents.
// Stock quantities belong to the inventory module; only the ledger
// postings happen here.
package sales

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

// InvoiceLine is one billable line. Cost is the optional cost of goods
// for the line; zero means no COGS posting.
type InvoiceLine struct {
	Description string
	Amount      decimal.Decimal
	Cost        decimal.Decimal
}

// Invoice is a confirmed sales document ready for posting.
type Invoice struct {
	ID      uuid.UUID
	Date    time.Time
	Memo    string
	Lines   []InvoiceLine
	ActorID int64
}

// Validate checks document shape before opening a transaction.
func (inv Invoice) Validate() error {
	if inv.ID == uuid.Nil {
		return errors.New("sales: invoice id required")
	}
	if inv.Date.IsZero() {
		return errors.New("sales: invoice date required")
	}
	if len(inv.Lines) == 0 {
		return errors.New("sales: invoice requires at least one line")
	}
	for i, line := range inv.Lines {
		if !line.Amount.IsPositive() {
			return fmt.Errorf("sales: line %d amount must be positive", i)
		}
		if line.Cost.IsNegative() {
			return fmt.Errorf("sales: line %d cost cannot be negative", i)
		}
	}
	return nil
}

// Service posts the accounting impact of sales documents. It owns the
// document transaction: all entries for one invoice post-or-fail as one
// unit.
type Service struct {
	pool     *pgxpool.Pool
	poster   PostingPort
	mappings MappingPort
	notifier Notifier
}

// NewService constructs the sales posting service.
func NewService(pool *pgxpool.Pool, poster PostingPort, mappings MappingPort, notifier Notifier) *Service {
	return &Service{pool: pool, poster: poster, mappings: mappings, notifier: notifier}
}

// Confirm posts every line of the invoice inside one transaction:
// receivable/revenue for the billed amount, and COGS/inventory for lines
// carrying a cost.
func (s *Service) Confirm(ctx context.Context, inv Invoice) ([]posting.Entry, error) {
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	var entries []posting.Entry
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		entries, err = s.PostDocument(ctx, tx, inv)
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

// PostDocument posts the invoice's entries into a caller-owned
// transaction. Exposed so larger workflows can chain several documents
// under one transaction.
func (s *Service) PostDocument(ctx context.Context, tx pgx.Tx, inv Invoice) ([]posting.Entry, error) {
	receivable, err := s.mappings.Get(ctx, tx, "SALES", mappings.KeyReceivable)
	if err != nil {
		return nil, err
	}
	revenue, err := s.mappings.Get(ctx, tx, "SALES", mappings.KeyRevenue)
	if err != nil {
		return nil, err
	}

	var entries []posting.Entry
	for i, line := range inv.Lines {
		entry, err := s.poster.Post(ctx, tx, posting.Input{
			Date:         inv.Date,
			Description:  lineDescription(inv.Memo, line.Description, i),
			DebitCode:    receivable.Code,
			CreditCode:   revenue.Code,
			Amount:       line.Amount,
			SourceModule: "SALES",
			SourceID:     lineSourceID(inv.ID, i, "REV"),
			PostedBy:     inv.ActorID,
		})
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)

		if line.Cost.IsPositive() {
			cogs, err := s.mappings.Get(ctx, tx, "SALES", mappings.KeyCOGS)
			if err != nil {
				return nil, err
			}
			inventory, err := s.mappings.Get(ctx, tx, "SALES", mappings.KeyInventory)
			if err != nil {
				return nil, err
			}
			costEntry, err := s.poster.Post(ctx, tx, posting.Input{
				Date:         inv.Date,
				Description:  lineDescription(inv.Memo, line.Description, i) + " (cost)",
				DebitCode:    cogs.Code,
				CreditCode:   inventory.Code,
				Amount:       line.Cost,
				SourceModule: "SALES",
				SourceID:     lineSourceID(inv.ID, i, "COGS"),
				PostedBy:     inv.ActorID,
			})
			if err != nil {
				return nil, err
			}
			entries = append(entries, costEntry)
		}
	}
	return entries, nil
}

func lineDescription(memo, desc string, idx int) string {
	if desc != "" {
		return desc
	}
	if memo != "" {
		return memo
	}
	return fmt.Sprintf("Sales invoice line %d", idx+1)
}

// lineSourceID derives a stable per-leg uuid from the document id so a
// re-confirmed invoice trips the source-link constraint instead of
// posting twice.
func lineSourceID(docID uuid.UUID, idx int, leg string) uuid.UUID {
	return uuid.NewSHA1(docID, []byte(fmt.Sprintf("%s:%d", leg, idx)))
}
