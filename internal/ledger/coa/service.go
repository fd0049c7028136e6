package coa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/ledger/shared"
	"github.com/meridian-erp/meridian/internal/platform/db"
	internalShared "github.com/meridian-erp/meridian/internal/shared"
)

// AuditPort records account-management events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// Store owns account records and the parent/child hierarchy. Balances are
// mutated exclusively through the posting engine via ApplyBalanceDelta.
type Store struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

// NewStore constructs the chart of accounts store.
func NewStore(repo Repository, audit AuditPort) *Store {
	return &Store{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Store) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateInput groups fields for a new account.
type CreateInput struct {
	Code           string
	Name           string
	Type           AccountType
	OpeningBalance decimal.Decimal
	ParentID       *int64
	ActorID        int64
}

// Validate checks input shape before any database call.
func (in CreateInput) Validate() error {
	if strings.TrimSpace(in.Code) == "" {
		return fmt.Errorf("ledger: account code required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("ledger: account name required")
	}
	if !in.Type.Valid() {
		return fmt.Errorf("ledger: unknown account type %q", in.Type)
	}
	return nil
}

// Create inserts a new account, rejecting duplicate codes and missing
// parents.
func (s *Store) Create(ctx context.Context, tx pgx.Tx, in CreateInput) (Account, error) {
	if err := in.Validate(); err != nil {
		return Account{}, err
	}
	if in.ParentID != nil {
		if _, err := s.repo.GetByID(ctx, tx, *in.ParentID); err != nil {
			if errors.Is(err, shared.ErrAccountNotFound) {
				return Account{}, shared.ErrInvalidParent
			}
			return Account{}, err
		}
	}
	acc, err := s.repo.Insert(ctx, tx, Account{
		Code:     strings.TrimSpace(in.Code),
		Name:     strings.TrimSpace(in.Name),
		Type:     in.Type,
		Balance:  in.OpeningBalance,
		ParentID: in.ParentID,
	})
	if err != nil {
		return Account{}, err
	}
	s.record(ctx, in.ActorID, "account.create", acc)
	return acc, nil
}

// UpdateInput groups fields for account management. Balance is absent on
// purpose: account management never moves money.
type UpdateInput struct {
	ID       int64
	Code     string
	Name     string
	Type     AccountType
	ParentID *int64
	ActorID  int64
}

// Update edits code/name/type/parent. The account may not become its own
// ancestor.
func (s *Store) Update(ctx context.Context, tx pgx.Tx, in UpdateInput) (Account, error) {
	if err := (CreateInput{Code: in.Code, Name: in.Name, Type: in.Type}).Validate(); err != nil {
		return Account{}, err
	}
	current, err := s.repo.GetByID(ctx, tx, in.ID)
	if err != nil {
		return Account{}, err
	}
	if in.ParentID != nil {
		if *in.ParentID == in.ID {
			return Account{}, shared.ErrSelfParent
		}
		if _, err := s.repo.GetByID(ctx, tx, *in.ParentID); err != nil {
			if errors.Is(err, shared.ErrAccountNotFound) {
				return Account{}, shared.ErrInvalidParent
			}
			return Account{}, err
		}
		if err := s.ensureNoCycle(ctx, tx, in.ID, *in.ParentID); err != nil {
			return Account{}, err
		}
	}
	current.Code = strings.TrimSpace(in.Code)
	current.Name = strings.TrimSpace(in.Name)
	current.Type = in.Type
	current.ParentID = in.ParentID
	updated, err := s.repo.Update(ctx, tx, current)
	if err != nil {
		return Account{}, err
	}
	s.record(ctx, in.ActorID, "account.update", updated)
	return updated, nil
}

// ensureNoCycle walks the parent chain from the proposed parent; reaching
// the account itself would make it its own ancestor.
func (s *Store) ensureNoCycle(ctx context.Context, q db.Querier, id, parentID int64) error {
	cursor := parentID
	for {
		if cursor == id {
			return shared.ErrSelfParent
		}
		parent, err := s.repo.GetByID(ctx, q, cursor)
		if err != nil {
			if errors.Is(err, shared.ErrAccountNotFound) {
				return nil
			}
			return err
		}
		if parent.ParentID == nil {
			return nil
		}
		cursor = *parent.ParentID
	}
}

// Delete removes an account that has no children and no journal history.
func (s *Store) Delete(ctx context.Context, tx pgx.Tx, id, actorID int64) error {
	acc, err := s.repo.GetByID(ctx, tx, id)
	if err != nil {
		return err
	}
	children, err := s.repo.HasChildren(ctx, tx, id)
	if err != nil {
		return err
	}
	if children {
		return shared.ErrHasChildren
	}
	referenced, err := s.repo.IsReferenced(ctx, tx, acc.Code)
	if err != nil {
		return err
	}
	if referenced {
		return shared.ErrReferenced
	}
	if err := s.repo.Delete(ctx, tx, id); err != nil {
		return err
	}
	s.record(ctx, actorID, "account.delete", acc)
	return nil
}

// List returns all accounts ordered by code, each annotated with its
// rolled-up balance.
func (s *Store) List(ctx context.Context, q db.Querier) ([]AccountNode, error) {
	accounts, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return Rollup(accounts)
}

// GetByCode loads a single account.
func (s *Store) GetByCode(ctx context.Context, q db.Querier, code string) (Account, error) {
	return s.repo.GetByCode(ctx, q, code)
}

func (s *Store) record(ctx context.Context, actorID int64, action string, acc Account) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, internalShared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "account",
		EntityID: fmt.Sprintf("%d", acc.ID),
		Meta: map[string]any{
			"code": acc.Code,
			"type": string(acc.Type),
		},
		At: s.now(),
	})
}
