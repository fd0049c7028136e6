package coa

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/ledger/shared"
	"github.com/meridian-erp/meridian/internal/platform/db"
)

// Repository persists chart of accounts rows. Mutating methods require a
// caller-owned pgx.Tx; reads accept any querier.
type Repository interface {
	List(ctx context.Context, q db.Querier) ([]Account, error)
	GetByID(ctx context.Context, q db.Querier, id int64) (Account, error)
	GetByCode(ctx context.Context, q db.Querier, code string) (Account, error)
	GetByCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (Account, error)
	Insert(ctx context.Context, tx pgx.Tx, acc Account) (Account, error)
	Update(ctx context.Context, tx pgx.Tx, acc Account) (Account, error)
	Delete(ctx context.Context, tx pgx.Tx, id int64) error
	HasChildren(ctx context.Context, q db.Querier, id int64) (bool, error)
	IsReferenced(ctx context.Context, q db.Querier, code string) (bool, error)
	ApplyBalanceDelta(ctx context.Context, tx pgx.Tx, code string, delta decimal.Decimal) error
}

type repository struct{}

// NewRepository constructs the SQL-backed repository.
func NewRepository() Repository {
	return repository{}
}

const accountColumns = `id, code, name, type, balance::text, parent_id, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	var balance string
	if err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &balance, &a.ParentID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return Account{}, err
	}
	var err error
	a.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return Account{}, err
	}
	return a, nil
}

func (repository) List(ctx context.Context, q db.Querier) ([]Account, error) {
	rows, err := q.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		var a Account
		var balance string
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &balance, &a.ParentID, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		if a.Balance, err = decimal.NewFromString(balance); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (repository) GetByID(ctx context.Context, q db.Querier, id int64) (Account, error) {
	acc, err := scanAccount(q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, shared.ErrAccountNotFound
	}
	return acc, err
}

func (repository) GetByCode(ctx context.Context, q db.Querier, code string) (Account, error) {
	acc, err := scanAccount(q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE code=$1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, shared.ErrAccountNotFound
	}
	return acc, err
}

// GetByCodeForUpdate locks the account row so a concurrent posting to the
// same account cannot produce a lost balance update.
func (repository) GetByCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (Account, error) {
	acc, err := scanAccount(tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE code=$1 FOR UPDATE`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, shared.ErrAccountNotFound
	}
	return acc, err
}

func (repository) Insert(ctx context.Context, tx pgx.Tx, acc Account) (Account, error) {
	// The opening balance is written twice: balance moves with postings,
	// opening_balance stays fixed as the integrity check baseline.
	row := tx.QueryRow(ctx, `INSERT INTO accounts (code, name, type, balance, opening_balance, parent_id)
VALUES ($1,$2,$3,$4,$4,$5) RETURNING `+accountColumns, acc.Code, acc.Name, acc.Type, acc.Balance.String(), acc.ParentID)
	inserted, err := scanAccount(row)
	if err != nil {
		if db.IsUniqueViolation(err, "accounts_code_key") {
			return Account{}, shared.ErrDuplicateCode
		}
		return Account{}, err
	}
	return inserted, nil
}

// Update never writes the balance column; only the posting engine moves
// balances.
func (repository) Update(ctx context.Context, tx pgx.Tx, acc Account) (Account, error) {
	row := tx.QueryRow(ctx, `UPDATE accounts SET code=$2, name=$3, type=$4, parent_id=$5, updated_at=NOW()
WHERE id=$1 RETURNING `+accountColumns, acc.ID, acc.Code, acc.Name, acc.Type, acc.ParentID)
	updated, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrAccountNotFound
		}
		if db.IsUniqueViolation(err, "accounts_code_key") {
			return Account{}, shared.ErrDuplicateCode
		}
		return Account{}, err
	}
	return updated, nil
}

func (repository) Delete(ctx context.Context, tx pgx.Tx, id int64) error {
	cmd, err := tx.Exec(ctx, `DELETE FROM accounts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}

func (repository) HasChildren(ctx context.Context, q db.Querier, id int64) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE parent_id=$1)`, id).Scan(&exists)
	return exists, err
}

func (repository) IsReferenced(ctx context.Context, q db.Querier, code string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM journal_entries WHERE debit_code=$1 OR credit_code=$1)`, code).Scan(&exists)
	return exists, err
}

// ApplyBalanceDelta is the only balance mutation in the system. It runs
// inside the same transaction that inserts the originating journal entry
// so balance and entry log are always co-committed.
func (repository) ApplyBalanceDelta(ctx context.Context, tx pgx.Tx, code string, delta decimal.Decimal) error {
	cmd, err := tx.Exec(ctx, `UPDATE accounts SET balance = balance + $2::numeric, updated_at=NOW() WHERE code=$1`, code, delta.String())
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrUnknownAccount
	}
	return nil
}
