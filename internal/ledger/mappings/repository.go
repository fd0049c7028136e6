package mappings

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/meridian-erp/meridian/internal/ledger/shared"
	"github.com/meridian-erp/meridian/internal/platform/db"
)

// Repository resolves and stores account mappings.
type Repository interface {
	Get(ctx context.Context, q db.Querier, module, key string) (AccountMapping, error)
	Upsert(ctx context.Context, tx pgx.Tx, mapping AccountMapping) error
	ListByModule(ctx context.Context, q db.Querier, module string) ([]AccountMapping, error)
}

type repository struct{}

// NewRepository constructs the SQL-backed repository.
func NewRepository() Repository {
	return repository{}
}

func (repository) Get(ctx context.Context, q db.Querier, module, key string) (AccountMapping, error) {
	if module == "" || key == "" {
		return AccountMapping{}, errors.New("ledger: mapping module and key required")
	}
	var m AccountMapping
	err := q.QueryRow(ctx, `SELECT module, key, account_code, created_at, updated_at FROM account_mappings WHERE module=$1 AND key=$2`,
		strings.ToUpper(module), key).
		Scan(&m.Module, &m.Key, &m.Code, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return AccountMapping{}, shared.ErrMappingNotFound
	}
	if err != nil {
		return AccountMapping{}, err
	}
	return m, nil
}

func (repository) Upsert(ctx context.Context, tx pgx.Tx, mapping AccountMapping) error {
	_, err := tx.Exec(ctx, `INSERT INTO account_mappings (module, key, account_code)
VALUES ($1,$2,$3)
ON CONFLICT (module, key) DO UPDATE SET account_code=$3, updated_at=NOW()`,
		strings.ToUpper(mapping.Module), mapping.Key, mapping.Code)
	return err
}

func (repository) ListByModule(ctx context.Context, q db.Querier, module string) ([]AccountMapping, error) {
	rows, err := q.Query(ctx, `SELECT module, key, account_code, created_at, updated_at FROM account_mappings WHERE module=$1 ORDER BY key`,
		strings.ToUpper(module))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountMapping
	for rows.Next() {
		var m AccountMapping
		if err := rows.Scan(&m.Module, &m.Key, &m.Code, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
