package fiscal

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/meridian-erp/meridian/internal/ledger/shared"
	"github.com/meridian-erp/meridian/internal/platform/db"
)

// Repository persists fiscal years and the company accounting settings.
type Repository interface {
	List(ctx context.Context, q db.Querier) ([]FiscalYear, error)
	GetByID(ctx context.Context, q db.Querier, id int64) (FiscalYear, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (FiscalYear, error)
	CurrentForUpdate(ctx context.Context, tx pgx.Tx) (FiscalYear, error)
	Insert(ctx context.Context, tx pgx.Tx, year FiscalYear) (FiscalYear, error)
	Update(ctx context.Context, tx pgx.Tx, year FiscalYear) (FiscalYear, error)
	Delete(ctx context.Context, tx pgx.Tx, id int64) error
	MarkClosed(ctx context.Context, tx pgx.Tx, id, actorID int64, at time.Time) error
	GetSettings(ctx context.Context, q db.Querier) (Settings, error)
	UpdateSettings(ctx context.Context, tx pgx.Tx, settings Settings) error
}

type repository struct{}

// NewRepository constructs the SQL-backed repository.
func NewRepository() Repository {
	return repository{}
}

const yearColumns = `id, name, start_date, end_date, closed, closed_at, closed_by, created_at, updated_at`

func scanYear(row pgx.Row) (FiscalYear, error) {
	var y FiscalYear
	err := row.Scan(&y.ID, &y.Name, &y.StartDate, &y.EndDate, &y.Closed, &y.ClosedAt, &y.ClosedBy, &y.CreatedAt, &y.UpdatedAt)
	return y, err
}

func (repository) List(ctx context.Context, q db.Querier) ([]FiscalYear, error) {
	rows, err := q.Query(ctx, `SELECT `+yearColumns+` FROM fiscal_years ORDER BY start_date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var years []FiscalYear
	for rows.Next() {
		var y FiscalYear
		if err := rows.Scan(&y.ID, &y.Name, &y.StartDate, &y.EndDate, &y.Closed, &y.ClosedAt, &y.ClosedBy, &y.CreatedAt, &y.UpdatedAt); err != nil {
			return nil, err
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

func (repository) GetByID(ctx context.Context, q db.Querier, id int64) (FiscalYear, error) {
	year, err := scanYear(q.QueryRow(ctx, `SELECT `+yearColumns+` FROM fiscal_years WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return FiscalYear{}, shared.ErrYearNotFound
	}
	return year, err
}

func (repository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (FiscalYear, error) {
	year, err := scanYear(tx.QueryRow(ctx, `SELECT `+yearColumns+` FROM fiscal_years WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return FiscalYear{}, shared.ErrYearNotFound
	}
	return year, err
}

// CurrentForUpdate resolves the settings' current year and locks it.
func (repository) CurrentForUpdate(ctx context.Context, tx pgx.Tx) (FiscalYear, error) {
	year, err := scanYear(tx.QueryRow(ctx, `SELECT `+prefixedYearColumns("y")+`
FROM fiscal_years y JOIN company_settings s ON s.current_fiscal_year_id = y.id
FOR UPDATE OF y`))
	if errors.Is(err, pgx.ErrNoRows) {
		return FiscalYear{}, shared.ErrNoActiveYear
	}
	return year, err
}

func (repository) Insert(ctx context.Context, tx pgx.Tx, year FiscalYear) (FiscalYear, error) {
	row := tx.QueryRow(ctx, `INSERT INTO fiscal_years (name, start_date, end_date) VALUES ($1,$2,$3) RETURNING `+yearColumns,
		year.Name, year.StartDate, year.EndDate)
	inserted, err := scanYear(row)
	if err != nil {
		if db.IsUniqueViolation(err, "fiscal_years_name_key") {
			return FiscalYear{}, shared.ErrDuplicateName
		}
		return FiscalYear{}, err
	}
	return inserted, nil
}

func (repository) Update(ctx context.Context, tx pgx.Tx, year FiscalYear) (FiscalYear, error) {
	row := tx.QueryRow(ctx, `UPDATE fiscal_years SET name=$2, start_date=$3, end_date=$4, updated_at=NOW()
WHERE id=$1 RETURNING `+yearColumns, year.ID, year.Name, year.StartDate, year.EndDate)
	updated, err := scanYear(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FiscalYear{}, shared.ErrYearNotFound
		}
		if db.IsUniqueViolation(err, "fiscal_years_name_key") {
			return FiscalYear{}, shared.ErrDuplicateName
		}
		return FiscalYear{}, err
	}
	return updated, nil
}

func (repository) Delete(ctx context.Context, tx pgx.Tx, id int64) error {
	cmd, err := tx.Exec(ctx, `DELETE FROM fiscal_years WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrYearNotFound
	}
	return nil
}

func (repository) MarkClosed(ctx context.Context, tx pgx.Tx, id, actorID int64, at time.Time) error {
	cmd, err := tx.Exec(ctx, `UPDATE fiscal_years SET closed=TRUE, closed_at=$2, closed_by=$3, updated_at=NOW()
WHERE id=$1 AND NOT closed`, id, at, actorID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAlreadyClosed
	}
	return nil
}

// GetSettings loads the single company settings row.
func (repository) GetSettings(ctx context.Context, q db.Querier) (Settings, error) {
	var s Settings
	var retained *string
	err := q.QueryRow(ctx, `SELECT current_fiscal_year_id, retained_earnings_code FROM company_settings WHERE id=1`).
		Scan(&s.CurrentFiscalYearID, &retained)
	if errors.Is(err, pgx.ErrNoRows) {
		return Settings{}, nil
	}
	if err != nil {
		return Settings{}, err
	}
	if retained != nil {
		s.RetainedEarningsCode = *retained
	}
	return s, nil
}

func (repository) UpdateSettings(ctx context.Context, tx pgx.Tx, settings Settings) error {
	var retained *string
	if settings.RetainedEarningsCode != "" {
		retained = &settings.RetainedEarningsCode
	}
	_, err := tx.Exec(ctx, `INSERT INTO company_settings (id, current_fiscal_year_id, retained_earnings_code)
VALUES (1, $1, $2)
ON CONFLICT (id) DO UPDATE SET current_fiscal_year_id=$1, retained_earnings_code=$2, updated_at=NOW()`,
		settings.CurrentFiscalYearID, retained)
	return err
}

func prefixedYearColumns(alias string) string {
	return alias + `.id, ` + alias + `.name, ` + alias + `.start_date, ` + alias + `.end_date, ` +
		alias + `.closed, ` + alias + `.closed_at, ` + alias + `.closed_by, ` + alias + `.created_at, ` + alias + `.updated_at`
}
