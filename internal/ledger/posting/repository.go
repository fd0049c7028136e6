package posting

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/ledger/shared"
	"github.com/meridian-erp/meridian/internal/platform/db"
)

// Repository persists journal entries. Mutations require a caller-owned
// pgx.Tx.
type Repository interface {
	InsertEntry(ctx context.Context, tx pgx.Tx, entry Entry) (Entry, error)
	LinkSource(ctx context.Context, tx pgx.Tx, module string, ref uuid.UUID, entryID int64) error
	NextDaySequence(ctx context.Context, tx pgx.Tx, date time.Time) (int, error)
	GetEntry(ctx context.Context, q db.Querier, id int64) (Entry, error)
	ListEntries(ctx context.Context, q db.Querier, fiscalYearID *int64) ([]Entry, error)
	UpdateEntryHeader(ctx context.Context, tx pgx.Tx, id int64, date time.Time, description string) (Entry, error)
	DeleteEntry(ctx context.Context, tx pgx.Tx, id int64) error
	ActivityByAccount(ctx context.Context, q db.Querier, fiscalYearID int64) ([]AccountActivity, error)
	HasEntriesForYear(ctx context.Context, q db.Querier, fiscalYearID int64) (bool, error)
}

type repository struct{}

// NewRepository constructs the SQL-backed repository.
func NewRepository() Repository {
	return repository{}
}

const entryColumns = `id, entry_no, date, description, debit_code, credit_code, amount::text, fiscal_year_id, source_module, source_id, COALESCE(posted_by, 0), created_at`

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	var amount string
	if err := row.Scan(&e.ID, &e.EntryNo, &e.Date, &e.Description, &e.DebitCode, &e.CreditCode, &amount, &e.FiscalYearID, &e.SourceModule, &e.SourceID, &e.PostedBy, &e.CreatedAt); err != nil {
		return Entry{}, err
	}
	var err error
	e.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (repository) InsertEntry(ctx context.Context, tx pgx.Tx, entry Entry) (Entry, error) {
	row := tx.QueryRow(ctx, `INSERT INTO journal_entries (entry_no, date, description, debit_code, credit_code, amount, fiscal_year_id, source_module, source_id, posted_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING `+entryColumns,
		entry.EntryNo, entry.Date, entry.Description, entry.DebitCode, entry.CreditCode, entry.Amount.String(),
		entry.FiscalYearID, entry.SourceModule, entry.SourceID, nullInt(entry.PostedBy))
	inserted, err := scanEntry(row)
	if err != nil {
		if db.IsUniqueViolation(err, "journal_entries_entry_no_key") {
			return Entry{}, shared.ErrDuplicateEntryNumber
		}
		return Entry{}, err
	}
	return inserted, nil
}

func (repository) LinkSource(ctx context.Context, tx pgx.Tx, module string, ref uuid.UUID, entryID int64) error {
	_, err := tx.Exec(ctx, `INSERT INTO source_links (module, ref_id, entry_id) VALUES ($1,$2,$3)`, module, ref, entryID)
	if err != nil {
		if db.IsUniqueViolation(err, "uq_source_links") {
			return shared.ErrSourceAlreadyLinked
		}
		return err
	}
	return nil
}

// NextDaySequence counts committed and in-flight entries for the posting
// date. The unique constraint on entry_no remains the source of truth;
// concurrent generators collide there and retry.
func (repository) NextDaySequence(ctx context.Context, tx pgx.Tx, date time.Time) (int, error) {
	var count int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM journal_entries WHERE date=$1`, date).Scan(&count); err != nil {
		return 0, err
	}
	return count + 1, nil
}

func (repository) GetEntry(ctx context.Context, q db.Querier, id int64) (Entry, error) {
	entry, err := scanEntry(q.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, shared.ErrEntryNotFound
	}
	return entry, err
}

func (repository) ListEntries(ctx context.Context, q db.Querier, fiscalYearID *int64) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries ORDER BY date DESC, entry_no DESC`
	args := []any{}
	if fiscalYearID != nil {
		query = `SELECT ` + entryColumns + ` FROM journal_entries WHERE fiscal_year_id=$1 ORDER BY date DESC, entry_no DESC`
		args = append(args, *fiscalYearID)
	}
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		var amount string
		if err := rows.Scan(&e.ID, &e.EntryNo, &e.Date, &e.Description, &e.DebitCode, &e.CreditCode, &amount, &e.FiscalYearID, &e.SourceModule, &e.SourceID, &e.PostedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (repository) UpdateEntryHeader(ctx context.Context, tx pgx.Tx, id int64, date time.Time, description string) (Entry, error) {
	row := tx.QueryRow(ctx, `UPDATE journal_entries SET date=$2, description=$3 WHERE id=$1 RETURNING `+entryColumns, id, date, description)
	entry, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, shared.ErrEntryNotFound
	}
	return entry, err
}

func (repository) DeleteEntry(ctx context.Context, tx pgx.Tx, id int64) error {
	cmd, err := tx.Exec(ctx, `DELETE FROM journal_entries WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrEntryNotFound
	}
	return nil
}

// ActivityByAccount aggregates debit-side and credit-side totals per
// account for one fiscal year. Both the close procedure and the income
// statement read from this query so they can never disagree.
func (repository) ActivityByAccount(ctx context.Context, q db.Querier, fiscalYearID int64) ([]AccountActivity, error) {
	rows, err := q.Query(ctx, `
SELECT a.code, a.name, a.type,
       COALESCE(SUM(e.amount) FILTER (WHERE e.debit_code = a.code), 0)::text,
       COALESCE(SUM(e.amount) FILTER (WHERE e.credit_code = a.code), 0)::text
FROM accounts a
JOIN journal_entries e ON e.fiscal_year_id = $1 AND (e.debit_code = a.code OR e.credit_code = a.code)
GROUP BY a.code, a.name, a.type
ORDER BY a.code`, fiscalYearID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountActivity
	for rows.Next() {
		var act AccountActivity
		var debit, credit string
		if err := rows.Scan(&act.Code, &act.Name, &act.Type, &debit, &credit); err != nil {
			return nil, err
		}
		if act.Debit, err = decimal.NewFromString(debit); err != nil {
			return nil, err
		}
		if act.Credit, err = decimal.NewFromString(credit); err != nil {
			return nil, err
		}
		out = append(out, act)
	}
	return out, rows.Err()
}

func (repository) HasEntriesForYear(ctx context.Context, q db.Querier, fiscalYearID int64) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM journal_entries WHERE fiscal_year_id=$1)`, fiscalYearID).Scan(&exists)
	return exists, err
}

func nullInt(val int64) any {
	if val == 0 {
		return nil
	}
	return val
}
