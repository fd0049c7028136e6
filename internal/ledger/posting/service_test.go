package posting

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian/internal/ledger/coa"
	"github.com/meridian-erp/meridian/internal/ledger/shared"
	"github.com/meridian-erp/meridian/internal/platform/db"
)

// ============================================================================
// STUBS
// ============================================================================

type stubRepo struct {
	entries  map[int64]Entry
	entryNos map[string]bool
	links    map[string]int64
	nextID   int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		entries:  make(map[int64]Entry),
		entryNos: make(map[string]bool),
		links:    make(map[string]int64),
		nextID:   1,
	}
}

func (r *stubRepo) InsertEntry(ctx context.Context, tx pgx.Tx, entry Entry) (Entry, error) {
	if r.entryNos[entry.EntryNo] {
		return Entry{}, shared.ErrDuplicateEntryNumber
	}
	entry.ID = r.nextID
	entry.CreatedAt = time.Now()
	r.nextID++
	r.entries[entry.ID] = entry
	r.entryNos[entry.EntryNo] = true
	return entry, nil
}

func (r *stubRepo) LinkSource(ctx context.Context, tx pgx.Tx, module string, ref uuid.UUID, entryID int64) error {
	key := module + ":" + ref.String()
	if _, ok := r.links[key]; ok {
		return shared.ErrSourceAlreadyLinked
	}
	r.links[key] = entryID
	return nil
}

func (r *stubRepo) NextDaySequence(ctx context.Context, tx pgx.Tx, date time.Time) (int, error) {
	count := 0
	for _, e := range r.entries {
		if e.Date.Equal(date) {
			count++
		}
	}
	return count + 1, nil
}

func (r *stubRepo) GetEntry(ctx context.Context, q db.Querier, id int64) (Entry, error) {
	e, ok := r.entries[id]
	if !ok {
		return Entry{}, shared.ErrEntryNotFound
	}
	return e, nil
}

func (r *stubRepo) ListEntries(ctx context.Context, q db.Querier, fiscalYearID *int64) ([]Entry, error) {
	var out []Entry
	for _, e := range r.entries {
		if fiscalYearID == nil || e.FiscalYearID == *fiscalYearID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *stubRepo) UpdateEntryHeader(ctx context.Context, tx pgx.Tx, id int64, date time.Time, description string) (Entry, error) {
	e, ok := r.entries[id]
	if !ok {
		return Entry{}, shared.ErrEntryNotFound
	}
	e.Date = date
	e.Description = description
	r.entries[id] = e
	return e, nil
}

func (r *stubRepo) DeleteEntry(ctx context.Context, tx pgx.Tx, id int64) error {
	if _, ok := r.entries[id]; !ok {
		return shared.ErrEntryNotFound
	}
	delete(r.entries, id)
	return nil
}

func (r *stubRepo) ActivityByAccount(ctx context.Context, q db.Querier, fiscalYearID int64) ([]AccountActivity, error) {
	return nil, nil
}

func (r *stubRepo) HasEntriesForYear(ctx context.Context, q db.Querier, fiscalYearID int64) (bool, error) {
	for _, e := range r.entries {
		if e.FiscalYearID == fiscalYearID {
			return true, nil
		}
	}
	return false, nil
}

type stubAccounts struct {
	accounts map[string]coa.Account
	deltas   map[string][]decimal.Decimal
	lockLog  []string
}

func newStubAccounts(accounts ...coa.Account) *stubAccounts {
	s := &stubAccounts{
		accounts: make(map[string]coa.Account),
		deltas:   make(map[string][]decimal.Decimal),
	}
	for _, a := range accounts {
		s.accounts[a.Code] = a
	}
	return s
}

func (s *stubAccounts) GetByCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (coa.Account, error) {
	s.lockLog = append(s.lockLog, code)
	a, ok := s.accounts[code]
	if !ok {
		return coa.Account{}, shared.ErrAccountNotFound
	}
	return a, nil
}

func (s *stubAccounts) ApplyBalanceDelta(ctx context.Context, tx pgx.Tx, code string, delta decimal.Decimal) error {
	a := s.accounts[code]
	a.Balance = a.Balance.Add(delta)
	s.accounts[code] = a
	s.deltas[code] = append(s.deltas[code], delta)
	return nil
}

func (s *stubAccounts) balance(code string) decimal.Decimal {
	return s.accounts[code].Balance
}

type stubPeriods struct {
	periods map[int64]FiscalPeriod
	current *int64
}

func (s *stubPeriods) PeriodForUpdate(ctx context.Context, tx pgx.Tx, id int64) (FiscalPeriod, error) {
	p, ok := s.periods[id]
	if !ok {
		return FiscalPeriod{}, shared.ErrYearNotFound
	}
	return p, nil
}

func (s *stubPeriods) CurrentPeriodForUpdate(ctx context.Context, tx pgx.Tx) (FiscalPeriod, error) {
	if s.current == nil {
		return FiscalPeriod{}, shared.ErrNoActiveYear
	}
	return s.PeriodForUpdate(ctx, tx, *s.current)
}

// ============================================================================
// FIXTURES
// ============================================================================

func openYear2024() *stubPeriods {
	id := int64(1)
	return &stubPeriods{
		periods: map[int64]FiscalPeriod{
			1: {
				ID:        1,
				StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				EndDate:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
			},
		},
		current: &id,
	}
}

func amount(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestEngine(t *testing.T) (*Engine, *stubRepo, *stubAccounts, *stubPeriods) {
	t.Helper()
	repo := newStubRepo()
	accounts := newStubAccounts(
		coa.Account{ID: 1, Code: "1010", Name: "Cash", Type: coa.AccountTypeAsset, Balance: amount("1000.00")},
		coa.Account{ID: 2, Code: "4010", Name: "Sales Revenue", Type: coa.AccountTypeRevenue},
		coa.Account{ID: 3, Code: "5020", Name: "Operating Expenses", Type: coa.AccountTypeExpense},
		coa.Account{ID: 4, Code: "2010", Name: "Accounts Payable", Type: coa.AccountTypeLiability},
	)
	periods := openYear2024()
	engine := NewEngine(repo, accounts, periods, nil)
	return engine, repo, accounts, periods
}

func cashSale(amt string) Input {
	return Input{
		Date:         time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Description:  "Cash sale",
		DebitCode:    "1010",
		CreditCode:   "4010",
		Amount:       amount(amt),
		SourceModule: "SALES",
		SourceID:     uuid.New(),
		PostedBy:     7,
	}
}

// ============================================================================
// TESTS
// ============================================================================

func TestPostAppliesNaturalSignRule(t *testing.T) {
	engine, repo, accounts, _ := newTestEngine(t)

	entry, err := engine.Post(context.Background(), nil, cashSale("150.00"))
	require.NoError(t, err)

	assert.Equal(t, "JE-20240315-0001", entry.EntryNo)
	assert.Equal(t, int64(1), entry.FiscalYearID)

	// Cash is debit-natural: the debit leg increases it.
	assert.True(t, accounts.balance("1010").Equal(amount("1150.00")),
		"cash balance = %s", accounts.balance("1010"))
	// Revenue is credit-natural: the credit leg increases it.
	assert.True(t, accounts.balance("4010").Equal(amount("150.00")),
		"revenue balance = %s", accounts.balance("4010"))

	require.Len(t, repo.links, 1)
}

func TestPostDebitOnCreditNaturalDecreases(t *testing.T) {
	engine, _, accounts, _ := newTestEngine(t)

	// Paying a supplier: debit the liability, credit cash.
	in := cashSale("200.00")
	in.DebitCode = "2010"
	in.CreditCode = "1010"
	_, err := engine.Post(context.Background(), nil, in)
	require.NoError(t, err)

	assert.True(t, accounts.balance("2010").Equal(amount("-200.00")))
	assert.True(t, accounts.balance("1010").Equal(amount("800.00")))
}

func TestPostEntryNumberSequencePerDay(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	first, err := engine.Post(ctx, nil, cashSale("10.00"))
	require.NoError(t, err)
	second, err := engine.Post(ctx, nil, cashSale("20.00"))
	require.NoError(t, err)

	assert.Equal(t, "JE-20240315-0001", first.EntryNo)
	assert.Equal(t, "JE-20240315-0002", second.EntryNo)
}

func TestPostExplicitEntryNumberConflict(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	in := cashSale("10.00")
	in.EntryNo = "JE-20240315-0042"
	_, err := engine.Post(ctx, nil, in)
	require.NoError(t, err)

	dup := cashSale("20.00")
	dup.EntryNo = "JE-20240315-0042"
	_, err = engine.Post(ctx, nil, dup)
	assert.ErrorIs(t, err, shared.ErrDuplicateEntryNumber)
}

func TestPostValidation(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		mutate  func(*Input)
		wantErr error
	}{
		{"same account", func(in *Input) { in.CreditCode = in.DebitCode }, shared.ErrSameAccount},
		{"zero amount", func(in *Input) { in.Amount = decimal.Zero }, shared.ErrInvalidAmount},
		{"negative amount", func(in *Input) { in.Amount = amount("-5.00") }, shared.ErrInvalidAmount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := cashSale("100.00")
			tc.mutate(&in)
			_, err := engine.Post(ctx, nil, in)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestPostUnknownAccount(t *testing.T) {
	engine, _, accounts, _ := newTestEngine(t)

	in := cashSale("100.00")
	in.DebitCode = "9999"
	_, err := engine.Post(context.Background(), nil, in)
	assert.ErrorIs(t, err, shared.ErrUnknownAccount)
	// No balance may move when a leg is unknown.
	assert.True(t, accounts.balance("4010").IsZero())
}

func TestPostClosedPeriod(t *testing.T) {
	engine, _, _, periods := newTestEngine(t)
	p := periods.periods[1]
	p.Closed = true
	periods.periods[1] = p

	_, err := engine.Post(context.Background(), nil, cashSale("100.00"))
	assert.ErrorIs(t, err, shared.ErrPeriodClosed)
}

func TestPostDateOutOfPeriod(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)

	in := cashSale("100.00")
	in.Date = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := engine.Post(context.Background(), nil, in)
	assert.ErrorIs(t, err, shared.ErrDateOutOfPeriod)
}

func TestPostNoActiveYear(t *testing.T) {
	engine, _, _, periods := newTestEngine(t)
	periods.current = nil

	_, err := engine.Post(context.Background(), nil, cashSale("100.00"))
	assert.ErrorIs(t, err, shared.ErrNoActiveYear)
}

func TestPostExplicitFiscalYear(t *testing.T) {
	engine, _, _, periods := newTestEngine(t)
	periods.periods[2] = FiscalPeriod{
		ID:        2,
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
	}

	in := cashSale("100.00")
	in.Date = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	yearID := int64(2)
	in.FiscalYearID = &yearID

	entry, err := engine.Post(context.Background(), nil, in)
	require.NoError(t, err)
	assert.Equal(t, int64(2), entry.FiscalYearID)
}

func TestPostSourceIdempotency(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	in := cashSale("100.00")
	_, err := engine.Post(ctx, nil, in)
	require.NoError(t, err)

	// Same document reference posted again trips the source link.
	_, err = engine.Post(ctx, nil, in)
	assert.ErrorIs(t, err, shared.ErrSourceAlreadyLinked)
}

func TestPostLocksAccountsInCodeOrder(t *testing.T) {
	engine, _, accounts, _ := newTestEngine(t)

	// Credit code sorts before the debit code.
	in := cashSale("100.00")
	in.DebitCode = "5020"
	in.CreditCode = "1010"
	_, err := engine.Post(context.Background(), nil, in)
	require.NoError(t, err)

	assert.Equal(t, []string{"1010", "5020"}, accounts.lockLog)
}

func TestReversePostsSwappedLegs(t *testing.T) {
	engine, _, accounts, _ := newTestEngine(t)
	ctx := context.Background()

	original, err := engine.Post(ctx, nil, cashSale("250.00"))
	require.NoError(t, err)

	reversal, err := engine.Reverse(ctx, nil, ReverseInput{EntryID: original.ID, ActorID: 7})
	require.NoError(t, err)

	assert.Equal(t, original.CreditCode, reversal.DebitCode)
	assert.Equal(t, original.DebitCode, reversal.CreditCode)
	assert.True(t, reversal.Amount.Equal(original.Amount))
	assert.Equal(t, "SALES:REVERSAL", reversal.SourceModule)
	assert.Equal(t, original.FiscalYearID, reversal.FiscalYearID)

	// The pair nets to zero on both accounts.
	assert.True(t, accounts.balance("1010").Equal(amount("1000.00")))
	assert.True(t, accounts.balance("4010").IsZero())
}

func TestReverseMissingEntry(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	_, err := engine.Reverse(context.Background(), nil, ReverseInput{EntryID: 404, ActorID: 1})
	assert.ErrorIs(t, err, shared.ErrEntryNotFound)
}

func TestUpdateEntryWarnsAndKeepsAmounts(t *testing.T) {
	engine, repo, _, _ := newTestEngine(t)
	ctx := context.Background()

	original, err := engine.Post(ctx, nil, cashSale("99.00"))
	require.NoError(t, err)

	newDate := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	_, _, err = engine.UpdateEntry(ctx, nil, UpdateInput{
		EntryID: original.ID,
		Date:    newDate,
		ActorID: 7,
	})
	assert.ErrorIs(t, err, shared.ErrConfirmRequired)

	updated, warning, err := engine.UpdateEntry(ctx, nil, UpdateInput{
		EntryID:     original.ID,
		Date:        newDate,
		Description: "corrected memo",
		ActorID:     7,
		Confirm:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, BalanceDesyncWarning, warning)
	assert.Equal(t, "corrected memo", updated.Description)
	assert.True(t, updated.Amount.Equal(original.Amount))
	assert.Equal(t, original.DebitCode, updated.DebitCode)

	stored := repo.entries[original.ID]
	assert.True(t, stored.Date.Equal(newDate))
}

func TestUpdateEntryKeepsDateInPeriod(t *testing.T) {
	engine, repo, _, _ := newTestEngine(t)
	ctx := context.Background()

	original, err := engine.Post(ctx, nil, cashSale("99.00"))
	require.NoError(t, err)

	// A confirmed edit still may not move the entry outside its year.
	_, _, err = engine.UpdateEntry(ctx, nil, UpdateInput{
		EntryID: original.ID,
		Date:    time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC),
		ActorID: 7,
		Confirm: true,
	})
	assert.ErrorIs(t, err, shared.ErrDateOutOfPeriod)

	stored := repo.entries[original.ID]
	assert.True(t, stored.Date.Equal(original.Date))
	assert.Equal(t, original.FiscalYearID, stored.FiscalYearID)
}

func TestUpdateEntryClosedYearRejected(t *testing.T) {
	engine, _, _, periods := newTestEngine(t)
	ctx := context.Background()

	original, err := engine.Post(ctx, nil, cashSale("50.00"))
	require.NoError(t, err)

	p := periods.periods[1]
	p.Closed = true
	periods.periods[1] = p

	_, _, err = engine.UpdateEntry(ctx, nil, UpdateInput{
		EntryID: original.ID,
		Date:    time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		ActorID: 7,
		Confirm: true,
	})
	assert.ErrorIs(t, err, shared.ErrPeriodClosed)
}

func TestPostTrimsAccountCodes(t *testing.T) {
	engine, _, accounts, _ := newTestEngine(t)
	ctx := context.Background()

	in := cashSale("25.00")
	in.DebitCode = " 1010"
	in.CreditCode = "4010 "
	entry, err := engine.Post(ctx, nil, in)
	require.NoError(t, err)
	assert.Equal(t, "1010", entry.DebitCode)
	assert.Equal(t, "4010", entry.CreditCode)
	assert.True(t, accounts.balance("1010").Equal(amount("1025.00")))

	// Whitespace must not disguise the same account on both legs.
	dup := cashSale("25.00")
	dup.DebitCode = " 1010"
	dup.CreditCode = "1010"
	_, err = engine.Post(ctx, nil, dup)
	assert.ErrorIs(t, err, shared.ErrSameAccount)
}

func TestDeleteEntryRequiresConfirmation(t *testing.T) {
	engine, repo, _, _ := newTestEngine(t)
	ctx := context.Background()

	entry, err := engine.Post(ctx, nil, cashSale("10.00"))
	require.NoError(t, err)

	_, err = engine.DeleteEntry(ctx, nil, DeleteInput{EntryID: entry.ID, ActorID: 7})
	assert.ErrorIs(t, err, shared.ErrConfirmRequired)
	assert.Contains(t, repo.entries, entry.ID)

	warning, err := engine.DeleteEntry(ctx, nil, DeleteInput{EntryID: entry.ID, ActorID: 7, Confirm: true})
	require.NoError(t, err)
	assert.Equal(t, BalanceDesyncWarning, warning)
	assert.NotContains(t, repo.entries, entry.ID)
}

func TestFormatEntryNo(t *testing.T) {
	date := time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "JE-20240704-0007", FormatEntryNo(date, 7))
	assert.Equal(t, fmt.Sprintf("JE-20240704-%04d", 12345), FormatEntryNo(date, 12345))
}
