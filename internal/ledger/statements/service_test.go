package statements

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian/internal/ledger/coa"
	"github.com/meridian-erp/meridian/internal/ledger/fiscal"
	"github.com/meridian-erp/meridian/internal/ledger/posting"
	"github.com/meridian-erp/meridian/internal/ledger/shared"
	"github.com/meridian-erp/meridian/internal/platform/db"
)

type stubAccounts struct {
	nodes []coa.AccountNode
}

func (s *stubAccounts) List(ctx context.Context, q db.Querier) ([]coa.AccountNode, error) {
	return s.nodes, nil
}

type stubYears struct {
	years    map[int64]fiscal.FiscalYear
	settings fiscal.Settings
}

func (s *stubYears) Get(ctx context.Context, q db.Querier, id int64) (fiscal.FiscalYear, error) {
	year, ok := s.years[id]
	if !ok {
		return fiscal.FiscalYear{}, shared.ErrYearNotFound
	}
	return year, nil
}

func (s *stubYears) Settings(ctx context.Context, q db.Querier) (fiscal.Settings, error) {
	return s.settings, nil
}

type stubActivity struct {
	activity []posting.AccountActivity
	err      error
	calls    int
}

func (s *stubActivity) ActivityByAccount(ctx context.Context, q db.Querier, fiscalYearID int64) ([]posting.AccountActivity, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.activity, nil
}

type statementFixture struct {
	service  *Service
	years    *stubYears
	activity *stubActivity
}

func newStatementFixture() *statementFixture {
	currentID := int64(1)
	years := &stubYears{
		years: map[int64]fiscal.FiscalYear{
			1: {
				ID:        1,
				Name:      "FY2024",
				StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				EndDate:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
			},
		},
		settings: fiscal.Settings{CurrentFiscalYearID: &currentID, RetainedEarningsCode: "3010"},
	}
	accounts := &stubAccounts{nodes: []coa.AccountNode{
		{Account: coa.Account{ID: 1, Code: "1000", Name: "Assets", Type: coa.AccountTypeAsset}, RolledUpBalance: decimal.RequireFromString("700.00")},
		{Account: coa.Account{ID: 2, Code: "2000", Name: "Liabilities", Type: coa.AccountTypeLiability}, RolledUpBalance: decimal.RequireFromString("200.00")},
		{Account: coa.Account{ID: 3, Code: "3000", Name: "Equity", Type: coa.AccountTypeEquity}, RolledUpBalance: decimal.RequireFromString("400.00")},
	}}
	activity := &stubActivity{activity: []posting.AccountActivity{
		{Code: "4010", Name: "Sales Revenue", Type: "REVENUE", Credit: decimal.RequireFromString("100.00")},
	}}
	service := NewService(accounts, years, activity)
	return &statementFixture{service: service, years: years, activity: activity}
}

func TestServiceResolvesCurrentYear(t *testing.T) {
	f := newStatementFixture()

	stmt, err := f.service.IncomeStatement(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stmt.Period.FiscalYearID)
	assert.Equal(t, "FY2024", stmt.Period.Name)
}

func TestServiceNoActiveYear(t *testing.T) {
	f := newStatementFixture()
	f.years.settings.CurrentFiscalYearID = nil

	_, err := f.service.IncomeStatement(context.Background(), nil, nil)
	assert.ErrorIs(t, err, shared.ErrNoActiveYear)
}

func TestServiceUnknownExplicitYear(t *testing.T) {
	f := newStatementFixture()
	missing := int64(42)

	_, err := f.service.BalanceSheet(context.Background(), nil, &missing)
	assert.ErrorIs(t, err, shared.ErrYearNotFound)
}

func TestServiceBalanceSheetFoldsOpenYearIncome(t *testing.T) {
	f := newStatementFixture()

	sheet, err := f.service.BalanceSheet(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.True(t, sheet.TotalAssets.Equal(decimal.RequireFromString("700.00")))
	assert.True(t, sheet.Equity.Total.Equal(decimal.RequireFromString("500.00")))
	assert.True(t, sheet.TotalLiabilitiesAndEquity.Equal(sheet.TotalAssets))
}

func TestServiceBalanceSheetClosedYear(t *testing.T) {
	f := newStatementFixture()
	year := f.years.years[1]
	year.Closed = true
	f.years.years[1] = year

	sheet, err := f.service.BalanceSheet(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.True(t, sheet.Equity.Total.Equal(decimal.RequireFromString("400.00")))
}

func TestServiceCachedStatementSurvivesBackendFailure(t *testing.T) {
	f := newStatementFixture()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	f.service.WithCache(NewCache(client, time.Minute))

	first, err := f.service.CachedIncomeStatement(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, f.activity.calls)

	// The second read is served entirely from the cache.
	f.activity.err = errors.New("database down")
	second, err := f.service.CachedIncomeStatement(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, f.activity.calls)
	assert.True(t, second.NetIncome.Equal(first.NetIncome))
}

func TestServiceCachedStatementWithoutCache(t *testing.T) {
	f := newStatementFixture()

	stmt, err := f.service.CachedIncomeStatement(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.True(t, stmt.NetIncome.Equal(decimal.RequireFromString("100.00")))
}
