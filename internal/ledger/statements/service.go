package statements

import (
	"context"
	"time"

	"github.com/meridian-erp/meridian/internal/ledger/coa"
	"github.com/meridian-erp/meridian/internal/ledger/fiscal"
	"github.com/meridian-erp/meridian/internal/ledger/posting"
	"github.com/meridian-erp/meridian/internal/ledger/shared"
	"github.com/meridian-erp/meridian/internal/platform/db"
)

// AccountPort lists accounts with rolled-up balances.
type AccountPort interface {
	List(ctx context.Context, q db.Querier) ([]coa.AccountNode, error)
}

// YearPort resolves fiscal years and the settings default.
type YearPort interface {
	Get(ctx context.Context, q db.Querier, id int64) (fiscal.FiscalYear, error)
	Settings(ctx context.Context, q db.Querier) (fiscal.Settings, error)
}

// ActivityPort aggregates journal activity per account for one year.
type ActivityPort interface {
	ActivityByAccount(ctx context.Context, q db.Querier, fiscalYearID int64) ([]posting.AccountActivity, error)
}

// Service derives financial statements. Pure read side: it performs no
// mutation and accepts any querier.
type Service struct {
	accounts AccountPort
	years    YearPort
	activity ActivityPort
	cache    *Cache
	now      func() time.Time
}

// NewService constructs the statement generator.
func NewService(accounts AccountPort, years YearPort, activity ActivityPort) *Service {
	return &Service{accounts: accounts, years: years, activity: activity, now: time.Now}
}

// WithCache attaches the versioned statement cache.
func (s *Service) WithCache(cache *Cache) {
	s.cache = cache
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// BalanceSheet builds the balance sheet for the given or current fiscal
// year. For an open year the current net income is folded into the
// equity total at presentation time.
func (s *Service) BalanceSheet(ctx context.Context, q db.Querier, fiscalYearID *int64) (BalanceSheet, error) {
	year, err := s.resolveYear(ctx, q, fiscalYearID)
	if err != nil {
		return BalanceSheet{}, err
	}
	nodes, err := s.accounts.List(ctx, q)
	if err != nil {
		return BalanceSheet{}, err
	}
	income, err := s.IncomeStatement(ctx, q, &year.ID)
	if err != nil {
		return BalanceSheet{}, err
	}
	return BuildBalanceSheet(nodes, income.NetIncome, !year.Closed, s.now()), nil
}

// IncomeStatement builds the profit and loss view for the given or
// current fiscal year from period-scoped journal entries.
func (s *Service) IncomeStatement(ctx context.Context, q db.Querier, fiscalYearID *int64) (IncomeStatement, error) {
	year, err := s.resolveYear(ctx, q, fiscalYearID)
	if err != nil {
		return IncomeStatement{}, err
	}
	activity, err := s.activity.ActivityByAccount(ctx, q, year.ID)
	if err != nil {
		return IncomeStatement{}, err
	}
	period := Period{FiscalYearID: year.ID, Name: year.Name, StartDate: year.StartDate, EndDate: year.EndDate}
	return BuildIncomeStatement(activity, period), nil
}

// CachedBalanceSheet serves the balance sheet through the versioned
// cache, falling back to a direct build when no cache is attached.
func (s *Service) CachedBalanceSheet(ctx context.Context, q db.Querier, fiscalYearID *int64) (BalanceSheet, error) {
	year, err := s.resolveYear(ctx, q, fiscalYearID)
	if err != nil {
		return BalanceSheet{}, err
	}
	key, err := s.cache.BuildKey(ctx, keyBalanceSheet(year.ID))
	if err != nil {
		return BalanceSheet{}, err
	}
	var sheet BalanceSheet
	err = s.cache.FetchJSON(ctx, key, &sheet, func(ctx context.Context) (interface{}, error) {
		return s.BalanceSheet(ctx, q, &year.ID)
	})
	return sheet, err
}

// CachedIncomeStatement serves the income statement through the
// versioned cache.
func (s *Service) CachedIncomeStatement(ctx context.Context, q db.Querier, fiscalYearID *int64) (IncomeStatement, error) {
	year, err := s.resolveYear(ctx, q, fiscalYearID)
	if err != nil {
		return IncomeStatement{}, err
	}
	key, err := s.cache.BuildKey(ctx, keyIncomeStatement(year.ID))
	if err != nil {
		return IncomeStatement{}, err
	}
	var stmt IncomeStatement
	err = s.cache.FetchJSON(ctx, key, &stmt, func(ctx context.Context) (interface{}, error) {
		return s.IncomeStatement(ctx, q, &year.ID)
	})
	return stmt, err
}

func (s *Service) resolveYear(ctx context.Context, q db.Querier, fiscalYearID *int64) (fiscal.FiscalYear, error) {
	if fiscalYearID != nil {
		return s.years.Get(ctx, q, *fiscalYearID)
	}
	settings, err := s.years.Settings(ctx, q)
	if err != nil {
		return fiscal.FiscalYear{}, err
	}
	if settings.CurrentFiscalYearID == nil {
		return fiscal.FiscalYear{}, shared.ErrNoActiveYear
	}
	return s.years.Get(ctx, q, *settings.CurrentFiscalYearID)
}
