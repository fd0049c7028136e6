package purchasing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian/internal/ledger/mappings"
	"github.com/meridian-erp/meridian/internal/ledger/posting"
	"github.com/meridian-erp/meridian/internal/ledger/shared"
	"github.com/meridian-erp/meridian/internal/platform/db"
)

type stubPoster struct {
	posted []posting.Input
	nextID int64
}

func (p *stubPoster) Post(ctx context.Context, tx pgx.Tx, in posting.Input) (posting.Entry, error) {
	p.posted = append(p.posted, in)
	p.nextID++
	return posting.Entry{
		ID:         p.nextID,
		DebitCode:  in.DebitCode,
		CreditCode: in.CreditCode,
		Amount:     in.Amount,
	}, nil
}

type stubMappings struct {
	codes map[string]string
}

func (m *stubMappings) Get(ctx context.Context, q db.Querier, module, key string) (mappings.AccountMapping, error) {
	code, ok := m.codes[module+"/"+key]
	if !ok {
		return mappings.AccountMapping{}, shared.ErrMappingNotFound
	}
	return mappings.AccountMapping{Module: module, Key: key, Code: code}, nil
}

func purchasingMappings() *stubMappings {
	return &stubMappings{codes: map[string]string{
		"PURCHASING/" + mappings.KeyPayable:   "2010",
		"PURCHASING/" + mappings.KeyExpense:   "5030",
		"PURCHASING/" + mappings.KeyInventory: "1200",
	}}
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testBill(lines ...BillLine) Bill {
	return Bill{
		ID:       uuid.MustParse("8f4a2b6c-0d3e-4a91-b6c7-5e8d9f0a0002"),
		Date:     time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC),
		Supplier: "Acme Supplies",
		Lines:    lines,
		ActorID:  4,
	}
}

func TestPostDocumentSplitsStockAndExpense(t *testing.T) {
	poster := &stubPoster{}
	svc := NewService(nil, poster, purchasingMappings(), nil)

	bill := testBill(
		BillLine{Description: "Raw material", Amount: amount("500.00"), Stock: true},
		BillLine{Description: "Office cleaning", Amount: amount("80.00")},
	)
	entries, err := svc.PostDocument(context.Background(), nil, bill)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "1200", entries[0].DebitCode)
	assert.Equal(t, "5030", entries[1].DebitCode)
	for _, entry := range entries {
		assert.Equal(t, "2010", entry.CreditCode)
	}
}

func TestPostDocumentSourceIDsPerLine(t *testing.T) {
	poster := &stubPoster{}
	svc := NewService(nil, poster, purchasingMappings(), nil)

	bill := testBill(
		BillLine{Amount: amount("10.00")},
		BillLine{Amount: amount("20.00")},
	)
	_, err := svc.PostDocument(context.Background(), nil, bill)
	require.NoError(t, err)
	require.Len(t, poster.posted, 2)
	assert.NotEqual(t, poster.posted[0].SourceID, poster.posted[1].SourceID)
	assert.Equal(t, "PURCHASING", poster.posted[0].SourceModule)

	// Reposting the same bill derives the same ids, so the ledger's
	// source-link constraint can catch the duplicate.
	again := &stubPoster{}
	svc = NewService(nil, again, purchasingMappings(), nil)
	_, err = svc.PostDocument(context.Background(), nil, bill)
	require.NoError(t, err)
	assert.Equal(t, poster.posted[0].SourceID, again.posted[0].SourceID)
}

func TestPostDocumentFallbackDescriptions(t *testing.T) {
	poster := &stubPoster{}
	svc := NewService(nil, poster, purchasingMappings(), nil)

	bill := testBill(BillLine{Amount: amount("10.00")})
	_, err := svc.PostDocument(context.Background(), nil, bill)
	require.NoError(t, err)
	assert.Equal(t, "Bill from Acme Supplies, line 1", poster.posted[0].Description)
}

func TestBillValidate(t *testing.T) {
	assert.Error(t, Bill{}.Validate())
	assert.Error(t, testBill().Validate())
	assert.Error(t, testBill(BillLine{Amount: amount("-1.00")}).Validate())
	assert.NoError(t, testBill(BillLine{Amount: amount("1.00")}).Validate())
}
