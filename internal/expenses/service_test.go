package expenses

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
}

func (p *stubPoster) Post(ctx context.Context, tx pgx.Tx, in posting.Input) (posting.Entry, error) {
	p.posted = append(p.posted, in)
	return posting.Entry{
		ID:          int64(len(p.posted)),
		Description: in.Description,
		DebitCode:   in.DebitCode,
		CreditCode:  in.CreditCode,
		Amount:      in.Amount,
		SourceID:    in.SourceID,
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

func expenseMappings() *stubMappings {
	return &stubMappings{codes: map[string]string{
		"EXPENSES/" + mappings.KeyExpense: "5030",
		"EXPENSES/" + mappings.KeyCash:    "1010",
	}}
}

func testClaim() Claim {
	return Claim{
		ID:          uuid.MustParse("5c1e7d90-3a4b-4c2d-8e6f-7a9b0c1d0003"),
		Date:        time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
		Description: "Taxi to client site",
		Amount:      decimal.RequireFromString("45.00"),
		ActorID:     6,
	}
}

func TestPostDocumentDebitsExpenseCreditsCash(t *testing.T) {
	poster := &stubPoster{}
	svc := NewService(nil, poster, expenseMappings(), nil)

	entry, err := svc.PostDocument(context.Background(), nil, testClaim())
	require.NoError(t, err)
	assert.Equal(t, "5030", entry.DebitCode)
	assert.Equal(t, "1010", entry.CreditCode)
	assert.True(t, entry.Amount.Equal(decimal.RequireFromString("45.00")))
	assert.Equal(t, "Taxi to client site", entry.Description)

	// The claim id doubles as the source id, so a re-approved claim
	// trips the ledger's source-link constraint.
	assert.Equal(t, testClaim().ID, entry.SourceID)
}

func TestPostDocumentMissingMapping(t *testing.T) {
	poster := &stubPoster{}
	svc := NewService(nil, poster, &stubMappings{codes: map[string]string{}}, nil)

	_, err := svc.PostDocument(context.Background(), nil, testClaim())
	assert.ErrorIs(t, err, shared.ErrMappingNotFound)
	assert.Empty(t, poster.posted)
}

func TestClaimValidate(t *testing.T) {
	valid := testClaim()
	assert.NoError(t, valid.Validate())

	missingID := valid
	missingID.ID = uuid.Nil
	assert.Error(t, missingID.Validate())

	missingDate := valid
	missingDate.Date = time.Time{}
	assert.Error(t, missingDate.Validate())

	zeroAmount := valid
	zeroAmount.Amount = decimal.Zero
	assert.Error(t, zeroAmount.Validate())
}

func TestApproveRejectsInvalidClaimBeforeTx(t *testing.T) {
	svc := NewService(nil, &stubPoster{}, expenseMappings(), nil)
	_, err := svc.Approve(context.Background(), Claim{})
	assert.Error(t, err)
}
