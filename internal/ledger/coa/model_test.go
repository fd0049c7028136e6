package coa

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAccountTypeValid(t *testing.T) {
	for _, typ := range []AccountType{AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense} {
		assert.True(t, typ.Valid(), "%s", typ)
	}
	assert.False(t, AccountType("COGS").Valid())
	assert.False(t, AccountType("").Valid())
}

func TestNaturalSignDeltas(t *testing.T) {
	amt := decimal.RequireFromString("100.00")

	cases := []struct {
		typ        AccountType
		debitDelta string
	}{
		{AccountTypeAsset, "100.00"},
		{AccountTypeExpense, "100.00"},
		{AccountTypeLiability, "-100.00"},
		{AccountTypeEquity, "-100.00"},
		{AccountTypeRevenue, "-100.00"},
	}
	for _, tc := range cases {
		t.Run(string(tc.typ), func(t *testing.T) {
			want := decimal.RequireFromString(tc.debitDelta)
			assert.True(t, DebitDelta(tc.typ, amt).Equal(want))
			// The credit delta is always the mirror image.
			assert.True(t, CreditDelta(tc.typ, amt).Equal(want.Neg()))
		})
	}
}
