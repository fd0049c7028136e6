package coa

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(raw string) decimal.Decimal {
	return decimal.RequireFromString(raw)
}

func ptr(id int64) *int64 { return &id }

func TestRollupSumsDescendants(t *testing.T) {
	// 1000 Assets
	//   1010 Cash
	//   1100 Receivables
	//     1110 Trade AR
	accounts := []Account{
		{ID: 1, Code: "1000", Type: AccountTypeAsset, Balance: dec("5.00")},
		{ID: 2, Code: "1010", Type: AccountTypeAsset, Balance: dec("100.00"), ParentID: ptr(1)},
		{ID: 3, Code: "1100", Type: AccountTypeAsset, Balance: dec("10.00"), ParentID: ptr(1)},
		{ID: 4, Code: "1110", Type: AccountTypeAsset, Balance: dec("40.00"), ParentID: ptr(3)},
	}

	nodes, err := Rollup(accounts)
	require.NoError(t, err)
	require.Len(t, nodes, 4)

	assert.True(t, nodes[0].RolledUpBalance.Equal(dec("155.00")), "root = %s", nodes[0].RolledUpBalance)
	assert.True(t, nodes[1].RolledUpBalance.Equal(dec("100.00")))
	assert.True(t, nodes[2].RolledUpBalance.Equal(dec("50.00")))
	assert.True(t, nodes[3].RolledUpBalance.Equal(dec("40.00")))

	// Input order is preserved.
	for i, acc := range accounts {
		assert.Equal(t, acc.ID, nodes[i].ID)
	}
}

func TestRollupSingleAccount(t *testing.T) {
	nodes, err := Rollup([]Account{{ID: 1, Code: "1010", Balance: dec("42.00")}})
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.True(t, nodes[0].RolledUpBalance.Equal(dec("42.00")))
}

func TestRollupEmpty(t *testing.T) {
	nodes, err := Rollup(nil)
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestRollupUnresolvedParentBecomesRoot(t *testing.T) {
	// Parent id 99 is not part of the result set.
	nodes, err := Rollup([]Account{
		{ID: 1, Code: "1010", Balance: dec("10.00"), ParentID: ptr(99)},
	})
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.True(t, nodes[0].RolledUpBalance.Equal(dec("10.00")))
}

func TestRollupDetectsCycle(t *testing.T) {
	_, err := Rollup([]Account{
		{ID: 1, Code: "1000", ParentID: ptr(2)},
		{ID: 2, Code: "1010", ParentID: ptr(1)},
	})
	assert.ErrorIs(t, err, ErrHierarchyCycle)
}

func TestRollupDetectsDeepCycle(t *testing.T) {
	_, err := Rollup([]Account{
		{ID: 1, Code: "1000"},
		{ID: 2, Code: "1010", ParentID: ptr(1)},
		{ID: 3, Code: "1020", ParentID: ptr(5)},
		{ID: 4, Code: "1030", ParentID: ptr(3)},
		{ID: 5, Code: "1040", ParentID: ptr(4)},
	})
	assert.ErrorIs(t, err, ErrHierarchyCycle)
}
