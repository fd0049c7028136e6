package coa

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrHierarchyCycle indicates the stored parent references form a loop.
var ErrHierarchyCycle = errors.New("ledger: account hierarchy contains a cycle")

// Rollup annotates every account with its rolled-up balance: own balance
// plus the recursive sum of its descendants' rolled-up balances. The
// traversal is an explicit post-order walk over an id-keyed index, not
// recursion over live object graphs. Accounts whose parent id is absent
// from the input are treated as roots. Output preserves input order.
func Rollup(accounts []Account) ([]AccountNode, error) {
	index := make(map[int64]int, len(accounts))
	for i, acc := range accounts {
		index[acc.ID] = i
	}

	children := make(map[int64][]int)
	roots := make([]int, 0, len(accounts))
	for i, acc := range accounts {
		if acc.ParentID == nil {
			roots = append(roots, i)
			continue
		}
		if _, ok := index[*acc.ParentID]; !ok {
			// Unresolved parent reference: treat as a root.
			roots = append(roots, i)
			continue
		}
		children[*acc.ParentID] = append(children[*acc.ParentID], i)
	}

	rolled := make([]decimal.Decimal, len(accounts))
	visited := make([]bool, len(accounts))
	onStack := make([]bool, len(accounts))

	type frame struct {
		idx   int
		child int
	}

	for _, root := range roots {
		stack := []frame{{idx: root}}
		onStack[root] = true
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			kids := children[accounts[top.idx].ID]
			if top.child < len(kids) {
				next := kids[top.child]
				top.child++
				if onStack[next] || visited[next] {
					return nil, ErrHierarchyCycle
				}
				onStack[next] = true
				stack = append(stack, frame{idx: next})
				continue
			}
			sum := accounts[top.idx].Balance
			for _, kid := range kids {
				sum = sum.Add(rolled[kid])
			}
			rolled[top.idx] = sum
			visited[top.idx] = true
			onStack[top.idx] = false
			stack = stack[:len(stack)-1]
		}
	}

	// Any account left unvisited belongs to a parent loop unreachable
	// from a root.
	for i := range accounts {
		if !visited[i] {
			return nil, ErrHierarchyCycle
		}
	}

	nodes := make([]AccountNode, len(accounts))
	for i, acc := range accounts {
		nodes[i] = AccountNode{Account: acc, RolledUpBalance: rolled[i]}
	}
	return nodes, nil
}
