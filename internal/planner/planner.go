// Package planner solves the 0/1 selection problem behind daily supply
// planning: pick exams whose resource costs add up to as much as possible
// without going over the capacity. Cost doubles as value.
//
// Recursive, Memoized and Tabulated implement the same recurrence
//
//	f(i, cap) = 0                                        if i == 0 or cap == 0
//	f(i, cap) = f(i-1, cap)                              if cost[i-1] > cap
//	f(i, cap) = max(cost[i-1] + f(i-1, cap-cost[i-1]),
//	                f(i-1, cap))                         otherwise
//
// and return identical results. They assume input accepted by Validate;
// Tabulated and Selection return 0 and nil for input Validate rejects.
package planner

import (
	"fmt"

	"stealthcompany.com/labmerge/internal/exam"
)

// MaxRecursiveItems caps the item count Solve will hand to the exponential solver
const MaxRecursiveItems = 22

// MaxTableCells bounds the (items+1) x (capacity+1) table Tabulated builds
const MaxTableCells = 1 << 24

// Key addresses one subproblem: the first Items costs under Capacity
type Key struct {
	Items    int
	Capacity int
}

// Memo caches subproblem answers for Memoized
type Memo map[Key]int

// Validate rejects negative capacities and costs, and inputs whose table
// would exceed MaxTableCells
func Validate(costs []int, capacity int) error {
	if capacity < 0 {
		return fmt.Errorf("%w: capacity %d is negative", exam.ErrInvalidArgument, capacity)
	}
	if capacity >= MaxTableCells || len(costs)+1 > MaxTableCells/(capacity+1) {
		return fmt.Errorf("%w: %d items with capacity %d exceed the %d cell planning table",
			exam.ErrInvalidArgument, len(costs), capacity, MaxTableCells)
	}
	for i, c := range costs {
		if c < 0 {
			return fmt.Errorf("%w: cost %d at position %d is negative", exam.ErrInvalidArgument, c, i)
		}
	}
	return nil
}

// Recursive evaluates the recurrence directly. Exponential in len(costs).
func Recursive(costs []int, capacity int) int {
	return recursive(costs, capacity, len(costs))
}

func recursive(costs []int, capacity, n int) int {
	if n == 0 || capacity == 0 {
		return 0
	}
	cost := costs[n-1]
	if cost > capacity {
		return recursive(costs, capacity, n-1)
	}
	return max(cost+recursive(costs, capacity-cost, n-1), recursive(costs, capacity, n-1))
}

// Memoized evaluates the recurrence top-down, caching by (items, capacity).
// A nil memo is replaced by a private one.
func Memoized(costs []int, capacity int, memo Memo) int {
	if memo == nil {
		memo = make(Memo)
	}
	return memoized(costs, capacity, len(costs), memo)
}

func memoized(costs []int, capacity, n int, memo Memo) int {
	if n == 0 || capacity == 0 {
		return 0
	}
	key := Key{Items: n, Capacity: capacity}
	if v, ok := memo[key]; ok {
		return v
	}

	cost := costs[n-1]
	var best int
	if cost > capacity {
		best = memoized(costs, capacity, n-1, memo)
	} else {
		best = max(cost+memoized(costs, capacity-cost, n-1, memo), memoized(costs, capacity, n-1, memo))
	}

	memo[key] = best
	return best
}

// Tabulated fills the (n+1) x (capacity+1) table bottom-up
func Tabulated(costs []int, capacity int) int {
	table := buildTable(costs, capacity)
	if table == nil {
		return 0
	}
	return table[len(costs)][capacity]
}

// Selection returns the indices of one optimal subset, in ascending order
func Selection(costs []int, capacity int) []int {
	table := buildTable(costs, capacity)
	if table == nil {
		return nil
	}

	var picked []int
	c := capacity
	for i := len(costs); i > 0; i-- {
		if table[i][c] != table[i-1][c] {
			picked = append(picked, i-1)
			c -= costs[i-1]
		}
	}

	for l, r := 0, len(picked)-1; l < r; l, r = l+1, r-1 {
		picked[l], picked[r] = picked[r], picked[l]
	}
	return picked
}

func buildTable(costs []int, capacity int) [][]int {
	if Validate(costs, capacity) != nil {
		return nil
	}

	n := len(costs)
	table := make([][]int, n+1)
	for i := range table {
		table[i] = make([]int, capacity+1)
	}

	for i := 1; i <= n; i++ {
		cost := costs[i-1]
		for c := 1; c <= capacity; c++ {
			if cost > c {
				table[i][c] = table[i-1][c]
				continue
			}
			table[i][c] = max(cost+table[i-1][c-cost], table[i-1][c])
		}
	}
	return table
}

// Result collects the answers of every solver for one input
type Result struct {
	Costs            []int
	Capacity         int
	Recursive        int
	RecursiveSkipped bool
	Memoized         int
	Tabulated        int
	Selection        []int
}

// Solve validates the input and runs all solvers. The recursive solver is
// skipped above MaxRecursiveItems items. Disagreement between solvers is
// reported as an error.
func Solve(costs []int, capacity int) (Result, error) {
	if err := Validate(costs, capacity); err != nil {
		return Result{}, err
	}

	res := Result{
		Costs:     append([]int(nil), costs...),
		Capacity:  capacity,
		Memoized:  Memoized(costs, capacity, nil),
		Tabulated: Tabulated(costs, capacity),
		Selection: Selection(costs, capacity),
	}

	if len(costs) > MaxRecursiveItems {
		res.RecursiveSkipped = true
		res.Recursive = res.Tabulated
	} else {
		res.Recursive = Recursive(costs, capacity)
	}

	if res.Recursive != res.Tabulated || res.Memoized != res.Tabulated {
		return res, fmt.Errorf("solvers disagree: recursive=%d memoized=%d tabulated=%d",
			res.Recursive, res.Memoized, res.Tabulated)
	}
	return res, nil
}
