package planner

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"stealthcompany.com/labmerge/internal/exam"
)

func TestSolversAgree(t *testing.T) {
	tests := []struct {
		name     string
		costs    []int
		capacity int
		want     int
	}{
		{name: "daily supplies", costs: []int{2, 3, 4, 5}, capacity: 5, want: 5},
		{name: "zero capacity", costs: []int{2, 3, 4, 5}, capacity: 0, want: 0},
		{name: "no items", costs: nil, capacity: 10, want: 0},
		{name: "nothing fits", costs: []int{6, 7}, capacity: 5, want: 0},
		{name: "everything fits", costs: []int{1, 2, 3}, capacity: 10, want: 6},
		{name: "exact combination", costs: []int{5, 4, 3, 2}, capacity: 9, want: 9},
		{name: "zero cost items", costs: []int{0, 0, 3}, capacity: 2, want: 0},
		{name: "greedy would miss", costs: []int{6, 5, 5}, capacity: 10, want: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Recursive(tt.costs, tt.capacity))
			assert.Equal(t, tt.want, Memoized(tt.costs, tt.capacity, nil))
			assert.Equal(t, tt.want, Tabulated(tt.costs, tt.capacity))
		})
	}
}

func TestSolversAgreeOnRandomInputs(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for round := 0; round < 200; round++ {
		costs := make([]int, r.Intn(12))
		for i := range costs {
			costs[i] = r.Intn(15)
		}
		capacity := r.Intn(40)

		want := Recursive(costs, capacity)
		require.Equal(t, want, Memoized(costs, capacity, Memo{}), "costs=%v capacity=%d", costs, capacity)
		require.Equal(t, want, Tabulated(costs, capacity), "costs=%v capacity=%d", costs, capacity)

		total := 0
		for _, i := range Selection(costs, capacity) {
			total += costs[i]
		}
		require.Equal(t, want, total, "selection for costs=%v capacity=%d", costs, capacity)
	}
}

func TestMemoizedUsesCallerCache(t *testing.T) {
	memo := Memo{}
	got := Memoized([]int{2, 3, 4, 5}, 5, memo)

	assert.Equal(t, 5, got)
	assert.NotEmpty(t, memo)
	assert.Equal(t, 5, memo[Key{Items: 4, Capacity: 5}])
}

func TestSelection(t *testing.T) {
	assert.Equal(t, []int{0, 1}, Selection([]int{2, 3, 4, 5}, 5))
	assert.Empty(t, Selection([]int{2, 3}, 0))
	assert.Empty(t, Selection(nil, 5))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		costs    []int
		capacity int
		wantErr  bool
	}{
		{name: "zero capacity", costs: []int{1, 2}, capacity: 0},
		{name: "largest capacity for one item", costs: []int{1}, capacity: MaxTableCells/2 - 1},
		{name: "negative capacity", costs: []int{1}, capacity: -1, wantErr: true},
		{name: "negative cost", costs: []int{1, -2}, capacity: 3, wantErr: true},
		{name: "huge capacity", costs: []int{2, 3}, capacity: 1_000_000_000_000, wantErr: true},
		{name: "table too large", costs: make([]int, 5000), capacity: 5000, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.costs, tt.capacity)
			if tt.wantErr {
				assert.ErrorIs(t, err, exam.ErrInvalidArgument)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTableSolversRejectInvalidInput(t *testing.T) {
	assert.Equal(t, 0, Tabulated([]int{2, 3}, -1))
	assert.Nil(t, Selection([]int{2, 3}, -1))
	assert.Equal(t, 0, Tabulated([]int{2, -3}, 5))
	assert.Equal(t, 0, Tabulated([]int{2, 3}, 1_000_000_000_000))

	_, err := Solve([]int{2, 3, 4, 5}, 1_000_000_000_000)
	assert.ErrorIs(t, err, exam.ErrInvalidArgument)
}

func TestSolve(t *testing.T) {
	res, err := Solve([]int{2, 3, 4, 5}, 5)
	require.NoError(t, err)

	assert.Equal(t, 5, res.Recursive)
	assert.Equal(t, 5, res.Memoized)
	assert.Equal(t, 5, res.Tabulated)
	assert.False(t, res.RecursiveSkipped)
	assert.Equal(t, []int{0, 1}, res.Selection)

	_, err = Solve([]int{1}, -5)
	assert.ErrorIs(t, err, exam.ErrInvalidArgument)
}

func TestSolveSkipsRecursiveForLargeInputs(t *testing.T) {
	costs := make([]int, MaxRecursiveItems+1)
	for i := range costs {
		costs[i] = i%7 + 1
	}

	res, err := Solve(costs, 30)
	require.NoError(t, err)
	assert.True(t, res.RecursiveSkipped)
	assert.Equal(t, 30, res.Tabulated)
}
