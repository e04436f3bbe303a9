package dataset

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"stealthcompany.com/labmerge/internal/exam"
)

func TestSequential(t *testing.T) {
	records := []exam.Record{rec("1", "Ana"), rec("2", "Bia"), rec("3", "ANA"), rec("4", "Ana Maria")}

	assert.Equal(t, []string{"1", "3"}, ids(Sequential(records, "ana")))
	assert.Empty(t, Sequential(records, "Carla"))
	assert.Empty(t, Sequential(nil, "Ana"))
}

func TestBinaryExpansionOrder(t *testing.T) {
	sorted := []exam.Record{
		rec("0", "Aldo"),
		rec("1", "Bia"), rec("2", "Bia"), rec("3", "Bia"), rec("4", "Bia"), rec("5", "Bia"),
		rec("6", "Caio"),
	}

	// first midpoint is index 3: match, then left 2,1, then right 4,5
	assert.Equal(t, []string{"3", "2", "1", "4", "5"}, ids(Binary(sorted, "BIA")))
}

func TestBinaryEdges(t *testing.T) {
	sorted := []exam.Record{rec("1", "Ana"), rec("2", "Bia"), rec("3", "Caio")}

	tests := []struct {
		name   string
		target string
		want   []string
	}{
		{name: "first", target: "ana", want: []string{"1"}},
		{name: "last", target: "caio", want: []string{"3"}},
		{name: "before all", target: "Aaron", want: []string{}},
		{name: "after all", target: "Zé", want: []string{}},
		{name: "between", target: "Beto", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Binary(sorted, tt.target)))
		})
	}

	assert.Empty(t, Binary(nil, "Ana"))
}

func TestBinaryMatchesSequentialOnSortedInput(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	names := []string{"Ana Souza", "Bruno", "carla", "Davi", "Élio", "zé", "Nobody"}

	for round := 0; round < 20; round++ {
		sorted := SortRecords(randomRecords(r, r.Intn(80)))
		for _, name := range names {
			seq := ids(Sequential(sorted, name))
			bin := ids(Binary(sorted, name))
			sort.Strings(seq)
			sort.Strings(bin)
			assert.Equal(t, seq, bin, "name %q", name)
		}
	}
}
