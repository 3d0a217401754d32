package pkg

import (
	"maps"
	"slices"

	"gonum.org/v1/gonum/stat/distuv"
)

// MaxChunk is the largest number of dice enumerated in one table.
const MaxChunk = 5

// Reduce splits a multiplier into chunks of at most MaxChunk dice, e.g.
// 13 => [5 5 3]. Each chunk is drawn from its own table and the draws summed.
func Reduce(multiplier int) []int {
	if multiplier < 1 {
		return nil
	}
	chunks := make([]int, 0, multiplier/MaxChunk+1)
	for multiplier > MaxChunk {
		chunks = append(chunks, MaxChunk)
		multiplier -= MaxChunk
	}
	return append(chunks, multiplier)
}

// Table is the distribution of the sum of rolling a FaceSet some number of
// times. Sums are ascending and Probs[i] is the probability of Sums[i].
type Table struct {
	Faces  FaceSet
	Repeat int
	Sums   []int
	Counts []int64
	Probs  []float64
	Total  int64

	dist distuv.Categorical
}

// NewTable tabulates every ordered outcome of rolling faces repeat times.
// The outcomes are counted by repeated convolution, which gives the same
// counts as walking the full product of faces^repeat.
func NewTable(faces FaceSet, repeat int) *Table {
	counts := map[int]int64{0: 1}
	for range repeat {
		next := make(map[int]int64, len(counts)+len(faces))
		for sum, c := range counts {
			for _, f := range faces {
				next[sum+f] += c
			}
		}
		counts = next
	}

	t := &Table{
		Faces:  faces,
		Repeat: repeat,
		Sums:   slices.Sorted(maps.Keys(counts)),
	}
	t.Counts = make([]int64, len(t.Sums))
	for i, sum := range t.Sums {
		t.Counts[i] = counts[sum]
		t.Total += counts[sum]
	}
	t.Probs = make([]float64, len(t.Sums))
	for i, c := range t.Counts {
		t.Probs[i] = float64(c) / float64(t.Total)
	}
	t.dist = distuv.NewCategorical(t.Probs, nil)
	return t
}

func (t *Table) Min() int {
	return t.Sums[0]
}

func (t *Table) Max() int {
	return t.Sums[len(t.Sums)-1]
}

// Prob returns the probability of rolling exactly sum.
func (t *Table) Prob(sum int) float64 {
	idx, ok := slices.BinarySearch(t.Sums, sum)
	if !ok {
		return 0
	}
	return t.Probs[idx]
}

type tableKey struct {
	faces  string
	repeat int
}

// TableCache memoises tables per (FaceSet, repeat) for the life of the
// process. See memo for the concurrency contract.
type TableCache struct {
	tables *memo[tableKey, *Table]
}

func NewTableCache() *TableCache {
	return &TableCache{tables: newMemo[tableKey, *Table]()}
}

// Distribution returns the table for rolling faces repeat times.
func (c *TableCache) Distribution(faces FaceSet, repeat int) *Table {
	key := tableKey{faces: faces.String(), repeat: repeat}
	t, _ := c.tables.getOrCompute(key, func() (*Table, error) {
		return NewTable(faces, repeat), nil
	})
	return t
}

func (c *TableCache) Len() int {
	return c.tables.len()
}
