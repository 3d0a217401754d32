package pkg

import (
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/stat/distuv"
)

// Sampler draws one sum from a table, weighted by its probabilities.
type Sampler interface {
	Sample(t *Table) int
}

// SamplerFunc adapts a function to a Sampler.
type SamplerFunc func(t *Table) int

func (f SamplerFunc) Sample(t *Table) int {
	return f(t)
}

type globalSampler struct{}

// DefaultSampler draws from the process wide math/rand/v2 source, which is
// safe for concurrent use.
var DefaultSampler Sampler = globalSampler{}

func (globalSampler) Sample(t *Table) int {
	return t.Sums[int(t.dist.Rand())]
}

type lockedSource struct {
	mu  *sync.Mutex
	src rand.Source
}

func (s lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

type seededSampler struct {
	src lockedSource
}

// NewSeededSampler returns a Sampler whose draws are reproducible for a
// given seed when called from a single goroutine.
func NewSeededSampler(seed uint64) Sampler {
	return seededSampler{
		src: lockedSource{
			mu:  new(sync.Mutex),
			src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15),
		},
	}
}

func (s seededSampler) Sample(t *Table) int {
	dist := distuv.NewCategorical(t.Probs, s.src)
	return t.Sums[int(dist.Rand())]
}
