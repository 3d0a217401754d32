package pkg

import (
	"fmt"
	"maps"
	"slices"
)

// MaxOddsSpan bounds the number of distinct totals Odds will tabulate. The
// cost of the convolution grows with the square of the span.
const MaxOddsSpan = 2000

// Outcome is one possible combined total and its probability.
type Outcome struct {
	Total       int     `json:"Total"`
	Probability float64 `json:"Probability"`
}

// Odds returns the exact distribution of the combined total of groups joined
// by connectors, built from the cached per-chunk tables.
func (r *Roller) Odds(groups []DieSpec, connectors []Connector) ([]Outcome, error) {
	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: no dice", ErrMalformedExpression)
	}
	if err := validateConnectors(len(groups), connectors); err != nil {
		return nil, err
	}

	var span int
	for _, g := range groups {
		if g.Options.DropLowest > 0 || g.Options.RerollTotal != nil {
			return nil, fmt.Errorf("%w: %s", ErrOddsUnsupported, g)
		}
		span += (g.Faces.Max() - g.Faces.Min()) * g.Multiplier
	}
	if span > MaxOddsSpan {
		return nil, fmt.Errorf("%w: %d possible totals, at most %d", ErrOddsUnsupported, span+1, MaxOddsSpan+1)
	}

	combined := map[int]float64{0: 1}
	for i, g := range groups {
		sign := 1
		if i > 0 && connectors[i-1] == Minus {
			sign = -1
		}
		dist := map[int]float64{g.Modifier: 1}
		for _, chunk := range g.Chunks() {
			dist = convolve(dist, r.tables.Distribution(g.Faces, chunk), 1)
		}
		combined = convolveMap(combined, dist, sign)
	}

	outcomes := make([]Outcome, 0, len(combined))
	for _, total := range slices.Sorted(maps.Keys(combined)) {
		outcomes = append(outcomes, Outcome{Total: total, Probability: combined[total]})
	}
	return outcomes, nil
}

func convolve(dist map[int]float64, t *Table, sign int) map[int]float64 {
	other := make(map[int]float64, len(t.Sums))
	for i, s := range t.Sums {
		other[s] = t.Probs[i]
	}
	return convolveMap(dist, other, sign)
}

func convolveMap(a, b map[int]float64, sign int) map[int]float64 {
	out := make(map[int]float64, len(a)+len(b))
	for x, px := range a {
		for y, py := range b {
			out[x+sign*y] += px * py
		}
	}
	return out
}
