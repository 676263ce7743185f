package bins

import (
	"fmt"
	"math"

	"github.com/airspacelab/pairgen/internal/random"
)

// Table holds the acceptance-probability table for one target quantity
// (vertical or horizontal miss distance). The edge sequence is padded with
// ±Inf sentinels whose bins carry zero acceptance, so a sample outside the
// configured range can never be accepted.
type Table struct {
	edges  []float64 // len n+3 for n configured bins; edges[0] = -Inf, edges[n+2] = +Inf
	accept []float64 // len n+2; rescaled so the largest interior bin is exactly 1
	mass   []float64 // len n+2; normalized probability mass per bin, sentinels 0
}

// New builds a Table from strictly increasing bin edges and the desired
// relative proportions of each bin. Proportions need not sum to one; only
// their ratios matter.
func New(edges, proportions []float64) (*Table, error) {
	if len(edges) < 2 {
		return nil, fmt.Errorf("bin table needs at least 2 edges, got %d", len(edges))
	}
	if len(proportions) != len(edges)-1 {
		return nil, fmt.Errorf("bin table needs len(edges)-1 proportions: %d edges, %d proportions",
			len(edges), len(proportions))
	}
	var total float64
	for i, e := range edges {
		if math.IsNaN(e) || math.IsInf(e, 0) {
			return nil, fmt.Errorf("bin edge %d is not finite", i)
		}
		if i > 0 && e <= edges[i-1] {
			return nil, fmt.Errorf("bin edges must be strictly increasing: edge %d (%g) <= edge %d (%g)",
				i, e, i-1, edges[i-1])
		}
	}
	for i, p := range proportions {
		if math.IsNaN(p) || p < 0 {
			return nil, fmt.Errorf("bin proportion %d is negative or NaN: %g", i, p)
		}
		total += p
	}
	if total <= 0 {
		return nil, fmt.Errorf("bin proportions sum to %g, need a positive total", total)
	}

	n := len(proportions)

	// Piecewise-constant density from the normalized proportions, then a
	// fresh normalization constant so the density integrates to exactly 1
	// regardless of float drift in the division above.
	density := make([]float64, n)
	var integral float64
	for i := range proportions {
		width := edges[i+1] - edges[i]
		density[i] = (proportions[i] / total) / width
		integral += width * density[i]
	}
	c := 1 / integral

	// Cumulative distribution at each edge; bin mass is its first difference.
	cdf := make([]float64, n+1)
	for i := 0; i < n; i++ {
		cdf[i+1] = cdf[i] + (edges[i+1]-edges[i])*density[i]*c
	}
	mass := make([]float64, n)
	maxMass := 0.0
	for i := range mass {
		mass[i] = cdf[i+1] - cdf[i]
		if mass[i] > maxMass {
			maxMass = mass[i]
		}
	}

	// Rescale so the most probable bin accepts with probability 1: rejection
	// sampling only cares about ratios between bins, and this minimizes
	// wasted trials.
	t := &Table{
		edges:  make([]float64, 0, n+3),
		accept: make([]float64, 0, n+2),
		mass:   make([]float64, 0, n+2),
	}
	t.edges = append(t.edges, math.Inf(-1))
	t.edges = append(t.edges, edges...)
	t.edges = append(t.edges, math.Inf(1))
	t.accept = append(t.accept, 0)
	t.mass = append(t.mass, 0)
	for i := range mass {
		t.accept = append(t.accept, mass[i]/maxMass)
		t.mass = append(t.mass, mass[i])
	}
	t.accept = append(t.accept, 0)
	t.mass = append(t.mass, 0)
	return t, nil
}

// NumBins returns the bin count including the two sentinel bins.
func (t *Table) NumBins() int { return len(t.accept) }

// Edges returns the padded edge sequence.
func (t *Table) Edges() []float64 { return t.edges }

// Locate returns the index of the bin containing v under right-open
// interval semantics: a value exactly on an interior edge belongs to the
// bin above it. Returns -1 for NaN.
func (t *Table) Locate(v float64) int {
	if math.IsNaN(v) {
		return -1
	}
	for i, e := range t.edges {
		if e > v {
			return i - 1
		}
	}
	// v == +Inf: the upper sentinel bin.
	return len(t.accept) - 1
}

// AcceptProb returns the acceptance probability of bin i, or 0 when i is
// out of range.
func (t *Table) AcceptProb(i int) float64 {
	if i < 0 || i >= len(t.accept) {
		return 0
	}
	return t.accept[i]
}

// ImportanceWeight returns 1/acceptance-probability for bin i, the
// correction factor carried by candidates accepted from that bin.
// Returns +Inf for zero-probability bins; callers never accept those.
func (t *Table) ImportanceWeight(i int) float64 {
	p := t.AcceptProb(i)
	if p <= 0 {
		return math.Inf(1)
	}
	return 1 / p
}

// SampleValue draws a value distributed per the table's target shape:
// a finite bin selected by probability mass, then uniform within it.
func (t *Table) SampleValue(rng *random.Rand) float64 {
	i := rng.WeightedIndex(t.mass)
	if i < 0 {
		return math.NaN()
	}
	return rng.UniformIn(t.edges[i], t.edges[i+1])
}
