package random

import (
	"math"

	"github.com/MichaelTJones/pcg"
)

// pcgStream selects the PCG32 output stream. All generators in the process
// use the same stream so that a seed value alone fully determines a draw
// sequence.
const pcgStream = 0xda3e39cb94b95bdb

// Rand is a small deterministic PRNG used for every stochastic draw in the
// generator. Reseeding with the same value replays the identical sequence,
// which is what makes individual trials reproducible from their seed.
type Rand struct {
	r *pcg.PCG32
}

// New returns an unseeded generator. Seed must be called before use when
// reproducibility matters.
func New() *Rand {
	return &Rand{r: pcg.NewPCG32()}
}

// NewSeeded returns a generator seeded with s.
func NewSeeded(s uint64) *Rand {
	r := New()
	r.Seed(s)
	return r
}

// Seed resets the generator state to the sequence identified by s.
func (r *Rand) Seed(s uint64) {
	r.r.Seed(s, pcgStream)
}

// Uint32 returns the next raw 32-bit output.
func (r *Rand) Uint32() uint32 {
	return r.r.Random()
}

// Float64 returns a uniform draw in [0, 1). The divisor is 2^32 (not 2^32-1)
// so 1.0 is never returned.
func (r *Rand) Float64() float64 {
	return float64(r.r.Random()) / (1 << 32)
}

// Intn returns a uniform draw in [0, n). Panics if n <= 0.
func (r *Rand) Intn(n int) int {
	if n <= 0 {
		panic("random: Intn with non-positive n")
	}
	return int(r.r.Bounded(uint32(n)))
}

// UniformIn returns a uniform draw in [lo, hi).
func (r *Rand) UniformIn(lo, hi float64) float64 {
	return lo + (hi-lo)*r.Float64()
}

// ExpFloat64 returns an exponentially distributed draw with the given mean.
func (r *Rand) ExpFloat64(mean float64) float64 {
	return -mean * math.Log(1-r.Float64())
}

// WeightedIndex samples an index with probability proportional to its weight.
// Non-positive weights are never selected. Returns -1 when no weight is
// positive.
func (r *Rand) WeightedIndex(weights []float64) int {
	var total float64
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}
	u := r.Float64() * total
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		if u < w {
			return i
		}
		u -= w
	}
	// Float accumulation can leave u marginally above the last weight.
	for i := len(weights) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return i
		}
	}
	return -1
}
