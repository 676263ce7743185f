package random

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedSequenceAdvancesByOne(t *testing.T) {
	seq := NewSeedSequence(10)
	for i := 0; i < 100; i++ {
		assert.Equal(t, uint64(10+i), seq.Next())
	}
	assert.Equal(t, uint64(110), seq.Pos())
	assert.False(t, seq.Exhausted())
}

func TestSeedSequenceSaturatesAtCap(t *testing.T) {
	seq := NewSeedSequence(SeedCap - 2)
	assert.Equal(t, SeedCap-2, seq.Next())
	assert.Equal(t, SeedCap-1, seq.Next())
	assert.True(t, seq.Exhausted())

	// Past the cap the sequence stops advancing but keeps serving.
	assert.Equal(t, SeedCap, seq.Next())
	assert.Equal(t, SeedCap, seq.Next())
	assert.Equal(t, SeedCap, seq.Pos())
}

func TestSeedSequenceClampsStart(t *testing.T) {
	seq := NewSeedSequence(SeedCap + 100)
	assert.True(t, seq.Exhausted())
	assert.Equal(t, SeedCap, seq.Next())
}

func TestSeededReplay(t *testing.T) {
	a := NewSeeded(42)
	b := NewSeeded(42)
	for i := 0; i < 100; i++ {
		require.Equal(t, a.Uint32(), b.Uint32())
	}

	// A different seed diverges immediately in practice; check the first
	// few draws are not all identical.
	c := NewSeeded(43)
	d := NewSeeded(42)
	same := true
	for i := 0; i < 4; i++ {
		if c.Uint32() != d.Uint32() {
			same = false
		}
	}
	assert.False(t, same)
}

func TestFloat64HalfOpen(t *testing.T) {
	rng := NewSeeded(1)
	for i := 0; i < 10000; i++ {
		v := rng.Float64()
		require.GreaterOrEqual(t, v, 0.0)
		require.Less(t, v, 1.0)
	}
}

func TestUniformIn(t *testing.T) {
	rng := NewSeeded(2)
	for i := 0; i < 1000; i++ {
		v := rng.UniformIn(-50, 25)
		require.GreaterOrEqual(t, v, -50.0)
		require.Less(t, v, 25.0)
	}
}

func TestIntn(t *testing.T) {
	rng := NewSeeded(3)
	seen := make(map[int]bool)
	for i := 0; i < 1000; i++ {
		v := rng.Intn(5)
		require.GreaterOrEqual(t, v, 0)
		require.Less(t, v, 5)
		seen[v] = true
	}
	assert.Len(t, seen, 5)

	assert.Panics(t, func() { rng.Intn(0) })
}

func TestExpFloat64(t *testing.T) {
	rng := NewSeeded(4)
	var sum float64
	const n = 20000
	for i := 0; i < n; i++ {
		v := rng.ExpFloat64(30)
		require.GreaterOrEqual(t, v, 0.0)
		sum += v
	}
	assert.InDelta(t, 30, sum/n, 1.5)
}

func TestWeightedIndex(t *testing.T) {
	rng := NewSeeded(5)

	t.Run("no positive weight", func(t *testing.T) {
		assert.Equal(t, -1, rng.WeightedIndex(nil))
		assert.Equal(t, -1, rng.WeightedIndex([]float64{0, 0, -1}))
	})

	t.Run("single positive weight always wins", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			assert.Equal(t, 1, rng.WeightedIndex([]float64{0, 3, 0}))
		}
	})

	t.Run("proportional selection", func(t *testing.T) {
		counts := make([]int, 2)
		const n = 20000
		for i := 0; i < n; i++ {
			counts[rng.WeightedIndex([]float64{1, 3})]++
		}
		assert.InDelta(t, 0.25, float64(counts[0])/n, 0.02)
	})
}
