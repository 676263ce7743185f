package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airspacelab/pairgen/internal/random"
	"github.com/airspacelab/pairgen/internal/traj"
)

func testLayers() []Layer {
	return []Layer{
		{FloorFt: 500, CeilingFt: 1200},
		{FloorFt: 1200, CeilingFt: 3000},
		{FloorFt: 3000, CeilingFt: 5000},
		{FloorFt: 5000, CeilingFt: 12500},
	}
}

func TestDefaultSpecIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestSpecValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Spec)
	}{
		{"empty region weights", func(s *Spec) { s.Initial.RegionWeights = nil }},
		{"negative weight", func(s *Spec) { s.Initial.ClassWeights = []float64{1, -1} }},
		{"zero total", func(s *Spec) { s.Initial.LayerWeights = []float64{0, 0} }},
		{"bad level flight prob", func(s *Spec) { s.Initial.LevelFlightProb = 1.5 }},
		{"marginal length mismatch", func(s *Spec) {
			s.Initial.AirspeedKt = Marginal{Edges: []float64{0, 100, 200}, Weights: []float64{1}}
		}},
		{"marginal edges not increasing", func(s *Spec) {
			s.Initial.HeadingDeg = Marginal{Edges: []float64{0, 0}, Weights: []float64{1}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := Default()
			tt.mutate(spec)
			require.Error(t, spec.Validate())
		})
	}
}

func TestNewSamplerErrors(t *testing.T) {
	t.Run("nil spec", func(t *testing.T) {
		_, err := NewSampler(nil, testLayers())
		require.Error(t, err)
	})

	t.Run("layer count mismatch", func(t *testing.T) {
		_, err := NewSampler(Default(), testLayers()[:2])
		require.Error(t, err)
	})

	t.Run("inverted layer", func(t *testing.T) {
		layers := testLayers()
		layers[1] = Layer{FloorFt: 3000, CeilingFt: 1200}
		_, err := NewSampler(Default(), layers)
		require.Error(t, err)
	})
}

func TestSampleDeterministic(t *testing.T) {
	s, err := NewSampler(Default(), testLayers())
	require.NoError(t, err)

	st1, ev1, err := s.Sample(random.NewSeeded(99), 180, NoHint())
	require.NoError(t, err)
	st2, ev2, err := s.Sample(random.NewSeeded(99), 180, NoHint())
	require.NoError(t, err)

	assert.Equal(t, st1, st2)
	assert.Equal(t, ev1, ev2)
}

func TestSampleEventListShape(t *testing.T) {
	s, err := NewSampler(Default(), testLayers())
	require.NoError(t, err)

	for seed := uint64(0); seed < 20; seed++ {
		st, events, err := s.Sample(random.NewSeeded(seed), 120, NoHint())
		require.NoError(t, err)

		require.NotEmpty(t, events)
		assert.Equal(t, traj.VarTerminal, events[len(events)-1].Var)

		// Delta times accumulate to exactly the sample time and the list
		// is ordered.
		var total float64
		for _, ev := range events {
			assert.GreaterOrEqual(t, ev.DeltaT, 0.0)
			total += ev.DeltaT
		}
		assert.InDelta(t, 120, total, 1e-9)

		// The drawn altitude lands inside the drawn layer's band.
		layer := testLayers()[st.AltLayer]
		assert.GreaterOrEqual(t, st.AltitudeFt, layer.FloorFt)
		assert.Less(t, st.AltitudeFt, layer.CeilingFt)
	}
}

func TestSampleLevelFlight(t *testing.T) {
	spec := Default()
	spec.Initial.LevelFlightProb = 1
	s, err := NewSampler(spec, testLayers())
	require.NoError(t, err)

	st, events, err := s.Sample(random.NewSeeded(5), 180, NoHint())
	require.NoError(t, err)

	assert.True(t, st.LevelFlight)
	assert.Zero(t, st.VerticalRateFPM)
	for _, ev := range events {
		assert.NotEqual(t, traj.VarVerticalRate, ev.Var,
			"a level-flight draw must not schedule vertical rate changes")
	}
}

func TestSampleHintPinsCategoricals(t *testing.T) {
	s, err := NewSampler(Default(), testLayers())
	require.NoError(t, err)

	st, _, err := s.Sample(random.NewSeeded(1), 60, Hint{Region: 2, AirspaceClass: AirspaceOther})
	require.NoError(t, err)
	assert.Equal(t, 2, st.Region)
	assert.Equal(t, AirspaceOther, st.AirspaceClass)
}

func TestSampleRejectsBadSampleTime(t *testing.T) {
	s, err := NewSampler(Default(), testLayers())
	require.NoError(t, err)
	_, _, err = s.Sample(random.NewSeeded(1), 0, NoHint())
	require.Error(t, err)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[initial]
level_flight_prob = 1.0

[transitions.turn_rate]
mean_hold_sec = 99.0
`), 0644))

	spec, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1.0, spec.Initial.LevelFlightProb)
	assert.Equal(t, 99.0, spec.Transitions.TurnRate.MeanHoldSec)
	// Untouched sections keep the built-in values.
	assert.Equal(t, Default().Initial.AirspeedKt, spec.Initial.AirspeedKt)
}

func TestLoadWithFallback(t *testing.T) {
	spec, err := LoadWithFallback("")
	require.NoError(t, err)
	assert.Equal(t, Default(), spec)

	_, err = LoadWithFallback(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}
