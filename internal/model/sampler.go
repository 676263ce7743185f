package model

import (
	"fmt"
	"sort"

	"github.com/airspacelab/pairgen/internal/random"
	"github.com/airspacelab/pairgen/internal/traj"
)

// Airspace class indices used by hints and class weights.
const (
	AirspaceB = iota
	AirspaceC
	AirspaceD
	AirspaceOther
)

// Layer is one altitude band aircraft are distributed into. Bounds are
// feet MSL.
type Layer struct {
	FloorFt   float64
	CeilingFt float64
}

// Hint pins categorical variables of a draw so the two aircraft of a pair
// can share them. A negative index leaves the variable free.
type Hint struct {
	Region        int
	AirspaceClass int
}

// NoHint leaves every categorical variable free.
func NoHint() Hint {
	return Hint{Region: -1, AirspaceClass: -1}
}

// Sampler draws initial states and control-change event lists from a model
// spec. All randomness flows through the supplied source, so a draw is
// reproducible from the seed alone.
type Sampler struct {
	spec   *Spec
	layers []Layer
}

// NewSampler binds a spec to the altitude layers of the run.
func NewSampler(spec *Spec, layers []Layer) (*Sampler, error) {
	if spec == nil {
		return nil, fmt.Errorf("model spec is required")
	}
	if len(layers) == 0 {
		return nil, fmt.Errorf("at least one altitude layer is required")
	}
	if len(spec.Initial.LayerWeights) != len(layers) {
		return nil, fmt.Errorf("model spec has %d layer weights but the run defines %d layers",
			len(spec.Initial.LayerWeights), len(layers))
	}
	for i, l := range layers {
		if l.CeilingFt <= l.FloorFt {
			return nil, fmt.Errorf("layer %d ceiling %v must be above floor %v", i, l.CeilingFt, l.FloorFt)
		}
	}
	return &Sampler{spec: spec, layers: layers}, nil
}

// Sample draws one aircraft: its initial state plus the control changes it
// will fly over sampleTime seconds. The event list is ordered by time, with
// delta-times between consecutive events, and always ends with a terminal
// event landing exactly on sampleTime.
func (s *Sampler) Sample(rng *random.Rand, sampleTimeSec float64, hint Hint) (traj.InitialState, []traj.Event, error) {
	if sampleTimeSec <= 0 {
		return traj.InitialState{}, nil, fmt.Errorf("sample time must be positive, got %v", sampleTimeSec)
	}

	st := traj.InitialState{}

	st.Region = hint.Region
	if st.Region < 0 {
		st.Region = rng.WeightedIndex(s.spec.Initial.RegionWeights)
	}
	st.AirspaceClass = hint.AirspaceClass
	if st.AirspaceClass < 0 {
		st.AirspaceClass = rng.WeightedIndex(s.spec.Initial.ClassWeights)
	}

	st.AltLayer = rng.WeightedIndex(s.spec.Initial.LayerWeights)
	layer := s.layers[st.AltLayer]
	st.AltitudeFt = rng.UniformIn(layer.FloorFt, layer.CeilingFt)

	st.LevelFlight = rng.Float64() < s.spec.Initial.LevelFlightProb
	st.AirspeedKt = s.sampleMarginal(rng, s.spec.Initial.AirspeedKt)
	if st.LevelFlight {
		st.VerticalRateFPM = 0
	} else {
		st.VerticalRateFPM = s.sampleMarginal(rng, s.spec.Initial.VerticalRateFPM)
	}
	st.TurnRateDegPerS = s.sampleMarginal(rng, s.spec.Initial.TurnRateDegPerS)
	st.AccelKtPerS = s.sampleMarginal(rng, s.spec.Initial.AccelKtPerS)
	st.HeadingDeg = s.sampleMarginal(rng, s.spec.Initial.HeadingDeg)

	events := s.sampleEvents(rng, sampleTimeSec, st)
	return st, events, nil
}

// sampleEvents runs one renewal process per controlled variable and merges
// them into a single time-ordered list. The per-variable draw order is
// fixed so the stream of random numbers consumed is stable for a seed.
func (s *Sampler) sampleEvents(rng *random.Rand, sampleTimeSec float64, st traj.InitialState) []traj.Event {
	type timed struct {
		t  float64
		ev traj.Event
	}
	var pending []timed

	renew := func(v traj.ControlVar, meanHoldSec float64, draw func() float64) {
		if meanHoldSec <= 0 {
			return
		}
		for t := rng.ExpFloat64(meanHoldSec); t < sampleTimeSec; t += rng.ExpFloat64(meanHoldSec) {
			pending = append(pending, timed{t: t, ev: traj.Event{Var: v, Value: draw()}})
		}
	}

	if !st.LevelFlight {
		renew(traj.VarVerticalRate, s.spec.Transitions.VerticalRate.MeanHoldSec, func() float64 {
			return s.sampleMarginal(rng, s.spec.Initial.VerticalRateFPM)
		})
	}
	renew(traj.VarTurnRate, s.spec.Transitions.TurnRate.MeanHoldSec, func() float64 {
		return s.sampleMarginal(rng, s.spec.Initial.TurnRateDegPerS)
	})
	renew(traj.VarAcceleration, s.spec.Transitions.Acceleration.MeanHoldSec, func() float64 {
		return s.sampleMarginal(rng, s.spec.Initial.AccelKtPerS)
	})

	sort.SliceStable(pending, func(i, j int) bool { return pending[i].t < pending[j].t })

	events := make([]traj.Event, 0, len(pending)+1)
	prev := 0.0
	for _, p := range pending {
		ev := p.ev
		ev.DeltaT = p.t - prev
		events = append(events, ev)
		prev = p.t
	}
	events = append(events, traj.Event{DeltaT: sampleTimeSec - prev, Var: traj.VarTerminal})
	return events
}

func (s *Sampler) sampleMarginal(rng *random.Rand, m Marginal) float64 {
	i := rng.WeightedIndex(m.Weights)
	if i < 0 {
		return m.Edges[0]
	}
	return rng.UniformIn(m.Edges[i], m.Edges[i+1])
}
