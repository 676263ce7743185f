package traj

import (
	"github.com/airspacelab/pairgen/internal/physics"
)

// ControlVar identifies which control variable a motion-model event updates.
type ControlVar int

const (
	VarVerticalRate ControlVar = iota + 1 // value in ft/min
	VarTurnRate                           // value in deg/s
	VarAcceleration                       // value in kt/s
	VarTerminal                           // end-of-script marker, value unused
)

func (v ControlVar) String() string {
	switch v {
	case VarVerticalRate:
		return "vertical_rate"
	case VarTurnRate:
		return "turn_rate"
	case VarAcceleration:
		return "acceleration"
	case VarTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Event is one discrete control change drawn from the motion model: after
// DeltaT seconds the identified variable takes Value, in model-native units.
type Event struct {
	DeltaT float64
	Var    ControlVar
	Value  float64
}

// InitialState is an aircraft's starting state as drawn from the motion
// model, in model-native units (knots, ft/min, deg/s).
type InitialState struct {
	Region          int
	AirspaceClass   int
	AltLayer        int
	AltitudeFt      float64
	AirspeedKt      float64
	AccelKtPerS     float64
	VerticalRateFPM float64
	TurnRateDegPerS float64
	HeadingDeg      float64
	LevelFlight     bool
}

// ControlRow is one row of the simulator-native control schedule: the
// controls in effect from time T until the next row.
type ControlRow struct {
	T               float64 // seconds from trajectory start
	VerticalRateFPS float64
	TurnRateRadPerS float64
	AccelFPS2       float64
}

// ControlSequence is a time-ordered, compacted control schedule in
// simulator units (feet/second, radians/second).
type ControlSequence []ControlRow

// BuildControlSequence converts a model event list into a ControlSequence:
// times accumulate from the deltas, units convert to simulator-native, and
// updates with zero elapsed time fold into the preceding row instead of
// producing a duplicate timestamp.
func BuildControlSequence(st InitialState, events []Event) ControlSequence {
	seq := ControlSequence{{
		T:               0,
		VerticalRateFPS: st.VerticalRateFPM * physics.FPMToFPS,
		TurnRateRadPerS: st.TurnRateDegPerS * physics.DegToRad,
		AccelFPS2:       st.AccelKtPerS * physics.KnotsToFPS,
	}}
	t := 0.0
	for _, ev := range events {
		t += ev.DeltaT
		if ev.Var == VarTerminal {
			break
		}
		last := &seq[len(seq)-1]
		if t > last.T {
			next := *last
			next.T = t
			seq = append(seq, next)
			last = &seq[len(seq)-1]
		}
		switch ev.Var {
		case VarVerticalRate:
			last.VerticalRateFPS = ev.Value * physics.FPMToFPS
		case VarTurnRate:
			last.TurnRateRadPerS = ev.Value * physics.DegToRad
		case VarAcceleration:
			last.AccelFPS2 = ev.Value * physics.KnotsToFPS
		}
	}
	return seq
}

// ModelDraw is a candidate sourced from the motion model: an initial state
// plus the event list that drives its simulation.
type ModelDraw struct {
	State  InitialState
	Events []Event
}

// LibraryDraw is a candidate sourced from the trajectory library: a
// ready-made trajectory and the terrain elevation sampled alongside it.
type LibraryDraw struct {
	Trajectory         *Trajectory
	TerrainElevationFt float64
}

// Draw is one aircraft's candidate for a single trial. Exactly one of the
// two variants is populated.
type Draw struct {
	Model   *ModelDraw
	Library *LibraryDraw
}

// FromLibrary reports whether the draw carries a ready-made library
// trajectory (and therefore a terrain elevation sample).
func (d *Draw) FromLibrary() bool { return d.Library != nil }
