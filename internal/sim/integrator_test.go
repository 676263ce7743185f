package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airspacelab/pairgen/internal/physics"
	"github.com/airspacelab/pairgen/internal/traj"
)

func terminalOnly(st traj.InitialState, durSec float64) traj.ControlSequence {
	return traj.BuildControlSequence(st, []traj.Event{{DeltaT: durSec, Var: traj.VarTerminal}})
}

func TestSimulateLevelFlight(t *testing.T) {
	st := traj.InitialState{AltitudeFt: 5000, AirspeedKt: 120, HeadingDeg: 0}
	out := NewIntegrator().Simulate(st, terminalOnly(st, 60), 60)

	require.Equal(t, 601, out.Len())
	for i := 0; i < out.Len(); i++ {
		assert.InDelta(t, float64(i)*traj.SampleDT, out.T[i], 1e-9)
	}

	// Altitude and heading hold; the path runs due north.
	last := out.Len() - 1
	assert.InDelta(t, 5000, out.Up[last], 1e-9)
	assert.InDelta(t, 0, out.HeadingRad[last], 1e-9)
	assert.InDelta(t, 0, out.East[last], 1e-9)
	assert.InDelta(t, 120*physics.KnotsToFPS*60, out.North[last], 1e-6)
	assert.InDelta(t, 0, out.PitchRad[last], 1e-9)
	assert.InDelta(t, 0, out.BankRad[last], 1e-9)
}

func TestSimulateConstantTurn(t *testing.T) {
	st := traj.InitialState{AltitudeFt: 3000, AirspeedKt: 150, HeadingDeg: 0, TurnRateDegPerS: 3}
	out := NewIntegrator().Simulate(st, terminalOnly(st, 10), 10)

	// Heading advances by rate times elapsed time.
	assert.InDelta(t, 30*physics.DegToRad, out.HeadingRad[out.Len()-1], 1e-9)
	// A right turn banks right.
	assert.Greater(t, out.BankRad[50], 0.0)
}

func TestSimulateClimb(t *testing.T) {
	st := traj.InitialState{AltitudeFt: 2000, AirspeedKt: 100, VerticalRateFPM: 600}
	out := NewIntegrator().Simulate(st, terminalOnly(st, 60), 60)

	assert.InDelta(t, 2600, out.Up[out.Len()-1], 1e-6)
	assert.Greater(t, out.PitchRad[0], 0.0)
}

func TestSimulateScheduledChange(t *testing.T) {
	st := traj.InitialState{AltitudeFt: 4000, AirspeedKt: 120, VerticalRateFPM: 600}
	seq := traj.BuildControlSequence(st, []traj.Event{
		{DeltaT: 30, Var: traj.VarVerticalRate, Value: -600},
		{DeltaT: 30, Var: traj.VarTerminal},
	})
	out := NewIntegrator().Simulate(st, seq, 60)

	// Up 300 ft over the first half, back down over the second.
	assert.InDelta(t, 4300, out.AltitudeAt(30), 1)
	assert.InDelta(t, 4000, out.AltitudeAt(60), 1)
}

func TestSimulateDoesNotClampDegenerateDraws(t *testing.T) {
	st := traj.InitialState{AltitudeFt: 5000, AirspeedKt: 50, AccelKtPerS: -10}
	out := NewIntegrator().Simulate(st, terminalOnly(st, 10), 10)

	// Speed runs through zero and keeps going; screening is the caller's job.
	assert.Less(t, out.SpeedFPS[out.Len()-1], 0.0)
}

func TestSimulatePair(t *testing.T) {
	st1 := traj.InitialState{AltitudeFt: 5000, AirspeedKt: 120}
	st2 := traj.InitialState{AltitudeFt: 6000, AirspeedKt: 180, HeadingDeg: 90}
	tr1, tr2 := NewIntegrator().SimulatePair(st1, terminalOnly(st1, 30), st2, terminalOnly(st2, 30), 30)

	require.Equal(t, tr1.Len(), tr2.Len())
	assert.InDelta(t, 5000, tr1.Up[0], 1e-9)
	assert.InDelta(t, 6000, tr2.Up[0], 1e-9)
}
