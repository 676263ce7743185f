package sim

import (
	"math"

	"github.com/airspacelab/pairgen/internal/physics"
	"github.com/airspacelab/pairgen/internal/traj"
)

// Integrator turns an initial state plus a control schedule into a
// fixed-rate kinematic time series. It is a point-mass model: speed follows
// the commanded acceleration, heading the commanded turn rate, altitude the
// commanded vertical rate, and the horizontal velocity is whatever the
// airspeed has left after the vertical component.
//
// The integrator is deterministic and never clamps: a degenerate draw (for
// example an acceleration schedule that drives speed negative) propagates
// into the output so the caller can detect and reject it.
type Integrator struct {
	dt float64
}

// NewIntegrator returns an integrator stepping at the internal sample rate.
func NewIntegrator() *Integrator {
	return &Integrator{dt: traj.SampleDT}
}

// Simulate integrates one aircraft for sampleTime seconds and returns the
// resulting trajectory, sampled at the internal rate with the initial state
// as the first sample.
func (g *Integrator) Simulate(st traj.InitialState, seq traj.ControlSequence, sampleTimeSec float64) *traj.Trajectory {
	steps := int(math.Round(sampleTimeSec / g.dt))
	out := traj.NewTrajectory(steps + 1)

	east, north := 0.0, 0.0
	up := st.AltitudeFt
	speed := st.AirspeedKt * physics.KnotsToFPS
	heading := physics.WrapHeading(st.HeadingDeg * physics.DegToRad)

	row := 0
	for i := 0; i <= steps; i++ {
		t := float64(i) * g.dt
		for row+1 < len(seq) && seq[row+1].T <= t {
			row++
		}
		var vrate, turn, accel float64
		if len(seq) > 0 {
			vrate = seq[row].VerticalRateFPS
			turn = seq[row].TurnRateRadPerS
			accel = seq[row].AccelFPS2
		}

		out.Append(t, east, north, up, speed, heading,
			pitchAngle(speed, vrate), bankAngle(speed, vrate, turn), accel)

		// Advance state to the next sample.
		hv := horizontalSpeed(speed, vrate)
		east += hv * math.Sin(heading) * g.dt
		north += hv * math.Cos(heading) * g.dt
		up += vrate * g.dt
		speed += accel * g.dt
		heading = physics.WrapHeading(heading + turn*g.dt)
	}
	return out
}

// SimulatePair integrates both aircraft of a trial over a common span.
func (g *Integrator) SimulatePair(st1 traj.InitialState, seq1 traj.ControlSequence,
	st2 traj.InitialState, seq2 traj.ControlSequence, sampleTimeSec float64) (*traj.Trajectory, *traj.Trajectory) {
	return g.Simulate(st1, seq1, sampleTimeSec), g.Simulate(st2, seq2, sampleTimeSec)
}

// horizontalSpeed is the ground-plane component of the airspeed once the
// vertical rate is spent. Draws with |vrate| >= speed flatten to zero
// rather than going imaginary; the sample provider screens such draws
// before they reach simulation.
func horizontalSpeed(speed, vrate float64) float64 {
	s2 := speed*speed - vrate*vrate
	if s2 <= 0 {
		return 0
	}
	return math.Sqrt(s2)
}

func pitchAngle(speed, vrate float64) float64 {
	if speed == 0 {
		return 0
	}
	r := vrate / math.Abs(speed)
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return math.Asin(r)
}

// bankAngle assumes a coordinated turn: tan(bank) = v·ω/g.
func bankAngle(speed, vrate, turn float64) float64 {
	hv := horizontalSpeed(speed, vrate)
	return math.Atan2(turn*hv, physics.G)
}
