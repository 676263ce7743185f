package output

import (
	"math"

	"github.com/airspacelab/pairgen/internal/physics"
	"github.com/airspacelab/pairgen/internal/traj"
)

// Change smaller than these stays folded into the current scripted value.
const (
	scriptVRateDeadbandFPM    = 100
	scriptTurnDeadbandDegPerS = 0.25
	scriptAccelDeadbandKtPerS = 0.25
)

// Script item names, shared by both the event rows and consumers that
// replay them.
const (
	ItemVerticalRate = "vertical_rate_fpm"
	ItemTurnRate     = "turn_rate_deg_per_s"
	ItemAcceleration = "acceleration_kt_per_s"
	ItemEnd          = "end"
)

// ScriptInitial is the state a scripted aircraft starts from.
type ScriptInitial struct {
	EastFt          float64
	NorthFt         float64
	AltFt           float64
	SpeedKt         float64
	HeadingTrueDeg  float64
	VerticalRateFPM float64
	TurnRateDegPerS float64
	AccelKtPerS     float64
}

// ScriptEvent is one discrete control change.
type ScriptEvent struct {
	TimeSec float64
	Item    string
	Value   float64
}

// Script is the discrete replayable form of a trajectory: initial
// conditions plus the control changes needed to reproduce it.
type Script struct {
	Initial ScriptInitial
	Events  []ScriptEvent
}

// DeriveScript reduces a trajectory to a script. Control rates are
// estimated over one-second windows; a change is scripted only when it
// moves past a deadband, so sensor-level jitter does not turn into event
// spam. The script always closes with an end event at the final sample.
func DeriveScript(t *traj.Trajectory) Script {
	var s Script
	if t.Len() == 0 {
		return s
	}

	step := int(math.Round(1 / traj.SampleDT))
	secs := (t.Len() - 1) / step

	s.Initial = ScriptInitial{
		EastFt:         t.East[0],
		NorthFt:        t.North[0],
		AltFt:          t.Up[0],
		SpeedKt:        t.SpeedFPS[0] * physics.FPSToKnots,
		HeadingTrueDeg: physics.WrapHeading(t.HeadingRad[0]) * physics.RadToDeg,
	}
	if secs > 0 {
		s.Initial.VerticalRateFPM = vrateOver(t, 0, step)
		s.Initial.TurnRateDegPerS = turnOver(t, 0, step)
		s.Initial.AccelKtPerS = accelOver(t, 0, step)
	}

	curVR := s.Initial.VerticalRateFPM
	curTurn := s.Initial.TurnRateDegPerS
	curAccel := s.Initial.AccelKtPerS
	for k := 1; k < secs; k++ {
		at := t.T[k*step]
		if vr := vrateOver(t, k*step, step); math.Abs(vr-curVR) > scriptVRateDeadbandFPM {
			curVR = vr
			s.Events = append(s.Events, ScriptEvent{TimeSec: at, Item: ItemVerticalRate, Value: vr})
		}
		if tr := turnOver(t, k*step, step); math.Abs(tr-curTurn) > scriptTurnDeadbandDegPerS {
			curTurn = tr
			s.Events = append(s.Events, ScriptEvent{TimeSec: at, Item: ItemTurnRate, Value: tr})
		}
		if ac := accelOver(t, k*step, step); math.Abs(ac-curAccel) > scriptAccelDeadbandKtPerS {
			curAccel = ac
			s.Events = append(s.Events, ScriptEvent{TimeSec: at, Item: ItemAcceleration, Value: ac})
		}
	}

	s.Events = append(s.Events, ScriptEvent{TimeSec: t.T[t.Len()-1], Item: ItemEnd})
	return s
}

func vrateOver(t *traj.Trajectory, i, step int) float64 {
	dt := t.T[i+step] - t.T[i]
	return (t.Up[i+step] - t.Up[i]) / dt * 60
}

func turnOver(t *traj.Trajectory, i, step int) float64 {
	d := t.HeadingRad[i+step] - t.HeadingRad[i]
	for d > math.Pi {
		d -= 2 * math.Pi
	}
	for d < -math.Pi {
		d += 2 * math.Pi
	}
	return d / (t.T[i+step] - t.T[i]) * physics.RadToDeg
}

func accelOver(t *traj.Trajectory, i, step int) float64 {
	dt := t.T[i+step] - t.T[i]
	return (t.SpeedFPS[i+step] - t.SpeedFPS[i]) / dt * physics.FPSToKnots
}
