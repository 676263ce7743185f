package geometry

import (
	"math"

	"github.com/airspacelab/pairgen/internal/physics"
	"github.com/airspacelab/pairgen/internal/traj"
)

// Properties are the once-per-second series derived from a finalized pair.
// Envelope filtering runs against these, and the intruder series are
// persisted with the encounter record.
type Properties struct {
	OwnAltFt   []float64
	OwnSpeedKt []float64
	IntAltFt   []float64
	IntSpeedKt []float64
}

// ExtractProperties downsamples both trajectories to one-second altitude
// and ground-speed series. Ground speed comes from the horizontal position
// deltas rather than the stored speed channel, so library and simulated
// tracks report the same quantity.
func ExtractProperties(own, intr *traj.Trajectory) Properties {
	ownAlt, ownSpeed := seriesPerSecond(own)
	intAlt, intSpeed := seriesPerSecond(intr)
	return Properties{
		OwnAltFt:   ownAlt,
		OwnSpeedKt: ownSpeed,
		IntAltFt:   intAlt,
		IntSpeedKt: intSpeed,
	}
}

// IndexAtSecond maps a time to an index into the per-second series,
// rounding to the nearest whole second. Returns -1 outside the series.
func (p Properties) IndexAtSecond(tSec float64, n int) int {
	i := int(math.Round(tSec))
	if i < 0 || i >= n {
		return -1
	}
	return i
}

func seriesPerSecond(t *traj.Trajectory) (alt, speedKt []float64) {
	if t.Len() == 0 {
		return nil, nil
	}
	step := int(math.Round(1 / traj.SampleDT))
	n := (t.Len()-1)/step + 1
	alt = make([]float64, 0, n)
	speedKt = make([]float64, 0, n)
	for k := 0; k < t.Len(); k += step {
		alt = append(alt, t.Up[k])
		speedKt = append(speedKt, groundSpeedAt(t, k)*physics.FPSToKnots)
	}
	return alt, speedKt
}

func groundSpeedAt(t *traj.Trajectory, k int) float64 {
	lo, hi := k-1, k+1
	if lo < 0 {
		lo = k
	}
	if hi > t.Len()-1 {
		hi = k
	}
	if hi == lo {
		return 0
	}
	dt := t.T[hi] - t.T[lo]
	return math.Hypot(t.East[hi]-t.East[lo], t.North[hi]-t.North[lo]) / dt
}
