package geometry

import (
	"math"

	"github.com/airspacelab/pairgen/internal/bins"
	"github.com/airspacelab/pairgen/internal/random"
	"github.com/airspacelab/pairgen/internal/traj"
)

// Params are the fixed constraints a finalized pair must satisfy.
type Params struct {
	DesiredTCASec     float64
	MinInitialHorizFt float64
	MinInitialVertFt  float64
}

// Geometry describes a finalized pair: the separations that were targeted
// and the separations the pair actually realizes at its closest point of
// approach. Failed marks a pair the finalizer could not place.
type Geometry struct {
	TargetVMDFt float64
	TargetHMDFt float64

	VMDFt         float64
	HMDFt         float64
	TCASec        float64
	OwnAltAtTCAFt float64
	IntAltAtTCAFt float64

	Failed bool
}

// Finalizer places an independently drawn intruder trajectory into the
// ownship frame so the pair realizes a target horizontal miss distance at
// the desired time of closest approach. Vertical geometry is left exactly
// as drawn; only the horizontal placement is constructed.
type Finalizer struct {
	params Params
}

func NewFinalizer(params Params) *Finalizer {
	return &Finalizer{params: params}
}

// Finalize draws a horizontal miss distance from the target table, shifts
// the intruder so the pair passes that far apart at the desired time of
// closest approach, then measures the geometry the pair actually realizes.
// The intruder trajectory is translated in place. targetVMD is the signed
// height difference the pair carries at the desired time.
//
// The miss vector is laid perpendicular to the relative horizontal
// velocity, so the desired time is a stationary point of the horizontal
// separation and the realized closest approach lands near it. Random draws
// happen in a fixed order (miss distance, then side or bearing), keeping a
// trial reproducible from its seed.
func (f *Finalizer) Finalize(rng *random.Rand, own, intr *traj.Trajectory, targetVMD float64, hmdTable *bins.Table) Geometry {
	g := Geometry{TargetVMDFt: targetVMD}

	g.TargetHMDFt = math.Abs(hmdTable.SampleValue(rng))

	i := own.IndexAtTime(f.params.DesiredTCASec)
	j := intr.IndexAtTime(f.params.DesiredTCASec)
	if i < 0 || j < 0 {
		g.Failed = true
		return g
	}

	dirE, dirN := f.missDirection(rng, own, intr, i, j)
	targetE := own.East[i] + g.TargetHMDFt*dirE
	targetN := own.North[i] + g.TargetHMDFt*dirN
	intr.Translate(targetE-intr.East[j], targetN-intr.North[j], 0)

	// The pair must begin outside close proximity in at least one axis.
	hsep0 := math.Hypot(intr.East[0]-own.East[0], intr.North[0]-own.North[0])
	vsep0 := math.Abs(intr.Up[0] - own.Up[0])
	if hsep0 < f.params.MinInitialHorizFt && vsep0 < f.params.MinInitialVertFt {
		g.Failed = true
		return g
	}

	f.measureCPA(own, intr, &g)
	return g
}

// missDirection returns the unit direction from ownship to intruder at the
// desired time of closest approach. It is perpendicular to the relative
// horizontal velocity when that velocity is meaningful, with the side
// chosen at random; a near-zero relative velocity falls back to a uniform
// bearing.
func (f *Finalizer) missDirection(rng *random.Rand, own, intr *traj.Trajectory, i, j int) (float64, float64) {
	ovE, ovN := sampleVelocity(own, i)
	ivE, ivN := sampleVelocity(intr, j)
	relE, relN := ivE-ovE, ivN-ovN

	mag := math.Hypot(relE, relN)
	if mag < 1e-9 {
		bearing := rng.UniformIn(0, 2*math.Pi)
		return math.Sin(bearing), math.Cos(bearing)
	}

	perpE, perpN := -relN/mag, relE/mag
	if rng.Float64() < 0.5 {
		perpE, perpN = -perpE, -perpN
	}
	return perpE, perpN
}

// sampleVelocity estimates the horizontal velocity at sample k by finite
// difference, central where both neighbours exist.
func sampleVelocity(t *traj.Trajectory, k int) (float64, float64) {
	lo, hi := k-1, k+1
	if lo < 0 {
		lo = k
	}
	if hi > t.Len()-1 {
		hi = k
	}
	if hi == lo {
		return 0, 0
	}
	dt := t.T[hi] - t.T[lo]
	return (t.East[hi] - t.East[lo]) / dt, (t.North[hi] - t.North[lo]) / dt
}

// measureCPA scans the overlapping samples for the minimum 3D separation
// and records the geometry realized there.
func (f *Finalizer) measureCPA(own, intr *traj.Trajectory, g *Geometry) {
	n := own.Len()
	if intr.Len() < n {
		n = intr.Len()
	}

	best := math.Inf(1)
	bestK := 0
	for k := 0; k < n; k++ {
		dE := intr.East[k] - own.East[k]
		dN := intr.North[k] - own.North[k]
		dU := intr.Up[k] - own.Up[k]
		d2 := dE*dE + dN*dN + dU*dU
		if d2 < best {
			best = d2
			bestK = k
		}
	}

	g.TCASec = own.T[bestK]
	g.HMDFt = math.Hypot(intr.East[bestK]-own.East[bestK], intr.North[bestK]-own.North[bestK])
	g.VMDFt = math.Abs(intr.Up[bestK] - own.Up[bestK])
	g.OwnAltAtTCAFt = own.Up[bestK]
	g.IntAltAtTCAFt = intr.Up[bestK]
}
