package encounter

import (
	"math"

	"github.com/airspacelab/pairgen/internal/bins"
	"github.com/airspacelab/pairgen/internal/geometry"
	"github.com/airspacelab/pairgen/internal/random"
	"github.com/airspacelab/pairgen/internal/sim"
	"github.com/airspacelab/pairgen/internal/traj"
)

// Finalized geometry must land this close to its targets or the trial is
// rejected and redrawn.
const (
	vmdToleranceFt = 20
	hmdToleranceFt = 500
)

// Envelope is one aircraft's operating bounds plus the toggles saying
// when they are enforced. Bounds are inclusive.
type Envelope struct {
	AltMinFt    float64
	AltMaxFt    float64
	AltDatumMSL bool
	SpeedMinKt  float64
	SpeedMaxKt  float64

	FilterAtCPA bool
	FilterWhole bool
}

// altBounds returns the altitude bounds in the frame of the aircraft's
// altitude series. Bounds configured MSL are shifted to AGL, floored at
// zero, for library-sourced aircraft; terrain elevation is unknown for
// modelled aircraft, so their bounds apply as configured.
func (e Envelope) altBounds(d traj.Draw) (lo, hi float64) {
	lo, hi = e.AltMinFt, e.AltMaxFt
	if e.AltDatumMSL && d.FromLibrary() {
		terrain := d.Library.TerrainElevationFt
		lo = math.Max(lo-terrain, 0)
		hi = math.Max(hi-terrain, 0)
	}
	return lo, hi
}

// Params fixes the run-wide quantities the evaluator screens against.
type Params struct {
	SampleTimeSec float64
	DesiredTCASec float64
	MinTCASec     float64
	Ownship       Envelope
	Intruder      Envelope
}

// Evaluator runs one trial through the accept/reject pipeline: simulate,
// screen, rejection-sample on vertical miss distance, finalize geometry,
// then a chain of independent candidate filters.
type Evaluator struct {
	vmd        *bins.Table
	hmd        *bins.Table
	integrator *sim.Integrator
	finalizer  *geometry.Finalizer
	params     Params
	filters    []candidateFilter
}

type candidateFilter struct {
	reason RejectReason
	pass   func(*Candidate) bool
}

func NewEvaluator(vmd, hmd *bins.Table, integrator *sim.Integrator, finalizer *geometry.Finalizer, params Params) *Evaluator {
	e := &Evaluator{
		vmd:        vmd,
		hmd:        hmd,
		integrator: integrator,
		finalizer:  finalizer,
		params:     params,
	}
	e.filters = []candidateFilter{
		{RejectTolerance, e.toleranceOK},
		{RejectEnvelopeIntruderCPA, e.intruderAtCPAOK},
		{RejectEnvelopeIntruderWhole, e.intruderWholeOK},
		{RejectEnvelopeOwnshipCPA, e.ownshipAtCPAOK},
		{RejectEnvelopeOwnshipWhole, e.ownshipWholeOK},
		{RejectTiming, e.timingOK},
	}
	return e
}

// Evaluate runs a single trial. It returns the accepted candidate, or nil
// and the reason the trial was discarded. All randomness the trial
// consumes flows through rng in a fixed order.
func (e *Evaluator) Evaluate(rng *random.Rand, ownDraw, intDraw traj.Draw) (*Candidate, RejectReason) {
	own := e.materialize(ownDraw)
	intr := e.materialize(intDraw)

	if (!ownDraw.FromLibrary() && degenerate(own)) || (!intDraw.FromLibrary() && degenerate(intr)) {
		return nil, RejectPhysical
	}

	ownH := own.AltitudeAt(e.params.DesiredTCASec)
	intH := intr.AltitudeAt(e.params.DesiredTCASec)
	if math.IsNaN(ownH) || math.IsNaN(intH) {
		return nil, RejectShortDraw
	}
	relHeight := intH - ownH

	bin := e.vmd.Locate(relHeight)
	if rng.Float64() >= e.vmd.AcceptProb(bin) {
		return nil, RejectVMD
	}
	weight := e.vmd.ImportanceWeight(bin)

	g := e.finalizer.Finalize(rng, own, intr, relHeight, e.hmd)
	if g.Failed {
		return nil, RejectGeometry
	}

	cand := &Candidate{
		Ownship:  own,
		Intruder: intr,
		OwnDraw:  ownDraw,
		IntDraw:  intDraw,
		Weight:   weight,
		Geom:     g,
		Props:    geometry.ExtractProperties(own, intr),
	}
	for _, f := range e.filters {
		if !f.pass(cand) {
			return nil, f.reason
		}
	}
	return cand, RejectNone
}

// materialize turns a draw into a trajectory, integrating modelled draws
// and passing library tracks through untouched.
func (e *Evaluator) materialize(d traj.Draw) *traj.Trajectory {
	if d.FromLibrary() {
		return d.Library.Trajectory
	}
	seq := traj.BuildControlSequence(d.Model.State, d.Model.Events)
	return e.integrator.Simulate(d.Model.State, seq, e.params.SampleTimeSec)
}

// degenerate reports whether integration produced a negative speed or
// altitude sample.
func degenerate(t *traj.Trajectory) bool {
	for i := 0; i < t.Len(); i++ {
		if t.SpeedFPS[i] < 0 || t.Up[i] < 0 {
			return true
		}
	}
	return false
}

func (e *Evaluator) toleranceOK(c *Candidate) bool {
	return math.Abs(c.Geom.VMDFt-math.Abs(c.Geom.TargetVMDFt)) < vmdToleranceFt &&
		math.Abs(c.Geom.HMDFt-math.Abs(c.Geom.TargetHMDFt)) < hmdToleranceFt
}

func (e *Evaluator) intruderAtCPAOK(c *Candidate) bool {
	if !e.params.Intruder.FilterAtCPA {
		return true
	}
	return checkAtCPA(c, e.params.Intruder, c.IntDraw, c.Props.IntAltFt, c.Props.IntSpeedKt)
}

func (e *Evaluator) intruderWholeOK(c *Candidate) bool {
	if !e.params.Intruder.FilterWhole {
		return true
	}
	return checkWhole(e.params.Intruder, c.IntDraw, c.Props.IntAltFt, c.Props.IntSpeedKt)
}

func (e *Evaluator) ownshipAtCPAOK(c *Candidate) bool {
	if !e.params.Ownship.FilterAtCPA {
		return true
	}
	return checkAtCPA(c, e.params.Ownship, c.OwnDraw, c.Props.OwnAltFt, c.Props.OwnSpeedKt)
}

func (e *Evaluator) ownshipWholeOK(c *Candidate) bool {
	if !e.params.Ownship.FilterWhole {
		return true
	}
	return checkWhole(e.params.Ownship, c.OwnDraw, c.Props.OwnAltFt, c.Props.OwnSpeedKt)
}

func (e *Evaluator) timingOK(c *Candidate) bool {
	return c.Geom.TCASec >= e.params.MinTCASec
}

// checkAtCPA screens the per-second series at the rounded time of closest
// approach. A closest approach outside the series cannot be verified and
// fails the check.
func checkAtCPA(c *Candidate, env Envelope, d traj.Draw, alt, speed []float64) bool {
	k := c.Props.IndexAtSecond(c.Geom.TCASec, len(alt))
	if k < 0 {
		return false
	}
	lo, hi := env.altBounds(d)
	return within(alt[k], lo, hi) && within(speed[k], env.SpeedMinKt, env.SpeedMaxKt)
}

func checkWhole(env Envelope, d traj.Draw, alt, speed []float64) bool {
	lo, hi := env.altBounds(d)
	for i := range alt {
		if !within(alt[i], lo, hi) || !within(speed[i], env.SpeedMinKt, env.SpeedMaxKt) {
			return false
		}
	}
	return true
}

func within(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}
