package encounter

import (
	"github.com/airspacelab/pairgen/internal/geometry"
	"github.com/airspacelab/pairgen/internal/traj"
)

// RejectReason labels why a trial was discarded. Rejections are normal
// operation: they are logged at debug level and retried, never surfaced as
// errors.
type RejectReason string

const (
	RejectNone                  RejectReason = ""
	RejectSampler               RejectReason = "sampler"
	RejectPhysical              RejectReason = "physical"
	RejectShortDraw             RejectReason = "short_draw"
	RejectVMD                   RejectReason = "vmd"
	RejectGeometry              RejectReason = "geometry"
	RejectTolerance             RejectReason = "tolerance"
	RejectEnvelopeIntruderCPA   RejectReason = "envelope_intruder_cpa"
	RejectEnvelopeIntruderWhole RejectReason = "envelope_intruder_whole"
	RejectEnvelopeOwnshipCPA    RejectReason = "envelope_ownship_cpa"
	RejectEnvelopeOwnshipWhole  RejectReason = "envelope_ownship_whole"
	RejectTiming                RejectReason = "timing"
)

// Candidate is one fully evaluated trial: both trajectories in the shared
// frame, the importance weight assigned at the rejection stage, and the
// geometry and per-second series derived after finalization.
type Candidate struct {
	Ownship  *traj.Trajectory
	Intruder *traj.Trajectory
	OwnDraw  traj.Draw
	IntDraw  traj.Draw
	Weight   float64
	Geom     geometry.Geometry
	Props    geometry.Properties
}
