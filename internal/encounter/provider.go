package encounter

import (
	"fmt"
	"math"

	"github.com/airspacelab/pairgen/internal/library"
	"github.com/airspacelab/pairgen/internal/model"
	"github.com/airspacelab/pairgen/internal/physics"
	"github.com/airspacelab/pairgen/internal/random"
	"github.com/airspacelab/pairgen/internal/traj"
)

// maxModelRedraws bounds the internal redraw loop for draws whose vertical
// rate outruns their airspeed. Redraws never count against the trial
// budget.
const maxModelRedraws = 10000

// SampleProvider produces one aircraft draw per trial. The variant behind
// the interface is chosen once per aircraft role when the run is wired up.
type SampleProvider interface {
	Draw(rng *random.Rand) (traj.Draw, error)
}

// ModelProvider draws aircraft from the statistical motion model.
type ModelProvider struct {
	sampler       *model.Sampler
	hint          model.Hint
	sampleTimeSec float64
	quantize      bool
}

// NewModelProvider wires a model sampler into the provider interface. The
// hint pins categorical variables for every draw; quantize snaps the
// altitude of level-flight draws to the 500 ft grid.
func NewModelProvider(sampler *model.Sampler, hint model.Hint, sampleTimeSec float64, quantize bool) *ModelProvider {
	return &ModelProvider{
		sampler:       sampler,
		hint:          hint,
		sampleTimeSec: sampleTimeSec,
		quantize:      quantize,
	}
}

func (p *ModelProvider) Draw(rng *random.Rand) (traj.Draw, error) {
	for i := 0; i < maxModelRedraws; i++ {
		st, events, err := p.sampler.Sample(rng, p.sampleTimeSec, p.hint)
		if err != nil {
			return traj.Draw{}, err
		}
		// A draw must not climb or descend faster than it flies.
		if math.Abs(st.VerticalRateFPM*physics.FPMToFPS) > st.AirspeedKt*physics.KnotsToFPS {
			continue
		}
		if p.quantize && st.LevelFlight {
			st.AltitudeFt = physics.Round500(st.AltitudeFt)
		}
		return traj.Draw{Model: &traj.ModelDraw{State: st, Events: events}}, nil
	}
	return traj.Draw{}, fmt.Errorf("no model draw satisfied the vertical-rate limit in %d attempts", maxModelRedraws)
}

// LibraryProvider draws aircraft from the recorded-trajectory library.
type LibraryProvider struct {
	source *library.Source
}

func NewLibraryProvider(source *library.Source) *LibraryProvider {
	return &LibraryProvider{source: source}
}

func (p *LibraryProvider) Draw(rng *random.Rand) (traj.Draw, error) {
	d, err := p.source.Draw(rng)
	if err != nil {
		return traj.Draw{}, err
	}
	return traj.Draw{Library: &d}, nil
}
