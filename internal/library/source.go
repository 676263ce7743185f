package library

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/airspacelab/pairgen/internal/physics"
	"github.com/airspacelab/pairgen/internal/random"
	"github.com/airspacelab/pairgen/internal/traj"
)

const (
	cacheSize = 256
	cacheTTL  = 10 * time.Minute
)

// Filters narrows a catalog to the entries a run may draw from. Zero
// values leave a bound open; an empty Datum accepts both datums.
type Filters struct {
	MinAltFt       float64
	MaxAltFt       float64
	MinAvgSpeedKt  float64
	MaxAvgSpeedKt  float64
	MinDurationSec float64
	Datum          string
}

func (f Filters) admits(e Entry) bool {
	if f.MinAltFt != 0 && e.MinAltFt < f.MinAltFt {
		return false
	}
	if f.MaxAltFt != 0 && e.MaxAltFt > f.MaxAltFt {
		return false
	}
	if f.MinAvgSpeedKt != 0 && e.AvgSpeedKt < f.MinAvgSpeedKt {
		return false
	}
	if f.MaxAvgSpeedKt != 0 && e.AvgSpeedKt > f.MaxAvgSpeedKt {
		return false
	}
	if f.MinDurationSec != 0 && e.DurationSec < f.MinDurationSec {
		return false
	}
	if f.Datum != "" && e.Datum != f.Datum {
		return false
	}
	return true
}

// Source draws recorded trajectories from a catalog. Track files are
// stored at 1 Hz and upsampled to the internal rate on load; parsed tracks
// are kept in an expiring LRU so repeated draws of the same entry do not
// reparse the file.
type Source struct {
	entries  []Entry
	eligible []int
	cache    *expirable.LRU[string, *traj.Trajectory]
}

// NewSource loads the catalog at path and applies the filters. It fails
// when no entry survives filtering, since a run drawing from an empty
// library can never produce an encounter.
func NewSource(path string, filters Filters) (*Source, error) {
	entries, err := LoadCatalog(path)
	if err != nil {
		return nil, err
	}

	var eligible []int
	for i, e := range entries {
		if filters.admits(e) {
			eligible = append(eligible, i)
		}
	}
	if len(eligible) == 0 {
		return nil, fmt.Errorf("no catalog entries match the library filters (%d total)", len(entries))
	}

	return &Source{
		entries:  entries,
		eligible: eligible,
		cache:    expirable.NewLRU[string, *traj.Trajectory](cacheSize, nil, cacheTTL),
	}, nil
}

// Eligible reports how many entries survived filtering.
func (s *Source) Eligible() int {
	return len(s.eligible)
}

// Draw picks an eligible entry uniformly and returns its track together
// with the terrain elevation at the recording site. The returned
// trajectory is the caller's to mutate.
func (s *Source) Draw(rng *random.Rand) (traj.LibraryDraw, error) {
	e := s.entries[s.eligible[rng.Intn(len(s.eligible))]]

	if cached, ok := s.cache.Get(e.File); ok {
		return traj.LibraryDraw{Trajectory: cached.Clone(), TerrainElevationFt: e.TerrainElevFt}, nil
	}

	track, err := loadTrack(e.File)
	if err != nil {
		return traj.LibraryDraw{}, fmt.Errorf("library entry %s: %w", e.ID, err)
	}
	upsampled := traj.Resample10Hz(track)

	s.cache.Add(e.File, upsampled)
	return traj.LibraryDraw{Trajectory: upsampled.Clone(), TerrainElevationFt: e.TerrainElevFt}, nil
}

// loadTrack parses a 1 Hz track CSV. Columns are
// time_s,east_ft,north_ft,alt_ft,speed_kt,heading_deg with a header row;
// extra columns are ignored.
func loadTrack(path string) (*traj.Trajectory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open track: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read track %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("track %s has no samples", path)
	}

	out := traj.NewTrajectory(len(rows) - 1)
	for i, row := range rows[1:] {
		if len(row) < 6 {
			return nil, fmt.Errorf("track %s row %d: want 6 columns, got %d", path, i+2, len(row))
		}
		vals := make([]float64, 6)
		for j := 0; j < 6; j++ {
			v, err := strconv.ParseFloat(row[j], 64)
			if err != nil {
				return nil, fmt.Errorf("track %s row %d col %d: %w", path, i+2, j+1, err)
			}
			vals[j] = v
		}
		out.Append(vals[0], vals[1], vals[2], vals[3],
			vals[4]*physics.KnotsToFPS,
			physics.WrapHeading(vals[5]*physics.DegToRad),
			0, 0, 0)
	}
	return out, nil
}
