package library

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airspacelab/pairgen/internal/physics"
	"github.com/airspacelab/pairgen/internal/random"
)

const trackCSV = `time_s,east_ft,north_ft,alt_ft,speed_kt,heading_deg
0,0,0,3000,120,90
1,200,0,3010,120,90
2,400,0,3020,120,90
3,600,0,3030,120,90
`

func writeTestLibrary(t *testing.T, catalogRows string) string {
	t.Helper()
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "track_a.csv"), []byte(trackCSV), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "track_b.csv"), []byte(trackCSV), 0644))

	catalog := "id,file,duration_s,min_alt_ft,max_alt_ft,avg_speed_kt,terrain_elev_ft,datum\n" + catalogRows
	path := filepath.Join(dir, "catalog.csv")
	require.NoError(t, os.WriteFile(path, []byte(catalog), 0644))
	return path
}

func TestLoadCatalog(t *testing.T) {
	path := writeTestLibrary(t,
		"a,track_a.csv,300,2500,3500,120,300,msl\n"+
			"b,track_b.csv,600,1000,9000,250,0,agl\n")

	entries, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "a", entries[0].ID)
	assert.Equal(t, 300.0, entries[0].DurationSec)
	assert.Equal(t, 300.0, entries[0].TerrainElevFt)
	assert.Equal(t, DatumMSL, entries[0].Datum)
	assert.True(t, filepath.IsAbs(entries[0].File))
}

func TestLoadCatalogErrors(t *testing.T) {
	tests := []struct {
		name string
		row  string
	}{
		{"bad datum", "a,track_a.csv,300,2500,3500,120,300,wgs84\n"},
		{"empty id", ",track_a.csv,300,2500,3500,120,300,msl\n"},
		{"empty file", "a,,300,2500,3500,120,300,msl\n"},
		{"non-numeric field", "a,track_a.csv,xx,2500,3500,120,300,msl\n"},
		{"zero duration", "a,track_a.csv,0,2500,3500,120,300,msl\n"},
		{"inverted altitudes", "a,track_a.csv,300,3500,2500,120,300,msl\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTestLibrary(t, tt.row)
			_, err := LoadCatalog(path)
			require.Error(t, err)
		})
	}
}

func TestFiltersAdmit(t *testing.T) {
	e := Entry{MinAltFt: 2500, MaxAltFt: 3500, AvgSpeedKt: 120, DurationSec: 300, Datum: DatumMSL}

	assert.True(t, Filters{}.admits(e))
	assert.True(t, Filters{MinAltFt: 2000, MaxAltFt: 4000, Datum: DatumMSL}.admits(e))
	assert.False(t, Filters{MinAltFt: 3000}.admits(e), "entry dips below the floor")
	assert.False(t, Filters{MaxAltFt: 3000}.admits(e), "entry tops the ceiling")
	assert.False(t, Filters{MinAvgSpeedKt: 150}.admits(e))
	assert.False(t, Filters{MaxAvgSpeedKt: 100}.admits(e))
	assert.False(t, Filters{MinDurationSec: 600}.admits(e))
	assert.False(t, Filters{Datum: DatumAGL}.admits(e))
}

func TestNewSourceNoEligibleEntries(t *testing.T) {
	path := writeTestLibrary(t, "a,track_a.csv,300,2500,3500,120,300,msl\n")
	_, err := NewSource(path, Filters{MinDurationSec: 1000})
	require.Error(t, err)
}

func TestDrawResamplesTo10Hz(t *testing.T) {
	path := writeTestLibrary(t, "a,track_a.csv,300,2500,3500,120,300,msl\n")
	src, err := NewSource(path, Filters{})
	require.NoError(t, err)
	require.Equal(t, 1, src.Eligible())

	d, err := src.Draw(random.NewSeeded(1))
	require.NoError(t, err)

	assert.Equal(t, 300.0, d.TerrainElevationFt)
	// 4 samples at 1 Hz upsample to 31 at 10 Hz.
	require.Equal(t, 31, d.Trajectory.Len())
	assert.InDelta(t, 120*physics.KnotsToFPS, d.Trajectory.SpeedFPS[0], 1e-9)
	assert.InDelta(t, 3005, d.Trajectory.Up[5], 1e-9)
}

func TestDrawServesFromCache(t *testing.T) {
	path := writeTestLibrary(t, "a,track_a.csv,300,2500,3500,120,300,msl\n")
	src, err := NewSource(path, Filters{})
	require.NoError(t, err)

	first, err := src.Draw(random.NewSeeded(1))
	require.NoError(t, err)

	// Remove the file: a second draw must come from the parsed cache.
	require.NoError(t, os.Remove(filepath.Join(filepath.Dir(path), "track_a.csv")))

	second, err := src.Draw(random.NewSeeded(2))
	require.NoError(t, err)
	assert.Equal(t, first.Trajectory.Up, second.Trajectory.Up)

	// Draws are independent copies: mutating one must not leak into the next.
	second.Trajectory.Translate(1000, 0, 0)
	third, err := src.Draw(random.NewSeeded(3))
	require.NoError(t, err)
	assert.Equal(t, first.Trajectory.East, third.Trajectory.East)
}
