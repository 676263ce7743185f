package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFillsDefaults(t *testing.T) {
	var c Config
	require.NoError(t, c.Validate())

	assert.Equal(t, 1, c.Run.Count)
	assert.Equal(t, 180.0, c.Run.DesiredTCASec)
	assert.Equal(t, 210.0, c.Run.SampleTimeSec)
	assert.Zero(t, c.Run.MinTCASec)

	require.NotEmpty(t, c.VMD.Edges)
	assert.Len(t, c.VMD.Proportions, len(c.VMD.Edges)-1)
	require.NotEmpty(t, c.HMD.Edges)

	assert.Equal(t, []float64{500, 1200, 3000, 5000, 12500}, c.Layers.EdgesFt)

	assert.Equal(t, "model", c.Ownship.Source)
	assert.Equal(t, "agl", c.Ownship.AltitudeDatum)
	assert.Equal(t, "model", c.Intruder.Source)

	assert.Equal(t, 6000.0, c.Separation.MinInitialHorizontalFt)
	assert.Equal(t, 1000.0, c.Separation.MinInitialVerticalFt)

	assert.Equal(t, "output", c.Output.Dir)
	assert.Equal(t, "csv", c.Output.Format)
	assert.NotZero(t, c.Output.OriginLat)

	assert.Equal(t, "info", c.Logging.Level)
	assert.Equal(t, "console", c.Logging.Format)
}

func TestValidateMonitorDefaults(t *testing.T) {
	c := Config{Monitor: MonitorConfig{Enabled: true}}
	require.NoError(t, c.Validate())
	assert.Equal(t, "127.0.0.1", c.Monitor.Host)
	assert.Equal(t, 8080, c.Monitor.Port)

	c = Config{Monitor: MonitorConfig{Enabled: false, Port: -1}}
	assert.NoError(t, c.Validate(), "a disabled monitor is not validated")
}

func TestValidateStorageDefaultPath(t *testing.T) {
	c := Config{Storage: StorageConfig{Enabled: true}}
	require.NoError(t, c.Validate())
	assert.Equal(t, "output/pairgen.db", c.Storage.SQLitePath)
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative count", func(c *Config) { c.Run.Count = -1 }},
		{"negative desired tca", func(c *Config) { c.Run.DesiredTCASec = -5 }},
		{"sample time shorter than tca", func(c *Config) {
			c.Run.DesiredTCASec = 180
			c.Run.SampleTimeSec = 90
		}},
		{"min tca beyond desired", func(c *Config) {
			c.Run.DesiredTCASec = 60
			c.Run.MinTCASec = 90
		}},
		{"seed beyond cap", func(c *Config) { c.Run.InitialSeed = SeedCap + 1 }},
		{"too few vmd edges", func(c *Config) {
			c.VMD = DistributionSpec{Edges: []float64{0}, Proportions: nil}
		}},
		{"mismatched proportions", func(c *Config) {
			c.HMD = DistributionSpec{Edges: []float64{0, 500, 1500}, Proportions: []float64{1}}
		}},
		{"non-increasing edges", func(c *Config) {
			c.VMD = DistributionSpec{Edges: []float64{0, 100, 100}, Proportions: []float64{1, 1}}
		}},
		{"non-increasing layers", func(c *Config) { c.Layers.EdgesFt = []float64{500, 500} }},
		{"bad source", func(c *Config) { c.Ownship.Source = "radar" }},
		{"bad datum", func(c *Config) { c.Intruder.AltitudeDatum = "wgs84" }},
		{"filter without altitude bounds", func(c *Config) {
			c.Ownship.FilterAtCPA = true
			c.Ownship.SpeedMaxKt = 250
		}},
		{"filter without speed bounds", func(c *Config) {
			c.Intruder.FilterWholeEncounter = true
			c.Intruder.AltitudeMaxFt = 10000
		}},
		{"library source without catalog", func(c *Config) { c.Intruder.Source = "library" }},
		{"negative separation", func(c *Config) { c.Separation.MinInitialHorizontalFt = -1 }},
		{"bad output format", func(c *Config) { c.Output.Format = "parquet" }},
		{"bad origin latitude", func(c *Config) { c.Output.OriginLat = 120 }},
		{"bad monitor port", func(c *Config) { c.Monitor = MonitorConfig{Enabled: true, Port: 70000} }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			tt.mutate(&c)
			require.Error(t, c.Validate())
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pairgen.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[run]
count = 25
desired_tca_sec = 60.0
initial_seed = 42

[ownship]
source = "library"

[library]
catalog_path = "catalog.csv"

[logging]
level = "debug"
`), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, 25, c.Run.Count)
	assert.Equal(t, 60.0, c.Run.DesiredTCASec)
	assert.Equal(t, 90.0, c.Run.SampleTimeSec, "sample time defaults to the desired time plus 30")
	assert.Equal(t, uint64(42), c.Run.InitialSeed)
	assert.Equal(t, "library", c.Ownship.Source)
	assert.Equal(t, "model", c.Intruder.Source)
	assert.Equal(t, "debug", c.Logging.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestLoadWithFallbackPrefersExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte("[run]\ncount = 3\n"), 0644))

	c, err := LoadWithFallback(path)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Run.Count)

	_, err = LoadWithFallback(filepath.Join(dir, "nope.toml"))
	require.Error(t, err)
}
