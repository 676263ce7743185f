package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Maximum value the run seed counter may start from or reach.
const SeedCap = uint64(1) << 32

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Run        RunConfig        `toml:"run"`        // Run sizing and timing settings
	VMD        DistributionSpec `toml:"vmd"`        // Target vertical-miss-distance distribution
	HMD        DistributionSpec `toml:"hmd"`        // Target horizontal-miss-distance distribution
	Layers     LayersConfig     `toml:"layers"`     // Altitude layer bands for modelled aircraft
	Ownship    AircraftConfig   `toml:"ownship"`    // Ownship sourcing and envelope settings
	Intruder   AircraftConfig   `toml:"intruder"`   // Intruder sourcing and envelope settings
	Model      ModelConfig      `toml:"model"`      // Motion model settings
	Library    LibraryConfig    `toml:"library"`    // Trajectory library settings
	Separation SeparationConfig `toml:"separation"` // Minimum initial separation settings
	Output     OutputConfig     `toml:"output"`     // Encounter and record output settings
	Storage    StorageConfig    `toml:"storage"`    // Data persistence settings
	Monitor    MonitorConfig    `toml:"monitor"`    // Run monitoring HTTP server settings
	Logging    LoggingConfig    `toml:"logging"`    // Application logging settings
}

// RunConfig sizes and times a generation run
type RunConfig struct {
	Count                 int     `toml:"count"`                    // Number of encounters to generate
	DesiredTCASec         float64 `toml:"desired_tca_sec"`          // Time into the encounter where closest approach is placed
	MinTCASec             float64 `toml:"min_tca_sec"`              // Reject encounters whose closest approach happens before this (0 = no minimum)
	SampleTimeSec         float64 `toml:"sample_time_sec"`          // Duration each aircraft is sampled/simulated for
	MaxTrialsPerEncounter int     `toml:"max_trials_per_encounter"` // Abort an encounter after this many rejected trials (0 = retry forever)
	InitialSeed           uint64  `toml:"initial_seed"`             // Starting value of the run-wide seed sequence
}

// DistributionSpec describes a piecewise target distribution as bin edges
// plus one relative proportion per bin
type DistributionSpec struct {
	Edges       []float64 `toml:"edges"`       // Bin edges, strictly increasing, in feet
	Proportions []float64 `toml:"proportions"` // Relative probability per bin (len(edges)-1 entries)
}

// LayersConfig carries the altitude bands modelled aircraft are drawn into
type LayersConfig struct {
	EdgesFt []float64 `toml:"edges_ft"` // Consecutive band edges in feet MSL (n edges = n-1 layers)
}

// AircraftConfig configures one aircraft role: where its trajectories come
// from and the operating envelope accepted encounters must respect
type AircraftConfig struct {
	Source string `toml:"source"` // Trajectory source: "model" or "library"

	AltitudeMinFt float64 `toml:"altitude_min_ft"` // Envelope altitude floor in feet
	AltitudeMaxFt float64 `toml:"altitude_max_ft"` // Envelope altitude ceiling in feet
	AltitudeDatum string  `toml:"altitude_datum"`  // Altitude bound reference: "agl" or "msl"
	SpeedMinKt    float64 `toml:"speed_min_kt"`    // Envelope ground-speed floor in knots
	SpeedMaxKt    float64 `toml:"speed_max_kt"`    // Envelope ground-speed ceiling in knots

	FilterAtCPA          bool `toml:"filter_at_cpa"`          // Enforce the envelope at the closest point of approach
	FilterWholeEncounter bool `toml:"filter_whole_encounter"` // Enforce the envelope over the whole encounter

	QuantizeAltitude bool `toml:"quantize_altitude"` // Snap level-flight model draws to the 500 ft grid
}

// ModelConfig contains motion model settings
type ModelConfig struct {
	SpecPath      string `toml:"spec_path"`      // Path to a TOML model spec (empty = built-in default model)
	DefaultRegion int    `toml:"default_region"` // Region index pinned when the built-in model is used
}

// LibraryConfig contains trajectory library settings. Eligibility filters
// are not configured here: each aircraft role derives its own from its
// envelope bounds, datum and the run sample time.
type LibraryConfig struct {
	CatalogPath string `toml:"catalog_path"` // Path to the library catalog CSV
}

// SeparationConfig contains the minimum separation a pair must start with
type SeparationConfig struct {
	MinInitialHorizontalFt float64 `toml:"min_initial_horizontal_ft"` // Minimum horizontal separation at the first sample
	MinInitialVerticalFt   float64 `toml:"min_initial_vertical_ft"`   // Minimum vertical separation at the first sample
}

// OutputConfig contains encounter and record output settings
type OutputConfig struct {
	Dir          string  `toml:"dir"`           // Directory all output files are written into
	Format       string  `toml:"format"`        // Trajectory format: "csv" or "msgpack"
	WriteScripts bool    `toml:"write_scripts"` // Also write the scripted-event form of each encounter
	OriginLat    float64 `toml:"origin_lat"`    // Latitude anchoring the local frame (for magnetic headings)
	OriginLon    float64 `toml:"origin_lon"`    // Longitude anchoring the local frame (for magnetic headings)
}

// StorageConfig contains data persistence configuration
type StorageConfig struct {
	Enabled    bool   `toml:"enabled"`     // Persist run and encounter records to SQLite
	SQLitePath string `toml:"sqlite_path"` // Path to the SQLite database file
}

// MonitorConfig contains the run monitoring HTTP server configuration
type MonitorConfig struct {
	Enabled            bool     `toml:"enabled"`              // Serve run progress over HTTP/WebSocket while generating
	Host               string   `toml:"host"`                 // Host address to bind to
	Port               int      `toml:"port"`                 // HTTP port for the monitor server
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"` // List of origins allowed for CORS requests (use ["*"] for all origins)
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level      string `toml:"level"`        // Log level: "debug", "info", "warn", or "error"
	Format     string `toml:"format"`       // Log format: "json" (structured) or "console" (human-readable)
	File       string `toml:"file"`         // Optional log file; rotated when it grows past max_size_mb
	MaxSizeMB  int    `toml:"max_size_mb"`  // Rotate the log file after this many megabytes
	MaxBackups int    `toml:"max_backups"`  // Rotated files to keep
	MaxAgeDays int    `toml:"max_age_days"` // Days to keep rotated files
}

// Load loads the configuration from the specified file path
func Load(path string) (*Config, error) {
	var config Config

	// Check if the file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	// Read the config file
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return &config, nil
}

// LoadWithFallback loads the configuration by checking multiple locations in order of preference
func LoadWithFallback(preferredPath string) (*Config, error) {
	// List of paths to check in order of preference
	searchPaths := []string{
		preferredPath,          // User-specified path (if provided)
		"configs/pairgen.toml", // configs/ folder
		"pairgen.toml",         // Root directory
	}

	// Remove duplicates while preserving order
	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var lastErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			// File exists, try to load it
			config, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return config, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v. Last error: %w", uniquePaths, lastErr)
}

// Validate validates the configuration and fills in defaults. Any
// inconsistency fails the whole run before sampling begins.
func (c *Config) Validate() error {
	if err := c.ValidateRun(); err != nil {
		return err
	}
	if err := c.ValidateDistributions(); err != nil {
		return err
	}
	if err := c.ValidateLayers(); err != nil {
		return err
	}
	if err := c.ValidateAircraft("ownship", &c.Ownship); err != nil {
		return err
	}
	if err := c.ValidateAircraft("intruder", &c.Intruder); err != nil {
		return err
	}

	if c.Model.DefaultRegion < 0 {
		return fmt.Errorf("model default_region must not be negative: %d", c.Model.DefaultRegion)
	}

	// The library catalog is only needed when some aircraft draws from it
	if (c.Ownship.Source == "library" || c.Intruder.Source == "library") && c.Library.CatalogPath == "" {
		return fmt.Errorf("library catalog_path is required when an aircraft source is 'library'")
	}

	if c.Separation.MinInitialHorizontalFt == 0 {
		c.Separation.MinInitialHorizontalFt = 6000
	}
	if c.Separation.MinInitialVerticalFt == 0 {
		c.Separation.MinInitialVerticalFt = 1000
	}
	if c.Separation.MinInitialHorizontalFt < 0 || c.Separation.MinInitialVerticalFt < 0 {
		return fmt.Errorf("minimum initial separations must not be negative")
	}

	if err := c.ValidateOutput(); err != nil {
		return err
	}

	// Validate storage config
	if c.Storage.Enabled && c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "output/pairgen.db"
	}

	// Validate monitor config
	if c.Monitor.Enabled {
		if c.Monitor.Host == "" {
			c.Monitor.Host = "127.0.0.1"
		}
		if c.Monitor.Port == 0 {
			c.Monitor.Port = 8080
		}
		if c.Monitor.Port <= 0 || c.Monitor.Port > 65535 {
			return fmt.Errorf("invalid monitor port: %d", c.Monitor.Port)
		}
	}

	// Validate logging config
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid log level
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	switch c.Logging.Format {
	case "json", "console":
		// Valid log format
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}

// ValidateRun validates the run sizing and timing configuration
func (c *Config) ValidateRun() error {
	if c.Run.Count == 0 {
		c.Run.Count = 1
	}
	if c.Run.Count < 0 {
		return fmt.Errorf("run count must be positive: %d", c.Run.Count)
	}

	if c.Run.DesiredTCASec == 0 {
		c.Run.DesiredTCASec = 180
	}
	if c.Run.DesiredTCASec < 0 {
		return fmt.Errorf("desired_tca_sec must be positive: %f", c.Run.DesiredTCASec)
	}

	if c.Run.SampleTimeSec == 0 {
		c.Run.SampleTimeSec = c.Run.DesiredTCASec + 30
	}
	if c.Run.SampleTimeSec < c.Run.DesiredTCASec {
		return fmt.Errorf("sample_time_sec (%f) must not be shorter than desired_tca_sec (%f)",
			c.Run.SampleTimeSec, c.Run.DesiredTCASec)
	}

	if c.Run.MinTCASec < 0 {
		return fmt.Errorf("min_tca_sec must not be negative: %f", c.Run.MinTCASec)
	}
	// A minimum beyond the desired time would reject every single trial
	if c.Run.MinTCASec > c.Run.DesiredTCASec {
		return fmt.Errorf("min_tca_sec (%f) must not exceed desired_tca_sec (%f)",
			c.Run.MinTCASec, c.Run.DesiredTCASec)
	}

	if c.Run.MaxTrialsPerEncounter < 0 {
		return fmt.Errorf("max_trials_per_encounter must not be negative: %d", c.Run.MaxTrialsPerEncounter)
	}

	if c.Run.InitialSeed > SeedCap {
		return fmt.Errorf("initial_seed %d exceeds the seed cap %d", c.Run.InitialSeed, SeedCap)
	}

	return nil
}

// ValidateDistributions validates the VMD/HMD target distribution shapes
func (c *Config) ValidateDistributions() error {
	// Default targets keep the generator runnable out of the box
	if len(c.VMD.Edges) == 0 && len(c.VMD.Proportions) == 0 {
		c.VMD = DistributionSpec{
			Edges:       []float64{-1000, -600, -300, -100, 100, 300, 600, 1000},
			Proportions: []float64{0.05, 0.10, 0.20, 0.30, 0.20, 0.10, 0.05},
		}
	}
	if len(c.HMD.Edges) == 0 && len(c.HMD.Proportions) == 0 {
		c.HMD = DistributionSpec{
			Edges:       []float64{0, 500, 1500, 3000, 6000},
			Proportions: []float64{0.40, 0.30, 0.20, 0.10},
		}
	}

	if err := c.VMD.validate("vmd"); err != nil {
		return err
	}
	return c.HMD.validate("hmd")
}

func (d DistributionSpec) validate(name string) error {
	if len(d.Edges) < 2 {
		return fmt.Errorf("%s needs at least 2 edges, got %d", name, len(d.Edges))
	}
	if len(d.Proportions) != len(d.Edges)-1 {
		return fmt.Errorf("%s needs %d proportions for %d edges, got %d",
			name, len(d.Edges)-1, len(d.Edges), len(d.Proportions))
	}
	for i := 1; i < len(d.Edges); i++ {
		if d.Edges[i] <= d.Edges[i-1] {
			return fmt.Errorf("%s edges must be strictly increasing at index %d", name, i)
		}
	}
	return nil
}

// ValidateLayers validates the altitude layer bands
func (c *Config) ValidateLayers() error {
	if len(c.Layers.EdgesFt) == 0 {
		c.Layers.EdgesFt = []float64{500, 1200, 3000, 5000, 12500}
	}
	if len(c.Layers.EdgesFt) < 2 {
		return fmt.Errorf("layers edges_ft needs at least 2 edges, got %d", len(c.Layers.EdgesFt))
	}
	for i := 1; i < len(c.Layers.EdgesFt); i++ {
		if c.Layers.EdgesFt[i] <= c.Layers.EdgesFt[i-1] {
			return fmt.Errorf("layers edges_ft must be strictly increasing at index %d", i)
		}
	}
	return nil
}

// ValidateAircraft validates one aircraft role's configuration
func (c *Config) ValidateAircraft(role string, a *AircraftConfig) error {
	if a.Source == "" {
		a.Source = "model"
	}
	if a.Source != "model" && a.Source != "library" {
		return fmt.Errorf("invalid %s source: %s (must be 'model' or 'library')", role, a.Source)
	}

	if a.AltitudeDatum == "" {
		a.AltitudeDatum = "agl"
	}
	if a.AltitudeDatum != "agl" && a.AltitudeDatum != "msl" {
		return fmt.Errorf("invalid %s altitude_datum: %s (must be 'agl' or 'msl')", role, a.AltitudeDatum)
	}

	// Envelope bounds are only meaningful when a filter toggle uses them
	if a.FilterAtCPA || a.FilterWholeEncounter {
		if a.AltitudeMaxFt <= a.AltitudeMinFt {
			return fmt.Errorf("%s altitude bounds are required when envelope filtering is enabled", role)
		}
		if a.SpeedMaxKt <= a.SpeedMinKt {
			return fmt.Errorf("%s speed bounds are required when envelope filtering is enabled", role)
		}
	}

	return nil
}

// ValidateOutput validates the output configuration
func (c *Config) ValidateOutput() error {
	if c.Output.Dir == "" {
		c.Output.Dir = "output"
	}

	if c.Output.Format == "" {
		c.Output.Format = "csv"
	}
	if c.Output.Format != "csv" && c.Output.Format != "msgpack" {
		return fmt.Errorf("invalid output format: %s (must be 'csv' or 'msgpack')", c.Output.Format)
	}

	// Default origin is the CYYZ area
	if c.Output.OriginLat == 0 && c.Output.OriginLon == 0 {
		c.Output.OriginLat = 43.6777
		c.Output.OriginLon = -79.6248
	}
	if c.Output.OriginLat < -90 || c.Output.OriginLat > 90 {
		return fmt.Errorf("invalid output origin_lat: %f", c.Output.OriginLat)
	}
	if c.Output.OriginLon < -180 || c.Output.OriginLon > 180 {
		return fmt.Errorf("invalid output origin_lon: %f", c.Output.OriginLon)
	}

	return nil
}
