package model

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Spec describes a statistical airspace model: marginal distributions for
// the initial state of an aircraft and holding-time parameters for how its
// controls evolve afterwards. Specs are loaded from TOML files so a run can
// swap in models fitted to different airspace populations.
type Spec struct {
	Initial     InitialSpec    `toml:"initial"`
	Transitions TransitionSpec `toml:"transitions"`
}

// InitialSpec holds the marginals the initial state is drawn from. Discrete
// variables carry a weight per category; continuous variables carry a
// piecewise-uniform marginal.
type InitialSpec struct {
	RegionWeights []float64 `toml:"region_weights"`
	ClassWeights  []float64 `toml:"class_weights"`
	LayerWeights  []float64 `toml:"layer_weights"`

	// LevelFlightProb is the probability an aircraft holds its altitude for
	// the whole encounter.
	LevelFlightProb float64 `toml:"level_flight_prob"`

	AirspeedKt      Marginal `toml:"airspeed_kt"`
	VerticalRateFPM Marginal `toml:"vertical_rate_fpm"`
	TurnRateDegPerS Marginal `toml:"turn_rate_deg_per_s"`
	AccelKtPerS     Marginal `toml:"acceleration_kt_per_s"`
	HeadingDeg      Marginal `toml:"heading_deg"`
}

// TransitionSpec parameterises the renewal processes that reassign the
// controlled variables while a trajectory plays out. A variable with a
// non-positive mean holding time never changes after the initial draw.
type TransitionSpec struct {
	VerticalRate Holding `toml:"vertical_rate"`
	TurnRate     Holding `toml:"turn_rate"`
	Acceleration Holding `toml:"acceleration"`
}

// Holding is the expected time between control changes for one variable.
type Holding struct {
	MeanHoldSec float64 `toml:"mean_hold_sec"`
}

// Marginal is a piecewise-uniform distribution: weights[i] is the relative
// probability of the interval [edges[i], edges[i+1]), and values are drawn
// uniformly within the chosen interval.
type Marginal struct {
	Edges   []float64 `toml:"edges"`
	Weights []float64 `toml:"weights"`
}

// Load reads a model spec from a TOML file.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model spec: %w", err)
	}

	spec := Default()
	if err := toml.Unmarshal(data, spec); err != nil {
		return nil, fmt.Errorf("failed to parse model spec: %w", err)
	}

	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model spec: %w", err)
	}

	return spec, nil
}

// LoadWithFallback loads the spec at path, or the built-in default model
// when path is empty.
func LoadWithFallback(path string) (*Spec, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Default returns the built-in model, a broad general-aviation population.
// It keeps the generator runnable without an external spec file.
func Default() *Spec {
	return &Spec{
		Initial: InitialSpec{
			RegionWeights:   []float64{0.30, 0.30, 0.25, 0.15},
			ClassWeights:    []float64{0.05, 0.15, 0.25, 0.55},
			LayerWeights:    []float64{0.45, 0.30, 0.15, 0.10},
			LevelFlightProb: 0.55,
			AirspeedKt: Marginal{
				Edges:   []float64{60, 90, 120, 160, 210, 300},
				Weights: []float64{0.20, 0.35, 0.25, 0.15, 0.05},
			},
			VerticalRateFPM: Marginal{
				Edges:   []float64{-3000, -1000, -300, 300, 1000, 3000},
				Weights: []float64{0.04, 0.18, 0.56, 0.18, 0.04},
			},
			TurnRateDegPerS: Marginal{
				Edges:   []float64{-3, -0.5, 0.5, 3},
				Weights: []float64{0.15, 0.70, 0.15},
			},
			AccelKtPerS: Marginal{
				Edges:   []float64{-2, -0.25, 0.25, 2},
				Weights: []float64{0.10, 0.80, 0.10},
			},
			HeadingDeg: Marginal{
				Edges:   []float64{0, 360},
				Weights: []float64{1},
			},
		},
		Transitions: TransitionSpec{
			VerticalRate: Holding{MeanHoldSec: 40},
			TurnRate:     Holding{MeanHoldSec: 30},
			Acceleration: Holding{MeanHoldSec: 25},
		},
	}
}

// Validate checks the spec for internal consistency.
func (s *Spec) Validate() error {
	if err := validateWeights("initial.region_weights", s.Initial.RegionWeights); err != nil {
		return err
	}
	if err := validateWeights("initial.class_weights", s.Initial.ClassWeights); err != nil {
		return err
	}
	if err := validateWeights("initial.layer_weights", s.Initial.LayerWeights); err != nil {
		return err
	}
	if s.Initial.LevelFlightProb < 0 || s.Initial.LevelFlightProb > 1 {
		return fmt.Errorf("initial.level_flight_prob must be in [0, 1], got %v", s.Initial.LevelFlightProb)
	}

	marginals := []struct {
		name string
		m    Marginal
	}{
		{"initial.airspeed_kt", s.Initial.AirspeedKt},
		{"initial.vertical_rate_fpm", s.Initial.VerticalRateFPM},
		{"initial.turn_rate_deg_per_s", s.Initial.TurnRateDegPerS},
		{"initial.acceleration_kt_per_s", s.Initial.AccelKtPerS},
		{"initial.heading_deg", s.Initial.HeadingDeg},
	}
	for _, mg := range marginals {
		if err := mg.m.validate(mg.name); err != nil {
			return err
		}
	}
	return nil
}

func validateWeights(name string, w []float64) error {
	if len(w) == 0 {
		return fmt.Errorf("%s must not be empty", name)
	}
	total := 0.0
	for i, v := range w {
		if v < 0 {
			return fmt.Errorf("%s[%d] must not be negative, got %v", name, i, v)
		}
		total += v
	}
	if total <= 0 {
		return fmt.Errorf("%s must have positive total weight", name)
	}
	return nil
}

func (m Marginal) validate(name string) error {
	if len(m.Edges) < 2 {
		return fmt.Errorf("%s needs at least 2 edges, got %d", name, len(m.Edges))
	}
	if len(m.Weights) != len(m.Edges)-1 {
		return fmt.Errorf("%s needs %d weights for %d edges, got %d",
			name, len(m.Edges)-1, len(m.Edges), len(m.Weights))
	}
	for i := 1; i < len(m.Edges); i++ {
		if m.Edges[i] <= m.Edges[i-1] {
			return fmt.Errorf("%s edges must be strictly increasing, got %v <= %v at index %d",
				name, m.Edges[i], m.Edges[i-1], i)
		}
	}
	return validateWeights(name+" weights", m.Weights)
}
