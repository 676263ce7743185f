package encounter

import (
	"context"
	"fmt"
	"time"

	"github.com/airspacelab/pairgen/internal/random"
	"github.com/airspacelab/pairgen/pkg/logger"
)

// Record is one accepted encounter's persisted metadata.
type Record struct {
	ID      int           `json:"id"`
	VMDFt   float64       `json:"vmd_ft"`
	HMDFt   float64       `json:"hmd_ft"`
	TCASec  float64       `json:"tca_sec"`
	Weight  float64       `json:"weight"`
	Trials  int           `json:"trials"`
	Runtime time.Duration `json:"runtime_ns"`

	// SeedFirst and SeedLast bound the trial seeds this encounter consumed;
	// replaying the accepted trial only needs SeedLast.
	SeedFirst uint64 `json:"seed_first"`
	SeedLast  uint64 `json:"seed_last"`

	IntruderAltFt   []float64 `json:"intruder_alt_ft"`
	IntruderSpeedKt []float64 `json:"intruder_speed_kt"`
}

// Sink receives each encounter as soon as it is accepted. A sink error
// aborts the run; nothing is persisted for rejected trials.
type Sink interface {
	AcceptedEncounter(rec Record, cand *Candidate) error
}

// MultiSink fans accepted encounters out to several sinks in order,
// stopping at the first failure.
type MultiSink []Sink

func (m MultiSink) AcceptedEncounter(rec Record, cand *Candidate) error {
	for _, s := range m {
		if err := s.AcceptedEncounter(rec, cand); err != nil {
			return err
		}
	}
	return nil
}

// ProgressFunc is notified after each accepted encounter.
type ProgressFunc func(done, total int, rec Record)

// RunResult aggregates a whole generation run. Records, Trials and
// Durations are indexed by request order.
type RunResult struct {
	Records   []Record
	Trials    []int
	Durations []time.Duration

	TotalTrials int
	Elapsed     time.Duration
	NextSeed    uint64
}

// BudgetError reports an encounter that burned through its trial budget
// without an acceptance, usually a sign the targets and envelope filters
// are mutually incompatible.
type BudgetError struct {
	EncounterID int
	Trials      int
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("encounter %d not accepted within %d trials", e.EncounterID, e.Trials)
}

// GeneratorConfig sizes a run.
type GeneratorConfig struct {
	// Count is the number of encounters to generate.
	Count int
	// MaxTrialsPerEncounter aborts an encounter after this many rejected
	// trials. Zero retries forever.
	MaxTrialsPerEncounter int
	// InitialSeed is where the run's seed sequence starts.
	InitialSeed uint64
}

// Generator drives the accept/reject loop for a whole run. Every trial,
// accepted or rejected, advances the run-wide seed sequence by exactly
// one, so any encounter can be replayed from its trial seeds alone.
type Generator struct {
	cfg      GeneratorConfig
	eval     *Evaluator
	ownship  SampleProvider
	intruder SampleProvider
	seeds    random.SeedSequence
	sink     Sink
	progress ProgressFunc
	log      *logger.Logger

	warnedSeedCap bool
}

func NewGenerator(cfg GeneratorConfig, eval *Evaluator, ownship, intruder SampleProvider, log *logger.Logger) *Generator {
	return &Generator{
		cfg:      cfg,
		eval:     eval,
		ownship:  ownship,
		intruder: intruder,
		seeds:    random.NewSeedSequence(cfg.InitialSeed),
		log:      log.Named("generator"),
	}
}

// SetSink attaches an output sink for accepted encounters.
func (g *Generator) SetSink(s Sink) {
	g.sink = s
}

// SetProgress attaches a progress callback.
func (g *Generator) SetProgress(fn ProgressFunc) {
	g.progress = fn
}

// Run generates every requested encounter in order. It stops early on
// context cancellation, an exhausted trial budget, or a sink failure.
func (g *Generator) Run(ctx context.Context) (*RunResult, error) {
	res := &RunResult{
		Records:   make([]Record, 0, g.cfg.Count),
		Trials:    make([]int, 0, g.cfg.Count),
		Durations: make([]time.Duration, 0, g.cfg.Count),
	}
	runStart := time.Now()

	for i := 0; i < g.cfg.Count; i++ {
		id := i + 1
		rec, cand, err := g.generateOne(ctx, id)
		if err != nil {
			return nil, err
		}

		res.Records = append(res.Records, rec)
		res.Trials = append(res.Trials, rec.Trials)
		res.Durations = append(res.Durations, rec.Runtime)
		res.TotalTrials += rec.Trials

		if g.sink != nil {
			if err := g.sink.AcceptedEncounter(rec, cand); err != nil {
				return nil, fmt.Errorf("failed to persist encounter %d: %w", id, err)
			}
		}
		if g.progress != nil {
			g.progress(id, g.cfg.Count, rec)
		}

		g.log.Info("encounter accepted",
			logger.Int("id", id),
			logger.Int("trials", rec.Trials),
			logger.Float64("vmd_ft", rec.VMDFt),
			logger.Float64("hmd_ft", rec.HMDFt),
			logger.Float64("tca_sec", rec.TCASec),
			logger.Duration("runtime", rec.Runtime))
	}

	res.Elapsed = time.Since(runStart)
	res.NextSeed = g.seeds.Pos()
	return res, nil
}

func (g *Generator) generateOne(ctx context.Context, id int) (Record, *Candidate, error) {
	start := time.Now()
	trials := 0
	firstSeed := g.seeds.Pos()

	for {
		select {
		case <-ctx.Done():
			return Record{}, nil, ctx.Err()
		default:
		}
		if g.cfg.MaxTrialsPerEncounter > 0 && trials >= g.cfg.MaxTrialsPerEncounter {
			return Record{}, nil, &BudgetError{EncounterID: id, Trials: trials}
		}

		trials++
		seed := g.seeds.Next()
		if g.seeds.Exhausted() && !g.warnedSeedCap {
			g.warnedSeedCap = true
			g.log.Warn("seed sequence reached its cap; trials now reuse the final seed")
		}
		rng := random.NewSeeded(seed)

		ownDraw, err := g.ownship.Draw(rng)
		if err != nil {
			g.rejected(id, trials, seed, RejectSampler, err)
			continue
		}
		intDraw, err := g.intruder.Draw(rng)
		if err != nil {
			g.rejected(id, trials, seed, RejectSampler, err)
			continue
		}

		cand, reason := g.eval.Evaluate(rng, ownDraw, intDraw)
		if cand == nil {
			g.rejected(id, trials, seed, reason, nil)
			continue
		}

		rec := Record{
			ID:              id,
			VMDFt:           cand.Geom.VMDFt,
			HMDFt:           cand.Geom.HMDFt,
			TCASec:          cand.Geom.TCASec,
			Weight:          cand.Weight,
			Trials:          trials,
			Runtime:         time.Since(start),
			SeedFirst:       firstSeed,
			SeedLast:        seed,
			IntruderAltFt:   cand.Props.IntAltFt,
			IntruderSpeedKt: cand.Props.IntSpeedKt,
		}
		return rec, cand, nil
	}
}

func (g *Generator) rejected(id, trial int, seed uint64, reason RejectReason, err error) {
	fields := []logger.Field{
		logger.Int("encounter", id),
		logger.Int("trial", trial),
		logger.Uint64("seed", seed),
		logger.String("reason", string(reason)),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	g.log.Debug("trial rejected", fields...)
}
