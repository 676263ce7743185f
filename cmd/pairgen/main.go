package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airspacelab/pairgen/internal/api"
	"github.com/airspacelab/pairgen/internal/bins"
	"github.com/airspacelab/pairgen/internal/config"
	"github.com/airspacelab/pairgen/internal/encounter"
	"github.com/airspacelab/pairgen/internal/geometry"
	"github.com/airspacelab/pairgen/internal/library"
	"github.com/airspacelab/pairgen/internal/model"
	"github.com/airspacelab/pairgen/internal/output"
	"github.com/airspacelab/pairgen/internal/sim"
	"github.com/airspacelab/pairgen/internal/storage/sqlite"
	"github.com/airspacelab/pairgen/internal/websocket"
	"github.com/airspacelab/pairgen/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	// Load configuration with fallback logic
	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log, err := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting pairgen",
		logger.String("version", Version),
		logger.Int("count", cfg.Run.Count),
		logger.Uint64("initial_seed", cfg.Run.InitialSeed),
	)

	// Build the target distribution tables
	vmdTable, err := bins.New(cfg.VMD.Edges, cfg.VMD.Proportions)
	if err != nil {
		log.Error("Failed to build VMD bin table", logger.Error(err))
		os.Exit(1)
	}
	hmdTable, err := bins.New(cfg.HMD.Edges, cfg.HMD.Proportions)
	if err != nil {
		log.Error("Failed to build HMD bin table", logger.Error(err))
		os.Exit(1)
	}

	// Build the sample providers in dependency order: model spec and
	// library source first, then one provider per aircraft role
	ownProvider, err := buildProvider(cfg, &cfg.Ownship, log)
	if err != nil {
		log.Error("Failed to set up ownship sampling", logger.Error(err))
		os.Exit(1)
	}
	intProvider, err := buildProvider(cfg, &cfg.Intruder, log)
	if err != nil {
		log.Error("Failed to set up intruder sampling", logger.Error(err))
		os.Exit(1)
	}

	// Evaluator: integrator, finalizer, envelope filters
	finalizer := geometry.NewFinalizer(geometry.Params{
		DesiredTCASec:     cfg.Run.DesiredTCASec,
		MinInitialHorizFt: cfg.Separation.MinInitialHorizontalFt,
		MinInitialVertFt:  cfg.Separation.MinInitialVerticalFt,
	})
	evaluator := encounter.NewEvaluator(vmdTable, hmdTable, sim.NewIntegrator(), finalizer, encounter.Params{
		SampleTimeSec: cfg.Run.SampleTimeSec,
		DesiredTCASec: cfg.Run.DesiredTCASec,
		MinTCASec:     cfg.Run.MinTCASec,
		Ownship:       envelopeFromConfig(&cfg.Ownship),
		Intruder:      envelopeFromConfig(&cfg.Intruder),
	})

	generator := encounter.NewGenerator(encounter.GeneratorConfig{
		Count:                 cfg.Run.Count,
		MaxTrialsPerEncounter: cfg.Run.MaxTrialsPerEncounter,
		InitialSeed:           cfg.Run.InitialSeed,
	}, evaluator, ownProvider, intProvider, log)

	// Output writer for trajectories, scripts and run records
	writer, err := output.NewWriter(output.Config{
		Dir:          cfg.Output.Dir,
		Format:       cfg.Output.Format,
		WriteScripts: cfg.Output.WriteScripts,
		OriginLat:    cfg.Output.OriginLat,
		OriginLon:    cfg.Output.OriginLon,
	}, log)
	if err != nil {
		log.Error("Failed to create output writer", logger.Error(err))
		os.Exit(1)
	}
	sinks := encounter.MultiSink{writer}

	// Optional SQLite record storage
	var recordStorage *sqlite.RecordStorage
	var runID int64
	if cfg.Storage.Enabled {
		recordStorage, err = sqlite.NewRecordStorage(cfg.Storage.SQLitePath, log)
		if err != nil {
			log.Error("Failed to create SQLite storage", logger.Error(err))
			os.Exit(1)
		}
		defer recordStorage.Close()

		configJSON, err := json.Marshal(cfg)
		if err != nil {
			log.Error("Failed to snapshot configuration", logger.Error(err))
			os.Exit(1)
		}
		runID, err = recordStorage.BeginRun(time.Now(), cfg.Run.Count, string(configJSON))
		if err != nil {
			log.Error("Failed to record run start", logger.Error(err))
			os.Exit(1)
		}
		sinks = append(sinks, recordStorage.Sink(runID))
	}
	generator.SetSink(sinks)

	// Optional monitor server
	var (
		tracker   *api.Tracker
		wsServer  *websocket.Server
		monServer *http.Server
	)
	if cfg.Monitor.Enabled {
		wsServer = websocket.NewServer(log)
		go wsServer.Run()

		tracker = api.NewTracker(cfg.Run.Count, cfg.Run.InitialSeed)
		router := api.NewRouter(tracker, cfg, log, wsServer)

		addr := fmt.Sprintf("%s:%d", cfg.Monitor.Host, cfg.Monitor.Port)
		monServer = &http.Server{
			Addr:         addr,
			Handler:      router.Routes(),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		}
		go func() {
			log.Info("Starting monitor server", logger.String("addr", addr))
			if err := monServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("Monitor server error", logger.String("addr", addr), logger.Error(err))
			}
		}()

		generator.SetProgress(func(done, total int, rec encounter.Record) {
			tracker.EncounterAccepted(rec)
			wsServer.Broadcast(&websocket.Message{
				Type: websocket.MessageTypeEncounterAccepted,
				Data: rec,
			})
			wsServer.Broadcast(&websocket.Message{
				Type: websocket.MessageTypeProgress,
				Data: tracker.Status(),
			})
		})
	}

	// Cancel the run on SIGINT/SIGTERM; the generator checks between trials
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Warn("Received signal, cancelling run", logger.String("signal", sig.String()))
		cancel()
	}()

	// Generate
	res, err := generator.Run(ctx)
	if err != nil {
		var budgetErr *encounter.BudgetError
		switch {
		case errors.As(err, &budgetErr):
			log.Error("Trial budget exhausted; targets and filters may be incompatible", logger.Error(err))
		case errors.Is(err, context.Canceled):
			log.Warn("Run cancelled before completion")
		default:
			log.Error("Generation failed", logger.Error(err))
		}
		shutdownMonitor(monServer, log)
		os.Exit(1)
	}

	// Persist the run-level outputs
	if err := writer.WriteRunRecords(res); err != nil {
		log.Error("Failed to write run records", logger.Error(err))
		os.Exit(1)
	}
	if recordStorage != nil {
		if err := recordStorage.FinishRun(runID, res); err != nil {
			log.Error("Failed to record run completion", logger.Error(err))
			os.Exit(1)
		}
	}

	if cfg.Monitor.Enabled {
		tracker.RunComplete()
		wsServer.Broadcast(&websocket.Message{
			Type: websocket.MessageTypeRunComplete,
			Data: tracker.Status(),
		})
		shutdownMonitor(monServer, log)
	}

	log.Info("Run complete",
		logger.Int("encounters", len(res.Records)),
		logger.Int("total_trials", res.TotalTrials),
		logger.Duration("elapsed", res.Elapsed),
		logger.Uint64("next_seed", res.NextSeed),
	)
}

// buildProvider wires one aircraft role to its configured trajectory source.
func buildProvider(cfg *config.Config, ac *config.AircraftConfig, log *logger.Logger) (encounter.SampleProvider, error) {
	switch ac.Source {
	case "library":
		source, err := library.NewSource(cfg.Library.CatalogPath, libraryFilters(cfg, ac))
		if err != nil {
			return nil, err
		}
		log.Info("Library source ready",
			logger.String("catalog", cfg.Library.CatalogPath),
			logger.Int("eligible", source.Eligible()))
		return encounter.NewLibraryProvider(source), nil

	case "model":
		spec, err := model.LoadWithFallback(cfg.Model.SpecPath)
		if err != nil {
			return nil, err
		}
		layers := make([]model.Layer, 0, len(cfg.Layers.EdgesFt)-1)
		for i := 0; i+1 < len(cfg.Layers.EdgesFt); i++ {
			layers = append(layers, model.Layer{
				FloorFt:   cfg.Layers.EdgesFt[i],
				CeilingFt: cfg.Layers.EdgesFt[i+1],
			})
		}
		sampler, err := model.NewSampler(spec, layers)
		if err != nil {
			return nil, err
		}
		// The built-in model carries no region statistics worth trusting,
		// so draws are pinned to the configured default region and the
		// catch-all airspace class. A custom spec samples both freely.
		hint := model.NoHint()
		if cfg.Model.SpecPath == "" {
			hint = model.Hint{Region: cfg.Model.DefaultRegion, AirspaceClass: model.AirspaceOther}
		}
		return encounter.NewModelProvider(sampler, hint, cfg.Run.SampleTimeSec, ac.QuantizeAltitude), nil

	default:
		return nil, fmt.Errorf("unknown aircraft source: %s", ac.Source)
	}
}

// libraryFilters narrows the catalog to tracks the role could ever fly:
// its altitude and speed bounds in its own datum, long enough to cover
// the sample window. Filtering here keeps hopeless tracks out of the
// trial loop instead of burning rejections on them.
func libraryFilters(cfg *config.Config, ac *config.AircraftConfig) library.Filters {
	return library.Filters{
		MinAltFt:       ac.AltitudeMinFt,
		MaxAltFt:       ac.AltitudeMaxFt,
		MinAvgSpeedKt:  ac.SpeedMinKt,
		MaxAvgSpeedKt:  ac.SpeedMaxKt,
		MinDurationSec: cfg.Run.SampleTimeSec,
		Datum:          ac.AltitudeDatum,
	}
}

func envelopeFromConfig(ac *config.AircraftConfig) encounter.Envelope {
	return encounter.Envelope{
		AltMinFt:    ac.AltitudeMinFt,
		AltMaxFt:    ac.AltitudeMaxFt,
		AltDatumMSL: ac.AltitudeDatum == "msl",
		SpeedMinKt:  ac.SpeedMinKt,
		SpeedMaxKt:  ac.SpeedMaxKt,
		FilterAtCPA: ac.FilterAtCPA,
		FilterWhole: ac.FilterWholeEncounter,
	}
}

func shutdownMonitor(srv *http.Server, log *logger.Logger) {
	if srv == nil {
		return
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Monitor server shutdown error", logger.Error(err))
	}
}
