package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/airspacelab/pairgen/internal/encounter"
	"github.com/airspacelab/pairgen/internal/physics"
	"github.com/airspacelab/pairgen/internal/traj"
	"github.com/airspacelab/pairgen/pkg/logger"
)

// Supported trajectory formats.
const (
	FormatCSV     = "csv"
	FormatMsgpack = "msgpack"
)

// Config selects where and how accepted encounters are written.
type Config struct {
	Dir          string
	Format       string
	WriteScripts bool

	// Origin anchors the local east/north frame for magnetic headings in
	// scripted output.
	OriginLat float64
	OriginLon float64
}

// Writer persists accepted encounters as they arrive and the run-level
// records at the end. All files go through a temp-and-rename write, so an
// interrupted run never leaves partial files behind.
type Writer struct {
	cfg       Config
	variation float64
	log       *logger.Logger
}

var _ encounter.Sink = (*Writer)(nil)

func NewWriter(cfg Config, log *logger.Logger) (*Writer, error) {
	if cfg.Format != FormatCSV && cfg.Format != FormatMsgpack {
		return nil, fmt.Errorf("unsupported output format: %s", cfg.Format)
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Writer{
		cfg:       cfg,
		variation: physics.CalculateMagneticVariation(cfg.OriginLat, cfg.OriginLon, 0, time.Now()),
		log:       log.Named("output"),
	}, nil
}

// AcceptedEncounter writes one encounter's trajectory pair and, when
// enabled, its scripted-event form.
func (w *Writer) AcceptedEncounter(rec encounter.Record, cand *encounter.Candidate) error {
	if w.cfg.Format == FormatMsgpack {
		if err := w.writeArchive(rec, cand); err != nil {
			return err
		}
	} else {
		if err := w.writeTrajectoryCSV(w.path(rec.ID, "ownship.csv"), cand.Ownship); err != nil {
			return err
		}
		if err := w.writeTrajectoryCSV(w.path(rec.ID, "intruder.csv"), cand.Intruder); err != nil {
			return err
		}
	}

	if w.cfg.WriteScripts {
		if err := w.writeScripts(rec.ID, cand); err != nil {
			return err
		}
	}

	w.log.Debug("encounter written",
		logger.Int("id", rec.ID),
		logger.String("format", w.cfg.Format))
	return nil
}

// WriteRunRecords persists the run-level outputs: records.csv with one
// scalar row per encounter, and records.json with the full records,
// per-second intruder series included, plus the run counters.
func (w *Writer) WriteRunRecords(res *encounter.RunResult) error {
	if err := w.writeRecordsCSV(res); err != nil {
		return err
	}
	return w.writeRecordsJSON(res)
}

func (w *Writer) path(id int, suffix string) string {
	return filepath.Join(w.cfg.Dir, fmt.Sprintf("encounter_%04d_%s", id, suffix))
}

// writeTrajectoryCSV emits the same column layout the library track loader
// reads, so generated encounters can be fed back in as library entries.
func (w *Writer) writeTrajectoryCSV(path string, t *traj.Trajectory) error {
	return w.atomically(path, func(f *os.File) error {
		cw := csv.NewWriter(f)
		cw.Write([]string{"time_s", "east_ft", "north_ft", "alt_ft", "speed_kt", "heading_deg", "pitch_deg", "bank_deg"})
		for i := 0; i < t.Len(); i++ {
			cw.Write([]string{
				fmtF(t.T[i]),
				fmtF(t.East[i]),
				fmtF(t.North[i]),
				fmtF(t.Up[i]),
				fmtF(t.SpeedFPS[i] * physics.FPSToKnots),
				fmtF(physics.WrapHeading(t.HeadingRad[i]) * physics.RadToDeg),
				fmtF(t.PitchRad[i] * physics.RadToDeg),
				fmtF(t.BankRad[i] * physics.RadToDeg),
			})
		}
		cw.Flush()
		return cw.Error()
	})
}

// encounterArchive is the compact binary form of one accepted encounter.
type encounterArchive struct {
	ID       int              `msgpack:"id"`
	VMDFt    float64          `msgpack:"vmd_ft"`
	HMDFt    float64          `msgpack:"hmd_ft"`
	TCASec   float64          `msgpack:"tca_sec"`
	Weight   float64          `msgpack:"weight"`
	Ownship  *traj.Trajectory `msgpack:"ownship"`
	Intruder *traj.Trajectory `msgpack:"intruder"`
}

func (w *Writer) writeArchive(rec encounter.Record, cand *encounter.Candidate) error {
	path := filepath.Join(w.cfg.Dir, fmt.Sprintf("encounter_%04d.msgpack.zst", rec.ID))
	return w.atomically(path, func(f *os.File) error {
		zw, err := zstd.NewWriter(f)
		if err != nil {
			return err
		}
		enc := msgpack.NewEncoder(zw)
		if err := enc.Encode(encounterArchive{
			ID:       rec.ID,
			VMDFt:    rec.VMDFt,
			HMDFt:    rec.HMDFt,
			TCASec:   rec.TCASec,
			Weight:   rec.Weight,
			Ownship:  cand.Ownship,
			Intruder: cand.Intruder,
		}); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()
	})
}

func (w *Writer) writeScripts(id int, cand *encounter.Candidate) error {
	own := DeriveScript(cand.Ownship)
	intr := DeriveScript(cand.Intruder)
	return w.atomically(w.path(id, "events.csv"), func(f *os.File) error {
		cw := csv.NewWriter(f)
		cw.Write([]string{"aircraft", "time_s", "item", "value"})
		w.scriptRows(cw, "ownship", own)
		w.scriptRows(cw, "intruder", intr)
		cw.Flush()
		return cw.Error()
	})
}

func (w *Writer) scriptRows(cw *csv.Writer, role string, s Script) {
	write := func(t float64, item string, v float64) {
		cw.Write([]string{role, fmtF(t), item, fmtF(v)})
	}
	write(0, "initial_east_ft", s.Initial.EastFt)
	write(0, "initial_north_ft", s.Initial.NorthFt)
	write(0, "initial_alt_ft", s.Initial.AltFt)
	write(0, "initial_speed_kt", s.Initial.SpeedKt)
	write(0, "initial_heading_true_deg", s.Initial.HeadingTrueDeg)
	write(0, "initial_heading_mag_deg", physics.TrueToMagnetic(s.Initial.HeadingTrueDeg, w.variation))
	write(0, ItemVerticalRate, s.Initial.VerticalRateFPM)
	write(0, ItemTurnRate, s.Initial.TurnRateDegPerS)
	write(0, ItemAcceleration, s.Initial.AccelKtPerS)
	for _, ev := range s.Events {
		write(ev.TimeSec, ev.Item, ev.Value)
	}
}

func (w *Writer) writeRecordsCSV(res *encounter.RunResult) error {
	return w.atomically(filepath.Join(w.cfg.Dir, "records.csv"), func(f *os.File) error {
		cw := csv.NewWriter(f)
		cw.Write([]string{"id", "vmd_ft", "hmd_ft", "tca_sec", "weight", "trials", "runtime_sec", "seed_first", "seed_last"})
		for _, rec := range res.Records {
			cw.Write([]string{
				strconv.Itoa(rec.ID),
				fmtF(rec.VMDFt),
				fmtF(rec.HMDFt),
				fmtF(rec.TCASec),
				fmtF(rec.Weight),
				strconv.Itoa(rec.Trials),
				fmtF(rec.Runtime.Seconds()),
				strconv.FormatUint(rec.SeedFirst, 10),
				strconv.FormatUint(rec.SeedLast, 10),
			})
		}
		cw.Flush()
		return cw.Error()
	})
}

// runReport is the JSON shape of records.json.
type runReport struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Count       int                `json:"count"`
	TotalTrials int                `json:"total_trials"`
	ElapsedSec  float64            `json:"elapsed_sec"`
	NextSeed    uint64             `json:"next_seed"`
	Records     []encounter.Record `json:"records"`
}

func (w *Writer) writeRecordsJSON(res *encounter.RunResult) error {
	report := runReport{
		GeneratedAt: time.Now().UTC(),
		Count:       len(res.Records),
		TotalTrials: res.TotalTrials,
		ElapsedSec:  res.Elapsed.Seconds(),
		NextSeed:    res.NextSeed,
		Records:     res.Records,
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run report: %w", err)
	}
	return w.atomically(filepath.Join(w.cfg.Dir, "records.json"), func(f *os.File) error {
		_, err := f.Write(data)
		return err
	})
}

// atomically writes path through a temp file and a rename.
func (w *Writer) atomically(path string, fill func(*os.File) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}
	if err := fill(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize %s: %w", path, err)
	}
	return nil
}

func fmtF(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
