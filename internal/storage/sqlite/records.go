package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/airspacelab/pairgen/internal/encounter"
	"github.com/airspacelab/pairgen/pkg/logger"
	_ "modernc.org/sqlite"
)

// RunRow is one generation run's summary as stored
type RunRow struct {
	ID          int64      `json:"id"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Count       int        `json:"count"`
	TotalTrials int        `json:"total_trials"`
	ElapsedSec  float64    `json:"elapsed_sec"`
	NextSeed    uint64     `json:"next_seed"`
}

// intruderSeries is the JSON shape of the per-second series column
type intruderSeries struct {
	AltFt   []float64 `json:"alt_ft"`
	SpeedKt []float64 `json:"speed_kt"`
}

// RecordStorage is a SQLite-based storage for run and encounter records
type RecordStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewRecordStorage creates a new SQLite-based record storage
func NewRecordStorage(dbPath string, log *logger.Logger) (*RecordStorage, error) {
	storageLogger := log.Named("sqlite")

	storageLogger.Info("Initializing SQLite storage",
		logger.String("path", dbPath))

	// Open the database
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool limits
	db.SetMaxOpenConns(1) // SQLite only supports one writer at a time
	db.SetMaxIdleConns(1)

	// Set pragmas for better performance and concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Create tables if they don't exist
	if err := initDatabase(db, storageLogger); err != nil {
		db.Close()
		return nil, err
	}

	return &RecordStorage{
		db:     db,
		logger: storageLogger,
	}, nil
}

// Close closes the database connection
func (s *RecordStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// GetDB returns the database connection
func (s *RecordStorage) GetDB() *sql.DB {
	return s.db
}

// initDatabase initializes the database schema
func initDatabase(db *sql.DB, log *logger.Logger) error {
	log.Info("Initializing database schema")

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP,
			count INTEGER NOT NULL,
			total_trials INTEGER DEFAULT 0,
			elapsed_sec REAL DEFAULT 0,
			next_seed INTEGER DEFAULT 0,
			config_json TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS encounters (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL,
			encounter_id INTEGER NOT NULL,
			vmd_ft REAL NOT NULL,
			hmd_ft REAL NOT NULL,
			tca_sec REAL NOT NULL,
			weight REAL NOT NULL,
			trials INTEGER NOT NULL,
			runtime_sec REAL NOT NULL,
			seed_first INTEGER NOT NULL DEFAULT 0,
			seed_last INTEGER NOT NULL DEFAULT 0,
			intruder_series TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE,
			UNIQUE(run_id, encounter_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create encounters table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_encounters_run_id ON encounters(run_id)`)
	if err != nil {
		return fmt.Errorf("failed to create index on encounters.run_id: %w", err)
	}

	return nil
}

// BeginRun inserts a new run row and returns its id
func (s *RecordStorage) BeginRun(startedAt time.Time, count int, configJSON string) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO runs (started_at, count, config_json) VALUES (?, ?, ?)`,
		startedAt.UTC(), count, configJSON,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	s.logger.Debug("Run started", logger.Int64("run_id", id), logger.Int("count", count))
	return id, nil
}

// InsertEncounter stores one accepted encounter under a run
func (s *RecordStorage) InsertEncounter(runID int64, rec encounter.Record) error {
	series, err := json.Marshal(intruderSeries{
		AltFt:   rec.IntruderAltFt,
		SpeedKt: rec.IntruderSpeedKt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal intruder series: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO encounters (run_id, encounter_id, vmd_ft, hmd_ft, tca_sec, weight, trials, runtime_sec, seed_first, seed_last, intruder_series)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, rec.ID, rec.VMDFt, rec.HMDFt, rec.TCASec, rec.Weight, rec.Trials, rec.Runtime.Seconds(),
		rec.SeedFirst, rec.SeedLast, string(series),
	)
	if err != nil {
		return fmt.Errorf("failed to insert encounter %d: %w", rec.ID, err)
	}

	return nil
}

// runSink adapts a started run into an encounter.Sink.
type runSink struct {
	storage *RecordStorage
	runID   int64
}

func (s *runSink) AcceptedEncounter(rec encounter.Record, _ *encounter.Candidate) error {
	return s.storage.InsertEncounter(s.runID, rec)
}

// Sink returns an encounter sink writing under the given run id.
func (s *RecordStorage) Sink(runID int64) encounter.Sink {
	return &runSink{storage: s, runID: runID}
}

// FinishRun records the final counters of a completed run
func (s *RecordStorage) FinishRun(runID int64, res *encounter.RunResult) error {
	_, err := s.db.Exec(
		`UPDATE runs SET finished_at = ?, total_trials = ?, elapsed_sec = ?, next_seed = ? WHERE id = ?`,
		time.Now().UTC(), res.TotalTrials, res.Elapsed.Seconds(), res.NextSeed, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run %d: %w", runID, err)
	}

	s.logger.Info("Run stored",
		logger.Int64("run_id", runID),
		logger.Int("encounters", len(res.Records)),
		logger.Int("total_trials", res.TotalTrials))
	return nil
}

// ListRuns returns the most recent runs, newest first
func (s *RecordStorage) ListRuns(limit int) ([]RunRow, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, started_at, finished_at, count, total_trials, elapsed_sec, next_seed
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRow
	for rows.Next() {
		var r RunRow
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.StartedAt, &finished, &r.Count, &r.TotalTrials, &r.ElapsedSec, &r.NextSeed); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// EncountersForRun returns a run's stored encounter records in id order
func (s *RecordStorage) EncountersForRun(runID int64) ([]encounter.Record, error) {
	rows, err := s.db.Query(
		`SELECT encounter_id, vmd_ft, hmd_ft, tca_sec, weight, trials, runtime_sec, seed_first, seed_last, intruder_series
		 FROM encounters WHERE run_id = ? ORDER BY encounter_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query encounters: %w", err)
	}
	defer rows.Close()

	var records []encounter.Record
	for rows.Next() {
		var rec encounter.Record
		var runtimeSec float64
		var seriesJSON sql.NullString
		if err := rows.Scan(&rec.ID, &rec.VMDFt, &rec.HMDFt, &rec.TCASec, &rec.Weight, &rec.Trials, &runtimeSec, &rec.SeedFirst, &rec.SeedLast, &seriesJSON); err != nil {
			return nil, fmt.Errorf("failed to scan encounter row: %w", err)
		}
		rec.Runtime = time.Duration(runtimeSec * float64(time.Second))
		if seriesJSON.Valid && seriesJSON.String != "" {
			var series intruderSeries
			if err := json.Unmarshal([]byte(seriesJSON.String), &series); err != nil {
				return nil, fmt.Errorf("failed to unmarshal intruder series for encounter %d: %w", rec.ID, err)
			}
			rec.IntruderAltFt = series.AltFt
			rec.IntruderSpeedKt = series.SpeedKt
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
