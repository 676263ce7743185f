package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airspacelab/pairgen/internal/encounter"
	"github.com/airspacelab/pairgen/pkg/logger"
)

func newTestStorage(t *testing.T) *RecordStorage {
	t.Helper()
	s, err := NewRecordStorage(filepath.Join(t.TempDir(), "test.db"), logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecord(id int) encounter.Record {
	return encounter.Record{
		ID: id, VMDFt: 150, HMDFt: 900, TCASec: 60, Weight: 1.25,
		Trials: 3, Runtime: 250 * time.Millisecond,
		SeedFirst: uint64(100 + id), SeedLast: uint64(102 + id),
		IntruderAltFt:   []float64{5000, 5010, 5020},
		IntruderSpeedKt: []float64{120, 120, 121},
	}
}

func TestRunLifecycle(t *testing.T) {
	s := newTestStorage(t)

	runID, err := s.BeginRun(time.Now(), 2, `{"count":2}`)
	require.NoError(t, err)
	require.NoError(t, s.InsertEncounter(runID, testRecord(1)))
	require.NoError(t, s.InsertEncounter(runID, testRecord(2)))

	res := &encounter.RunResult{
		Records:     []encounter.Record{testRecord(1), testRecord(2)},
		TotalTrials: 6,
		Elapsed:     2 * time.Second,
		NextSeed:    106,
	}
	require.NoError(t, s.FinishRun(runID, res))

	runs, err := s.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)
	assert.Equal(t, 2, runs[0].Count)
	assert.Equal(t, 6, runs[0].TotalTrials)
	assert.Equal(t, uint64(106), runs[0].NextSeed)
	require.NotNil(t, runs[0].FinishedAt)

	recs, err := s.EncountersForRun(runID)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 1, recs[0].ID)
	assert.Equal(t, 150.0, recs[0].VMDFt)
	assert.Equal(t, 3, recs[0].Trials)
	assert.InDelta(t, (250 * time.Millisecond).Seconds(), recs[0].Runtime.Seconds(), 1e-9)
	assert.Equal(t, uint64(101), recs[0].SeedFirst)
	assert.Equal(t, uint64(103), recs[0].SeedLast)
	assert.Equal(t, []float64{5000, 5010, 5020}, recs[0].IntruderAltFt)
	assert.Equal(t, []float64{120, 120, 121}, recs[0].IntruderSpeedKt)
}

func TestInsertEncounterRejectsDuplicates(t *testing.T) {
	s := newTestStorage(t)

	runID, err := s.BeginRun(time.Now(), 1, "{}")
	require.NoError(t, err)
	require.NoError(t, s.InsertEncounter(runID, testRecord(1)))
	require.Error(t, s.InsertEncounter(runID, testRecord(1)),
		"encounter ids are unique within a run")
}

func TestSinkWritesUnderRun(t *testing.T) {
	s := newTestStorage(t)

	runID, err := s.BeginRun(time.Now(), 1, "{}")
	require.NoError(t, err)

	sink := s.Sink(runID)
	require.NoError(t, sink.AcceptedEncounter(testRecord(1), nil))

	recs, err := s.EncountersForRun(runID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 1, recs[0].ID)
}

func TestListRunsNewestFirst(t *testing.T) {
	s := newTestStorage(t)

	first, err := s.BeginRun(time.Now(), 1, "{}")
	require.NoError(t, err)
	second, err := s.BeginRun(time.Now(), 1, "{}")
	require.NoError(t, err)

	runs, err := s.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].ID)
	assert.Equal(t, first, runs[1].ID)
}
