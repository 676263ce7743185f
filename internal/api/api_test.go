package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airspacelab/pairgen/internal/config"
	"github.com/airspacelab/pairgen/internal/encounter"
	"github.com/airspacelab/pairgen/internal/websocket"
	"github.com/airspacelab/pairgen/pkg/logger"
)

func testRecord(id, trials int) encounter.Record {
	return encounter.Record{ID: id, VMDFt: 150, HMDFt: 900, TCASec: 60, Weight: 1.5, Trials: trials}
}

func TestTrackerAccumulates(t *testing.T) {
	tr := NewTracker(10, 1000)

	s := tr.Status()
	assert.True(t, s.Running)
	assert.Equal(t, 10, s.Requested)
	assert.Zero(t, s.Completed)
	assert.Zero(t, s.AcceptRate)
	assert.Equal(t, uint64(1000), s.InitialSeed)

	tr.EncounterAccepted(testRecord(1, 3))
	tr.EncounterAccepted(testRecord(2, 1))

	s = tr.Status()
	assert.Equal(t, 2, s.Completed)
	assert.Equal(t, 4, s.TotalTrials)
	assert.InDelta(t, 0.5, s.AcceptRate, 1e-9)

	tr.RunComplete()
	assert.False(t, tr.Status().Running)
}

func TestTrackerRecords(t *testing.T) {
	tr := NewTracker(2, 0)
	tr.EncounterAccepted(testRecord(1, 1))

	recs := tr.Records()
	require.Len(t, recs, 1)

	// The returned slice is a copy.
	recs[0].ID = 99
	rec, ok := tr.Record(0)
	require.True(t, ok)
	assert.Equal(t, 1, rec.ID)

	_, ok = tr.Record(1)
	assert.False(t, ok)
	_, ok = tr.Record(-1)
	assert.False(t, ok)
}

func newTestServer(t *testing.T, tr *Tracker) *httptest.Server {
	t.Helper()
	cfg := &config.Config{}
	require.NoError(t, cfg.Validate())
	log := logger.NewNop()
	router := NewRouter(tr, cfg, log, websocket.NewServer(log))
	srv := httptest.NewServer(router.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestStatusEndpoint(t *testing.T) {
	tr := NewTracker(5, 77)
	tr.EncounterAccepted(testRecord(1, 2))
	srv := newTestServer(t, tr)

	var s Status
	code := getJSON(t, srv.URL+"/api/v1/status", &s)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, s.Running)
	assert.Equal(t, 5, s.Requested)
	assert.Equal(t, 1, s.Completed)
	assert.Equal(t, uint64(77), s.InitialSeed)
}

func TestRecordsEndpoints(t *testing.T) {
	tr := NewTracker(5, 0)
	tr.EncounterAccepted(testRecord(1, 2))
	tr.EncounterAccepted(testRecord(2, 1))
	srv := newTestServer(t, tr)

	var list struct {
		Count   int                `json:"count"`
		Records []encounter.Record `json:"records"`
	}
	code := getJSON(t, srv.URL+"/api/v1/records", &list)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, list.Count)
	require.Len(t, list.Records, 2)
	assert.Equal(t, 2, list.Records[1].ID)

	var rec encounter.Record
	code = getJSON(t, srv.URL+"/api/v1/records/1", &rec)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, rec.ID)

	var errBody map[string]string
	code = getJSON(t, srv.URL+"/api/v1/records/9", &errBody)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, errBody, "error")

	code = getJSON(t, srv.URL+"/api/v1/records/abc", &errBody)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, NewTracker(1, 0))

	var body map[string]any
	code := getJSON(t, srv.URL+"/api/v1/health", &body)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}
