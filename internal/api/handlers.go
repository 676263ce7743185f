package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/airspacelab/pairgen/internal/config"
	"github.com/airspacelab/pairgen/internal/websocket"
	"github.com/airspacelab/pairgen/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// Handler contains the API handlers
type Handler struct {
	tracker  *Tracker
	config   *config.Config
	logger   *logger.Logger
	wsServer *websocket.Server
}

// NewHandler creates a new API handler
func NewHandler(tracker *Tracker, cfg *config.Config, log *logger.Logger, wsServer *websocket.Server) *Handler {
	return &Handler{
		tracker:  tracker,
		config:   cfg,
		logger:   log.Named("api-handler"),
		wsServer: wsServer,
	}
}

// GetHealth returns a simple health check response
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

// GetStatus returns the current run status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.tracker.Status())
}

// GetRecords returns every accepted encounter record so far
func (h *Handler) GetRecords(w http.ResponseWriter, r *http.Request) {
	records := h.tracker.Records()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(records),
		"records": records,
	})
}

// GetRecordByIndex returns one accepted record by request order
func (h *Handler) GetRecordByIndex(w http.ResponseWriter, r *http.Request) {
	idxStr := chi.URLParam(r, "idx")
	idx, err := strconv.Atoi(idxStr)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid record index: "+idxStr)
		return
	}

	rec, ok := h.tracker.Record(idx)
	if !ok {
		h.writeError(w, http.StatusNotFound, "no record at index "+idxStr)
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

// HandleWebSocket upgrades the connection and attaches it to the progress stream
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	h.wsServer.HandleConnection(w, r)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", logger.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
