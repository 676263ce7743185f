package api

import (
	"net/http"

	"github.com/airspacelab/pairgen/internal/config"
	"github.com/airspacelab/pairgen/internal/websocket"
	"github.com/airspacelab/pairgen/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// Router is the API router
type Router struct {
	handler    *Handler
	middleware *Middleware
	config     *config.Config
	logger     *logger.Logger
}

// NewRouter creates a new API router
func NewRouter(tracker *Tracker, cfg *config.Config, log *logger.Logger, wsServer *websocket.Server) *Router {
	return &Router{
		handler:    NewHandler(tracker, cfg, log, wsServer),
		middleware: NewMiddleware(log),
		config:     cfg,
		logger:     log.Named("api-router"),
	}
}

// Routes returns the API routes
func (r *Router) Routes() http.Handler {
	router := chi.NewRouter()

	// Middleware
	router.Use(r.middleware.RequestID)
	router.Use(r.middleware.Logger)
	router.Use(r.middleware.Recoverer)
	router.Use(r.middleware.CORS(r.config.Monitor.CORSAllowedOrigins))

	// API routes
	router.Route("/api/v1", func(router chi.Router) {
		// Run progress
		router.Get("/status", r.handler.GetStatus)

		// Accepted encounter records
		router.Get("/records", r.handler.GetRecords)
		router.Get("/records/{idx}", r.handler.GetRecordByIndex)

		// Live progress stream
		router.Get("/ws", r.handler.HandleWebSocket)

		// Health check
		router.Get("/health", r.handler.GetHealth)
	})

	return router
}
