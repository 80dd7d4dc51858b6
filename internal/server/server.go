package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnt/rebalancer/internal/worker"
)

// Server exposes the worker control and status surface over HTTP. It is the
// only externally triggered path into the worker's state machine;
// authentication is assumed to have happened upstream.
type Server struct {
	reconciler *worker.Reconciler
	reporter   *worker.StatusReporter
	logger     zerolog.Logger
	httpServer *http.Server

	// baseCtx is the process context sweeps run under when started over
	// HTTP
	baseCtx context.Context
}

// New creates the HTTP server on the given port
func New(baseCtx context.Context, reconciler *worker.Reconciler, reporter *worker.StatusReporter, port string, logger zerolog.Logger) *Server {
	s := &Server{
		reconciler: reconciler,
		reporter:   reporter,
		logger:     logger.With().Str("component", "http_server").Logger(),
		baseCtx:    baseCtx,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /worker/start", s.handleStart)
	mux.HandleFunc("POST /worker/stop", s.handleStop)

	s.httpServer = &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

// ListenAndServe runs the server until Shutdown
func (s *Server) ListenAndServe() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server listening")
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.reporter.Status(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to build worker status")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to build status"})
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	err := s.reconciler.Start(s.baseCtx)
	if errors.Is(err, worker.ErrAlreadyRunning) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "worker already running"})
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to start worker")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to start worker"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"running": true})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.reconciler.Stop()
	writeJSON(w, http.StatusOK, map[string]bool{"running": false})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
