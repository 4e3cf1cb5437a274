// Package gateway is the HTTP surface of conclave: it accepts analysis
// requests, relays the orchestrator's progress stream to WebSocket
// observers, and serves the run archive. All transport concerns live here,
// outside the orchestration core.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dusk-indust/conclave/internal/history"
	"github.com/dusk-indust/conclave/internal/orchestrator"
)

// Server serves the conclave HTTP API.
type Server struct {
	pipeline orchestrator.Orchestrator
	store    *history.Store // may be nil: history endpoints return 404
	hub      *Hub
	log      zerolog.Logger
	httpSrv  *http.Server
}

// New creates a Server around the given pipeline and (optional) history
// store.
func New(pipeline orchestrator.Orchestrator, store *history.Store, log zerolog.Logger) *Server {
	return &Server{
		pipeline: pipeline,
		store:    store,
		hub:      NewHub(log),
		log:      log.With().Str("component", "gateway").Logger(),
	}
}

// Run serves the API on addr until ctx is canceled. It also runs the hub and
// the pump goroutine that forwards orchestrator progress events to the hub.
func (s *Server) Run(ctx context.Context, addr string) error {
	go s.hub.Run(ctx)
	go s.pumpProgress(ctx)

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpSrv.ListenAndServe()
	}()

	s.log.Info().Str("addr", addr).Msg("gateway listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// routes builds the API mux.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/history/{id}", s.handleHistoryGet)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	return mux
}

// pumpProgress forwards every orchestrator progress event to the WebSocket
// hub. This is the only subscriber of the core's event channel.
func (s *Server) pumpProgress(ctx context.Context) {
	events := s.pipeline.Progress()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.hub.Broadcast(ev)
		}
	}
}

// analyzeRequest is the POST /api/analyze body.
type analyzeRequest struct {
	Prompt string   `json:"prompt"`
	Agents []string `json:"agents"`
}

// handleAnalyze runs one pipeline synchronously and responds with the
// Result. Progress streams over /ws while the request is in flight.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	agents := make([]orchestrator.AgentID, len(req.Agents))
	for i, a := range req.Agents {
		agents[i] = orchestrator.AgentID(a)
	}

	result, err := s.pipeline.Analyze(r.Context(), orchestrator.Request{
		Prompt: req.Prompt,
		Agents: agents,
	})
	switch {
	case errors.Is(err, orchestrator.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, orchestrator.ErrEmptyPrompt), errors.Is(err, orchestrator.ErrNoAgents):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if s.store != nil {
		if _, err := s.store.Save(req.Prompt, result); err != nil {
			s.log.Warn().Err(err).Msg("archiving run failed")
		}
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "history is not enabled")
		return
	}
	runs, err := s.store.Recent(20)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleHistoryGet(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "history is not enabled")
		return
	}
	run, err := s.store.Get(r.PathValue("id"))
	if errors.Is(err, history.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
