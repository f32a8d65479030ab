package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/veldt-labs/shortcycle/internal/logging"
)

// TaskHandler executes one task for an agent. A returned error becomes a
// failed TaskStatus on the wire; the HTTP exchange itself still succeeds.
type TaskHandler func(ctx context.Context, task Task) (map[string]any, error)

// Server exposes a single agent over the protocol's three endpoints:
//
//	GET  /a2a/agent_card
//	POST /a2a/tasks
//	GET  /health
type Server struct {
	card    AgentCard
	handler TaskHandler
	logger  zerolog.Logger

	httpServer *http.Server
}

// NewServer wires an agent card and its task handler into an HTTP server.
func NewServer(card AgentCard, handler TaskHandler) *Server {
	return &Server{
		card:    card,
		handler: handler,
		logger:  logging.WithAgent(card.Name),
	}
}

// Router builds the protocol routes. Exposed separately so tests can drive
// the server through httptest without binding a port.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/a2a/agent_card", s.handleAgentCard)
	r.Post("/a2a/tasks", s.handleTask)
	r.Get("/health", s.handleHealth)

	return r
}

// ListenAndServe serves the agent until the context is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("agent server listening")
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("agent server shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("agent server failed: %w", err)
	}
}

func (s *Server) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.card)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"agent":  s.card.Name,
	})
}

func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	var task Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		writeJSON(w, http.StatusBadRequest, Failed(fmt.Errorf("invalid task payload: %w", err), ""))
		return
	}

	s.logger.Info().Str("skill", task.Skill).Str("task_id", task.TaskID).Msg("task received")

	output, err := s.handler(r.Context(), task)
	if err != nil {
		// Handler failures travel as a failed status, not an HTTP error.
		s.logger.Error().Err(err).Str("skill", task.Skill).Msg("task failed")
		writeJSON(w, http.StatusOK, Failed(err, fmt.Sprintf("task %s failed", task.Skill)))
		return
	}

	writeJSON(w, http.StatusOK, Completed(output, fmt.Sprintf("task %s completed", task.Skill)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
