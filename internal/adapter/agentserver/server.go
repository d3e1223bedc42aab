// Package agentserver is the HTTP skeleton every specialist worker runs:
// health, agent card, and task routes, plus the registry lifecycle around
// them. Worker business logic is injected as a Handler.
package agentserver

import (
	"encoding/json"
	"net/http"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/a2a"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/domain"
)

// Handler answers one query within the worker's charter.
type Handler interface {
	Handle(ctx domain.Context, query string) (string, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx domain.Context, query string) (string, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx domain.Context, query string) (string, error) {
	return f(ctx, query)
}

// Options describe the worker being served.
type Options struct {
	AgentID     string
	Name        string
	Description string
	Endpoint    string
	Skills      []a2a.AgentSkill
	DeskNames   []string
}

// Server exposes the uniform A2A surface for one specialist worker.
type Server struct {
	opts     Options
	card     a2a.AgentCard
	registry domain.Registry
	handler  Handler
}

// New builds a worker server around a registry and a business handler.
func New(opts Options, registry domain.Registry, handler Handler) *Server {
	return &Server{
		opts: opts,
		card: a2a.AgentCard{
			Name:        opts.Name,
			Description: opts.Description,
			URL:         opts.Endpoint,
			Version:     "1.0.0",
			Skills:      opts.Skills,
		},
		registry: registry,
		handler:  handler,
	}
}

// Router returns the worker's HTTP surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/.well-known/agent.json", s.handleCard)
	r.Post("/a2a", s.handleTask)

	return r
}

// Register announces the worker to the registry. Faults are absorbed by the
// registry adapter; the `/health` renewal guarantees eventual registration
// once the backend is reachable.
func (s *Server) Register(ctx domain.Context) {
	s.registry.Register(ctx, s.registration())
	slog.Info("agent registered",
		slog.String("agent_id", s.opts.AgentID),
		slog.String("endpoint", s.opts.Endpoint))
}

// Deregister removes the worker from the registry on shutdown.
func (s *Server) Deregister(ctx domain.Context) {
	s.registry.Deregister(ctx, s.opts.AgentID)
	slog.Info("agent deregistered", slog.String("agent_id", s.opts.AgentID))
}

func (s *Server) registration() domain.WorkerRegistration {
	capabilities := make([]string, 0, len(s.opts.Skills))
	for _, sk := range s.opts.Skills {
		capabilities = append(capabilities, sk.ID)
	}
	return domain.WorkerRegistration{
		AgentID:      s.opts.AgentID,
		Endpoint:     s.opts.Endpoint,
		Capabilities: capabilities,
		DeskNames:    s.opts.DeskNames,
		Status:       domain.StatusHealthy,
	}
}

// handleHealth renews the registry TTL on every poll. Liveness is heartbeat
// by being polled.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.registry.Register(r.Context(), s.registration())
	writeJSON(w, http.StatusOK, a2a.HealthResponse{
		Status:   "ok",
		AgentID:  s.opts.AgentID,
		Endpoint: s.opts.Endpoint,
	})
}

func (s *Server) handleCard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.card)
}

// handleTask runs the business handler on the first text part of the task.
// Handler errors become a failed Result, not an HTTP error.
func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	var task a2a.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		http.Error(w, "invalid task payload", http.StatusBadRequest)
		return
	}
	if len(task.Message.Parts) == 0 {
		http.Error(w, "task message has no parts", http.StatusBadRequest)
		return
	}

	start := time.Now()
	text, err := s.handler.Handle(r.Context(), task.Query())
	if err != nil {
		slog.Warn("task handler failed",
			slog.String("agent_id", s.opts.AgentID),
			slog.String("task_id", task.ID),
			slog.Any("error", err))
		writeJSON(w, http.StatusOK, a2a.FailedResult(task.ID, err))
		return
	}
	slog.Info("task completed",
		slog.String("agent_id", s.opts.AgentID),
		slog.String("task_id", task.ID),
		slog.Duration("duration", time.Since(start)))
	writeJSON(w, http.StatusOK, a2a.CompletedResult(task.ID, text))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
