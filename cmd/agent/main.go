// Command agent runs one specialist worker from the catalogue.
//
// All seven specialists share this binary; AGENT_ID selects the card. The
// worker serves the uniform A2A surface (health, agent card, task route),
// registers itself in the Redis registry on startup, and answers queries
// with the LLM-backed handler.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	realai "github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/ai/real"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/agentserver"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/observability"
	registryredis "github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/registry/redis"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/agents"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.SetDefault(observability.SetupLogger(cfg))

	card, ok := agents.Lookup(cfg.AgentID)
	if !ok {
		known := make([]string, 0, len(agents.Catalog()))
		for _, c := range agents.Catalog() {
			known = append(known, c.AgentID)
		}
		slog.Error("unknown agent id",
			slog.String("agent_id", cfg.AgentID),
			slog.String("known", strings.Join(known, ", ")))
		os.Exit(1)
	}

	port := cfg.AgentPort
	if port == 0 {
		port = card.Port
	}
	endpoint := cfg.AgentEndpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("http://%s:%d", card.AgentID, port)
	}

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("tracing setup failed", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	// Scrape endpoint on a side port so the A2A surface stays protocol-only.
	observability.InitMetrics()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":9090", mux); err != nil {
			slog.Error("agent metrics server error", slog.Any("error", err))
		}
	}()

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("invalid redis url", slog.Any("error", err))
		os.Exit(1)
	}
	rdb := redis.NewClient(opts)
	defer func() { _ = rdb.Close() }()

	registry := registryredis.NewRegistry(rdb, cfg.AgentRegistryTable)
	handler := agents.NewLLMHandler(realai.New(cfg), cfg.ChatModel, card)
	worker := agentserver.New(agents.ServerOptions(card, endpoint), registry, handler)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	worker.Register(ctx)
	defer worker.Deregister(context.Background())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           worker.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("agent listening",
			slog.String("agent_id", card.AgentID),
			slog.String("endpoint", endpoint),
			slog.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("agent server error", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down agent", slog.String("agent_id", card.AgentID))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
