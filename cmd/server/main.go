// Command server starts the dispatcher HTTP gateway.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	a2acli "github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/a2a"
	ai "github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/ai"
	realai "github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/ai/real"
	httpserver "github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/httpserver"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/observability"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/queue/redpanda"
	registryredis "github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/registry/redis"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/repo/postgres"
	sessionredis "github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/session/redis"
	qdrantcli "github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/vector/qdrant"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/app"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/config"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/domain"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/service/ratelimiter"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/service/workpool"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	// Register all Prometheus metrics once per process so that /metrics
	// exposes HTTP, pipeline, and worker instrumentation.
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx := context.Background()

	// Redis backs the session store, the worker registry, and the
	// per-session throttle.
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("invalid redis url", slog.Any("error", err))
		os.Exit(1)
	}
	rdb := redis.NewClient(redisOpts)
	defer func() { _ = rdb.Close() }()

	sessions := sessionredis.NewStore(rdb, cfg.SessionTable,
		time.Duration(cfg.SessionTTLHours)*time.Hour, cfg.SessionMaxMessages, cfg.SessionMaxMsgChars)
	registry := registryredis.NewRegistry(rdb, cfg.AgentRegistryTable)
	throttle := ratelimiter.NewSessionLimiter(rdb, cfg.SessionRateLimit, cfg.SessionRateWindow)

	// Retrieval augmentation: Qdrant plus an embedding cache in front of
	// the AI client shared by the router, the pipeline, and the retriever.
	qcli := qdrantcli.New(cfg.QdrantURL, cfg.QdrantAPIKey)
	aicl := ai.NewEmbedCache(realai.New(cfg), cfg.EmbedCacheSize)
	retriever := usecase.NewKnowledgeRetriever(qcli, aicl, cfg.QdrantCollection)

	// Dispatch path: the router picks specialists, the A2A client fans out.
	caller := a2acli.NewClient(registry, cfg.AgentFallbackURL)
	router := usecase.NewModelRouter(aicl, registry, cfg.RouterModel)
	pipeline := usecase.NewPipeline(retriever, router, caller, aicl, cfg.ChatModel, cfg.RAGTopK, cfg.A2ATimeout)

	// Turn archive (optional): configured by DB_URL.
	var (
		archive  domain.TurnArchive
		dbPinger app.Pinger
	)
	if cfg.DBURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DBURL)
		if err != nil {
			slog.Error("db connect failed", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		repo := postgres.NewTurnRepo(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			slog.Error("turn archive schema", slog.Any("error", err))
			os.Exit(1)
		}
		archive = repo
		dbPinger = pool

		if cfg.DataRetentionDays > 0 {
			cleanupSvc := postgres.NewCleanupService(pool, cfg.DataRetentionDays)
			go cleanupSvc.RunPeriodic(ctx, cfg.CleanupInterval)
			slog.Info("cleanup service started",
				slog.Int("retention_days", cfg.DataRetentionDays),
				slog.Duration("interval", cfg.CleanupInterval))
		}
	}

	// Audit stream (optional): configured by KAFKA_BROKERS.
	var (
		audit        domain.AuditPublisher
		brokerPinger app.Pinger
	)
	if cfg.AuditEnabled() {
		producer, err := redpanda.NewProducer(cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			slog.Error("redpanda producer connect failed", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := producer.Close(); err != nil {
				slog.Error("failed to close audit producer", slog.Any("error", err))
			}
		}()
		audit = producer
		brokerPinger = producer
	}

	// Bounded worker pool for pipeline turns and fire-and-forget persistence.
	tasks := workpool.New(cfg.PipelineWorkers, cfg.PersistQueueSize)
	defer tasks.Close()

	chatSvc := usecase.NewChatService(sessions, pipeline, tasks, archive, audit)

	redisCheck, qdrantCheck, dbCheck, kafkaCheck := app.BuildReadinessChecks(
		app.AdaptRedis(rdb), qcli, dbPinger, brokerPinger)

	srv := httpserver.NewServer(cfg, chatSvc, throttle, dbCheck, redisCheck, qdrantCheck, kafkaCheck)
	handler := app.BuildRouter(cfg, srv)

	// Bootstrap the knowledge collection and the bundled corpus. Idempotent
	// and best effort: a degraded knowledge base must not block serving.
	app.EnsureKnowledgeBase(ctx, qcli, cfg.QdrantCollection, retriever)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
