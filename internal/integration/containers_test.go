//go:build integration

// Package integration runs the storage and messaging adapters against real
// backends in containers. Needs a local Docker daemon:
//
//	go test -tags=integration ./internal/integration/
package integration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/queue/redpanda"
	registryredis "github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/registry/redis"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/repo/postgres"
	sessionredis "github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/session/redis"
	qdrantcli "github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/vector/qdrant"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/domain"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/service/ratelimiter"
)

func startContainer(t *testing.T, req testcontainers.ContainerRequest) testcontainers.Container {
	t.Helper()
	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })
	return c
}

func Test_RedisAdapters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := startContainer(t, testcontainers.ContainerRequest{
		Image:        "redis:7",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
	})
	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	t.Cleanup(func() { _ = rdb.Close() })
	require.Eventually(t, func() bool { return rdb.Ping(ctx).Err() == nil }, 30*time.Second, time.Second)

	// Session store: create, append two turns, load them back in order.
	store := sessionredis.NewStore(rdb, "itest-sessions", time.Hour, 4, 200)
	sid := store.Create(ctx, "trader-7", "HY")
	require.NotEmpty(t, sid)
	store.Append(ctx, sid, "What are active HY orders?", "42 active orders.", "trader-7", "HY")
	store.Append(ctx, sid, "And IG?", "17 active orders.", "trader-7", "HY")

	msgs := store.Load(ctx, sid)
	require.Len(t, msgs, 4)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Equal(t, domain.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "And IG?", msgs[2].Content)

	// Registry: register, discover, resolve with and without a live row.
	reg := registryredis.NewRegistry(rdb, "itest-registry")
	reg.Register(ctx, domain.WorkerRegistration{
		AgentID:   "kdb-agent",
		Endpoint:  "http://kdb-agent:8001",
		Status:    domain.StatusHealthy,
		DeskNames: []string{"HY", "IG"},
	})
	got := reg.Discover(ctx, "kdb-agent")
	require.NotNil(t, got)
	assert.Equal(t, "http://kdb-agent:8001", got.Endpoint)
	assert.Equal(t, "http://kdb-agent:8001", reg.Resolve(ctx, "kdb-agent", "http://fallback:1"))
	assert.Equal(t, "http://fallback:1", reg.Resolve(ctx, "amps-agent", "http://fallback:1"))

	reg.Deregister(ctx, "kdb-agent")
	assert.Nil(t, reg.Discover(ctx, "kdb-agent"))

	// Throttle: the Lua script denies the third turn inside the window.
	limiter := ratelimiter.NewSessionLimiter(rdb, 2, time.Minute)
	for i := 0; i < 2; i++ {
		ok, _, err := limiter.Allow(ctx, "sess-itest")
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, retryAfter, err := limiter.Allow(ctx, "sess-itest")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Greater(t, retryAfter, time.Duration(0))
}

func Test_PostgresTurnArchive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := startContainer(t, testcontainers.ContainerRequest{
		Image:        "postgres:16",
		Env:          map[string]string{"POSTGRES_PASSWORD": "postgres", "POSTGRES_USER": "postgres", "POSTGRES_DB": "app"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithStartupTimeout(90 * time.Second),
	})
	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432")
	require.NoError(t, err)
	dsn := "postgres://postgres:postgres@" + host + ":" + port.Port() + "/app?sslmode=disable"

	var pool *pgxpool.Pool
	require.Eventually(t, func() bool {
		p, err := postgres.NewPool(ctx, dsn)
		if err != nil {
			return false
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return false
		}
		pool = p
		return true
	}, 30*time.Second, time.Second)
	t.Cleanup(pool.Close)

	repo := postgres.NewTurnRepo(pool)
	require.NoError(t, repo.EnsureSchema(ctx))

	old := domain.TurnRecord{
		ID:        "turn-old",
		SessionID: "sess-a",
		Query:     "old question",
		Response:  "old answer",
		CreatedAt: time.Now().UTC().AddDate(0, 0, -120),
	}
	recent := domain.TurnRecord{
		ID:         "turn-new",
		SessionID:  "sess-a",
		DeskName:   "HY",
		Query:      "What are active HY orders?",
		Response:   "42 active orders.",
		Agents:     []string{"kdb-agent", "amps-agent"},
		Strategy:   domain.StrategyParallel,
		DurationMS: 1200,
	}
	require.NoError(t, repo.Save(ctx, old))
	require.NoError(t, repo.Save(ctx, recent))

	turns, err := repo.ListBySession(ctx, "sess-a", 10)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "turn-old", turns[0].ID)
	assert.Equal(t, []string{"kdb-agent", "amps-agent"}, turns[1].Agents)
	assert.Equal(t, int64(1200), turns[1].DurationMS)

	// Retention sweep removes the 120-day-old turn, keeps the fresh one.
	cleanup := postgres.NewCleanupService(pool, 90)
	require.NoError(t, cleanup.CleanupOldData(ctx))

	turns, err = repo.ListBySession(ctx, "sess-a", 10)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "turn-new", turns[0].ID)
}

func Test_QdrantKnowledgeBase(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := startContainer(t, testcontainers.ContainerRequest{
		Image:        "qdrant/qdrant:latest",
		ExposedPorts: []string{"6333/tcp"},
		WaitingFor:   wait.ForHTTP("/collections").WithPort("6333/tcp").WithStartupTimeout(90 * time.Second),
	})
	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "6333")
	require.NoError(t, err)

	qcli := qdrantcli.New("http://"+host+":"+port.Port(), "")
	require.NoError(t, qcli.Ping(ctx))
	require.NoError(t, qcli.EnsureCollection(ctx, "itest_kb", 4, "Cosine"))
	// Second ensure is a no-op against the existing collection.
	require.NoError(t, qcli.EnsureCollection(ctx, "itest_kb", 4, "Cosine"))

	vectors := [][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}}
	payloads := []map[string]any{
		{"text": "AMPS SOW is the state of the world.", "source": "amps-concepts"},
		{"text": "bond_rfq holds RFQ events.", "source": "kdb-analytics"},
	}
	ids := []any{
		"00000000-0000-0000-0000-000000000001",
		"00000000-0000-0000-0000-000000000002",
	}
	require.NoError(t, qcli.UpsertPoints(ctx, "itest_kb", vectors, payloads, ids))
	// Same ids again: overwrite in place, no duplicates.
	require.NoError(t, qcli.UpsertPoints(ctx, "itest_kb", vectors, payloads, ids))

	require.Eventually(t, func() bool {
		n, err := qcli.CountPoints(ctx, "itest_kb")
		return err == nil && n == 2
	}, 30*time.Second, time.Second)

	hits, err := qcli.Search(ctx, "itest_kb", []float32{1, 0, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "AMPS SOW is the state of the world.", hits[0].Payload["text"])
	assert.Equal(t, "amps-concepts", hits[0].Payload["source"])
	assert.InDelta(t, 1.0, hits[0].Score, 0.01)
}

func Test_RedpandaAuditStream(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// The broker must advertise an address the host can dial before the
	// container starts, so bind a fixed host port instead of a mapped one.
	c := startContainer(t, testcontainers.ContainerRequest{
		Image:        "redpandadata/redpanda:latest",
		ExposedPorts: []string{"19092:19092/tcp"},
		Cmd: []string{
			"redpanda", "start",
			"--mode", "dev-container",
			"--kafka-addr", "PLAINTEXT://0.0.0.0:19092",
			"--advertise-kafka-addr", "PLAINTEXT://localhost:19092",
		},
		WaitingFor: wait.ForLog("Successfully started Redpanda!").WithStartupTimeout(90 * time.Second),
	})
	_ = c

	brokers := []string{"localhost:19092"}
	producer, err := redpanda.NewProducer(brokers, "itest.chat.turns")
	require.NoError(t, err)
	t.Cleanup(func() { _ = producer.Close() })
	require.Eventually(t, func() bool { return producer.Ping(ctx) == nil }, 30*time.Second, time.Second)

	turn := domain.TurnRecord{
		ID:         "turn-1",
		SessionID:  "sess-audit",
		DeskName:   "HY",
		Query:      "What are active HY orders?",
		Response:   "42 active orders.",
		Agents:     []string{"kdb-agent"},
		Strategy:   domain.StrategyParallel,
		DurationMS: 950,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, producer.PublishTurn(ctx, turn))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumeTopics("itest.chat.turns"),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	pollCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(pollCtx)
	require.Empty(t, fetches.Errors())
	records := fetches.Records()
	require.NotEmpty(t, records)

	rec := records[0]
	assert.Equal(t, "sess-audit", string(rec.Key))

	var event redpanda.TurnEvent
	require.NoError(t, json.Unmarshal(rec.Value, &event))
	assert.Equal(t, redpanda.EventTurnCompleted, event.EventType)
	assert.Equal(t, "turn-1", event.Turn.ID)
	assert.Equal(t, "HY", event.Turn.DeskName)
}
