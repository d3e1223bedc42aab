// Package redis implements the worker service registry on Redis.
//
// Rows live under one key prefix with a fixed 120 s TTL; a worker that stops
// heartbeating disappears on its own. Faults are logged and swallowed so the
// router can fall back to its static description table and the fan-out client
// to its configured endpoints.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/domain"
)

// TTL is the registration lifetime. Health-check cadence must stay strictly
// below it or live workers drop out of discovery.
const TTL = 120 * time.Second

// Registry is the Redis-backed worker directory.
type Registry struct {
	rdb       *redis.Client
	keyPrefix string
}

// NewRegistry wires a registry over an existing Redis client.
func NewRegistry(rdb *redis.Client, keyPrefix string) *Registry {
	return &Registry{rdb: rdb, keyPrefix: keyPrefix}
}

var _ domain.Registry = (*Registry)(nil)

func (r *Registry) key(agentID string) string {
	return r.keyPrefix + ":" + agentID
}

// Register upserts a registration with status healthy and a fresh TTL.
// Idempotent; calling it again on each health check renews the lease.
func (r *Registry) Register(ctx context.Context, reg domain.WorkerRegistration) {
	reg.Status = domain.StatusHealthy
	if reg.DeskName == "" {
		if len(reg.DeskNames) > 0 {
			reg.DeskName = reg.DeskNames[0]
		} else {
			reg.DeskName = "ALL"
		}
	}
	if reg.RegisteredAt.IsZero() {
		reg.RegisteredAt = time.Now().UTC()
	}
	raw, err := json.Marshal(reg)
	if err != nil {
		slog.Warn("registry register failed",
			slog.String("agent_id", reg.AgentID), slog.Any("error", err))
		return
	}
	if err := r.rdb.Set(ctx, r.key(reg.AgentID), raw, TTL).Err(); err != nil {
		slog.Warn("registry register failed",
			slog.String("agent_id", reg.AgentID), slog.Any("error", err))
	}
}

// Deregister deletes the row; silent when absent.
func (r *Registry) Deregister(ctx context.Context, agentID string) {
	if err := r.rdb.Del(ctx, r.key(agentID)).Err(); err != nil {
		slog.Warn("registry deregister failed",
			slog.String("agent_id", agentID), slog.Any("error", err))
	}
}

// Discover returns the registration for one worker, nil on miss or fault.
func (r *Registry) Discover(ctx context.Context, agentID string) *domain.WorkerRegistration {
	raw, err := r.rdb.Get(ctx, r.key(agentID)).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		slog.Warn("registry discover failed",
			slog.String("agent_id", agentID), slog.Any("error", err))
		return nil
	}
	var reg domain.WorkerRegistration
	if err := json.Unmarshal(raw, &reg); err != nil {
		slog.Warn("registry discover failed",
			slog.String("agent_id", agentID),
			slog.Any("error", fmt.Errorf("%w: %v", domain.ErrSchemaInvalid, err)))
		return nil
	}
	return &reg
}

// ListAll returns every live registration sorted by agent id, empty on fault.
func (r *Registry) ListAll(ctx context.Context) []domain.WorkerRegistration {
	var keys []string
	iter := r.rdb.Scan(ctx, 0, r.keyPrefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		slog.Warn("registry list failed", slog.Any("error", err))
		return nil
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)
	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		slog.Warn("registry list failed", slog.Any("error", err))
		return nil
	}
	regs := make([]domain.WorkerRegistration, 0, len(vals))
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			// key expired between SCAN and MGET
			continue
		}
		var reg domain.WorkerRegistration
		if err := json.Unmarshal([]byte(s), &reg); err != nil {
			slog.Warn("registry row skipped", slog.Any("error", err))
			continue
		}
		regs = append(regs, reg)
	}
	return regs
}

// Resolve returns a healthy worker's live endpoint, else fallbackURL.
func (r *Registry) Resolve(ctx context.Context, agentID, fallbackURL string) string {
	reg := r.Discover(ctx, agentID)
	if reg != nil && reg.Status == domain.StatusHealthy && reg.Endpoint != "" {
		return reg.Endpoint
	}
	return fallbackURL
}
