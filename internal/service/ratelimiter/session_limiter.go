// Package ratelimiter throttles chat turns per session with a Redis-backed
// token bucket.
package ratelimiter

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// BucketConfig describes one token bucket.
type BucketConfig struct {
	Capacity   int64
	RefillRate float64
}

// BucketFromWindow spreads perWindow tokens over the window. A non-positive
// rate disables the bucket.
func BucketFromWindow(perWindow int, window time.Duration) BucketConfig {
	if perWindow <= 0 || window <= 0 {
		return BucketConfig{}
	}
	return BucketConfig{
		Capacity:   int64(perWindow),
		RefillRate: float64(perWindow) / window.Seconds(),
	}
}

// SessionLimiter applies one shared bucket shape to every session key. The
// bucket state lives in Redis so all gateway replicas see the same counts;
// idle buckets expire on their own.
type SessionLimiter struct {
	redis  *redis.Client
	cfg    BucketConfig
	ttlSec int
	script *redis.Script
}

// NewSessionLimiter builds a limiter allowing perWindow requests per session
// per window. A nil client yields a limiter that always allows.
func NewSessionLimiter(rdb *redis.Client, perWindow int, window time.Duration) *SessionLimiter {
	if rdb == nil {
		return nil
	}
	cfg := BucketFromWindow(perWindow, window)
	ttl := int(math.Ceil(window.Seconds())) * 2
	if ttl < 1 {
		ttl = 1
	}
	return &SessionLimiter{
		redis:  rdb,
		cfg:    cfg,
		ttlSec: ttl,
		script: redis.NewScript(luaTokenBucketScript),
	}
}

const luaTokenBucketScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local cost = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local tokens = capacity
local last_refill = now

local data = redis.call("HMGET", key, "tokens", "last_refill")
if data[1] ~= false and data[1] ~= nil then
  tokens = tonumber(data[1])
end
if data[2] ~= false and data[2] ~= nil then
  last_refill = tonumber(data[2])
end

if last_refill == nil then
  last_refill = now
end

local delta = now - last_refill
if delta < 0 then
  delta = 0
end

tokens = math.min(capacity, tokens + delta * refill_rate)
last_refill = now

local allowed = 0
local retry_after = 0

if tokens >= cost then
  tokens = tokens - cost
  allowed = 1
else
  local shortage = cost - tokens
  if refill_rate > 0 then
    retry_after = shortage / refill_rate
  else
    retry_after = 0
  end
end

redis.call("HMSET", key, "tokens", tokens, "last_refill", last_refill)
redis.call("EXPIRE", key, ttl)

return { allowed, tokens, retry_after }
`

// Allow spends one token for the session. It fails open: Redis faults and
// script surprises report allowed=true so a limiter outage never blocks the
// chat endpoint.
func (l *SessionLimiter) Allow(ctx context.Context, sessionID string) (bool, time.Duration, error) {
	if l == nil || l.redis == nil {
		return true, 0, nil
	}
	if l.cfg.Capacity <= 0 || l.cfg.RefillRate <= 0 {
		return true, 0, nil
	}

	nowSec := float64(time.Now().UnixNano()) / 1e9
	key := "rate:session:" + sessionID

	res, err := l.script.Run(ctx, l.redis, []string{key},
		l.cfg.Capacity, l.cfg.RefillRate, nowSec, 1, l.ttlSec).Result()
	if err != nil {
		slog.Error("session rate limiter script error",
			slog.String("session_id", sessionID), slog.Any("error", err))
		return true, 0, err
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) < 3 {
		slog.Error("session rate limiter unexpected script result",
			slog.String("session_id", sessionID), slog.Any("result", res))
		return true, 0, nil
	}

	allowed := toInt64(vals[0]) == 1
	retryAfter := time.Duration(toFloat64(vals[2]) * float64(time.Second))
	if allowed {
		retryAfter = 0
	}
	return allowed, retryAfter, nil
}

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}

func toFloat64(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case int:
		return float64(t)
	default:
		return math.NaN()
	}
}
