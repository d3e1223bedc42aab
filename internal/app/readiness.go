package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Pinger is the minimal interface for a dependency capable of Ping.
type Pinger interface{ Ping(ctx context.Context) error }

// RedisPingResult is the minimal return type of a Redis client's Ping.
type RedisPingResult interface{ Err() error }

// RedisClient is the minimal interface for a Redis client needed for readiness.
type RedisClient interface{ Ping(ctx context.Context) RedisPingResult }

// AdaptRedis wraps a go-redis client so it satisfies RedisClient. The
// concrete Ping returns *redis.StatusCmd, which Go's method matching will
// not widen to the interface on its own.
func AdaptRedis(c *redis.Client) RedisClient {
	if c == nil {
		return nil
	}
	return goRedisAdapter{c}
}

type goRedisAdapter struct{ c *redis.Client }

func (a goRedisAdapter) Ping(ctx context.Context) RedisPingResult { return a.c.Ping(ctx) }

// BuildReadinessChecks returns readiness checks for Redis, Qdrant, Postgres
// and the audit broker. Redis and Qdrant are mandatory, so a missing client
// yields a failing check; the archive and the broker are optional features
// and their checks are nil (skipped) when unconfigured.
func BuildReadinessChecks(rdb RedisClient, qdrant Pinger, pool Pinger, broker Pinger) (
	func(ctx context.Context) error,
	func(ctx context.Context) error,
	func(ctx context.Context) error,
	func(ctx context.Context) error,
) {
	redisCheck := func(ctx context.Context) error {
		if rdb == nil {
			return fmt.Errorf("redis not configured")
		}
		return rdb.Ping(ctx).Err()
	}
	qdrantCheck := func(ctx context.Context) error {
		if qdrant == nil {
			return fmt.Errorf("qdrant not configured")
		}
		return qdrant.Ping(ctx)
	}
	var dbCheck func(ctx context.Context) error
	if pool != nil {
		dbCheck = func(ctx context.Context) error { return pool.Ping(ctx) }
	}
	var kafkaCheck func(ctx context.Context) error
	if broker != nil {
		kafkaCheck = func(ctx context.Context) error { return broker.Ping(ctx) }
	}
	return redisCheck, qdrantCheck, dbCheck, kafkaCheck
}
