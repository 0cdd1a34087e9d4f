package config

// This file constructs the single Redis client shared by the lock store,
// admission cache, rate limiter and seat-map response cache. Unlike the
// cache/rate-limit concerns, the lock store is load-bearing (the
// Gatekeeper's correctness rests on it), so connection failure here is
// fatal at startup rather than a silent degrade.

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient instantiates a Redis client from the resolved Config and
// verifies connectivity with a short-lived ping. Callers that only need
// the advisory admission cache or HTTP cache may still choose to treat a
// nil return as "disabled"; the lock store never does.
func NewRedisClient(cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
