// Package admission is the Admission Cache (AC): a purely advisory
// Redis counter that lets the Booking Coordinator reject an
// already-sold-out event before ever touching the Lock Store or Seat
// Store. Every operation here is best-effort — a failure here never
// blocks a booking, it only forfeits the fast path for that request.
package admission

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is returned when Peek or Decrement could not reach
// Redis. Callers must treat this the same as "no opinion", per Open
// Question 1: skip the fast path, never block the booking on it.
var ErrUnavailable = errors.New("admission: cache unavailable")

// Cache is the Admission Cache's interface, satisfied by the Redis
// implementation below and by hand-written fakes in tests.
type Cache interface {
	// Peek returns the cached available-count for an event. ok is false
	// when the key does not exist (never seeded, or expired).
	Peek(ctx context.Context, eventID uint64) (int64, bool, error)
	// Decrement reduces the available-count by delta, clamped at zero.
	Decrement(ctx context.Context, eventID uint64, delta int64) error
	// Seed initializes the available-count for a newly created event.
	Seed(ctx context.Context, eventID uint64, initial int64, ttl time.Duration) error
}

// decrementScript clamps the counter at zero atomically with the
// decrement itself, so a burst of concurrent decrements can never drive
// the cached count negative even transiently. On a clamp it returns the
// negative pre-clamp value so the caller can log the anomaly.
const decrementScript = `
local key = KEYS[1]
local delta = tonumber(ARGV[1])
local v = redis.call('DECRBY', key, delta)
if v < 0 then
    redis.call('SET', key, 0, 'KEEPTTL')
end
return v
`

// RedisCache is the Redis-backed Cache implementation.
type RedisCache struct {
	rdb    *redis.Client
	script *redis.Script
}

// NewRedisCache returns a Cache backed by an already-connected Redis
// client.
func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb, script: redis.NewScript(decrementScript)}
}

func counterKey(eventID uint64) string {
	return fmt.Sprintf("event:%d:available", eventID)
}

func (c *RedisCache) Peek(ctx context.Context, eventID uint64) (int64, bool, error) {
	v, err := c.rdb.Get(ctx, counterKey(eventID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return v, true, nil
}

func (c *RedisCache) Decrement(ctx context.Context, eventID uint64, delta int64) error {
	if delta <= 0 {
		return nil
	}
	v, err := c.script.Run(ctx, c.rdb, []string{counterKey(eventID)}, delta).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if v < 0 {
		log.Printf("admission: event %d counter went negative (%d), clamped to 0", eventID, v)
	}
	return nil
}

func (c *RedisCache) Seed(ctx context.Context, eventID uint64, initial int64, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, counterKey(eventID), initial, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Metrics decorates a Cache with call counters, kept separate from the
// cache logic itself per the base spec's instrumentation note: the pure
// cache operations never know they are being measured.
type Metrics struct {
	next Cache

	Peeks      int64
	Hits       int64
	Decrements int64
	Seeds      int64
	Errors     int64
}

// NewMetrics wraps next with call counting.
func NewMetrics(next Cache) *Metrics {
	return &Metrics{next: next}
}

func (m *Metrics) Peek(ctx context.Context, eventID uint64) (int64, bool, error) {
	m.Peeks++
	v, ok, err := m.next.Peek(ctx, eventID)
	if err != nil {
		m.Errors++
	} else if ok {
		m.Hits++
	}
	return v, ok, err
}

func (m *Metrics) Decrement(ctx context.Context, eventID uint64, delta int64) error {
	m.Decrements++
	err := m.next.Decrement(ctx, eventID, delta)
	if err != nil {
		m.Errors++
	}
	return err
}

func (m *Metrics) Seed(ctx context.Context, eventID uint64, initial int64, ttl time.Duration) error {
	m.Seeds++
	err := m.next.Seed(ctx, eventID, initial, ttl)
	if err != nil {
		m.Errors++
	}
	return err
}
