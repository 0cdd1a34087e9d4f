// Package lockstore is the Lock Store (LS): a Redis-backed mutual
// exclusion primitive that decides, with a single atomic round trip,
// whether a set of seats is claimable right now. It never touches
// MySQL and never decides whether a booking ultimately succeeds — that
// is the authoritative Seat Store's and Commit Strategy's job. The
// Lock Store exists purely to reject the overwhelming majority of
// losing requests before they reach the database.
package lockstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seatgrid/seatgrid/internal/seatstore"
)

// ErrClaimFailed wraps any network/timeout error surfaced while running
// the claim script; callers treat this as "unavailable", never as "lost
// the race" (that is a plain `false, nil` return).
var ErrClaimFailed = errors.New("lockstore: claim check failed")

// claimScript runs entirely server-side so the existence check and the
// claim write happen as one atomic step — no other client can observe
// or act on an intermediate state. This is the same single-round-trip
// Lua idiom as a Redis token-bucket rate limiter: compute, then commit,
// all inside one EVAL.
const claimScript = `
local key = KEYS[1]
local n = #ARGV - 2
local now = ARGV[n+1]
local ttl = tonumber(ARGV[n+2])
for i = 1, n do
    if redis.call('HEXISTS', key, ARGV[i]) == 1 then
        return 0
    end
end
for i = 1, n do
    redis.call('HSET', key, ARGV[i], now)
end
if redis.call('TTL', key) < 0 then
    redis.call('EXPIRE', key, ttl)
end
return 1
`

// Store wraps a Redis client and the compiled claim script.
type Store struct {
	rdb    *redis.Client
	script *redis.Script
}

// New returns a Store over an already-connected Redis client.
func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb, script: redis.NewScript(claimScript)}
}

func hashKey(eventID uint64) string {
	return fmt.Sprintf("event:%d:seats", eventID)
}

func field(k seatstore.SeatKey) string {
	return k.Row + "-" + k.Col
}

// TryClaim attempts to atomically claim every seat in seats for an
// event. It returns true only if none of the seats were already
// claimed, in which case all of them are now claimed. A false result
// with a nil error means the caller lost the race — not an error
// condition. ttl is attached to the event's whole claim hash when the
// hash has no expiry yet; when it elapses every claim of that event is
// dropped at once. Eligibility for the reconciler's ghost sweep is
// governed separately, by the threshold passed to ScanStale.
func (s *Store) TryClaim(ctx context.Context, eventID uint64, seats []seatstore.SeatKey, now time.Time, ttl time.Duration) (bool, error) {
	if len(seats) == 0 {
		return true, nil
	}
	keys := []string{hashKey(eventID)}
	args := make([]any, 0, len(seats)+2)
	for _, sk := range seats {
		args = append(args, field(sk))
	}
	args = append(args, strconv.FormatInt(now.UnixMilli(), 10), strconv.Itoa(int(ttl.Seconds())))

	res, err := s.script.Run(ctx, s.rdb, keys, args...).Int()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrClaimFailed, err)
	}
	return res == 1, nil
}

// Release removes a claim on the given seats. Releasing seats that are
// not currently claimed is a no-op, not an error, so callers can always
// call Release without first checking state (satisfies P5: idempotent
// release). Errors from Release are meant to be logged by the caller,
// never propagated into the booking outcome.
func (s *Store) Release(ctx context.Context, eventID uint64, seats []seatstore.SeatKey) error {
	if len(seats) == 0 {
		return nil
	}
	fields := make([]string, len(seats))
	for i, sk := range seats {
		fields[i] = field(sk)
	}
	if err := s.rdb.HDel(ctx, hashKey(eventID), fields...).Err(); err != nil {
		return fmt.Errorf("lockstore: release: %w", err)
	}
	return nil
}

// ScanStale returns every claimed seat whose claim timestamp is older
// than threshold. The reconciler intersects this against the Seat
// Store's AVAILABLE set to find ghost claims — ones that were never
// followed by a successful commit and never released.
func (s *Store) ScanStale(ctx context.Context, eventID uint64, threshold time.Duration) ([]seatstore.SeatKey, error) {
	all, err := s.rdb.HGetAll(ctx, hashKey(eventID)).Result()
	if err != nil {
		return nil, fmt.Errorf("lockstore: scan stale: %w", err)
	}
	cutoff := time.Now().Add(-threshold).UnixMilli()

	var stale []seatstore.SeatKey
	for f, ts := range all {
		millis, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			continue
		}
		if millis > cutoff {
			continue
		}
		row, col, ok := splitField(f)
		if !ok {
			continue
		}
		stale = append(stale, seatstore.SeatKey{Row: row, Col: col})
	}
	return stale, nil
}

// splitField reverses field's "row-col" encoding. Row labels never
// contain '-', so the last separator belongs to the column.
func splitField(f string) (row, col string, ok bool) {
	for i := len(f) - 1; i >= 0; i-- {
		if f[i] == '-' {
			return f[:i], f[i+1:], true
		}
	}
	return "", "", false
}
