// Package reconciler is the Reconciler (RC): a background sweeper that
// cleans up "ghost" claims — seats the Lock Store still shows as
// claimed but that were never followed by a successful commit, because
// the process crashed, a request was abandoned, or a release was lost.
// It is the authoritative backstop for Release being best-effort
// (Open Question 2); it never touches the Seat Store's write path and
// can never release a seat that is actually BOOKED.
package reconciler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/seatgrid/seatgrid/internal/seatstore"
)

// EventRegistry tracks the set of events the sweeper should scan. It is
// populated by the Event Initializer at creation time and rebuilt from
// seatstore.ListEvents on process restart; it is never persisted on
// its own.
type EventRegistry struct {
	mu  sync.RWMutex
	ids map[uint64]struct{}
}

// NewEventRegistry returns an empty registry.
func NewEventRegistry() *EventRegistry {
	return &EventRegistry{ids: make(map[uint64]struct{})}
}

// Add records an event id to be swept.
func (r *EventRegistry) Add(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids[id] = struct{}{}
}

// Snapshot returns the current set of tracked event ids.
func (r *EventRegistry) Snapshot() []uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]uint64, 0, len(r.ids))
	for id := range r.ids {
		out = append(out, id)
	}
	return out
}

// Rebuild replaces the tracked set with the given event ids, used at
// startup to recover the registry from the Seat Store.
func (r *EventRegistry) Rebuild(ids []uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		r.ids[id] = struct{}{}
	}
}

// LockStore is the narrow slice of internal/lockstore.Store the
// Sweeper needs, defined here (rather than depending on
// *lockstore.Store directly) so tests can exercise the ghost-release
// algorithm against an in-memory fake instead of live Redis.
type LockStore interface {
	ScanStale(ctx context.Context, eventID uint64, threshold time.Duration) ([]seatstore.SeatKey, error)
	Release(ctx context.Context, eventID uint64, seats []seatstore.SeatKey) error
}

// SeatStore is the narrow slice of internal/seatstore.Store the
// Sweeper needs.
type SeatStore interface {
	FetchAvailable(ctx context.Context, eventID uint64) ([]seatstore.SeatKey, error)
}

// Sweeper periodically scans every tracked event for ghost claims and
// releases them. It runs on a single goroutine and a single
// time.Ticker — no thread-per-event, matching the resource-bound
// requirement of the base spec's concurrency model.
type Sweeper struct {
	LS       LockStore
	SS       SeatStore
	Registry *EventRegistry

	SweepInterval  time.Duration
	StaleThreshold time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// Start launches the sweep loop in its own goroutine and returns
// immediately. Stop must be called to release resources.
func (sw *Sweeper) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	sw.cancel = cancel
	sw.done = make(chan struct{})

	go func() {
		defer close(sw.done)
		ticker := time.NewTicker(sw.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sw.sweepAll(ctx)
			}
		}
	}()
}

// Stop cancels the sweep loop and blocks until it has exited, so
// callers can rely on it having stopped by the time Stop returns
// (used during graceful shutdown alongside the HTTP server).
func (sw *Sweeper) Stop() {
	if sw.cancel == nil {
		return
	}
	sw.cancel()
	<-sw.done
}

func (sw *Sweeper) sweepAll(ctx context.Context) {
	for _, eventID := range sw.Registry.Snapshot() {
		if err := sw.sweepOne(ctx, eventID); err != nil {
			log.Printf("reconciler: sweep event %d: %v", eventID, err)
		}
	}
}

// sweepOne performs one pass of the ghost-release algorithm for a
// single event: stale claims intersected with still-available seats
// are released. A seat that is stale in the Lock Store but now BOOKED
// in the Seat Store is left alone — it was legitimately committed and
// simply never got around to being released (harmless staleness, not a
// ghost).
func (sw *Sweeper) sweepOne(ctx context.Context, eventID uint64) error {
	stale, err := sw.LS.ScanStale(ctx, eventID, sw.StaleThreshold)
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}

	available, err := sw.SS.FetchAvailable(ctx, eventID)
	if err != nil {
		return err
	}
	availSet := make(map[seatstore.SeatKey]struct{}, len(available))
	for _, k := range available {
		availSet[k] = struct{}{}
	}

	var ghosts []seatstore.SeatKey
	for _, k := range stale {
		if _, ok := availSet[k]; ok {
			ghosts = append(ghosts, k)
		}
	}
	if len(ghosts) == 0 {
		return nil
	}
	return sw.LS.Release(ctx, eventID, ghosts)
}
