package booking

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/seatgrid/seatgrid/internal/seatstore"
)

// fakeSeatStore satisfies SeatStore without a live MySQL connection.
// Commit never actually touches the *sql.DB it's handed (the fake
// Strategy below ignores it too), so a nil handle is fine.
type fakeSeatStore struct{}

func (fakeSeatStore) DB() *sql.DB { return nil }

// fakeLockStore is an in-memory Gatekeeper used to exercise P2
// (mutual exclusion) with real goroutines instead of live Redis.
type fakeLockStore struct {
	mu      sync.Mutex
	claimed map[seatstore.SeatKey]bool
	claims  int
	failErr error
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{claimed: make(map[seatstore.SeatKey]bool)}
}

func (f *fakeLockStore) TryClaim(ctx context.Context, eventID uint64, seats []seatstore.SeatKey, now time.Time, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return false, f.failErr
	}
	for _, s := range seats {
		if f.claimed[s] {
			return false, nil
		}
	}
	for _, s := range seats {
		f.claimed[s] = true
	}
	f.claims++
	return true, nil
}

func (f *fakeLockStore) Release(ctx context.Context, eventID uint64, seats []seatstore.SeatKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range seats {
		delete(f.claimed, s)
	}
	return nil
}

// fakeAdmission implements admission.Cache without Redis.
type fakeAdmission struct {
	mu        sync.Mutex
	available int64
	ok        bool
	peekErr   error
	decrErr   error
}

func (f *fakeAdmission) Peek(ctx context.Context, eventID uint64) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.peekErr != nil {
		return 0, false, f.peekErr
	}
	return f.available, f.ok, nil
}

func (f *fakeAdmission) Decrement(ctx context.Context, eventID uint64, delta int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.decrErr != nil {
		return f.decrErr
	}
	f.available -= delta
	if f.available < 0 {
		f.available = 0
	}
	return nil
}

func (f *fakeAdmission) Seed(ctx context.Context, eventID uint64, initial int64, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.available = initial
	f.ok = true
	return nil
}

// fakeStrategy implements strategy.Strategy. commitErr lets a test
// force the error-classification path without a real sentinel error
// from seatstore/query.go.
type fakeStrategy struct {
	commitErr error
	committed [][]seatstore.SeatKey
	mu        sync.Mutex
}

func (f *fakeStrategy) Commit(ctx context.Context, db *sql.DB, eventID uint64, userID string, seats []seatstore.SeatKey) (int, error) {
	if f.commitErr != nil {
		return 0, f.commitErr
	}
	f.mu.Lock()
	f.committed = append(f.committed, seats)
	f.mu.Unlock()
	return len(seats), nil
}

// fakeAudit records published events instead of dialing RabbitMQ.
type fakeAudit struct {
	mu        sync.Mutex
	published int
	done      chan struct{}
}

func newFakeAudit() *fakeAudit {
	return &fakeAudit{done: make(chan struct{}, 16)}
}

func (f *fakeAudit) PublishBookingConfirmed(ctx context.Context, eventID uint64, userID string, seats []seatstore.SeatKey) error {
	f.mu.Lock()
	f.published++
	f.mu.Unlock()
	f.done <- struct{}{}
	return nil
}

func seats(n int) []seatstore.SeatKey {
	out := make([]seatstore.SeatKey, n)
	for i := range out {
		out[i] = seatstore.SeatKey{Row: "A", Col: string(rune('1' + i))}
	}
	return out
}

func TestBookSeats_RejectsEmptyInput(t *testing.T) {
	c := &Coordinator{SS: fakeSeatStore{}, LS: newFakeLockStore(), AC: &fakeAdmission{}, Strategy: &fakeStrategy{}}

	if _, err := c.BookSeats(context.Background(), 1, "", seats(1)); err == nil {
		t.Fatal("expected error for empty userID")
	}
	if _, err := c.BookSeats(context.Background(), 1, "u1", nil); err == nil {
		t.Fatal("expected error for no seats")
	}
}

func TestBookSeats_AdmissionFastPathBlocksInsufficientCapacity(t *testing.T) {
	ac := &fakeAdmission{available: 1, ok: true}
	c := &Coordinator{SS: fakeSeatStore{}, LS: newFakeLockStore(), AC: ac, Strategy: &fakeStrategy{}}

	_, err := c.BookSeats(context.Background(), 1, "u1", seats(2))
	var be *Error
	if !errors.As(err, &be) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if be.Code != CodeInsufficientCapacity {
		t.Fatalf("expected INSUFFICIENT_CAPACITY, got %s", be.Code)
	}
}

func TestBookSeats_AdmissionFastPathBlocksSoldOut(t *testing.T) {
	ac := &fakeAdmission{available: 0, ok: true}
	c := &Coordinator{SS: fakeSeatStore{}, LS: newFakeLockStore(), AC: ac, Strategy: &fakeStrategy{}}

	_, err := c.BookSeats(context.Background(), 1, "u1", seats(1))
	var be *Error
	if !errors.As(err, &be) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if be.Code != CodeSoldOut {
		t.Fatalf("expected SOLD_OUT, got %s", be.Code)
	}
}

func TestBookSeats_AdmissionMissSkipsFastPath(t *testing.T) {
	ac := &fakeAdmission{ok: false}
	strat := &fakeStrategy{}
	c := &Coordinator{SS: fakeSeatStore{}, LS: newFakeLockStore(), AC: ac, Strategy: strat}

	res, err := c.BookSeats(context.Background(), 1, "u1", seats(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Seats != 2 {
		t.Fatalf("expected 2 seats booked, got %d", res.Seats)
	}
}

func TestBookSeats_ClaimConflictReportedAsConflictCached(t *testing.T) {
	ls := newFakeLockStore()
	// Pre-claim one of the seats to force TryClaim to fail.
	if _, err := ls.TryClaim(context.Background(), 1, seats(1), time.Now(), time.Hour); err != nil {
		t.Fatalf("setup claim: %v", err)
	}

	c := &Coordinator{SS: fakeSeatStore{}, LS: ls, AC: &fakeAdmission{}, AdmissionDisabled: true, Strategy: &fakeStrategy{}}
	_, err := c.BookSeats(context.Background(), 1, "u1", seats(1))

	var be *Error
	if !errors.As(err, &be) || be.Code != CodeConflictCached {
		t.Fatalf("expected CONFLICT_CACHED, got %v", err)
	}
}

func TestBookSeats_CommitFailureReleasesClaim(t *testing.T) {
	ls := newFakeLockStore()
	strat := &fakeStrategy{commitErr: seatstore.ErrVersionConflict}
	c := &Coordinator{SS: fakeSeatStore{}, LS: ls, AC: &fakeAdmission{}, AdmissionDisabled: true, Strategy: strat}

	want := seats(1)
	_, err := c.BookSeats(context.Background(), 1, "u1", want)

	var be *Error
	if !errors.As(err, &be) || be.Code != CodeConflictVersion {
		t.Fatalf("expected CONFLICT_VERSION, got %v", err)
	}
	if ls.claimed[want[0]] {
		t.Fatal("expected claim released after failed commit")
	}
}

func TestBookSeats_SuccessDecrementsAdmissionAndPublishesAudit(t *testing.T) {
	ls := newFakeLockStore()
	ac := &fakeAdmission{available: 10, ok: true}
	strat := &fakeStrategy{}
	audit := newFakeAudit()
	c := &Coordinator{SS: fakeSeatStore{}, LS: ls, AC: ac, Strategy: strat, Audit: audit}

	res, err := c.BookSeats(context.Background(), 1, "u1", seats(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Seats != 3 {
		t.Fatalf("expected 3 seats, got %d", res.Seats)
	}
	if ac.available != 7 {
		t.Fatalf("expected admission count decremented to 7, got %d", ac.available)
	}
	if len(ls.claimed) != 3 {
		t.Fatalf("expected all 3 claims kept after successful commit, got %d", len(ls.claimed))
	}

	select {
	case <-audit.done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for audit publish")
	}
}

func TestBookSeats_DeduplicatesSeats(t *testing.T) {
	strat := &fakeStrategy{}
	c := &Coordinator{SS: fakeSeatStore{}, LS: newFakeLockStore(), AC: &fakeAdmission{}, AdmissionDisabled: true, Strategy: strat}

	dup := []seatstore.SeatKey{{Row: "A", Col: "1"}, {Row: "A", Col: "1"}, {Row: "A", Col: "2"}}
	res, err := c.BookSeats(context.Background(), 1, "u1", dup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Seats != 2 {
		t.Fatalf("expected duplicates collapsed to 2 seats, got %d", res.Seats)
	}
}

// slowStrategy holds the claim open for a moment so concurrent
// attempts at the same seat genuinely overlap instead of serializing
// through the test's goroutine scheduling by luck.
type slowStrategy struct{}

func (slowStrategy) Commit(ctx context.Context, db *sql.DB, eventID uint64, userID string, seats []seatstore.SeatKey) (int, error) {
	time.Sleep(5 * time.Millisecond)
	return len(seats), nil
}

// TestBookSeats_ConcurrentClaimsAreMutuallyExclusive exercises P2: of N
// concurrent attempts at the same seat while one is mid-commit, exactly
// one may hold the claim at a time.
func TestBookSeats_ConcurrentClaimsAreMutuallyExclusive(t *testing.T) {
	ls := newFakeLockStore()
	const attempts = 20
	var wg sync.WaitGroup
	var successes int32
	var mu sync.Mutex

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c := &Coordinator{
				SS:                fakeSeatStore{},
				LS:                ls,
				AC:                &fakeAdmission{},
				AdmissionDisabled: true,
				Strategy:          slowStrategy{},
			}
			_, err := c.BookSeats(context.Background(), 1, "u", seats(1))
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if successes == 0 {
		t.Fatal("expected at least one attempt to succeed")
	}
	if successes == attempts {
		t.Fatal("expected at least one attempt to be rejected by the claim while another was mid-commit")
	}
}

func TestBookSeats_PanicDuringCommitStillReleasesClaim(t *testing.T) {
	ls := newFakeLockStore()
	strat := &panicStrategy{}
	c := &Coordinator{SS: fakeSeatStore{}, LS: ls, AC: &fakeAdmission{}, AdmissionDisabled: true, Strategy: strat}

	want := seats(1)
	func() {
		defer func() { recover() }()
		_, _ = c.BookSeats(context.Background(), 1, "u1", want)
	}()

	if ls.claimed[want[0]] {
		t.Fatal("expected claim released even after a panic mid-commit")
	}
}

type panicStrategy struct{}

func (panicStrategy) Commit(ctx context.Context, db *sql.DB, eventID uint64, userID string, seats []seatstore.SeatKey) (int, error) {
	panic("simulated commit panic")
}
