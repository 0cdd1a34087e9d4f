// Package booking is the Booking Coordinator (BC): the only component
// that decides whether a booking attempt succeeds. It never mutates
// state directly — it orchestrates the Admission Cache, Lock Store,
// and Commit Strategy in the fixed five-step protocol the specification
// requires, and is the sole place the error taxonomy is produced.
package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/seatgrid/seatgrid/internal/admission"
	"github.com/seatgrid/seatgrid/internal/seatstore"
	"github.com/seatgrid/seatgrid/internal/strategy"
)

// Code is the stable error taxonomy returned to the HTTP edge. Conflict
// kinds are not collapsed (Open Question 4): each distinguishable cause
// keeps its own code in the response body even though most map to the
// same HTTP status.
type Code string

const (
	CodeInvalid               Code = "INVALID"
	CodeSoldOut               Code = "SOLD_OUT"
	CodeInsufficientCapacity  Code = "INSUFFICIENT_CAPACITY"
	CodeConflictCached        Code = "CONFLICT_CACHED"
	CodeConflictVersion       Code = "CONFLICT_VERSION"
	CodeConflictRowLock       Code = "CONFLICT_ROWLOCK"
	CodeSeatsNotFound         Code = "SEATS_NOT_FOUND"
	CodeSeatsUnavailable      Code = "SEATS_UNAVAILABLE"
	CodeUnavailable           Code = "UNAVAILABLE"
	CodeInternal              Code = "INTERNAL"
)

// Error is the typed error BookSeats returns on any non-success
// outcome. Callers at the HTTP edge switch on Code; everyone else
// treats it as a plain error.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("booking: %s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("booking: %s", e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(code Code, err error) *Error { return &Error{Code: code, Err: err} }

// Result is returned to the caller on a successful booking.
type Result struct {
	EventID uint64
	Seats   int
}

// AuditPublisher is the narrow interface the Coordinator needs from
// internal/audit, kept here so booking does not import audit directly
// and tests can supply a fake.
type AuditPublisher interface {
	PublishBookingConfirmed(ctx context.Context, eventID uint64, userID string, seats []seatstore.SeatKey) error
}

// SeatStore is the narrow slice of internal/seatstore.Store the
// Coordinator needs: a handle to pass to the chosen Commit Strategy.
// Defined here (rather than depending on *seatstore.Store directly) so
// tests can supply a fake without a live MySQL connection.
type SeatStore interface {
	DB() *sql.DB
}

// LockStore is the narrow slice of internal/lockstore.Store the
// Coordinator needs, defined here so tests can exercise the
// Gatekeeper's linearizability property (P2) against an in-memory fake
// instead of live Redis.
type LockStore interface {
	TryClaim(ctx context.Context, eventID uint64, seats []seatstore.SeatKey, now time.Time, ttl time.Duration) (bool, error)
	Release(ctx context.Context, eventID uint64, seats []seatstore.SeatKey) error
}

// Clock exists only so tests can control "now" deterministically.
type Clock func() time.Time

// Coordinator wires the Admission Cache, Lock Store, Seat Store and a
// chosen Commit Strategy into the five-step booking protocol.
type Coordinator struct {
	SS       SeatStore
	LS       LockStore
	AC       admission.Cache
	Strategy strategy.Strategy
	Audit    AuditPublisher // may be nil: audit publication is optional

	ClaimTTL          time.Duration
	Now               Clock
	AdmissionDisabled bool
}

func (c *Coordinator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// BookSeats implements the five-step protocol: validate/normalize, AC
// fast path, LS atomic claim, CS commit, then AC decrement on success or
// LS release on failure, then a best-effort audit publish that never
// affects the outcome.
func (c *Coordinator) BookSeats(ctx context.Context, eventID uint64, userID string, seats []seatstore.SeatKey) (res Result, err error) {
	if userID == "" || len(seats) == 0 {
		return Result{}, newErr(CodeInvalid, fmt.Errorf("userID and at least one seat are required"))
	}
	seats = normalize(seats)

	if !c.AdmissionDisabled {
		if code, blocked := c.checkAdmission(ctx, eventID, len(seats)); blocked {
			return Result{}, newErr(code, nil)
		}
	}

	claimed, err := c.LS.TryClaim(ctx, eventID, seats, c.now(), c.ClaimTTL)
	if err != nil {
		return Result{}, newErr(CodeUnavailable, err)
	}
	if !claimed {
		return Result{}, newErr(CodeConflictCached, nil)
	}

	// From here on a claim is outstanding. If the commit fails, or an
	// unexpected panic unwinds this call, it MUST be released exactly
	// once. After a successful commit the claim is kept: it now mirrors
	// the BOOKED seat and the reconciler never releases it.
	released := false
	release := func() {
		if released {
			return
		}
		released = true
		if rerr := c.LS.Release(ctx, eventID, seats); rerr != nil {
			log.Printf("booking: release after commit attempt: %v", rerr)
		}
	}
	defer func() {
		if p := recover(); p != nil {
			release()
			panic(p)
		}
	}()

	n, cerr := c.Strategy.Commit(ctx, c.SS.DB(), eventID, userID, seats)
	if cerr != nil {
		release()
		return Result{}, classifyCommitErr(cerr)
	}

	if !c.AdmissionDisabled {
		if derr := c.AC.Decrement(ctx, eventID, int64(n)); derr != nil {
			log.Printf("booking: admission decrement: %v", derr)
		}
	}

	if c.Audit != nil {
		go func() {
			auditCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if aerr := c.Audit.PublishBookingConfirmed(auditCtx, eventID, userID, seats); aerr != nil {
				log.Printf("booking: audit publish failed: %v", aerr)
			}
		}()
	}

	return Result{EventID: eventID, Seats: n}, nil
}

// checkAdmission consults the Admission Cache fast path. A cache miss
// or error is treated as "no opinion" (Open Question 1): skip the fast
// path rather than block the booking on an advisory signal. When the
// peeked count can't cover the request, it reports which of the two
// uncollapsed codes applies: SOLD_OUT when nothing is left at all,
// INSUFFICIENT_CAPACITY when some seats remain but fewer than asked.
func (c *Coordinator) checkAdmission(ctx context.Context, eventID uint64, want int) (code Code, blocked bool) {
	available, ok, perr := c.AC.Peek(ctx, eventID)
	if perr != nil || !ok {
		return "", false
	}
	if available >= int64(want) {
		return "", false
	}
	if available <= 0 {
		return CodeSoldOut, true
	}
	return CodeInsufficientCapacity, true
}

func normalize(seats []seatstore.SeatKey) []seatstore.SeatKey {
	seen := make(map[seatstore.SeatKey]struct{}, len(seats))
	out := make([]seatstore.SeatKey, 0, len(seats))
	for _, s := range seats {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func classifyCommitErr(err error) *Error {
	switch {
	case errors.Is(err, seatstore.ErrSeatsNotFound):
		return newErr(CodeSeatsNotFound, err)
	case errors.Is(err, seatstore.ErrSeatsUnavailable):
		return newErr(CodeSeatsUnavailable, err)
	case errors.Is(err, seatstore.ErrRowLocked):
		return newErr(CodeConflictRowLock, err)
	case errors.Is(err, seatstore.ErrVersionConflict):
		return newErr(CodeConflictVersion, err)
	case errors.Is(err, sql.ErrTxDone):
		return newErr(CodeInternal, err)
	default:
		return newErr(CodeInternal, err)
	}
}
