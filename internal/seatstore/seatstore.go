// Package seatstore is the Seat Store (SS): the authoritative,
// transactional persistence of events and seats. It is the only
// component permitted to mutate Seat.status/holder, and it never
// decides whether a booking should proceed — that is the Booking
// Coordinator's job, informed by the Lock Store and Admission Cache.
package seatstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// SeatKey identifies a seat within an event by its row and column
// labels. Labels are strings (not integers) so non-numeric labels such
// as "A" or "12" can be represented, per the wire contract.
type SeatKey struct {
	Row string
	Col string
}

// Status values surfaced on the wire and stored in the seats table.
const (
	StatusAvailable = "AVAILABLE"
	StatusBooked    = "BOOKED"
)

// Seat is a row of the seats table.
type Seat struct {
	ID      uint64
	EventID uint64
	Row     string
	Col     string
	Status  string
	Holder  string // empty when not BOOKED
	Version uint32
}

// Event is a row of the events table.
type Event struct {
	ID        uint64
	Name      string
	Date      time.Time
	Rows      int
	Cols      int
	CreatedAt time.Time
}

// TotalSeats returns rows*cols, the event's full inventory size.
func (e Event) TotalSeats() int { return e.Rows * e.Cols }

var (
	// ErrSeatsNotFound is returned when fewer seats were found in SS
	// than were requested; the strategy treats the missing ones as
	// non-existent rather than unavailable.
	ErrSeatsNotFound = errors.New("seatstore: one or more seats not found")
	// ErrSeatsUnavailable is returned when a requested seat exists but
	// is not AVAILABLE.
	ErrSeatsUnavailable = errors.New("seatstore: one or more seats unavailable")
	// ErrRowLocked is returned by the pessimistic strategy when
	// SELECT ... FOR UPDATE NOWAIT could not acquire a row lock.
	ErrRowLocked = errors.New("seatstore: seat row locked by another transaction")
	// ErrVersionConflict is returned by the optimistic strategy when
	// the conditional update affected fewer rows than requested.
	ErrVersionConflict = errors.New("seatstore: seat version changed since read")
	// ErrEventNotFound is returned when an event id has no matching row.
	ErrEventNotFound = errors.New("seatstore: event not found")
)

// MySQL driver error 1205 indicates a lock wait timeout; NOWAIT failures
// surface immediately with error 3572 ("ER_LOCK_NOWAIT") on MySQL 8+.
const mysqlErrLockNoWait = 3572

// Store wraps a MySQL connection pool. The pool is sized deliberately:
// under peak load the number of in-flight commit-strategy transactions
// must not exceed the pool size, so the Gatekeeper (which rejects the
// overwhelming majority of requests before they ever reach SS) is what
// keeps the pool from saturating, not the pool itself.
type Store struct {
	db *sql.DB
}

// Open connects to MySQL and verifies the connection with a bounded
// pool. maxOpenConns should be sized well below the expected concurrent
// request volume — the Gatekeeper, not this pool, is the load shedder.
func Open(user, pass, host, port, name string, maxOpenConns int) (*Store, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying handle for callers (commit strategies) that
// need to open their own transactions.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// FetchSeats returns the seats matching the given keys for an event, in
// no particular order. Keys with no matching row are simply absent from
// the result; callers treat that as "not found", not "unavailable".
func (s *Store) FetchSeats(ctx context.Context, eventID uint64, keys []SeatKey) ([]Seat, error) {
	return fetchSeats(ctx, s.db, eventID, keys, false)
}

// FetchAvailable returns the keys of every AVAILABLE seat of an event.
// Used by the reconciler to intersect against stale lock-store claims.
func (s *Store) FetchAvailable(ctx context.Context, eventID uint64) ([]SeatKey, error) {
	const q = `SELECT row_label, col_label FROM seats WHERE event_id = ? AND status = ?`
	rows, err := s.db.QueryContext(ctx, q, eventID, StatusAvailable)
	if err != nil {
		return nil, fmt.Errorf("fetch available: %w", err)
	}
	defer rows.Close()

	var keys []SeatKey
	for rows.Next() {
		var k SeatKey
		if err := rows.Scan(&k.Row, &k.Col); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// BeginTx starts a READ COMMITTED transaction for a commit strategy.
func (s *Store) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

func isLockNoWait(err error) bool {
	// go-sql-driver/mysql reports server errors as *mysql.MySQLError with
	// a Number field; avoid importing the driver's error type directly so
	// strategies stay decoupled from the specific driver in use beyond
	// Open(). The message text carries the MySQL error code reliably
	// enough for this check.
	if err == nil {
		return false
	}
	return containsLockNoWaitCode(err.Error())
}

func containsLockNoWaitCode(msg string) bool {
	marker := fmt.Sprintf("%d", mysqlErrLockNoWait)
	for i := 0; i+len(marker) <= len(msg); i++ {
		if msg[i:i+len(marker)] == marker {
			return true
		}
	}
	return false
}
