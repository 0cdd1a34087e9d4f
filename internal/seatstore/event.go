package seatstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// EventSpec is the input to CreateEvent: the event's name, date, and
// the rows x cols grid of seats to materialize.
type EventSpec struct {
	Name string
	Date time.Time
	Rows int
	Cols int
}

// rowLabel converts a zero-based row index to a spreadsheet-style
// letter label (0 -> "A", 25 -> "Z", 26 -> "AA"), matching the wire
// contract's expectation of alphabetic row labels.
func rowLabel(i int) string {
	i++
	var b []byte
	for i > 0 {
		i--
		b = append([]byte{byte('A' + i%26)}, b...)
		i /= 26
	}
	return string(b)
}

// CreateEvent inserts the event row and its full rows x cols seat grid
// in a single transaction (the Event Initializer). Seat insertion uses
// one multi-row VALUES statement rather than rows*cols round trips.
func (s *Store) CreateEvent(ctx context.Context, spec EventSpec) (Event, error) {
	if spec.Rows <= 0 || spec.Cols <= 0 {
		return Event{}, fmt.Errorf("seatstore: rows and cols must be positive")
	}

	tx, err := s.BeginTx(ctx)
	if err != nil {
		return Event{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO events (name, event_date, rows, cols, created_at) VALUES (?, ?, ?, ?, NOW())`,
		spec.Name, spec.Date, spec.Rows, spec.Cols)
	if err != nil {
		return Event{}, fmt.Errorf("insert event: %w", err)
	}
	eventID, err := res.LastInsertId()
	if err != nil {
		return Event{}, err
	}

	const batchSize = 500
	placeholders := make([]string, 0, batchSize)
	args := make([]any, 0, batchSize*4)
	flush := func() error {
		if len(placeholders) == 0 {
			return nil
		}
		q := fmt.Sprintf(
			`INSERT INTO seats (event_id, row_label, col_label, status, version, created_at, updated_at)
			 VALUES %s`, strings.Join(placeholders, ","))
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert seats: %w", err)
		}
		placeholders = placeholders[:0]
		args = args[:0]
		return nil
	}

	for r := 0; r < spec.Rows; r++ {
		label := rowLabel(r)
		for c := 1; c <= spec.Cols; c++ {
			placeholders = append(placeholders, "(?, ?, ?, ?, 0, NOW(), NOW())")
			args = append(args, eventID, label, fmt.Sprintf("%d", c), StatusAvailable)
			if len(placeholders) >= batchSize {
				if err := flush(); err != nil {
					return Event{}, err
				}
			}
		}
	}
	if err := flush(); err != nil {
		return Event{}, err
	}

	if err := tx.Commit(); err != nil {
		return Event{}, fmt.Errorf("commit event: %w", err)
	}

	return Event{
		ID:   uint64(eventID),
		Name: spec.Name,
		Date: spec.Date,
		Rows: spec.Rows,
		Cols: spec.Cols,
	}, nil
}

// GetEvent fetches a single event by id.
func (s *Store) GetEvent(ctx context.Context, id uint64) (Event, error) {
	var ev Event
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, event_date, rows, cols, created_at FROM events WHERE id = ?`, id)
	if err := row.Scan(&ev.ID, &ev.Name, &ev.Date, &ev.Rows, &ev.Cols, &ev.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Event{}, ErrEventNotFound
		}
		return Event{}, err
	}
	return ev, nil
}

// ListSeatsForEvent returns every seat belonging to an event, in
// row/col order, without requiring the caller to enumerate SeatKeys
// itself.
func (s *Store) ListSeatsForEvent(ctx context.Context, eventID uint64) ([]Seat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, event_id, row_label, col_label, status, COALESCE(holder,''), version
		 FROM seats WHERE event_id = ? ORDER BY row_label, col_label`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list seats: %w", err)
	}
	defer rows.Close()

	var out []Seat
	for rows.Next() {
		var s Seat
		if err := rows.Scan(&s.ID, &s.EventID, &s.Row, &s.Col, &s.Status, &s.Holder, &s.Version); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListEvents returns every event, used to rebuild the reconciler's
// in-memory event registry on process restart.
func (s *Store) ListEvents(ctx context.Context) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, event_date, rows, cols, created_at FROM events`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.Name, &ev.Date, &ev.Rows, &ev.Cols, &ev.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
