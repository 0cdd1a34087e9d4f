package seatstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// querier is satisfied by both *sql.DB and *sql.Tx, letting the fetch
// helpers run standalone or inside a strategy's transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func fetchSeats(ctx context.Context, q querier, eventID uint64, keys []SeatKey, forUpdate bool) ([]Seat, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	placeholders := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys)*2+1)
	args = append(args, eventID)
	for _, k := range keys {
		placeholders = append(placeholders, "(?,?)")
		args = append(args, k.Row, k.Col)
	}
	query := fmt.Sprintf(
		`SELECT id, event_id, row_label, col_label, status, COALESCE(holder,''), version
		 FROM seats WHERE event_id = ? AND (row_label, col_label) IN (%s)`,
		strings.Join(placeholders, ","),
	)
	if forUpdate {
		query += " FOR UPDATE NOWAIT"
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch seats: %w", translateLockErr(err))
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

func translateLockErr(err error) error {
	if isLockNoWait(err) {
		return ErrRowLocked
	}
	return err
}

// FetchSeatsTx reads seats inside a strategy's transaction without
// locking, used by the naive and optimistic strategies.
func FetchSeatsTx(ctx context.Context, tx *sql.Tx, eventID uint64, keys []SeatKey) ([]Seat, error) {
	return fetchSeats(ctx, tx, eventID, keys, false)
}

// FetchSeatsForUpdateTx reads seats with SELECT ... FOR UPDATE NOWAIT,
// used by the pessimistic strategy. Returns ErrRowLocked if any row is
// already locked by another transaction.
func FetchSeatsForUpdateTx(ctx context.Context, tx *sql.Tx, eventID uint64, keys []SeatKey) ([]Seat, error) {
	return fetchSeats(ctx, tx, eventID, keys, true)
}

// UpdateSeatsTx marks BOOKED those of the given seats that are still
// AVAILABLE; seats in any other status are left untouched. Returns the
// number of rows affected, which is below len(keys) when some seat was
// no longer available.
func UpdateSeatsTx(ctx context.Context, tx *sql.Tx, eventID uint64, keys []SeatKey, holder string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	var affected int64
	stmt, err := tx.PrepareContext(ctx, `
		UPDATE seats SET status = ?, holder = ?, version = version + 1, updated_at = NOW()
		WHERE event_id = ? AND row_label = ? AND col_label = ? AND status = ?`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, k := range keys {
		res, err := stmt.ExecContext(ctx, StatusBooked, holder, eventID, k.Row, k.Col, StatusAvailable)
		if err != nil {
			return affected, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return affected, err
		}
		affected += n
	}
	return affected, nil
}

// UpdateSeatsOptimisticTx marks the given seats BOOKED conditioned on
// each seat's version still matching the value it was read at. The
// versions slice must align index-for-index with keys. If any single
// conditional update affects zero rows, it returns ErrVersionConflict
// without rolling back — the caller (the optimistic strategy) owns the
// transaction lifecycle and decides whether to roll back.
func UpdateSeatsOptimisticTx(ctx context.Context, tx *sql.Tx, eventID uint64, keys []SeatKey, versions []uint32, holder string) error {
	if len(keys) != len(versions) {
		return fmt.Errorf("seatstore: keys/versions length mismatch")
	}
	stmt, err := tx.PrepareContext(ctx, `
		UPDATE seats SET status = ?, holder = ?, version = version + 1, updated_at = NOW()
		WHERE event_id = ? AND row_label = ? AND col_label = ? AND status = ? AND version = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, k := range keys {
		res, err := stmt.ExecContext(ctx, StatusBooked, holder, eventID, k.Row, k.Col, StatusAvailable, versions[i])
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrVersionConflict
		}
	}
	return nil
}
