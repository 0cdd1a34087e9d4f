package strategy

import (
	"context"
	"database/sql"

	"github.com/seatgrid/seatgrid/internal/seatstore"
)

// NaiveStrategy reads, asserts, writes, and commits with no locking of
// any kind beyond the transaction's own READ COMMITTED isolation. It is
// retained as a measurement baseline: under the Gatekeeper the Lock
// Store has already serialized access to these seats. On its own, a
// race between its read and its write is caught only by the update's
// AVAILABLE predicate, reported as ErrSeatsUnavailable.
type NaiveStrategy struct{}

func (s *NaiveStrategy) Commit(ctx context.Context, db *sql.DB, eventID uint64, userID string, seats []seatstore.SeatKey) (int, error) {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return wrapCommit("begin", err)
	}
	defer tx.Rollback()

	found, err := seatstore.FetchSeatsTx(ctx, tx, eventID, seats)
	if err != nil {
		return wrapCommit("fetch", err)
	}
	if len(found) < len(seats) {
		return wrapCommit("fetch", seatstore.ErrSeatsNotFound)
	}
	for _, seat := range found {
		if seat.Status != seatstore.StatusAvailable {
			return wrapCommit("fetch", seatstore.ErrSeatsUnavailable)
		}
	}

	affected, err := seatstore.UpdateSeatsTx(ctx, tx, eventID, seats, userID)
	if err != nil {
		return wrapCommit("update", err)
	}
	if int(affected) < len(seats) {
		return wrapCommit("update", seatstore.ErrSeatsUnavailable)
	}

	if err := tx.Commit(); err != nil {
		return wrapCommit("commit", err)
	}
	return len(seats), nil
}
