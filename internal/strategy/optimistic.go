package strategy

import (
	"context"
	"database/sql"
	"errors"

	"github.com/seatgrid/seatgrid/internal/seatstore"
)

// OptimisticStrategy reads without locking, then commits with a
// per-seat version-guarded UPDATE. Each seat's version is checked
// against the value read at the start of the transaction; if any
// single update affects zero rows, some other writer got there first
// and the whole transaction rolls back with ErrVersionConflict. This is
// the default strategy (the registry's fallback for unrecognized
// names) since it never blocks and holds no locks outside the final
// per-row write.
type OptimisticStrategy struct{}

func (s *OptimisticStrategy) Commit(ctx context.Context, db *sql.DB, eventID uint64, userID string, seats []seatstore.SeatKey) (int, error) {
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

	versions := make([]uint32, 0, len(seats))
	for _, k := range seats {
		seat, ok := findSeat(found, k)
		if !ok {
			return wrapCommit("fetch", seatstore.ErrSeatsNotFound)
		}
		if seat.Status != seatstore.StatusAvailable {
			return wrapCommit("fetch", seatstore.ErrSeatsUnavailable)
		}
		versions = append(versions, seat.Version)
	}

	if err := seatstore.UpdateSeatsOptimisticTx(ctx, tx, eventID, seats, versions, userID); err != nil {
		if errors.Is(err, seatstore.ErrVersionConflict) {
			return wrapCommit("update", seatstore.ErrVersionConflict)
		}
		return wrapCommit("update", err)
	}

	if err := tx.Commit(); err != nil {
		return wrapCommit("commit", err)
	}
	return len(seats), nil
}

func findSeat(seats []seatstore.Seat, k seatstore.SeatKey) (seatstore.Seat, bool) {
	for _, s := range seats {
		if s.Row == k.Row && s.Col == k.Col {
			return s, true
		}
	}
	return seatstore.Seat{}, false
}
