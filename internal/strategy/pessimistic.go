package strategy

import (
	"context"
	"database/sql"
	"errors"

	"github.com/seatgrid/seatgrid/internal/seatstore"
)

// PessimisticStrategy locks every target row with SELECT ... FOR UPDATE
// NOWAIT before mutating it. NOWAIT means a concurrent transaction
// already holding one of these row locks causes an immediate
// ErrRowLocked rather than a blocking wait — matching the Gatekeeper's
// no-in-core-retries policy (spec Open Question 5).
type PessimisticStrategy struct{}

func (s *PessimisticStrategy) Commit(ctx context.Context, db *sql.DB, eventID uint64, userID string, seats []seatstore.SeatKey) (int, error) {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return wrapCommit("begin", err)
	}
	defer tx.Rollback()

	found, err := seatstore.FetchSeatsForUpdateTx(ctx, tx, eventID, seats)
	if err != nil {
		if errors.Is(err, seatstore.ErrRowLocked) {
			return wrapCommit("lock", seatstore.ErrRowLocked)
		}
		return wrapCommit("lock", err)
	}
	if len(found) < len(seats) {
		return wrapCommit("lock", seatstore.ErrSeatsNotFound)
	}
	for _, seat := range found {
		if seat.Status != seatstore.StatusAvailable {
			return wrapCommit("lock", seatstore.ErrSeatsUnavailable)
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
