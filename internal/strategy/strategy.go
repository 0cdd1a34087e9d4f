// Package strategy provides the pluggable Commit Strategies (CS): the
// different ways the authoritative Seat Store transaction can be used
// to apply a booking once the Gatekeeper has already granted the claim.
// A strategy is a performance knob, never a correctness dependency —
// the Lock Store has already ensured no two requests reach this point
// for the same seat at the same time; a strategy only decides how
// defensively it double-checks that invariant against MySQL.
package strategy

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/seatgrid/seatgrid/internal/seatstore"
)

// Strategy commits a booking for seats already granted by the
// Gatekeeper. It returns the number of seats actually booked (always
// len(seats) on success) and a non-nil error on any conflict.
type Strategy interface {
	Commit(ctx context.Context, db *sql.DB, eventID uint64, userID string, seats []seatstore.SeatKey) (int, error)
}

// Name identifies a registered strategy.
type Name string

const (
	Naive       Name = "naive"
	Pessimistic Name = "pessimistic"
	Optimistic  Name = "optimistic"
)

// Registry maps a configured strategy name to its implementation,
// falling back to Optimistic for any name it does not recognize — a
// small map literal is enough here, no plugin framework is warranted.
type Registry struct {
	strategies map[Name]Strategy
	fallback   Strategy
}

// NewRegistry builds the default registry of all three strategies.
func NewRegistry() *Registry {
	opt := &OptimisticStrategy{}
	return &Registry{
		strategies: map[Name]Strategy{
			Naive:       &NaiveStrategy{},
			Pessimistic: &PessimisticStrategy{},
			Optimistic:  opt,
		},
		fallback: opt,
	}
}

// Get returns the strategy registered under name, or the fallback
// (optimistic) if name is unrecognized.
func (r *Registry) Get(name Name) Strategy {
	if s, ok := r.strategies[name]; ok {
		return s
	}
	return r.fallback
}

func wrapCommit(op string, err error) (int, error) {
	return 0, fmt.Errorf("strategy: %s: %w", op, err)
}
