package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/seatgrid/seatgrid/internal/seatstore"
)

// SeatMapHandler serves the read-only seat availability view. Its
// correctness is explicitly out of scope (the base spec calls it
// "trivial"); the only enrichment layered on top is the Redis response
// cache middleware wired in the router.
type SeatMapHandler struct {
	SS *seatstore.Store
}

// NewSeatMapHandler constructs a SeatMapHandler over a non-nil Store.
func NewSeatMapHandler(ss *seatstore.Store) *SeatMapHandler {
	if ss == nil {
		panic("nil store passed to NewSeatMapHandler")
	}
	return &SeatMapHandler{SS: ss}
}

// GetSeats handles GET /events/:id/seats, returning every seat and its
// current status for the event.
func (h *SeatMapHandler) GetSeats(c echo.Context) error {
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || eventID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx := c.Request().Context()
	if _, err := h.SS.GetEvent(ctx, eventID); err != nil {
		if err == seatstore.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	seats, err := h.SS.ListSeatsForEvent(ctx, eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch seats"})
	}

	out := make([]echo.Map, 0, len(seats))
	for _, s := range seats {
		out = append(out, echo.Map{
			"row":    s.Row,
			"col":    s.Col,
			"status": s.Status,
		})
	}

	return c.JSON(http.StatusOK, out)
}
