package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/seatgrid/seatgrid/internal/admission"
	"github.com/seatgrid/seatgrid/internal/reconciler"
	"github.com/seatgrid/seatgrid/internal/seatstore"
)

// EventHandler implements the Event Initializer's HTTP surface:
// creating a new event and materializing its seat grid.
type EventHandler struct {
	SS       *seatstore.Store
	AC       admission.Cache
	Registry *reconciler.EventRegistry // newly created events register for sweeping
}

// NewEventHandler constructs an EventHandler. SS and AC must be non-nil;
// Registry may be nil if reconciliation is disabled.
func NewEventHandler(ss *seatstore.Store, ac admission.Cache, registry *reconciler.EventRegistry) *EventHandler {
	if ss == nil || ac == nil {
		panic("nil dependency passed to NewEventHandler")
	}
	return &EventHandler{SS: ss, AC: ac, Registry: registry}
}

type createEventRequest struct {
	Name string    `json:"name"`
	Date time.Time `json:"date"`
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
}

// CreateEvent handles POST /events. It is the only route protected by
// the admin bearer token, since event creation is an operator action,
// not something end users ever call.
func (h *EventHandler) CreateEvent(c echo.Context) error {
	var req createEventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Name == "" || req.Rows <= 0 || req.Cols <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, rows and cols are required"})
	}

	ctx := c.Request().Context()
	ev, err := h.SS.CreateEvent(ctx, seatstore.EventSpec{
		Name: req.Name,
		Date: req.Date,
		Rows: req.Rows,
		Cols: req.Cols,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create event"})
	}

	// Seeding the admission cache is best-effort: AC is advisory (I7/I8),
	// so a seeding failure must never fail event creation itself.
	total := int64(ev.TotalSeats())
	ttl := time.Until(ev.Date.Add(24 * time.Hour))
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if err := h.AC.Seed(ctx, ev.ID, total, ttl); err != nil {
		c.Logger().Warnf("event %d: admission cache seed failed: %v", ev.ID, err)
	}

	if h.Registry != nil {
		h.Registry.Add(ev.ID)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"id":         ev.ID,
		"name":       ev.Name,
		"date":       ev.Date,
		"rows":       ev.Rows,
		"cols":       ev.Cols,
		"totalSeats": total,
	})
}
