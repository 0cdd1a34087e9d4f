package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/seatgrid/seatgrid/internal/booking"
	"github.com/seatgrid/seatgrid/internal/seatstore"
)

// BookingHandler exposes the Booking Coordinator over HTTP.
type BookingHandler struct {
	BC *booking.Coordinator
}

// NewBookingHandler constructs a BookingHandler over a non-nil
// Coordinator.
func NewBookingHandler(bc *booking.Coordinator) *BookingHandler {
	if bc == nil {
		panic("nil coordinator passed to NewBookingHandler")
	}
	return &BookingHandler{BC: bc}
}

type seatRef struct {
	Row string `json:"row"`
	Col string `json:"col"`
}

type createBookingRequest struct {
	EventID uint64    `json:"eventId"`
	UserID  string    `json:"userId"`
	Seats   []seatRef `json:"seats"`
}

// codeToStatus maps the booking error taxonomy to an HTTP status. Per
// Open Question 4, conflict kinds are not collapsed in the response
// body — only the HTTP status groups them.
func codeToStatus(code booking.Code) int {
	switch code {
	case booking.CodeInvalid:
		return http.StatusBadRequest
	case booking.CodeSoldOut, booking.CodeInsufficientCapacity,
		booking.CodeConflictCached, booking.CodeConflictVersion,
		booking.CodeConflictRowLock, booking.CodeSeatsNotFound, booking.CodeSeatsUnavailable:
		return http.StatusConflict
	case booking.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// CreateBooking handles POST /bookings. It is rate-limited by middleware
// before ever reaching this handler. That middleware runs before the
// body is bound, so its key holds the client IP and the placeholder user
// "anon": the limit is per IP, not per (ip, user).
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	var req createBookingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request body"})
	}
	if req.EventID == 0 || req.UserID == "" || len(req.Seats) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false, "message": "eventId, userId and at least one seat are required",
		})
	}

	seats := make([]seatstore.SeatKey, len(req.Seats))
	for i, s := range req.Seats {
		if s.Row == "" || s.Col == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "each seat requires row and col"})
		}
		seats[i] = seatstore.SeatKey{Row: s.Row, Col: s.Col}
	}

	c.Set("user_id", req.UserID)

	res, err := h.BC.BookSeats(c.Request().Context(), req.EventID, req.UserID, seats)
	if err != nil {
		var be *booking.Error
		if errors.As(err, &be) {
			return c.JSON(codeToStatus(be.Code), echo.Map{
				"success": false,
				"message": be.Error(),
				"errorDetails": echo.Map{
					"code": string(be.Code),
				},
			})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "internal error"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":   true,
		"message":   "booking confirmed",
		"seatCount": res.Seats,
	})
}
