// Package router wires HTTP routes to handlers and attaches the
// middleware each route needs — admin auth on event creation, rate
// limiting on bookings, response caching on the seat map read.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/seatgrid/seatgrid/internal/adminauth"
	"github.com/seatgrid/seatgrid/internal/config"
	"github.com/seatgrid/seatgrid/internal/handler"
	"github.com/seatgrid/seatgrid/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// Handlers groups every HTTP handler the router needs to wire.
type Handlers struct {
	Events  *handler.EventHandler
	Seats   *handler.SeatMapHandler
	Bookings *handler.BookingHandler
	Health  *handler.HealthHandler
}

// Register attaches every route in the external interface (spec §7):
// health probes, event creation (admin-guarded), the seat map read
// (cached), and booking creation (rate-limited).
func Register(e *echo.Echo, h Handlers, cfg config.Config, rdb *redis.Client) {
	e.GET("/health/live", h.Health.Live)
	e.GET("/health/ready", h.Health.Ready)

	events := e.Group("/events")
	events.Use(adminauth.RequireAdmin(cfg.AdminJWTSecret))
	events.POST("", h.Events.CreateEvent)

	cacheCfg := config.LoadCacheConfig()
	e.GET("/events/:id/seats", h.Seats.GetSeats, middleware.NewRedisCache(cacheCfg, rdb))

	rateCfg := config.LoadRateLimitConfig()
	bookings := e.Group("/bookings")
	bookings.Use(middleware.NewTokenBucket(rateCfg, rdb))
	bookings.POST("", h.Bookings.CreateBooking)
}
