package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/seatgrid/seatgrid/internal/seatstore"
)

// HealthHandler backs the liveness/readiness probes. Liveness never
// touches dependencies (it only proves the process is scheduling
// requests); readiness pings the Seat Store and Lock Store so a load
// balancer can pull an instance that has lost its database or Redis
// connection out of rotation.
type HealthHandler struct {
	SS  *seatstore.Store
	RDB *redis.Client
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(ss *seatstore.Store, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{SS: ss, RDB: rdb}
}

// Live handles GET /health/live.
func (h *HealthHandler) Live(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Ready handles GET /health/ready.
func (h *HealthHandler) Ready(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.SS.DB().PingContext(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "seat store unreachable"})
	}
	if err := h.RDB.Ping(ctx).Err(); err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "lock store unreachable"})
	}
	return c.String(http.StatusOK, "ok")
}
