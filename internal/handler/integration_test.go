package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/seatgrid/seatgrid/internal/admission"
	"github.com/seatgrid/seatgrid/internal/reconciler"
	"github.com/seatgrid/seatgrid/internal/seatstore"
)

// newTestStore and newTestRedis connect to real MySQL/Redis instances,
// skipping a test when the instance it needs is not reachable.

func newTestStore(t *testing.T) *seatstore.Store {
	t.Helper()
	user := envOr("TEST_MYSQL_USER", "seatgrid")
	pass := envOr("TEST_MYSQL_PASSWORD", "seatgrid")
	host := envOr("TEST_MYSQL_HOST", "localhost")
	port := envOr("TEST_MYSQL_PORT", "3306")
	name := envOr("TEST_MYSQL_DB", "seatgrid_test")

	store, err := seatstore.Open(user, pass, host, port, name, 4)
	if err != nil {
		t.Skipf("skipping MySQL integration test: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := envOr("TEST_REDIS_ADDR", "localhost:6379")
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		t.Skipf("skipping Redis integration test: %v", err)
	}
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestCreateEvent_SeedsAdmissionCacheAndRegistersEvent(t *testing.T) {
	store := newTestStore(t)
	rdb := newTestRedis(t)

	ac := admission.NewMetrics(admission.NewRedisCache(rdb))
	registry := reconciler.NewEventRegistry()
	h := NewEventHandler(store, ac, registry)

	e := echo.New()
	body := `{"name":"Integration Event","date":"2026-12-31T20:00:00Z","rows":2,"cols":2}`
	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateEvent(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if ac.Seeds != 1 || ac.Errors != 0 {
		t.Fatalf("expected one successful admission cache seed, got seeds=%d errors=%d", ac.Seeds, ac.Errors)
	}
	if len(registry.Snapshot()) != 1 {
		t.Fatalf("expected the new event registered for sweeping, got %v", registry.Snapshot())
	}
}

func TestGetSeats_UnknownEventIs404(t *testing.T) {
	store := newTestStore(t)
	h := NewSeatMapHandler(store)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/events/999999999/seats", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("999999999")

	if err := h.GetSeats(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetSeats_ReturnsFullGrid(t *testing.T) {
	store := newTestStore(t)
	ev, err := store.CreateEvent(context.Background(), seatstore.EventSpec{
		Name: "seatmap test", Date: time.Now(), Rows: 1, Cols: 2,
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	h := NewSeatMapHandler(store)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/events/x/seats", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatUint(ev.ID, 10))

	if err := h.GetSeats(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHealthReady_FailsWhenRedisUnreachable(t *testing.T) {
	store := newTestStore(t)
	// A client pointed at a port nothing listens on simulates an
	// unreachable Lock Store without depending on tearing down a real one.
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond})
	defer rdb.Close()

	h := NewHealthHandler(store, rdb)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Ready(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestHealthLive_AlwaysOK(t *testing.T) {
	h := &HealthHandler{}
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Live(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
