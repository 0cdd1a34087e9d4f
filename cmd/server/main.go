package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/seatgrid/seatgrid/internal/admission"
	"github.com/seatgrid/seatgrid/internal/audit"
	"github.com/seatgrid/seatgrid/internal/booking"
	"github.com/seatgrid/seatgrid/internal/config"
	"github.com/seatgrid/seatgrid/internal/handler"
	"github.com/seatgrid/seatgrid/internal/lockstore"
	"github.com/seatgrid/seatgrid/internal/reconciler"
	"github.com/seatgrid/seatgrid/internal/router"
	"github.com/seatgrid/seatgrid/internal/seatstore"
	"github.com/seatgrid/seatgrid/internal/strategy"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	cfg := config.Load()

	ss, err := seatstore.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, 25)
	if err != nil {
		log.Fatalf("seat store: %v", err)
	}
	defer ss.Close()

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatalf("lock store: %v", err)
	}
	defer rdb.Close()

	ls := lockstore.New(rdb)

	var ac admission.Cache = admission.NewRedisCache(rdb)
	acMetrics := admission.NewMetrics(ac)
	ac = acMetrics

	registry := reconciler.NewEventRegistry()
	if events, err := ss.ListEvents(context.Background()); err != nil {
		log.Printf("reconciler: failed to rebuild event registry: %v", err)
	} else {
		ids := make([]uint64, len(events))
		for i, ev := range events {
			ids[i] = ev.ID
		}
		registry.Rebuild(ids)
	}

	claimTTL := time.Duration(cfg.LockStoreTTLHours) * time.Hour

	strategies := strategy.NewRegistry()
	coordinator := &booking.Coordinator{
		SS:                ss,
		LS:                ls,
		AC:                ac,
		Strategy:          strategies.Get(strategy.Name(cfg.BookingStrategy)),
		Audit:             audit.NewPublisher(cfg.RabbitMQURL, cfg.AuditEnabled),
		ClaimTTL:          claimTTL,
		AdmissionDisabled: !cfg.AdmissionCacheEnabled,
	}

	sweeper := &reconciler.Sweeper{
		LS:             ls,
		SS:             ss,
		Registry:       registry,
		SweepInterval:  cfg.ReconcilerSweepInterval,
		StaleThreshold: cfg.ReconcilerStaleThreshold,
	}
	sweeper.Start(context.Background())
	defer sweeper.Stop()

	e := echo.New()
	handlers := router.Handlers{
		Events:   handler.NewEventHandler(ss, ac, registry),
		Seats:    handler.NewSeatMapHandler(ss),
		Bookings: handler.NewBookingHandler(coordinator),
		Health:   handler.NewHealthHandler(ss, rdb),
	}
	router.Register(e, handlers, cfg, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, strategy=%s)", addr, cfg.Env, cfg.BookingStrategy)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- e.Start(addr)
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server error: %v", err)
		}
	case <-stopCtx.Done():
		log.Printf("shutdown signal received, stopping server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("server shutdown error: %v", err)
	}
	log.Printf("server stopped")
}
