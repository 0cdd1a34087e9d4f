// Command auditlogger drains the seatgrid.bookings queue and appends a
// human-readable line per confirmed booking to a log file. It runs
// entirely outside the booking decision path.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/seatgrid/seatgrid/internal/audit"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	logPath := flag.String("log", "logs/bookings.log", "path to append confirmed-booking lines to")
	flag.Parse()

	url := os.Getenv("RABBITMQ_URL")
	log.Printf("auditlogger: consuming seatgrid.bookings, writing to %s", *logPath)
	if err := audit.StartConsumer(url, *logPath); err != nil {
		log.Fatalf("auditlogger: %v", err)
	}
}
