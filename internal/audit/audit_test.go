package audit

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/seatgrid/seatgrid/internal/seatstore"
)

func TestPublisher_DisabledIsNoop(t *testing.T) {
	p := NewPublisher("amqp://nonexistent:1/", false)
	err := p.PublishBookingConfirmed(context.Background(), 1, "u1", []seatstore.SeatKey{{Row: "A", Col: "1"}})
	if err != nil {
		t.Fatalf("expected disabled publisher to be a silent no-op, got %v", err)
	}
}

func TestHandleMessage_AppendsHumanReadableLine(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "sub", "bookings.log")

	ev := BookingConfirmedEvent{
		EventID:     42,
		UserID:      "user-1",
		Seats:       []string{"A1", "A2"},
		SeatCount:   2,
		ConfirmedAt: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC).Format(time.RFC3339),
	}
	body, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if err := handleMessage(body, logPath); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, "event_id=42") || !strings.Contains(line, "user_id=user-1") || !strings.Contains(line, "count=2") {
		t.Fatalf("unexpected log line: %q", line)
	}
}

func TestHandleMessage_AppendsAcrossMultipleCalls(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "bookings.log")

	for i := 0; i < 3; i++ {
		body, err := json.Marshal(BookingConfirmedEvent{EventID: uint64(i), ConfirmedAt: "2026-01-01T00:00:00Z"})
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if err := handleMessage(body, logPath); err != nil {
			t.Fatalf("handleMessage %d: %v", i, err)
		}
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 appended lines, got %d", len(lines))
	}
}

func TestHandleMessage_RejectsInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "bookings.log")
	if err := handleMessage([]byte("not json"), logPath); err == nil {
		t.Fatal("expected an error for invalid JSON")
	}
}
