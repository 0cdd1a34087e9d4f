package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/seatgrid/seatgrid/internal/seatstore"
)

const bookingsQueueName = "seatgrid.bookings"

// Publisher publishes BookingConfirmedEvent messages to RabbitMQ. It
// dials a fresh connection per call rather than holding a pooled
// channel open: booking confirmations are not hot enough within a
// single process to warrant connection pooling, matching the
// short-lived-connection style of the cinema reservation template this
// is adapted from.
type Publisher struct {
	URL     string
	Enabled bool
}

// NewPublisher returns a Publisher. When enabled is false,
// PublishBookingConfirmed is a silent no-op so the audit sink can be
// disabled entirely without touching call sites.
func NewPublisher(url string, enabled bool) *Publisher {
	return &Publisher{URL: url, Enabled: enabled}
}

// PublishBookingConfirmed publishes a BookingConfirmedEvent to the
// seatgrid.bookings queue. Errors are logged by the caller (the
// Booking Coordinator runs this in its own goroutine); this function
// still returns the error so tests can assert on it directly.
func (p *Publisher) PublishBookingConfirmed(ctx context.Context, eventID uint64, userID string, seats []seatstore.SeatKey) error {
	if !p.Enabled {
		return nil
	}

	labels := make([]string, len(seats))
	for i, s := range seats {
		labels[i] = fmt.Sprintf("%s%s", s.Row, s.Col)
	}
	ev := BookingConfirmedEvent{
		EventID:     eventID,
		UserID:      userID,
		Seats:       labels,
		SeatCount:   len(labels),
		ConfirmedAt: time.Now().UTC().Format(time.RFC3339),
	}

	conn, err := amqp.DialConfig(p.URL, amqp.Config{Dial: amqp.DefaultDial(5 * time.Second)})
	if err != nil {
		log.Printf("audit: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("audit: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(bookingsQueueName, true, false, false, false, nil); err != nil {
		log.Printf("audit: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("audit: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx, "", bookingsQueueName, false, false, pub); err != nil {
		log.Printf("audit: publish failed: %v", err)
		return err
	}
	return nil
}
