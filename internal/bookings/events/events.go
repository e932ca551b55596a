package events

import (
	"context"
	"strconv"

	"motobooking/pkg/kafka"
	"motobooking/pkg/logger"
	"motobooking/pkg/middleware"
	"motobooking/pkg/model"
)

type Type string

const (
	BookingCreated  Type = "booking.created"
	BookingReplaced Type = "booking.replaced"
	BookingPatched  Type = "booking.patched"
	BookingDeleted  Type = "booking.deleted"
)

const (
	Source        = "bookings"
	SchemaVersion = "1"
)

// Event describes a committed change to the booking collection. Booking is
// the stored record after the change, or the removed record for deletes.
type Event struct {
	Type      Type           `json:"type"`
	BookingID int            `json:"booking_id"`
	Booking   *model.Booking `json:"booking,omitempty"`
}

// Publisher announces committed booking changes. Publishing is best effort:
// implementations log failures and never fail the caller.
type Publisher interface {
	Publish(ctx context.Context, event Event)
	Close() error
}

type noopPublisher struct{}

// NewNoopPublisher returns a Publisher that drops every event.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, Event) {}

func (noopPublisher) Close() error { return nil }

type messageProducer interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	producer messageProducer
	log      *logger.Logger
}

// NewKafkaPublisher publishes events keyed by booking id through producer.
func NewKafkaPublisher(producer messageProducer, log *logger.Logger) Publisher {
	return &kafkaPublisher{producer: producer, log: log}
}

func (p *kafkaPublisher) Publish(ctx context.Context, event Event) {
	msg, err := kafka.NewMessage().
		WithKey(strconv.Itoa(event.BookingID)).
		WithValue(event).
		WithEventType(string(event.Type)).
		WithSource(Source).
		WithSchemaVersion(SchemaVersion).
		WithCorrelationID(middleware.RequestIDFromContext(ctx)).
		Build()
	if err != nil {
		p.log.Error("Failed to build booking event", "type", event.Type, "id", event.BookingID, "error", err)
		return
	}

	if err := p.producer.Publish(context.WithoutCancel(ctx), msg); err != nil {
		p.log.Error("Failed to publish booking event",
			"type", event.Type,
			"id", event.BookingID,
			"event_id", msg.GetEventID(),
			"error", err,
		)
	}
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}
