package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/smarttransit/travel-booking-backend/internal/models"
)

// Topics of the booking lifecycle stream
const (
	TopicBookingConfirmed = "booking.confirmed"
	TopicBookingCancelled = "booking.cancelled"
)

// BookingEvent is the payload published for every booking state change
type BookingEvent struct {
	EventID          uuid.UUID            `json:"eventId"`
	OccurredAt       time.Time            `json:"occurredAt"`
	BookingID        uuid.UUID            `json:"bookingId"`
	BookingReference string               `json:"bookingReference"`
	UserID           uuid.UUID            `json:"userId"`
	TravelOptionID   uuid.UUID            `json:"travelOptionId"`
	NumberOfSeats    int                  `json:"numberOfSeats"`
	TotalPrice       models.Money         `json:"totalPrice"`
	Status           models.BookingStatus `json:"status"`
}

// NewBookingEvent snapshots booking into an event
func NewBookingEvent(booking *models.Booking) BookingEvent {
	return BookingEvent{
		EventID:          uuid.New(),
		OccurredAt:       time.Now().UTC(),
		BookingID:        booking.ID,
		BookingReference: booking.BookingReference,
		UserID:           booking.UserID,
		TravelOptionID:   booking.TravelOptionID,
		NumberOfSeats:    booking.NumberOfSeats,
		TotalPrice:       booking.TotalPrice,
		Status:           booking.Status,
	}
}

// Publisher publishes booking events
type Publisher interface {
	PublishBookingConfirmed(ctx context.Context, booking *models.Booking) error
	PublishBookingCancelled(ctx context.Context, booking *models.Booking) error
}

// WatermillPublisher publishes JSON booking events through a watermill publisher
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher wraps publisher
func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{publisher: publisher}
}

func (p *WatermillPublisher) PublishBookingConfirmed(ctx context.Context, booking *models.Booking) error {
	return p.publish(ctx, TopicBookingConfirmed, booking)
}

func (p *WatermillPublisher) PublishBookingCancelled(ctx context.Context, booking *models.Booking) error {
	return p.publish(ctx, TopicBookingCancelled, booking)
}

func (p *WatermillPublisher) publish(ctx context.Context, topic string, booking *models.Booking) error {
	event := NewBookingEvent(booking)
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", topic, err)
	}

	msg := message.NewMessage(event.EventID.String(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("booking_id", booking.ID.String())

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", topic, err)
	}
	return nil
}

// Close closes the underlying publisher
func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}

// NoopPublisher drops every event. Used when Redis is not configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishBookingConfirmed(context.Context, *models.Booking) error { return nil }

func (NoopPublisher) PublishBookingCancelled(context.Context, *models.Booking) error { return nil }
