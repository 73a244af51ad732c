package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/smarttransit/travel-booking-backend/pkg/validator"
)

// BookingStatus represents the status of a booking. confirmed -> cancelled is the only
// transition and cancelled is terminal.
type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

const (
	MinSeatsPerBooking = 1
	MaxSeatsPerBooking = 10

	MaxIdempotencyKeyLength = 64
)

// PassengerDetails is the contact blob stored as JSONB on the booking
type PassengerDetails struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required"`
	Phone string `json:"phone" binding:"required"`
}

// Validate checks the contact fields
func (p PassengerDetails) Validate() error {
	contact := validator.NewContactValidator()
	if strings.TrimSpace(p.Name) == "" {
		return ErrInvalidField("passengerDetails.name", "is required")
	}
	if err := contact.ValidateEmail(p.Email); err != nil {
		return ErrInvalidField("passengerDetails.email", err.Error())
	}
	if _, err := contact.ValidatePhone(p.Phone); err != nil {
		return ErrInvalidField("passengerDetails.phone", err.Error())
	}
	return nil
}

// Value implements driver.Valuer
func (p PassengerDetails) Value() (driver.Value, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (p *PassengerDetails) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*p = PassengerDetails{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into PassengerDetails", src)
	}
	return json.Unmarshal(data, p)
}

// Booking is one user's reservation of seats on a travel option
type Booking struct {
	ID               uuid.UUID        `json:"id" db:"id"`
	BookingReference string           `json:"bookingReference" db:"booking_reference"`
	UserID           uuid.UUID        `json:"userId" db:"user_id"`
	TravelOptionID   uuid.UUID        `json:"travelOptionId" db:"travel_option_id"`
	NumberOfSeats    int              `json:"numberOfSeats" db:"number_of_seats"`
	TotalPrice       Money            `json:"totalPrice" db:"total_price"`
	Status           BookingStatus    `json:"status" db:"status"`
	SeatNumbers      *string          `json:"seatNumbers,omitempty" db:"seat_numbers"`
	PassengerDetails PassengerDetails `json:"passengerDetails" db:"passenger_details"`
	IdempotencyKey   *string          `json:"-" db:"idempotency_key"`
	BookingDate      time.Time        `json:"bookingDate" db:"booking_date"`
	CreatedAt        time.Time        `json:"createdAt" db:"created_at"`
	CancelledAt      *time.Time       `json:"cancelledAt,omitempty" db:"cancelled_at"`
}

// CanBeCancelled checks if the booking can still be cancelled
func (b *Booking) CanBeCancelled() bool {
	return b.Status == BookingStatusConfirmed
}

// IsOwnedBy reports whether userID created the booking
func (b *Booking) IsOwnedBy(userID uuid.UUID) bool {
	return b.UserID == userID
}

// BookingWithTravelOption is a booking with its travel option embedded, as returned to users.
// Joined queries alias the option's columns as "travel_option.<column>".
type BookingWithTravelOption struct {
	Booking
	TravelOption TravelOption `json:"travelOption" db:"travel_option"`
}

// HasDeparted reports whether the travel option leaves on or before today.
// Departed bookings can no longer be cancelled.
func (b *BookingWithTravelOption) HasDeparted(today Date) bool {
	return !today.Before(b.TravelOption.DepartureDate)
}

// CreateBookingRequest is the payload of POST /bookings
type CreateBookingRequest struct {
	TravelOptionID   uuid.UUID        `json:"travelOptionId"`
	NumberOfSeats    int              `json:"numberOfSeats"`
	PassengerDetails PassengerDetails `json:"passengerDetails"`
	SeatNumbers      *string          `json:"seatNumbers,omitempty"`
	// TotalPrice is accepted for compatibility and ignored; the total is computed from the
	// stored unit price.
	TotalPrice *Money `json:"totalPrice,omitempty"`

	IdempotencyKey string `json:"-"`
}

// Validate validates the create booking request
func (r *CreateBookingRequest) Validate() error {
	if r.TravelOptionID == uuid.Nil {
		return ErrInvalidField("travelOptionId", "is required")
	}
	if r.NumberOfSeats < MinSeatsPerBooking || r.NumberOfSeats > MaxSeatsPerBooking {
		return ErrInvalidField("numberOfSeats", fmt.Sprintf("must be between %d and %d", MinSeatsPerBooking, MaxSeatsPerBooking))
	}
	if len(r.IdempotencyKey) > MaxIdempotencyKeyLength {
		return ErrInvalidField("Idempotency-Key", fmt.Sprintf("must be at most %d characters", MaxIdempotencyKeyLength))
	}
	return r.PassengerDetails.Validate()
}

// BookingScope selects which of a user's bookings are listed
type BookingScope string

const (
	BookingScopeAll      BookingScope = "all"
	BookingScopeUpcoming BookingScope = "upcoming"
	BookingScopePast     BookingScope = "past"
)

// ParseBookingScope parses the scope query parameter, defaulting to all
func ParseBookingScope(s string) (BookingScope, error) {
	switch BookingScope(s) {
	case "", BookingScopeAll:
		return BookingScopeAll, nil
	case BookingScopeUpcoming, BookingScopePast:
		return BookingScope(s), nil
	}
	return "", ErrInvalidField("scope", "must be one of all, upcoming, past")
}
