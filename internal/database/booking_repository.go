package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/smarttransit/travel-booking-backend/internal/models"
)

const (
	idempotencyIndex    = "idx_bookings_user_idempotency"
	referenceConstraint = "bookings_booking_reference_key"
)

var (
	// ErrDuplicateIdempotencyKey is returned when the user already has a booking for the key
	ErrDuplicateIdempotencyKey = errors.New("booking with this idempotency key already exists")

	// ErrDuplicateReference is returned when a generated booking reference collides
	ErrDuplicateReference = errors.New("booking reference already exists")

	// ErrBookingNotCancellable is returned when no confirmed booking matched the cancel
	ErrBookingNotCancellable = errors.New("booking is not in a cancellable state")
)

const bookingColumns = `id, booking_reference, user_id, travel_option_id,
	number_of_seats, total_price, status, seat_numbers, passenger_details,
	idempotency_key, booking_date, created_at, cancelled_at`

// bookingWithOptionSelect joins a booking with its travel option. The option's columns
// are aliased with the "travel_option." prefix so sqlx fills the nested struct.
const bookingWithOptionSelect = `
	SELECT
		b.id, b.booking_reference, b.user_id, b.travel_option_id,
		b.number_of_seats, b.total_price, b.status, b.seat_numbers,
		b.passenger_details, b.idempotency_key, b.booking_date,
		b.created_at, b.cancelled_at,
		t.id AS "travel_option.id",
		t.type AS "travel_option.type",
		t.source AS "travel_option.source",
		t.destination AS "travel_option.destination",
		t.departure_date AS "travel_option.departure_date",
		t.departure_time AS "travel_option.departure_time",
		t.arrival_time AS "travel_option.arrival_time",
		t.duration AS "travel_option.duration",
		t.price AS "travel_option.price",
		t.available_seats AS "travel_option.available_seats",
		t.total_seats AS "travel_option.total_seats",
		t.airline AS "travel_option.airline",
		t.train_operator AS "travel_option.train_operator",
		t.bus_operator AS "travel_option.bus_operator",
		t.vehicle_number AS "travel_option.vehicle_number",
		t.created_at AS "travel_option.created_at"
	FROM bookings b
	JOIN travel_options t ON t.id = b.travel_option_id
`

// BookingRepository handles database operations for the bookings table
type BookingRepository struct {
	db        DB
	inventory *TravelOptionRepository
}

// NewBookingRepository creates a new BookingRepository. Seat adjustments go through
// inventory inside the booking transactions.
func NewBookingRepository(db DB, inventory *TravelOptionRepository) *BookingRepository {
	return &BookingRepository{db: db, inventory: inventory}
}

// CreateWithSeatReservation reserves the booking's seats and inserts the booking in one
// transaction. Either both happen or neither does.
func (r *BookingRepository) CreateWithSeatReservation(ctx context.Context, booking *models.Booking) error {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	if booking.Status == "" {
		booking.Status = models.BookingStatusConfirmed
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.inventory.ReserveSeats(ctx, tx, booking.TravelOptionID, booking.NumberOfSeats); err != nil {
		return err
	}

	query := `
		INSERT INTO bookings (
			id, booking_reference, user_id, travel_option_id,
			number_of_seats, total_price, status, seat_numbers,
			passenger_details, idempotency_key
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
		RETURNING booking_date, created_at
	`

	err = tx.QueryRowxContext(ctx, query,
		booking.ID, booking.BookingReference, booking.UserID, booking.TravelOptionID,
		booking.NumberOfSeats, booking.TotalPrice, booking.Status, booking.SeatNumbers,
		booking.PassengerDetails, booking.IdempotencyKey,
	).Scan(&booking.BookingDate, &booking.CreatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err, idempotencyIndex):
			return ErrDuplicateIdempotencyKey
		case isUniqueViolation(err, referenceConstraint):
			return ErrDuplicateReference
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}
	return nil
}

// Cancel flips a confirmed booking owned by userID to cancelled and returns its seats
// to the travel option, in one transaction. ErrBookingNotCancellable means no confirmed
// booking matched, e.g. a concurrent cancel got there first.
func (r *BookingRepository) Cancel(ctx context.Context, bookingID, userID uuid.UUID) (*models.Booking, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE bookings
		SET status = 'cancelled', cancelled_at = NOW()
		WHERE id = $1 AND user_id = $2 AND status = 'confirmed'
		RETURNING ` + bookingColumns

	var booking models.Booking
	err = tx.QueryRowxContext(ctx, query, bookingID, userID).StructScan(&booking)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotCancellable
	}
	if err != nil {
		return nil, fmt.Errorf("failed to cancel booking: %w", err)
	}

	if err := r.inventory.ReleaseSeats(ctx, tx, booking.TravelOptionID, booking.NumberOfSeats); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit cancellation: %w", err)
	}
	return &booking, nil
}

// GetByID retrieves a booking with its travel option
func (r *BookingRepository) GetByID(ctx context.Context, bookingID uuid.UUID) (*models.BookingWithTravelOption, error) {
	var booking models.BookingWithTravelOption
	err := r.db.GetContext(ctx, &booking, bookingWithOptionSelect+` WHERE b.id = $1`, bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{Resource: "booking", ID: bookingID.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

// GetByUserID retrieves a user's bookings, newest first. Upcoming and past are split on
// the travel option's departure date relative to today; upcoming only lists confirmed bookings.
func (r *BookingRepository) GetByUserID(ctx context.Context, userID uuid.UUID, scope models.BookingScope, today models.Date) ([]models.BookingWithTravelOption, error) {
	query := bookingWithOptionSelect + ` WHERE b.user_id = $1`
	args := []interface{}{userID}

	switch scope {
	case models.BookingScopeUpcoming:
		query += ` AND t.departure_date >= $2 AND b.status = 'confirmed'`
		args = append(args, today)
	case models.BookingScopePast:
		query += ` AND t.departure_date < $2`
		args = append(args, today)
	}
	query += ` ORDER BY b.created_at DESC`

	bookings := []models.BookingWithTravelOption{}
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get user bookings: %w", err)
	}
	return bookings, nil
}

// GetByIdempotencyKey returns the user's booking created with key, or nil if there is none
func (r *BookingRepository) GetByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*models.BookingWithTravelOption, error) {
	var booking models.BookingWithTravelOption
	err := r.db.GetContext(ctx, &booking,
		bookingWithOptionSelect+` WHERE b.user_id = $1 AND b.idempotency_key = $2`, userID, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking by idempotency key: %w", err)
	}
	return &booking, nil
}
