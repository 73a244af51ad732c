package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/travel-booking-backend/internal/database"
	"github.com/smarttransit/travel-booking-backend/internal/events"
	"github.com/smarttransit/travel-booking-backend/internal/models"
	"github.com/smarttransit/travel-booking-backend/internal/utils"
)

// maxReferenceAttempts bounds retries after a booking reference collision
const maxReferenceAttempts = 3

// BookingService handles booking creation, cancellation and lookup
type BookingService struct {
	bookings  BookingStore
	options   TravelOptionStore
	publisher events.Publisher
	logger    *logrus.Logger

	now          func() time.Time
	newReference func() string
}

// NewBookingService creates a new booking service
func NewBookingService(
	bookings BookingStore,
	options TravelOptionStore,
	publisher events.Publisher,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		bookings:     bookings,
		options:      options,
		publisher:    publisher,
		logger:       logger,
		now:          time.Now,
		newReference: utils.GenerateBookingReference,
	}
}

// CreateBooking reserves seats on a travel option for userID.
//
// The total price is computed from the stored unit price. When req carries an idempotency
// key that the user already used, the earlier booking is returned and replayed is true.
func (s *BookingService) CreateBooking(ctx context.Context, userID uuid.UUID, req *models.CreateBookingRequest) (booking *models.BookingWithTravelOption, replayed bool, err error) {
	if err := req.Validate(); err != nil {
		return nil, false, err
	}

	if req.IdempotencyKey != "" {
		existing, err := s.bookings.GetByIdempotencyKey(ctx, userID, req.IdempotencyKey)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			return existing, true, nil
		}
	}

	option, err := s.options.GetByID(ctx, req.TravelOptionID)
	if err != nil {
		return nil, false, err
	}
	if !option.HasSeats(req.NumberOfSeats) {
		return s.replayAfterCapacity(ctx, userID, req.IdempotencyKey,
			&models.CapacityError{Requested: req.NumberOfSeats, Available: option.AvailableSeats})
	}

	record := &models.Booking{
		UserID:           userID,
		TravelOptionID:   option.ID,
		NumberOfSeats:    req.NumberOfSeats,
		TotalPrice:       option.Price.Mul(req.NumberOfSeats),
		Status:           models.BookingStatusConfirmed,
		SeatNumbers:      req.SeatNumbers,
		PassengerDetails: req.PassengerDetails,
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		record.IdempotencyKey = &key
	}

	for attempt := 1; ; attempt++ {
		record.BookingReference = s.newReference()
		err = s.bookings.CreateWithSeatReservation(ctx, record)
		if !errors.Is(err, database.ErrDuplicateReference) || attempt == maxReferenceAttempts {
			break
		}
		s.logger.WithField("reference", record.BookingReference).Warn("Booking reference collision, retrying")
	}

	if errors.Is(err, database.ErrDuplicateIdempotencyKey) {
		// A concurrent request with the same key committed first.
		existing, lookupErr := s.bookings.GetByIdempotencyKey(ctx, userID, req.IdempotencyKey)
		if lookupErr != nil {
			return nil, false, lookupErr
		}
		if existing == nil {
			return nil, false, fmt.Errorf("booking for idempotency key vanished: %w", err)
		}
		return existing, true, nil
	}
	if models.IsCapacity(err) {
		return s.replayAfterCapacity(ctx, userID, req.IdempotencyKey, err)
	}
	if err != nil {
		return nil, false, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":       record.ID,
		"reference":        record.BookingReference,
		"user_id":          userID,
		"travel_option_id": option.ID,
		"seats":            record.NumberOfSeats,
		"total_price":      record.TotalPrice.String(),
	}).Info("Booking confirmed")

	if err := s.publisher.PublishBookingConfirmed(ctx, record); err != nil {
		s.logger.WithError(err).WithField("booking_id", record.ID).Warn("Failed to publish booking confirmed event")
	}

	option.AvailableSeats -= record.NumberOfSeats
	return &models.BookingWithTravelOption{Booking: *record, TravelOption: *option}, false, nil
}

// replayAfterCapacity returns the booking already stored under key when a
// same-key request committed between the first lookup and the seat check.
// Its insert and seat decrement share one transaction, so the booking is
// visible once its seats are gone. Without a match capErr is returned.
func (s *BookingService) replayAfterCapacity(ctx context.Context, userID uuid.UUID, key string, capErr error) (*models.BookingWithTravelOption, bool, error) {
	if key == "" {
		return nil, false, capErr
	}
	existing, err := s.bookings.GetByIdempotencyKey(ctx, userID, key)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, capErr
	}
	return existing, true, nil
}

// CancelBooking cancels a confirmed booking owned by userID and returns its seats to the
// travel option. Cancelling twice, or on or after the departure date, is an
// InvalidStateError.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, userID uuid.UUID) (*models.Booking, error) {
	existing, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !existing.IsOwnedBy(userID) {
		return nil, &models.AuthorizationError{Resource: "booking", ID: bookingID.String()}
	}
	if !existing.CanBeCancelled() {
		return nil, alreadyCancelled()
	}
	if existing.HasDeparted(models.NewDate(s.now())) {
		return nil, &models.InvalidStateError{
			Resource: "booking",
			State:    "departed",
			Message:  "Booking cannot be cancelled on or after the departure date",
		}
	}

	cancelled, err := s.bookings.Cancel(ctx, bookingID, userID)
	if errors.Is(err, database.ErrBookingNotCancellable) {
		return nil, alreadyCancelled()
	}
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":       cancelled.ID,
		"user_id":          userID,
		"travel_option_id": cancelled.TravelOptionID,
		"seats_released":   cancelled.NumberOfSeats,
	}).Info("Booking cancelled")

	if err := s.publisher.PublishBookingCancelled(ctx, cancelled); err != nil {
		s.logger.WithError(err).WithField("booking_id", cancelled.ID).Warn("Failed to publish booking cancelled event")
	}

	return cancelled, nil
}

func alreadyCancelled() error {
	return &models.InvalidStateError{
		Resource: "booking",
		State:    string(models.BookingStatusCancelled),
		Message:  "Booking is already cancelled",
	}
}

// GetUserBookings lists the user's bookings, newest first
func (s *BookingService) GetUserBookings(ctx context.Context, userID uuid.UUID, scope models.BookingScope) ([]models.BookingWithTravelOption, error) {
	return s.bookings.GetByUserID(ctx, userID, scope, models.NewDate(s.now()))
}

// GetBooking returns a booking with its travel option
func (s *BookingService) GetBooking(ctx context.Context, bookingID uuid.UUID) (*models.BookingWithTravelOption, error) {
	return s.bookings.GetByID(ctx, bookingID)
}

// GetBookingForUser returns a booking only if userID owns it
func (s *BookingService) GetBookingForUser(ctx context.Context, bookingID, userID uuid.UUID) (*models.BookingWithTravelOption, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.IsOwnedBy(userID) {
		return nil, &models.AuthorizationError{Resource: "booking", ID: bookingID.String()}
	}
	return booking, nil
}
