package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/smarttransit/travel-booking-backend/internal/models"
)

// TravelOptionStore is the inventory record store. *database.TravelOptionRepository
// implements it.
type TravelOptionStore interface {
	Create(ctx context.Context, opt *models.TravelOption) error
	CreateBatch(ctx context.Context, opts []*models.TravelOption) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.TravelOption, error)
	Search(ctx context.Context, criteria *models.SearchCriteria) ([]models.TravelOption, error)
	FindDiscrepancies(ctx context.Context) ([]models.InventoryDiscrepancy, error)
}

// BookingStore is the booking record store. *database.BookingRepository implements it.
//
// CreateWithSeatReservation and Cancel adjust the travel option's available seats in the
// same transaction as the booking write.
type BookingStore interface {
	CreateWithSeatReservation(ctx context.Context, booking *models.Booking) error
	Cancel(ctx context.Context, bookingID, userID uuid.UUID) (*models.Booking, error)
	GetByID(ctx context.Context, bookingID uuid.UUID) (*models.BookingWithTravelOption, error)
	GetByUserID(ctx context.Context, userID uuid.UUID, scope models.BookingScope, today models.Date) ([]models.BookingWithTravelOption, error)
	GetByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*models.BookingWithTravelOption, error)
}
