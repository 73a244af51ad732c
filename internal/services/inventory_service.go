package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/travel-booking-backend/internal/models"
)

// InventoryService manages travel option inventory: admin creation, seeding and the
// seat conservation audit.
type InventoryService struct {
	store  TravelOptionStore
	logger *logrus.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(store TravelOptionStore, logger *logrus.Logger) *InventoryService {
	return &InventoryService{store: store, logger: logger}
}

// CreateTravelOption validates and stores a new travel option
func (s *InventoryService) CreateTravelOption(ctx context.Context, req *models.CreateTravelOptionRequest) (*models.TravelOption, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	opt := req.ToTravelOption()
	if err := s.store.Create(ctx, opt); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"travel_option_id": opt.ID,
		"type":             opt.Type,
		"source":           opt.Source,
		"destination":      opt.Destination,
		"departure_date":   opt.DepartureDate.String(),
		"seats":            opt.TotalSeats,
	}).Info("Travel option created")

	return opt, nil
}

// SeedSampleData inserts the sample New York to Los Angeles options and returns how many
// were created
func (s *InventoryService) SeedSampleData(ctx context.Context) (int, error) {
	return s.Seed(ctx, SampleTravelOptions())
}

// Seed inserts opts in one batch
func (s *InventoryService) Seed(ctx context.Context, opts []*models.TravelOption) (int, error) {
	if err := s.store.CreateBatch(ctx, opts); err != nil {
		return 0, err
	}
	s.logger.WithField("count", len(opts)).Info("Seeded travel options")
	return len(opts), nil
}

// AuditInventory finds travel options whose seat counts no longer add up and logs each one
func (s *InventoryService) AuditInventory(ctx context.Context) ([]models.InventoryDiscrepancy, error) {
	start := time.Now()

	discrepancies, err := s.store.FindDiscrepancies(ctx)
	if err != nil {
		return nil, err
	}

	for _, d := range discrepancies {
		s.logger.WithFields(logrus.Fields{
			"travel_option_id": d.TravelOptionID,
			"source":           d.Source,
			"destination":      d.Destination,
			"total_seats":      d.TotalSeats,
			"available_seats":  d.AvailableSeats,
			"confirmed_seats":  d.ConfirmedSeats,
			"drift":            d.Drift(),
		}).Error("Inventory discrepancy detected")
	}

	s.logger.WithFields(logrus.Fields{
		"discrepancies": len(discrepancies),
		"duration_ms":   time.Since(start).Milliseconds(),
	}).Info("Inventory audit completed")

	return discrepancies, nil
}
