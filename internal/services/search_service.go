package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/travel-booking-backend/internal/cache"
	"github.com/smarttransit/travel-booking-backend/internal/models"
)

const (
	DefaultPopularRoutesLimit = 10
	MaxPopularRoutesLimit     = 50
)

// SearchService handles business logic for travel option search
type SearchService struct {
	store   TravelOptionStore
	ranking cache.RouteRanking
	logger  *logrus.Logger
}

// NewSearchService creates a new search service
func NewSearchService(store TravelOptionStore, ranking cache.RouteRanking, logger *logrus.Logger) *SearchService {
	return &SearchService{
		store:   store,
		ranking: ranking,
		logger:  logger,
	}
}

// Search returns the options on the requested route and date with enough free seats,
// cheapest first. Invalid criteria fail before the store is queried.
func (s *SearchService) Search(ctx context.Context, req *models.SearchRequest) ([]models.TravelOption, error) {
	criteria, err := req.Validate()
	if err != nil {
		return nil, err
	}

	options, err := s.store.Search(ctx, criteria)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"source":         criteria.Source,
		"destination":    criteria.Destination,
		"departure_date": criteria.DepartureDate.String(),
		"passengers":     criteria.Passengers,
		"results":        len(options),
	}).Debug("Travel option search completed")

	if len(options) > 0 {
		if err := s.ranking.Increment(ctx, criteria.Source, criteria.Destination); err != nil {
			s.logger.WithError(err).Warn("Failed to record route popularity")
		}
	}

	return options, nil
}

// GetTravelOption returns one option by id
func (s *SearchService) GetTravelOption(ctx context.Context, id uuid.UUID) (*models.TravelOption, error) {
	return s.store.GetByID(ctx, id)
}

// PopularRoutes returns the most searched routes. limit is clamped to
// [1, MaxPopularRoutesLimit]; zero or less means DefaultPopularRoutesLimit.
func (s *SearchService) PopularRoutes(ctx context.Context, limit int) ([]models.PopularRoute, error) {
	if limit <= 0 {
		limit = DefaultPopularRoutesLimit
	}
	if limit > MaxPopularRoutesLimit {
		limit = MaxPopularRoutesLimit
	}
	return s.ranking.Top(ctx, limit)
}
