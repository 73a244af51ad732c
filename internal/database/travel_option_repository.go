package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/smarttransit/travel-booking-backend/internal/models"
)

const travelOptionColumns = `id, type, source, destination, departure_date,
	departure_time, arrival_time, duration, price, available_seats, total_seats,
	airline, train_operator, bus_operator, vehicle_number, created_at`

// TravelOptionRepository handles database operations for the travel_options table
type TravelOptionRepository struct {
	db DB
}

// NewTravelOptionRepository creates a new TravelOptionRepository
func NewTravelOptionRepository(db DB) *TravelOptionRepository {
	return &TravelOptionRepository{db: db}
}

const insertTravelOptionQuery = `
	INSERT INTO travel_options (
		id, type, source, destination, departure_date,
		departure_time, arrival_time, duration, price,
		available_seats, total_seats,
		airline, train_operator, bus_operator, vehicle_number
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
	)
	RETURNING created_at
`

func travelOptionArgs(opt *models.TravelOption) []interface{} {
	return []interface{}{
		opt.ID, opt.Type, opt.Source, opt.Destination, opt.DepartureDate,
		opt.DepartureTime, opt.ArrivalTime, opt.Duration, opt.Price,
		opt.AvailableSeats, opt.TotalSeats,
		opt.Airline, opt.TrainOperator, opt.BusOperator, opt.VehicleNumber,
	}
}

func prepareTravelOption(opt *models.TravelOption) {
	if opt.ID == uuid.Nil {
		opt.ID = uuid.New()
	}
	if opt.TotalSeats == 0 {
		opt.TotalSeats = opt.AvailableSeats
	}
}

// Create inserts a travel option
func (r *TravelOptionRepository) Create(ctx context.Context, opt *models.TravelOption) error {
	prepareTravelOption(opt)

	err := r.db.QueryRowxContext(ctx, insertTravelOptionQuery, travelOptionArgs(opt)...).Scan(&opt.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create travel option: %w", err)
	}
	return nil
}

// CreateBatch inserts several travel options in one transaction
func (r *TravelOptionRepository) CreateBatch(ctx context.Context, opts []*models.TravelOption) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, opt := range opts {
		prepareTravelOption(opt)
		if err := tx.QueryRowxContext(ctx, insertTravelOptionQuery, travelOptionArgs(opt)...).Scan(&opt.CreatedAt); err != nil {
			return fmt.Errorf("failed to create travel option %s -> %s: %w", opt.Source, opt.Destination, err)
		}
	}

	return tx.Commit()
}

// GetByID retrieves a travel option by ID
func (r *TravelOptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.TravelOption, error) {
	query := `SELECT ` + travelOptionColumns + ` FROM travel_options WHERE id = $1`

	var opt models.TravelOption
	err := r.db.GetContext(ctx, &opt, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{Resource: "travel option", ID: id.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get travel option: %w", err)
	}
	return &opt, nil
}

// Search returns the options on an exact route and date with enough free seats,
// cheapest first
func (r *TravelOptionRepository) Search(ctx context.Context, criteria *models.SearchCriteria) ([]models.TravelOption, error) {
	conditions := []string{
		"source = $1",
		"destination = $2",
		"departure_date = $3",
		"available_seats >= $4",
	}
	args := []interface{}{criteria.Source, criteria.Destination, criteria.DepartureDate, criteria.Passengers}

	if criteria.Type != nil {
		args = append(args, *criteria.Type)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if criteria.MaxPrice != nil {
		args = append(args, *criteria.MaxPrice)
		conditions = append(conditions, fmt.Sprintf("price <= $%d", len(args)))
	}

	query := `SELECT ` + travelOptionColumns + `
		FROM travel_options
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY price ASC, created_at ASC, id ASC`

	options := []models.TravelOption{}
	if err := r.db.SelectContext(ctx, &options, query, args...); err != nil {
		return nil, fmt.Errorf("failed to search travel options: %w", err)
	}
	return options, nil
}

// ReserveSeats decrements available seats inside tx. The availability check and the
// decrement are one conditional UPDATE, so concurrent reservations cannot oversell.
func (r *TravelOptionRepository) ReserveSeats(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, seats int) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE travel_options
		SET available_seats = available_seats - $2
		WHERE id = $1 AND available_seats >= $2
	`, id, seats)
	if err != nil {
		return fmt.Errorf("failed to reserve seats: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to reserve seats: %w", err)
	}
	if rowsAffected == 1 {
		return nil
	}

	// Nothing updated: either the option is gone or it is short of seats.
	var available int
	err = tx.GetContext(ctx, &available, `SELECT available_seats FROM travel_options WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.NotFoundError{Resource: "travel option", ID: id.String()}
	}
	if err != nil {
		return fmt.Errorf("failed to read available seats: %w", err)
	}
	return &models.CapacityError{Requested: seats, Available: available}
}

// ReleaseSeats returns seats to a travel option inside tx
func (r *TravelOptionRepository) ReleaseSeats(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, seats int) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE travel_options
		SET available_seats = available_seats + $2
		WHERE id = $1
	`, id, seats)
	if err != nil {
		return fmt.Errorf("failed to release seats: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to release seats: %w", err)
	}
	if rowsAffected == 0 {
		return &models.NotFoundError{Resource: "travel option", ID: id.String()}
	}
	return nil
}

// FindDiscrepancies lists travel options where
// total_seats != available_seats + seats held by confirmed bookings
func (r *TravelOptionRepository) FindDiscrepancies(ctx context.Context) ([]models.InventoryDiscrepancy, error) {
	query := `
		SELECT
			t.id AS travel_option_id,
			t.source,
			t.destination,
			t.total_seats,
			t.available_seats,
			COALESCE(SUM(b.number_of_seats), 0) AS confirmed_seats
		FROM travel_options t
		LEFT JOIN bookings b
			ON b.travel_option_id = t.id AND b.status = 'confirmed'
		GROUP BY t.id, t.source, t.destination, t.total_seats, t.available_seats
		HAVING t.total_seats <> t.available_seats + COALESCE(SUM(b.number_of_seats), 0)
		ORDER BY t.id
	`

	discrepancies := []models.InventoryDiscrepancy{}
	if err := r.db.SelectContext(ctx, &discrepancies, query); err != nil {
		return nil, fmt.Errorf("failed to audit inventory: %w", err)
	}
	return discrepancies, nil
}
