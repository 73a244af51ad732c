package database

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS travel_options (
		id              UUID PRIMARY KEY,
		type            TEXT NOT NULL CHECK (type IN ('flight', 'train', 'bus')),
		source          TEXT NOT NULL,
		destination     TEXT NOT NULL,
		departure_date  DATE NOT NULL,
		departure_time  TEXT NOT NULL DEFAULT '',
		arrival_time    TEXT NOT NULL DEFAULT '',
		duration        TEXT NOT NULL DEFAULT '',
		price           NUMERIC(10, 2) NOT NULL CHECK (price > 0),
		available_seats INTEGER NOT NULL CHECK (available_seats >= 0),
		total_seats     INTEGER NOT NULL,
		airline         TEXT,
		train_operator  TEXT,
		bus_operator    TEXT,
		vehicle_number  TEXT,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT travel_options_seats_within_capacity CHECK (available_seats <= total_seats)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_travel_options_route
		ON travel_options (source, destination, departure_date)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id                UUID PRIMARY KEY,
		booking_reference VARCHAR(20) NOT NULL,
		user_id           UUID NOT NULL,
		travel_option_id  UUID NOT NULL REFERENCES travel_options (id),
		number_of_seats   INTEGER NOT NULL CHECK (number_of_seats BETWEEN 1 AND 10),
		total_price       NUMERIC(10, 2) NOT NULL,
		status            TEXT NOT NULL DEFAULT 'confirmed' CHECK (status IN ('confirmed', 'cancelled')),
		seat_numbers      TEXT,
		passenger_details JSONB NOT NULL,
		idempotency_key   VARCHAR(64),
		booking_date      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		cancelled_at      TIMESTAMPTZ,
		CONSTRAINT bookings_booking_reference_key UNIQUE (booking_reference)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_user_created
		ON bookings (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_travel_option
		ON bookings (travel_option_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ` + idempotencyIndex + `
		ON bookings (user_id, idempotency_key) WHERE idempotency_key IS NOT NULL`,
}

// InitializeSchema creates the tables and indexes if they do not exist
func InitializeSchema(ctx context.Context, db DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}
