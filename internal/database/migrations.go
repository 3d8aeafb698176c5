package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createCheckinsTable,
		createCheckinEventsTable,
		createCheckinEventsSessionIndex,
		createCheckinsBookingIndex,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createCheckinsTable = `
CREATE TABLE IF NOT EXISTS checkins (
    session_id VARCHAR(64) PRIMARY KEY,
    booking_id BIGINT NOT NULL,
    trip_type VARCHAR(20) NOT NULL,
    state VARCHAR(30) NOT NULL,
    total_amount BIGINT NOT NULL DEFAULT 0,
    currency VARCHAR(10) NOT NULL DEFAULT 'VND',
    completed_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (trip_type IN ('oneWay', 'roundTrip'))
);`

const createCheckinEventsTable = `
CREATE TABLE IF NOT EXISTS checkin_events (
    id SERIAL PRIMARY KEY,
    session_id VARCHAR(64) NOT NULL,
    booking_id BIGINT,
    subject VARCHAR(50) NOT NULL,
    payload JSONB NOT NULL,
    occurred_at TIMESTAMP NOT NULL,
    recorded_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createCheckinEventsSessionIndex = `
CREATE INDEX IF NOT EXISTS idx_checkin_events_session
    ON checkin_events(session_id, occurred_at);`

const createCheckinsBookingIndex = `
CREATE INDEX IF NOT EXISTS idx_checkins_booking
    ON checkins(booking_id);`
