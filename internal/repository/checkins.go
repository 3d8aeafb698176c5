package repository

import (
	"context"
	"database/sql"
	"time"

	"skylane/internal/database"
	"skylane/internal/models"
)

type CheckinRepository struct {
	db *database.DB
}

func NewCheckinRepository(db *database.DB) *CheckinRepository {
	return &CheckinRepository{db: db}
}

// Upsert records the latest known state of a check-in session. Consumers call
// it once per lifecycle event, so the row converges on the terminal state.
func (r *CheckinRepository) Upsert(ctx context.Context, record *models.CheckinRecord, completedAt *time.Time) error {
	query := `
		INSERT INTO checkins (session_id, booking_id, trip_type, state, total_amount, currency, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id) DO UPDATE SET
			booking_id = EXCLUDED.booking_id,
			state = EXCLUDED.state,
			total_amount = EXCLUDED.total_amount,
			currency = EXCLUDED.currency,
			completed_at = COALESCE(EXCLUDED.completed_at, checkins.completed_at),
			updated_at = NOW()`

	_, err := r.db.ExecContext(ctx, query,
		record.SessionID,
		record.BookingID,
		record.TripType,
		record.State,
		record.TotalAmount,
		record.Currency,
		completedAt,
	)
	return err
}

// UpdateProgress advances an existing row without clobbering fields the
// triggering event does not carry. Zero bookingID and totalAmount keep the
// stored values.
func (r *CheckinRepository) UpdateProgress(ctx context.Context, sessionID string, bookingID, totalAmount int64, state string) error {
	query := `
		UPDATE checkins SET
			booking_id = CASE WHEN $2 > 0 THEN $2 ELSE booking_id END,
			total_amount = CASE WHEN $3 > 0 THEN $3 ELSE total_amount END,
			state = $4,
			updated_at = NOW()
		WHERE session_id = $1`

	_, err := r.db.ExecContext(ctx, query, sessionID, bookingID, totalAmount, state)
	return err
}

func (r *CheckinRepository) GetBySessionID(ctx context.Context, sessionID string) (*models.CheckinRecord, error) {
	record := &models.CheckinRecord{}
	var completedAt sql.NullTime

	query := `
		SELECT session_id, booking_id, trip_type, state, total_amount, currency, completed_at
		FROM checkins
		WHERE session_id = $1`

	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(
		&record.SessionID,
		&record.BookingID,
		&record.TripType,
		&record.State,
		&record.TotalAmount,
		&record.Currency,
		&completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		record.CompletedAt = completedAt.Time.Format(time.RFC3339)
	}
	return record, nil
}

func (r *CheckinRepository) ListByBookingID(ctx context.Context, bookingID int64) ([]models.CheckinRecord, error) {
	var records []models.CheckinRecord

	query := `
		SELECT session_id, booking_id, trip_type, state, total_amount, currency, completed_at
		FROM checkins
		WHERE booking_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var record models.CheckinRecord
		var completedAt sql.NullTime
		if err := rows.Scan(
			&record.SessionID,
			&record.BookingID,
			&record.TripType,
			&record.State,
			&record.TotalAmount,
			&record.Currency,
			&completedAt,
		); err != nil {
			return nil, err
		}
		if completedAt.Valid {
			record.CompletedAt = completedAt.Time.Format(time.RFC3339)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
