package repository

import (
	"context"
	"encoding/json"
	"time"

	"skylane/internal/database"
)

type CheckinEventRepository struct {
	db *database.DB
}

// ArchivedEvent is one lifecycle event as stored in the audit log.
type ArchivedEvent struct {
	ID         int64           `json:"id"`
	SessionID  string          `json:"sessionId"`
	BookingID  int64           `json:"bookingId,omitempty"`
	Subject    string          `json:"subject"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurredAt"`
}

func NewCheckinEventRepository(db *database.DB) *CheckinEventRepository {
	return &CheckinEventRepository{db: db}
}

func (r *CheckinEventRepository) Insert(ctx context.Context, sessionID string, bookingID int64, subject string, payload []byte, occurredAt time.Time) error {
	query := `
		INSERT INTO checkin_events (session_id, booking_id, subject, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.ExecContext(ctx, query, sessionID, bookingID, subject, payload, occurredAt)
	return err
}

func (r *CheckinEventRepository) ListBySessionID(ctx context.Context, sessionID string) ([]ArchivedEvent, error) {
	var events []ArchivedEvent

	query := `
		SELECT id, session_id, booking_id, subject, payload, occurred_at
		FROM checkin_events
		WHERE session_id = $1
		ORDER BY occurred_at ASC`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var event ArchivedEvent
		if err := rows.Scan(
			&event.ID,
			&event.SessionID,
			&event.BookingID,
			&event.Subject,
			&event.Payload,
			&event.OccurredAt,
		); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
