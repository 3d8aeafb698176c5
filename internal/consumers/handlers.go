package consumers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/stan.go"

	"skylane/internal/checkin"
	"skylane/internal/models"
	"skylane/internal/repository"
	"skylane/internal/search"
)

type Handlers struct {
	repos *repository.Repositories
	es    *search.ElasticsearchClient
}

func NewHandlers(repos *repository.Repositories, es *search.ElasticsearchClient) *Handlers {
	return &Handlers{
		repos: repos,
		es:    es,
	}
}

// archive stores the raw event payload in the audit log. Archival failures
// are logged but never block the ack: a lost audit row is preferable to a
// redelivery loop on a broken payload.
func (h *Handlers) archive(sessionID string, bookingID int64, subject string, payload []byte, occurredAt time.Time) {
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	ctx := context.Background()
	if err := h.repos.Events.Insert(ctx, sessionID, bookingID, subject, payload, occurredAt); err != nil {
		slog.Error("Failed to archive event", "subject", subject, "session_id", sessionID, "error", err)
	}
}

func (h *Handlers) HandleCheckinStarted(m *stan.Msg) {
	var event models.CheckinStartedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal check-in started event", "error", err)
		m.Ack()
		return
	}

	h.archive(event.SessionID, event.BookingID, models.EventCheckinStarted, m.Data, event.Timestamp)

	record := &models.CheckinRecord{
		SessionID: event.SessionID,
		BookingID: event.BookingID,
		TripType:  event.TripType,
		State:     string(checkin.StateFlightReview),
		Currency:  "VND",
	}
	ctx := context.Background()
	if err := h.repos.Checkins.Upsert(ctx, record, nil); err != nil {
		slog.Error("Failed to record check-in start", "session_id", event.SessionID, "error", err)
		return
	}

	m.Ack()
}

func (h *Handlers) HandleBookingCreated(m *stan.Msg) {
	var event models.BookingCreatedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal booking created event", "error", err)
		m.Ack()
		return
	}

	h.archive(event.SessionID, event.BookingID, models.EventBookingCreated, m.Data, event.Timestamp)

	ctx := context.Background()
	err := h.repos.Checkins.UpdateProgress(ctx, event.SessionID, event.BookingID, 0, string(checkin.StateSeatSelection))
	if err != nil {
		slog.Error("Failed to record booking", "session_id", event.SessionID, "error", err)
		return
	}

	m.Ack()
}

func (h *Handlers) HandlePaymentInitiated(m *stan.Msg) {
	var event models.PaymentInitiatedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal payment initiated event", "error", err)
		m.Ack()
		return
	}

	h.archive(event.SessionID, event.BookingID, models.EventPaymentInitiated, m.Data, event.Timestamp)

	ctx := context.Background()
	err := h.repos.Checkins.UpdateProgress(ctx, event.SessionID, event.BookingID, event.Amount, string(checkin.StatePayment))
	if err != nil {
		slog.Error("Failed to record payment initiation", "session_id", event.SessionID, "error", err)
		return
	}

	m.Ack()
}

func (h *Handlers) HandlePaymentCompleted(m *stan.Msg) {
	var event models.PaymentCompletedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal payment completed event", "error", err)
		m.Ack()
		return
	}

	h.archive(event.SessionID, event.BookingID, models.EventPaymentCompleted, m.Data, event.Timestamp)

	ctx := context.Background()
	err := h.repos.Checkins.UpdateProgress(ctx, event.SessionID, event.BookingID, event.Amount, string(checkin.StatePayment))
	if err != nil {
		slog.Error("Failed to record payment completion", "session_id", event.SessionID, "error", err)
		return
	}

	m.Ack()
}

func (h *Handlers) HandlePaymentFailed(m *stan.Msg) {
	var event models.PaymentFailedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal payment failed event", "error", err)
		m.Ack()
		return
	}

	slog.Warn("Payment failed for session",
		"session_id", event.SessionID,
		"booking_id", event.BookingID,
		"reason", event.Reason)

	h.archive(event.SessionID, event.BookingID, models.EventPaymentFailed, m.Data, event.Timestamp)

	// The session stays on the payment step so the passenger can retry.
	ctx := context.Background()
	err := h.repos.Checkins.UpdateProgress(ctx, event.SessionID, event.BookingID, 0, string(checkin.StatePayment))
	if err != nil {
		slog.Error("Failed to record payment failure", "session_id", event.SessionID, "error", err)
		return
	}

	m.Ack()
}

func (h *Handlers) HandleSeatsPersisted(m *stan.Msg) {
	var event models.SeatsPersistedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal seats persisted event", "error", err)
		m.Ack()
		return
	}

	h.archive(event.SessionID, event.BookingID, models.EventSeatsPersisted, m.Data, event.Timestamp)
	m.Ack()
}

func (h *Handlers) HandleCheckinCompleted(m *stan.Msg) {
	var event models.CheckinCompletedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal check-in completed event", "error", err)
		m.Ack()
		return
	}

	h.archive(event.SessionID, event.BookingID, models.EventCheckinCompleted, m.Data, event.Timestamp)

	completedAt := event.Timestamp
	if completedAt.IsZero() {
		completedAt = time.Now()
	}

	record := &models.CheckinRecord{
		SessionID:   event.SessionID,
		BookingID:   event.BookingID,
		TripType:    event.TripType,
		State:       string(checkin.StateConfirmation),
		TotalAmount: event.TotalAmount,
		Currency:    event.Currency,
	}
	ctx := context.Background()
	if err := h.repos.Checkins.Upsert(ctx, record, &completedAt); err != nil {
		slog.Error("Failed to record completed check-in", "session_id", event.SessionID, "error", err)
		return
	}

	slog.Info("Archived completed check-in",
		"session_id", event.SessionID,
		"booking_id", event.BookingID,
		"total_amount", event.TotalAmount)

	m.Ack()
}

// HandleFlightSearched feeds normalized search results into the suggestion
// index. Malformed entries are skipped so one bad flight does not poison the
// whole batch.
func (h *Handlers) HandleFlightSearched(m *stan.Msg) {
	var event models.FlightSearchedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal flight searched event", "error", err)
		m.Ack()
		return
	}

	if h.es == nil {
		m.Ack()
		return
	}

	ctx := context.Background()
	indexed := 0
	for i := range event.Flights {
		doc, err := search.DocFromView(&event.Flights[i])
		if err != nil {
			slog.Warn("Skipping unindexable flight", "flight_id", event.Flights[i].ID, "error", err)
			continue
		}
		if err := h.es.IndexFlight(ctx, doc); err != nil {
			slog.Error("Failed to index flight", "flight_id", doc.ID, "error", err)
			continue
		}
		indexed++
	}

	slog.Debug("Indexed searched flights",
		"departure_city", event.DepartureCity,
		"arrival_city", event.ArrivalCity,
		"indexed", indexed,
		"total", len(event.Flights))

	m.Ack()
}
