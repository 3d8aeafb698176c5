package models

import "time"

// NATS subjects for workflow lifecycle events.
const (
	EventCheckinStarted   = "checkin.started"
	EventBookingCreated   = "booking.created"
	EventPaymentInitiated = "payment.initiated"
	EventPaymentCompleted = "payment.completed"
	EventPaymentFailed    = "payment.failed"
	EventSeatsPersisted   = "seats.persisted"
	EventCheckinCompleted = "checkin.completed"
	EventFlightSearched   = "flight.searched"
)

// CheckinStartedEvent marks a new workflow session.
type CheckinStartedEvent struct {
	SessionID string    `json:"session_id"`
	BookingID int64     `json:"booking_id,omitempty"`
	TripType  TripType  `json:"trip_type"`
	Timestamp time.Time `json:"timestamp"`
}

// BookingCreatedEvent marks the upstream booking creation from a session.
type BookingCreatedEvent struct {
	SessionID      string    `json:"session_id"`
	BookingID      int64     `json:"booking_id"`
	TripType       TripType  `json:"trip_type"`
	PassengerCount int       `json:"passenger_count"`
	Timestamp      time.Time `json:"timestamp"`
}

// PaymentInitiatedEvent marks payment-intent creation.
type PaymentInitiatedEvent struct {
	SessionID string    `json:"session_id"`
	BookingID int64     `json:"booking_id"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Timestamp time.Time `json:"timestamp"`
}

// PaymentCompletedEvent marks a provider-confirmed payment.
type PaymentCompletedEvent struct {
	SessionID string    `json:"session_id"`
	BookingID int64     `json:"booking_id"`
	Amount    int64     `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// PaymentFailedEvent marks a provider-reported payment failure.
type PaymentFailedEvent struct {
	SessionID string    `json:"session_id"`
	BookingID int64     `json:"booking_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// SeatsPersistedEvent marks the post-payment seat save.
type SeatsPersistedEvent struct {
	SessionID string    `json:"session_id"`
	BookingID int64     `json:"booking_id"`
	SeatCount int       `json:"seat_count"`
	Timestamp time.Time `json:"timestamp"`
}

// CheckinCompletedEvent marks a session reaching confirmation. Consumers
// archive it and may trigger notifications.
type CheckinCompletedEvent struct {
	SessionID   string    `json:"session_id"`
	BookingID   int64     `json:"booking_id"`
	TripType    TripType  `json:"trip_type"`
	TotalAmount int64     `json:"total_amount"`
	Currency    string    `json:"currency"`
	Timestamp   time.Time `json:"timestamp"`
}

// FlightSearchedEvent carries normalized search results for the suggestion
// index.
type FlightSearchedEvent struct {
	DepartureCity string       `json:"departure_city"`
	ArrivalCity   string       `json:"arrival_city"`
	FlightDate    string       `json:"flight_date"`
	Flights       []FlightView `json:"flights"`
	Timestamp     time.Time    `json:"timestamp"`
}
