package models

import (
	"skylane/internal/fares"
	"skylane/internal/seatmap"
)

// FlightView is the normalized display model for one flight: parsed times,
// derived duration and the fare options for both cabins.
type FlightView struct {
	ID               int64          `json:"id"`
	FlightNumber     string         `json:"flightNumber"`
	Airline          string         `json:"airline"`
	Aircraft         string         `json:"aircraft"`
	DepartureCity    string         `json:"departureCity"`
	ArrivalCity      string         `json:"arrivalCity"`
	DepartureAirport string         `json:"departureAirport"`
	ArrivalAirport   string         `json:"arrivalAirport"`
	DepartureTimeRaw string         `json:"departureTimeRaw"`
	ArrivalTimeRaw   string         `json:"arrivalTimeRaw"`
	DepartureTime    string         `json:"departureTime"`
	ArrivalTime      string         `json:"arrivalTime"`
	DepartureDate    string         `json:"departureDate"`
	Duration         string         `json:"duration"`
	EconomyPrice     int64          `json:"economyPrice"`
	BusinessPrice    int64          `json:"businessPrice"`
	SeatsLeft        int            `json:"seatsLeft"`
	EconomyOptions   []fares.Option `json:"economyOptions"`
	BusinessOptions  []fares.Option `json:"businessOptions"`
}

// SearchFlightsResponse wraps a normalized search result.
type SearchFlightsResponse struct {
	Flights []FlightView `json:"flights"`
}

// SuggestedFlightsRequest filters the suggestion index. Budget bounds are in
// VND; departure window is one of all|morning|afternoon|evening.
type SuggestedFlightsRequest struct {
	MinPrice        int64  `json:"minPrice"`
	MaxPrice        int64  `json:"maxPrice"`
	DepartureWindow string `json:"departureWindow"`
	Limit           int    `json:"limit"`
}

// StartSessionRequest opens a check-in session. Either BookingID resumes an
// existing booking, or a fare selection starts a fresh purchase flow.
type StartSessionRequest struct {
	BookingID int64 `json:"bookingId,omitempty"`

	DepartureFlightID int64  `json:"departureFlightId,omitempty"`
	DepartureOptionID string `json:"departureOptionId,omitempty"`
	ReturnFlightID    int64  `json:"returnFlightId,omitempty"`
	ReturnOptionID    string `json:"returnOptionId,omitempty"`
	PassengerCount    int    `json:"passengerCount,omitempty"`
}

// StartSessionResponse returns the new session handle.
type StartSessionResponse struct {
	SessionID string `json:"sessionId"`
	State     string `json:"state"`
}

// PassengerInput is one passenger's data as entered in the form. BirthDate
// arrives as dd/MM/yyyy and is normalized before submission.
type PassengerInput struct {
	IDNumber    string `json:"idNumber" binding:"required"`
	FirstName   string `json:"firstName" binding:"required"`
	LastName    string `json:"lastName" binding:"required"`
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	BirthDate   string `json:"birthDate" binding:"required"`
	Gender      string `json:"gender" binding:"required"`
	Address     string `json:"address"`
}

// SubmitPassengersRequest carries the passenger list for booking creation.
type SubmitPassengersRequest struct {
	Passengers []PassengerInput `json:"passengers" binding:"required"`
}

// AssignSeatRequest binds one seat to one passenger on one leg.
type AssignSeatRequest struct {
	Leg      Leg    `json:"leg" binding:"required"`
	TicketID int64  `json:"ticketId" binding:"required"`
	SeatID   string `json:"seatId" binding:"required"`
}

// SwitchLegRequest changes the active seat-selection leg.
type SwitchLegRequest struct {
	Leg Leg `json:"leg" binding:"required"`
}

// PaymentIntentResponse returns the provider client secret for the hosted
// payment form.
type PaymentIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// ConfirmPaymentRequest is the submitted payment form state.
type ConfirmPaymentRequest struct {
	PaymentMethodID string `json:"paymentMethodId" binding:"required"`
}

// PassengerView is a passenger row in the session snapshot.
type PassengerView struct {
	TicketID    int64  `json:"ticketId"`
	Title       string `json:"title"`
	Name        string `json:"name"`
	FlightClass string `json:"flightClass"`
	Seat        string `json:"seat,omitempty"`
}

// LegView is one leg's working set in the session snapshot.
type LegView struct {
	Flight     *FlightView     `json:"flight,omitempty"`
	Passengers []PassengerView `json:"passengers"`
	Seats      []seatmap.Seat  `json:"seats,omitempty"`
}

// SessionView is a snapshot of the latest committed session state. Display
// components read this; they never mutate the working set.
type SessionView struct {
	SessionID   string   `json:"sessionId"`
	State       string   `json:"state"`
	TripType    TripType `json:"tripType"`
	BookingID   int64    `json:"bookingId,omitempty"`
	ActiveLeg   Leg      `json:"activeLeg"`
	Departure   LegView  `json:"departure"`
	Return      *LegView `json:"return,omitempty"`
	TotalAmount int64    `json:"totalAmount"`
	Currency    string   `json:"currency"`
	PaidAt      string   `json:"paidAt,omitempty"`
}

// CheckinRecord is an archived completed (or failed) check-in, served from
// Postgres for support lookups.
type CheckinRecord struct {
	SessionID   string   `json:"sessionId"`
	BookingID   int64    `json:"bookingId"`
	TripType    TripType `json:"tripType"`
	State       string   `json:"state"`
	TotalAmount int64    `json:"totalAmount"`
	Currency    string   `json:"currency"`
	CompletedAt string   `json:"completedAt,omitempty"`
}
