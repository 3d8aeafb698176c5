package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TripType distinguishes one-way from round-trip bookings.
type TripType string

const (
	TripOneWay    TripType = "oneWay"
	TripRoundTrip TripType = "roundTrip"
)

// Leg is one direction of a trip.
type Leg string

const (
	LegDeparture Leg = "departure"
	LegReturn    Leg = "return"
)

// FlexTime parses the timestamp shapes the airline API is known to emit:
// RFC 3339 strings, epoch seconds and {"seconds": n} objects.
type FlexTime struct {
	time.Time
}

func (ft *FlexTime) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		parsed, err := time.Parse(time.RFC3339, asString)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q: %w", asString, err)
		}
		ft.Time = parsed
		return nil
	}

	var asObject struct {
		Seconds int64 `json:"seconds"`
	}
	if err := json.Unmarshal(data, &asObject); err == nil && asObject.Seconds != 0 {
		ft.Time = time.Unix(asObject.Seconds, 0).UTC()
		return nil
	}

	if seconds, err := strconv.ParseInt(string(data), 10, 64); err == nil {
		ft.Time = time.Unix(seconds, 0).UTC()
		return nil
	}

	return fmt.Errorf("invalid timestamp value: %s", string(data))
}

// Flight is the raw upstream flight record before normalization.
type Flight struct {
	FlightID         int64    `json:"flightId"`
	FlightNumber     string   `json:"flightNumber"`
	Airline          string   `json:"airline"`
	AircraftType     string   `json:"aircraftType"`
	DepartureCity    string   `json:"departureCity"`
	ArrivalCity      string   `json:"arrivalCity"`
	DepartureAirport string   `json:"departureAirport"`
	ArrivalAirport   string   `json:"arrivalAirport"`
	DepartureTime    FlexTime `json:"departureTime"`
	ArrivalTime      FlexTime `json:"arrivalTime"`
	BasePrice        int64    `json:"basePrice"`
}

// TicketOwner is the passenger identity attached to one ticket. DateOfBirth
// is stored normalized to yyyy-MM-dd.
type TicketOwner struct {
	IdentityCardNumber string `json:"identityCardNumber"`
	FirstName          string `json:"firstName"`
	LastName           string `json:"lastName"`
	PhoneNumber        string `json:"phoneNumber"`
	DateOfBirth        string `json:"dateOfBirth"`
	Gender             string `json:"gender"`
	Address            string `json:"address"`
}

// FullName joins the name parts for display.
func (o TicketOwner) FullName() string {
	if o.FirstName == "" {
		return o.LastName
	}
	if o.LastName == "" {
		return o.FirstName
	}
	return o.FirstName + " " + o.LastName
}

// Title derives the salutation from gender, empty when unknown.
func (o TicketOwner) Title() string {
	switch strings.ToLower(o.Gender) {
	case "male":
		return "Mr"
	case "female":
		return "Ms"
	default:
		return ""
	}
}

// Ticket is one passenger's seat on one leg. SeatCode stays empty until the
// seat step of the workflow persists it.
type Ticket struct {
	TicketID    int64       `json:"ticketId"`
	BookingID   int64       `json:"bookingId"`
	FlightID    int64       `json:"flightId"`
	FlightClass string      `json:"flightClass"`
	Price       int64       `json:"price"`
	SeatCode    string      `json:"seatCode,omitempty"`
	Owner       TicketOwner `json:"owner"`
}

// Booking groups the tickets of one purchase across one or two legs.
type Booking struct {
	BookingID          int64    `json:"bookingId"`
	DepartureCity      string   `json:"departureCity"`
	ArrivalCity        string   `json:"arrivalCity"`
	DepartureFlightID  int64    `json:"departureFlightId"`
	ReturnFlightID     int64    `json:"returnFlightId,omitempty"`
	TripType           TripType `json:"tripType"`
	DepartureIDTickets []int64  `json:"departureIdTickets"`
	ReturnIDTickets    []int64  `json:"returnIdTickets,omitempty"`
}
