package integration

import (
	"testing"

	"skylane/internal/models"
)

// Walks a full one-way check-in against a live stack: search, session start,
// passenger submission, seat selection, payment.
func TestOneWayCheckinFlow(t *testing.T) {
	client := NewTestClient(baseURL(t), authToken())

	search := client.SearchFlights(t, "SGN", "HAN", "2026-09-01")
	if len(search.Flights) == 0 {
		t.Skip("No flights available for the test route")
	}
	flight := search.Flights[0]
	if len(flight.EconomyOptions) == 0 {
		t.Fatal("Flight has no economy fare options")
	}

	view := client.StartSession(t, &models.StartSessionRequest{
		DepartureFlightID: flight.ID,
		DepartureOptionID: flight.EconomyOptions[0].ID,
		PassengerCount:    2,
	})
	if view.State != "flight_review" {
		t.Fatalf("Expected flight_review, got %s", view.State)
	}
	if want := flight.EconomyOptions[0].Price * 2; view.TotalAmount != want {
		t.Fatalf("Expected total %d, got %d", want, view.TotalAmount)
	}

	view = client.Continue(t, view.SessionID)
	if view.State != "passenger_list" {
		t.Fatalf("Expected passenger_list, got %s", view.State)
	}

	view = client.SubmitPassengers(t, view.SessionID, TestPassengers())
	if view.State != "seat_selection" {
		t.Fatalf("Expected seat_selection, got %s", view.State)
	}
	if view.BookingID == 0 {
		t.Fatal("Expected a booking to be created")
	}

	SeatAllPassengers(t, client, view.SessionID, models.LegDeparture)

	view = client.Continue(t, view.SessionID)
	if view.State != "payment" {
		t.Fatalf("Expected payment, got %s", view.State)
	}

	intent := client.CreatePaymentIntent(t, view.SessionID)
	if intent.ClientSecret == "" {
		t.Fatal("Expected a client secret")
	}

	view = client.ConfirmPayment(t, view.SessionID, &models.ConfirmPaymentRequest{
		PaymentMethodID: "pm_card_visa",
	})
	if view.State != "confirmation" {
		t.Fatalf("Expected confirmation, got %s", view.State)
	}
	if view.PaidAt == "" {
		t.Fatal("Expected a paid timestamp")
	}
}

// Going back must never lose data entered on later steps.
func TestBackPreservesProgress(t *testing.T) {
	client := NewTestClient(baseURL(t), authToken())

	search := client.SearchFlights(t, "SGN", "HAN", "2026-09-01")
	if len(search.Flights) == 0 {
		t.Skip("No flights available for the test route")
	}
	flight := search.Flights[0]

	view := client.StartSession(t, &models.StartSessionRequest{
		DepartureFlightID: flight.ID,
		DepartureOptionID: flight.EconomyOptions[0].ID,
		PassengerCount:    2,
	})
	sessionID := view.SessionID

	client.Continue(t, sessionID)
	view = client.SubmitPassengers(t, sessionID, TestPassengers())
	bookingID := view.BookingID

	view = client.Back(t, sessionID)
	if view.State != "passenger_list" {
		t.Fatalf("Expected passenger_list after back, got %s", view.State)
	}
	if view.BookingID != bookingID {
		t.Fatalf("Back discarded the booking: had %d, got %d", bookingID, view.BookingID)
	}

	view = client.Continue(t, sessionID)
	if view.State != "seat_selection" {
		t.Fatalf("Expected seat_selection after re-continue, got %s", view.State)
	}
	if len(view.Departure.Passengers) != 2 {
		t.Fatalf("Expected 2 passengers to survive, got %d", len(view.Departure.Passengers))
	}
}
