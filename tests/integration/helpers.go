package integration

import (
	"os"
	"testing"

	"skylane/internal/models"
)

// The suite needs a running API plus its upstream airline core; it is skipped
// unless SKYLANE_API_URL points at one.
func baseURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("SKYLANE_API_URL")
	if url == "" {
		t.Skip("SKYLANE_API_URL not set, skipping integration test")
	}
	return url
}

func authToken() string {
	if token := os.Getenv("SKYLANE_API_TOKEN"); token != "" {
		return token
	}
	return "integration-test-token"
}

// FindAvailableSeat returns the first selectable seat not already picked in
// this test.
func FindAvailableSeat(leg *models.LegView, taken map[string]bool) string {
	for _, seat := range leg.Seats {
		if seat.Status == "available" && !taken[seat.ID] {
			return seat.ID
		}
	}
	return ""
}

// SeatAllPassengers assigns one free seat to every passenger on a leg.
func SeatAllPassengers(t *testing.T, client *TestClient, sessionID string, leg models.Leg) {
	t.Helper()

	view := client.GetSession(t, sessionID)
	legView := &view.Departure
	if leg == models.LegReturn {
		if view.Return == nil {
			t.Fatal("Session has no return leg")
		}
		legView = view.Return
	}

	taken := map[string]bool{}
	for _, passenger := range legView.Passengers {
		seatID := FindAvailableSeat(legView, taken)
		if seatID == "" {
			t.Fatalf("No available seat left on leg %s", leg)
		}
		taken[seatID] = true

		client.AssignSeat(t, sessionID, &models.AssignSeatRequest{
			Leg:      leg,
			TicketID: passenger.TicketID,
			SeatID:   seatID,
		})
	}
}

func TestPassengers() *models.SubmitPassengersRequest {
	return &models.SubmitPassengersRequest{
		Passengers: []models.PassengerInput{
			{
				IDNumber: "0790001", FirstName: "An", LastName: "Nguyen",
				PhoneNumber: "0900000001", BirthDate: "15/04/1990", Gender: "male",
			},
			{
				IDNumber: "0790002", FirstName: "Binh", LastName: "Tran",
				PhoneNumber: "0900000002", BirthDate: "02/11/1985", Gender: "female",
			},
		},
	}
}
