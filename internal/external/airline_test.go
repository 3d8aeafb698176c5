package external

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "skylane/internal/errors"
	"skylane/internal/seatmap"
)

func newAirlineClient(t *testing.T, handler http.HandlerFunc) *AirlineClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewAirlineClient(AirlineConfig{BaseURL: srv.URL})
}

func TestSearchFlights(t *testing.T) {
	client := newAirlineClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/flight/search", r.URL.Path)
		assert.Equal(t, "SGN", r.URL.Query().Get("departureCity"))
		assert.Equal(t, "HAN", r.URL.Query().Get("arrivalCity"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": [
			{"flightId": 7, "flightNumber": "QA101", "basePrice": 2000000,
			 "departureTime": "2026-09-01T08:00:00Z", "arrivalTime": "2026-09-01T10:05:00Z"}
		]}`))
	})

	flights, err := client.SearchFlights(context.Background(), "SGN", "HAN", "2026-09-01")
	require.NoError(t, err)
	require.Len(t, flights, 1)
	assert.Equal(t, int64(7), flights[0].FlightID)
	assert.Equal(t, int64(2_000_000), flights[0].BasePrice)
}

func TestSearchFlightsUpstreamFailure(t *testing.T) {
	client := newAirlineClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.SearchFlights(context.Background(), "SGN", "HAN", "2026-09-01")
	var fetchErr *apperrors.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusBadGateway, fetchErr.Status)
}

func TestGetFlightSecondsTimestamps(t *testing.T) {
	client := newAirlineClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/flight/7", r.URL.Path)
		w.Write([]byte(`{"data": {"flightId": 7, "basePrice": 1500000,
			"departureTime": {"seconds": 1756713600}, "arrivalTime": {"seconds": 1756720800}}}`))
	})

	flight, err := client.GetFlight(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1756713600), flight.DepartureTime.Unix())
	assert.Equal(t, int64(1756720800), flight.ArrivalTime.Unix())
}

func TestGetFlightMissingTimes(t *testing.T) {
	client := newAirlineClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"flightId": 7, "basePrice": 1500000}}`))
	})

	_, err := client.GetFlight(context.Background(), 7)
	var dataErr *apperrors.DataInvalidError
	assert.ErrorAs(t, err, &dataErr)
}

func TestCreateBookingOneWayOmitsReturnList(t *testing.T) {
	client := newAirlineClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))

		var raw map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.Contains(t, raw, "departureTicketDataList")
		assert.NotContains(t, raw, "returnTicketDataList")
		assert.NotContains(t, raw, "returnFlightId")

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data": {"bookingId": 55}}`))
	})

	bookingID, err := client.CreateBooking(context.Background(), "tok-123", &CreateBookingRequest{
		DepartureCity:     "SGN",
		ArrivalCity:       "HAN",
		DepartureFlightID: 7,
		TripType:          "oneWay",
		DepartureTicketDataList: []TicketData{
			{Price: 2_000_000, FlightClass: "economy"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(55), bookingID)
}

func TestCreateBookingSurfacesServerMessage(t *testing.T) {
	client := newAirlineClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message": "flight is sold out"}`))
	})

	_, err := client.CreateBooking(context.Background(), "tok", &CreateBookingRequest{})
	var bookingErr *apperrors.BookingCreationError
	require.ErrorAs(t, err, &bookingErr)
	assert.Contains(t, bookingErr.Error(), "flight is sold out")
}

func TestUpdateSeats(t *testing.T) {
	var received []seatmap.SeatUpdate
	client := newAirlineClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/ticket/update-seats", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	})

	err := client.UpdateSeats(context.Background(), "tok", []seatmap.SeatUpdate{
		{TicketID: 101, SeatCode: "12A"},
	})
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, "12A", received[0].SeatCode)
}

func TestUpdateSeatsNon2xx(t *testing.T) {
	client := newAirlineClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	err := client.UpdateSeats(context.Background(), "tok", []seatmap.SeatUpdate{{TicketID: 101, SeatCode: "12A"}})
	var fetchErr *apperrors.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusConflict, fetchErr.Status)
}
