package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skylane/internal/checkin"
	apperrors "skylane/internal/errors"
	"skylane/internal/external"
	"skylane/internal/models"
)

// fakeBackend plays the airline core API and the payment provider for the
// workflow tests.
type fakeBackend struct {
	mu sync.Mutex

	flights  map[int64]map[string]interface{}
	bookings map[int64]*models.Booking
	tickets  map[int64]*models.Ticket

	nextBookingID int64
	nextTicketID  int64

	rawBookingBody  map[string]json.RawMessage
	seatUpdates     [][]map[string]interface{}
	failUpdateSeats bool

	paymentStatus string // "succeeded" or "failed"
	confirmCalls  int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		flights: map[int64]map[string]interface{}{
			7: {
				"flightId": 7, "flightNumber": "QA101", "airline": "Skylane Air",
				"departureCity": "SGN", "arrivalCity": "HAN",
				"departureTime": "2026-09-01T08:00:00Z", "arrivalTime": "2026-09-01T10:05:00Z",
				"basePrice": 2_000_000,
			},
			8: {
				"flightId": 8, "flightNumber": "QA102", "airline": "Skylane Air",
				"departureCity": "HAN", "arrivalCity": "SGN",
				"departureTime": "2026-09-05T18:30:00Z", "arrivalTime": "2026-09-05T20:35:00Z",
				"basePrice": 1_500_000,
			},
			9: {
				"flightId": 9, "flightNumber": "QA103", "airline": "Skylane Air",
				"departureCity": "HAN", "arrivalCity": "SGN",
				"departureTime": "2026-08-30T07:00:00Z", "arrivalTime": "2026-08-30T09:05:00Z",
				"basePrice": 1_500_000,
			},
		},
		bookings:      make(map[int64]*models.Booking),
		tickets:       make(map[int64]*models.Ticket),
		nextBookingID: 100,
		nextTicketID:  1000,
		paymentStatus: "succeeded",
	}
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/flight/", func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/api/flight/"), 10, 64)
		if err != nil {
			http.Error(w, "bad id", http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		flight, ok := f.flights[id]
		f.mu.Unlock()
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeEnvelope(w, flight)
	})

	mux.HandleFunc("/api/booking", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			f.createBooking(w, r)
		case http.MethodGet:
			id, _ := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
			f.mu.Lock()
			booking, ok := f.bookings[id]
			f.mu.Unlock()
			if !ok {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			writeEnvelope(w, booking)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/ticket", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		f.mu.Lock()
		ticket, ok := f.tickets[id]
		f.mu.Unlock()
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeEnvelope(w, ticket)
	})

	mux.HandleFunc("/api/ticket/update-seats", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failUpdateSeats {
			http.Error(w, "storage unavailable", http.StatusInternalServerError)
			return
		}
		var updates []map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&updates)
		f.seatUpdates = append(f.seatUpdates, updates)
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/api/payment-intents", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"client_secret": "cs_test_secret"})
	})

	mux.HandleFunc("/api/payment-intents/confirm", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.confirmCalls++
		status := f.paymentStatus
		f.mu.Unlock()
		resp := map[string]string{"status": status}
		if status != "succeeded" {
			resp["error"] = "card_declined"
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	return mux
}

func (f *fakeBackend) createBooking(w http.ResponseWriter, r *http.Request) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.rawBookingBody = raw

	var req external.CreateBookingRequest
	payload, _ := json.Marshal(raw)
	_ = json.Unmarshal(payload, &req)

	f.nextBookingID++
	booking := &models.Booking{
		BookingID:         f.nextBookingID,
		DepartureCity:     req.DepartureCity,
		ArrivalCity:       req.ArrivalCity,
		DepartureFlightID: req.DepartureFlightID,
		TripType:          req.TripType,
	}
	if req.ReturnFlightID != nil {
		booking.ReturnFlightID = *req.ReturnFlightID
	}

	booking.DepartureIDTickets = f.issueTickets(booking.BookingID, req.DepartureFlightID, req.DepartureTicketDataList)
	if req.ReturnTicketDataList != nil {
		booking.ReturnIDTickets = f.issueTickets(booking.BookingID, booking.ReturnFlightID, *req.ReturnTicketDataList)
	}
	f.bookings[booking.BookingID] = booking

	w.WriteHeader(http.StatusCreated)
	writeEnvelope(w, map[string]int64{"bookingId": booking.BookingID})
}

func (f *fakeBackend) issueTickets(bookingID, flightID int64, list []external.TicketData) []int64 {
	var ids []int64
	for _, data := range list {
		f.nextTicketID++
		f.tickets[f.nextTicketID] = &models.Ticket{
			TicketID:    f.nextTicketID,
			BookingID:   bookingID,
			FlightID:    flightID,
			FlightClass: data.FlightClass,
			Price:       data.Price,
			Owner:       data.OwnerData,
		}
		ids = append(ids, f.nextTicketID)
	}
	return ids
}

func (f *fakeBackend) updateSeatCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seatUpdates)
}

func writeEnvelope(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
}

// recordingHolder is an in-memory SeatHolder.
type recordingHolder struct {
	mu     sync.Mutex
	holds  map[string]string
	refuse bool
}

func newRecordingHolder() *recordingHolder {
	return &recordingHolder{holds: make(map[string]string)}
}

func (h *recordingHolder) AcquireSeatHold(_ context.Context, flightID int64, seatID, sessionID string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.refuse {
		return false, nil
	}
	key := fmt.Sprintf("%d:%s", flightID, seatID)
	if holder, ok := h.holds[key]; ok && holder != sessionID {
		return false, nil
	}
	h.holds[key] = sessionID
	return true, nil
}

func (h *recordingHolder) ReleaseSeatHold(_ context.Context, flightID int64, seatID, sessionID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := fmt.Sprintf("%d:%s", flightID, seatID)
	if h.holds[key] == sessionID {
		delete(h.holds, key)
	}
	return nil
}

func newTestServices(t *testing.T, backend *fakeBackend, holder *recordingHolder) *Services {
	t.Helper()

	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	deps := Deps{
		Airline:    external.NewAirlineClient(external.AirlineConfig{BaseURL: srv.URL}),
		Payment:    external.NewPaymentClient(external.PaymentConfig{BaseURL: srv.URL}),
		SessionTTL: time.Minute,
	}
	if holder != nil {
		deps.SeatHolds = holder
	}

	services := NewServices(deps)
	services.Checkin.SetSeatSource(func() *rand.Rand {
		return rand.New(rand.NewSource(42))
	})
	t.Cleanup(services.Checkin.Close)
	return services
}

func testPassengers() *models.SubmitPassengersRequest {
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

// advanceToPayment walks a fresh round-trip session to the payment step with
// every passenger seated on both legs.
func advanceToPayment(t *testing.T, services *Services, backend *fakeBackend) *models.SessionView {
	t.Helper()
	ctx := context.Background()

	view, err := services.Checkin.StartSession(ctx, "tok", &models.StartSessionRequest{
		DepartureFlightID: 7,
		DepartureOptionID: "economy1",
		ReturnFlightID:    8,
		ReturnOptionID:    "economy1",
		PassengerCount:    2,
	})
	require.NoError(t, err)

	view, err = services.Checkin.Continue(view.SessionID)
	require.NoError(t, err)

	view, err = services.Checkin.SubmitPassengers(ctx, view.SessionID, testPassengers())
	require.NoError(t, err)
	require.Equal(t, string(checkin.StateSeatSelection), view.State)

	assignSeatsForLeg(t, services, view, models.LegDeparture)
	assignSeatsForLeg(t, services, view, models.LegReturn)

	view, err = services.Checkin.Continue(view.SessionID)
	require.NoError(t, err)
	require.Equal(t, string(checkin.StatePayment), view.State)
	return view
}

func assignSeatsForLeg(t *testing.T, services *Services, view *models.SessionView, leg models.Leg) {
	t.Helper()

	current, err := services.Checkin.GetSession(view.SessionID)
	require.NoError(t, err)
	legView := current.Departure
	if leg == models.LegReturn {
		require.NotNil(t, current.Return)
		legView = *current.Return
	}

	taken := map[string]bool{}
	for _, passenger := range legView.Passengers {
		seatID := ""
		for _, seat := range legView.Seats {
			if seat.Status == "available" && !taken[seat.ID] {
				seatID = seat.ID
				break
			}
		}
		require.NotEmpty(t, seatID)
		taken[seatID] = true

		_, err := services.Checkin.AssignSeat(view.SessionID, &models.AssignSeatRequest{
			Leg:      leg,
			TicketID: passenger.TicketID,
			SeatID:   seatID,
		})
		require.NoError(t, err)
	}
}

func TestRoundTripTotalAmount(t *testing.T) {
	backend := newFakeBackend()
	services := newTestServices(t, backend, nil)

	view, err := services.Checkin.StartSession(context.Background(), "tok", &models.StartSessionRequest{
		DepartureFlightID: 7,
		DepartureOptionID: "economy1",
		ReturnFlightID:    8,
		ReturnOptionID:    "economy1",
		PassengerCount:    2,
	})
	require.NoError(t, err)

	// (2,000,000 + 1,500,000) x 2 passengers
	assert.Equal(t, int64(7_000_000), view.TotalAmount)
	assert.Equal(t, models.TripRoundTrip, view.TripType)
}

func TestStartSessionRejectsStaleFareID(t *testing.T) {
	backend := newFakeBackend()
	services := newTestServices(t, backend, nil)

	_, err := services.Checkin.StartSession(context.Background(), "tok", &models.StartSessionRequest{
		DepartureFlightID: 7,
		DepartureOptionID: "premium9",
		PassengerCount:    1,
	})
	assert.ErrorIs(t, err, apperrors.ErrFareNotFound)
}

func TestStartSessionRejectsReturnBeforeOutbound(t *testing.T) {
	backend := newFakeBackend()
	services := newTestServices(t, backend, nil)

	_, err := services.Checkin.StartSession(context.Background(), "tok", &models.StartSessionRequest{
		DepartureFlightID: 7,
		DepartureOptionID: "economy1",
		ReturnFlightID:    9,
		ReturnOptionID:    "economy1",
		PassengerCount:    1,
	})
	var validationErr *apperrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "returnFlightId", validationErr.Field)
}

func TestOutOfOrderPaymentLeavesSessionUsable(t *testing.T) {
	backend := newFakeBackend()
	services := newTestServices(t, backend, nil)
	ctx := context.Background()

	view, err := services.Checkin.StartSession(ctx, "tok", &models.StartSessionRequest{
		DepartureFlightID: 7,
		DepartureOptionID: "economy1",
		PassengerCount:    1,
	})
	require.NoError(t, err)

	// Still on flight review: payment calls are out of order. Each refusal
	// must report the transition error and must not leave the session busy.
	for i := 0; i < 2; i++ {
		_, err = services.Checkin.CreateIntent(ctx, view.SessionID)
		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

		_, err = services.Checkin.ConfirmPayment(ctx, view.SessionID, &models.ConfirmPaymentRequest{PaymentMethodID: "pm_card"})
		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	}

	// The workflow still advances normally afterwards.
	view, err = services.Checkin.Continue(view.SessionID)
	require.NoError(t, err)
	assert.Equal(t, string(checkin.StatePassengerList), view.State)
}

func TestSubmitPassengersNormalizesOwnerData(t *testing.T) {
	backend := newFakeBackend()
	services := newTestServices(t, backend, nil)
	ctx := context.Background()

	view, err := services.Checkin.StartSession(ctx, "tok", &models.StartSessionRequest{
		DepartureFlightID: 7,
		DepartureOptionID: "economy1",
		PassengerCount:    2,
	})
	require.NoError(t, err)
	_, err = services.Checkin.Continue(view.SessionID)
	require.NoError(t, err)

	_, err = services.Checkin.SubmitPassengers(ctx, view.SessionID, testPassengers())
	require.NoError(t, err)

	backend.mu.Lock()
	defer backend.mu.Unlock()

	// One-way: the return list key must be absent, not empty.
	assert.Contains(t, backend.rawBookingBody, "departureTicketDataList")
	assert.NotContains(t, backend.rawBookingBody, "returnTicketDataList")

	var list []external.TicketData
	require.NoError(t, json.Unmarshal(backend.rawBookingBody["departureTicketDataList"], &list))
	require.Len(t, list, 2)
	assert.Equal(t, "1990-04-15", list[0].OwnerData.DateOfBirth)
	assert.Equal(t, "1985-11-02", list[1].OwnerData.DateOfBirth)
	assert.Equal(t, int64(2_000_000), list[0].Price)
	assert.Equal(t, "economy", list[0].FlightClass)
}

func TestSubmitPassengersRejectsBadBirthDate(t *testing.T) {
	backend := newFakeBackend()
	services := newTestServices(t, backend, nil)
	ctx := context.Background()

	view, err := services.Checkin.StartSession(ctx, "tok", &models.StartSessionRequest{
		DepartureFlightID: 7,
		DepartureOptionID: "economy1",
		PassengerCount:    1,
	})
	require.NoError(t, err)
	_, err = services.Checkin.Continue(view.SessionID)
	require.NoError(t, err)

	req := &models.SubmitPassengersRequest{
		Passengers: []models.PassengerInput{{
			IDNumber: "1", FirstName: "An", LastName: "Nguyen",
			PhoneNumber: "09", BirthDate: "1990-04-15", Gender: "male",
		}},
	}
	_, err = services.Checkin.SubmitPassengers(ctx, view.SessionID, req)
	var validationErr *apperrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "birthDate", validationErr.Field)

	// Nothing was sent upstream.
	backend.mu.Lock()
	assert.Nil(t, backend.rawBookingBody)
	backend.mu.Unlock()
}

func TestConfirmPaymentHappyPath(t *testing.T) {
	backend := newFakeBackend()
	holder := newRecordingHolder()
	services := newTestServices(t, backend, holder)
	ctx := context.Background()

	view := advanceToPayment(t, services, backend)

	intent, err := services.Checkin.CreateIntent(ctx, view.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "cs_test_secret", intent.ClientSecret)
	assert.Equal(t, int64(7_000_000), intent.Amount)

	view, err = services.Checkin.ConfirmPayment(ctx, view.SessionID, &models.ConfirmPaymentRequest{PaymentMethodID: "pm_card"})
	require.NoError(t, err)
	assert.Equal(t, string(checkin.StateConfirmation), view.State)
	assert.NotEmpty(t, view.PaidAt)

	// Both legs' seats went upstream in one persistence call.
	require.Equal(t, 1, backend.updateSeatCalls())
	backend.mu.Lock()
	assert.Len(t, backend.seatUpdates[0], 4)
	backend.mu.Unlock()

	// Every persisted seat is held by this session.
	holder.mu.Lock()
	assert.Len(t, holder.holds, 4)
	holder.mu.Unlock()
}

func TestPaymentFailureLeavesSeatsUntouched(t *testing.T) {
	backend := newFakeBackend()
	backend.paymentStatus = "failed"
	services := newTestServices(t, backend, nil)
	ctx := context.Background()

	view := advanceToPayment(t, services, backend)
	_, err := services.Checkin.CreateIntent(ctx, view.SessionID)
	require.NoError(t, err)

	_, err = services.Checkin.ConfirmPayment(ctx, view.SessionID, &models.ConfirmPaymentRequest{PaymentMethodID: "pm_card"})
	var paymentErr *apperrors.PaymentError
	require.ErrorAs(t, err, &paymentErr)
	assert.Equal(t, "card_declined", paymentErr.Reason)

	// The workflow stays in Payment and no seat persistence was attempted.
	current, err := services.Checkin.GetSession(view.SessionID)
	require.NoError(t, err)
	assert.Equal(t, string(checkin.StatePayment), current.State)
	assert.Equal(t, 0, backend.updateSeatCalls())
}

func TestSeatPersistenceFailureIsDistinct(t *testing.T) {
	backend := newFakeBackend()
	backend.failUpdateSeats = true
	services := newTestServices(t, backend, nil)
	ctx := context.Background()

	view := advanceToPayment(t, services, backend)
	_, err := services.Checkin.CreateIntent(ctx, view.SessionID)
	require.NoError(t, err)

	_, err = services.Checkin.ConfirmPayment(ctx, view.SessionID, &models.ConfirmPaymentRequest{PaymentMethodID: "pm_card"})
	var persistErr *apperrors.SeatPersistenceError
	require.ErrorAs(t, err, &persistErr)

	// Payment went through, but the session must not claim confirmation.
	backend.mu.Lock()
	assert.Equal(t, 1, backend.confirmCalls)
	backend.mu.Unlock()
	current, err := services.Checkin.GetSession(view.SessionID)
	require.NoError(t, err)
	assert.Equal(t, string(checkin.StatePayment), current.State)
}

func TestSeatConflictRefusesPersistence(t *testing.T) {
	backend := newFakeBackend()
	holder := newRecordingHolder()
	holder.refuse = true
	services := newTestServices(t, backend, holder)
	ctx := context.Background()

	view := advanceToPayment(t, services, backend)
	_, err := services.Checkin.CreateIntent(ctx, view.SessionID)
	require.NoError(t, err)

	_, err = services.Checkin.ConfirmPayment(ctx, view.SessionID, &models.ConfirmPaymentRequest{PaymentMethodID: "pm_card"})
	assert.ErrorIs(t, err, apperrors.ErrSeatConflict)
	assert.Equal(t, 0, backend.updateSeatCalls())
}

func TestResumeSessionFromBooking(t *testing.T) {
	backend := newFakeBackend()
	services := newTestServices(t, backend, nil)
	ctx := context.Background()

	// Create a booking out of band.
	first, err := services.Checkin.StartSession(ctx, "tok", &models.StartSessionRequest{
		DepartureFlightID: 7,
		DepartureOptionID: "economy1",
		PassengerCount:    2,
	})
	require.NoError(t, err)
	_, err = services.Checkin.Continue(first.SessionID)
	require.NoError(t, err)
	created, err := services.Checkin.SubmitPassengers(ctx, first.SessionID, testPassengers())
	require.NoError(t, err)

	// Resume it in a new session.
	view, err := services.Checkin.StartSession(ctx, "tok", &models.StartSessionRequest{
		BookingID: created.BookingID,
	})
	require.NoError(t, err)
	assert.Equal(t, string(checkin.StateFlightReview), view.State)
	assert.Equal(t, created.BookingID, view.BookingID)
	assert.Equal(t, int64(4_000_000), view.TotalAmount)
	require.Len(t, view.Departure.Passengers, 2)
	assert.Equal(t, "An Nguyen", view.Departure.Passengers[0].Name)
	assert.NotEqual(t, first.SessionID, view.SessionID)
}

func TestBackFromSeatSelectionKeepsBooking(t *testing.T) {
	backend := newFakeBackend()
	services := newTestServices(t, backend, nil)
	ctx := context.Background()

	view, err := services.Checkin.StartSession(ctx, "tok", &models.StartSessionRequest{
		DepartureFlightID: 7,
		DepartureOptionID: "economy1",
		PassengerCount:    2,
	})
	require.NoError(t, err)
	_, err = services.Checkin.Continue(view.SessionID)
	require.NoError(t, err)
	_, err = services.Checkin.SubmitPassengers(ctx, view.SessionID, testPassengers())
	require.NoError(t, err)

	back, err := services.Checkin.Back(view.SessionID)
	require.NoError(t, err)
	assert.Equal(t, string(checkin.StatePassengerList), back.State)
	assert.NotZero(t, back.BookingID)

	// A second submission for the same session is refused.
	_, err = services.Checkin.SubmitPassengers(ctx, view.SessionID, testPassengers())
	var validationErr *apperrors.ValidationError
	assert.ErrorAs(t, err, &validationErr)

	// Re-continue reuses the created booking.
	again, err := services.Checkin.Continue(view.SessionID)
	require.NoError(t, err)
	assert.Equal(t, string(checkin.StateSeatSelection), again.State)
}
