package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	apperrors "skylane/internal/errors"
	"skylane/internal/models"
	"skylane/internal/seatmap"
)

// AirlineClient talks to the airline core API: flight inventory, bookings and
// tickets. Authenticated calls take the caller's bearer token explicitly;
// the client holds no ambient credential.
type AirlineClient struct {
	baseURL    string
	httpClient *http.Client
}

type AirlineConfig struct {
	BaseURL string
	Timeout time.Duration
}

// envelope is the {data, message} wrapper the airline API puts around every
// JSON response.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// CreateBookingRequest is the booking creation body. ReturnTicketDataList is
// a pointer so a one-way booking omits the field entirely; its absence is
// meaningful to the airline API.
type CreateBookingRequest struct {
	DepartureCity           string           `json:"departureCity"`
	ArrivalCity             string           `json:"arrivalCity"`
	DepartureFlightID       int64            `json:"departureFlightId"`
	ReturnFlightID          *int64           `json:"returnFlightId,omitempty"`
	TripType                models.TripType  `json:"tripType"`
	DepartureTicketDataList []TicketData     `json:"departureTicketDataList"`
	ReturnTicketDataList    *[]TicketData    `json:"returnTicketDataList,omitempty"`
}

// TicketData is one ticket-creation request within a booking.
type TicketData struct {
	Price       int64              `json:"price"`
	FlightClass string             `json:"flightClass"`
	OwnerData   models.TicketOwner `json:"ownerData"`
}

type createBookingData struct {
	BookingID int64 `json:"bookingId"`
}

func NewAirlineClient(cfg AirlineConfig) *AirlineClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &AirlineClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (ac *AirlineClient) get(ctx context.Context, op, path, token string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ac.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ac.httpClient.Do(req)
	if err != nil {
		return &apperrors.FetchError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &apperrors.FetchError{Op: op, Status: resp.StatusCode}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &apperrors.FetchError{Op: op, Err: err}
	}
	if env.Data == nil {
		return &apperrors.DataInvalidError{Op: op, Field: "data"}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &apperrors.FetchError{Op: op, Err: err}
	}
	return nil
}

// SearchFlights queries one-way availability for a route and date. Each call
// re-fetches; the client makes no caching guarantees.
func (ac *AirlineClient) SearchFlights(ctx context.Context, departureCity, arrivalCity, flightDate string) ([]models.Flight, error) {
	query := url.Values{}
	query.Set("departureCity", departureCity)
	query.Set("arrivalCity", arrivalCity)
	query.Set("flightDate", flightDate)

	var flights []models.Flight
	if err := ac.get(ctx, "flight search", "/api/flight/search?"+query.Encode(), "", &flights); err != nil {
		return nil, err
	}
	return flights, nil
}

// ListFlights pages through the full flight inventory; the suggestion index
// is warmed from it.
func (ac *AirlineClient) ListFlights(ctx context.Context, page, limit int) ([]models.Flight, error) {
	path := fmt.Sprintf("/api/flight?page=%d&limit=%d", page, limit)

	var flights []models.Flight
	if err := ac.get(ctx, "flight list", path, "", &flights); err != nil {
		return nil, err
	}
	return flights, nil
}

// GetFlight fetches a single flight record.
func (ac *AirlineClient) GetFlight(ctx context.Context, flightID int64) (*models.Flight, error) {
	var flight models.Flight
	if err := ac.get(ctx, "flight lookup", fmt.Sprintf("/api/flight/%d", flightID), "", &flight); err != nil {
		return nil, err
	}
	if flight.FlightID == 0 {
		flight.FlightID = flightID
	}
	if flight.DepartureTime.IsZero() || flight.ArrivalTime.IsZero() {
		return nil, &apperrors.DataInvalidError{Op: "flight lookup", Field: "departureTime/arrivalTime"}
	}
	return &flight, nil
}

// CreateBooking submits a booking with its per-leg ticket lists and returns
// the server-issued booking id. The upstream rejection message, when present,
// is surfaced to the user.
func (ac *AirlineClient) CreateBooking(ctx context.Context, token string, booking *CreateBookingRequest) (int64, error) {
	jsonBody, err := json.Marshal(booking)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal booking: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ac.baseURL+"/api/booking", bytes.NewBuffer(jsonBody))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := ac.httpClient.Do(req)
	if err != nil {
		return 0, &apperrors.BookingCreationError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env envelope
		_ = json.NewDecoder(resp.Body).Decode(&env)
		return 0, &apperrors.BookingCreationError{
			Message: env.Message,
			Err:     fmt.Errorf("unexpected status code: %d", resp.StatusCode),
		}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return 0, &apperrors.BookingCreationError{Err: err}
	}
	var data createBookingData
	if env.Data == nil || json.Unmarshal(env.Data, &data) != nil || data.BookingID == 0 {
		return 0, &apperrors.BookingCreationError{Err: &apperrors.DataInvalidError{Op: "booking create", Field: "bookingId"}}
	}

	return data.BookingID, nil
}

// GetBooking fetches a booking with its per-leg ticket id lists.
func (ac *AirlineClient) GetBooking(ctx context.Context, token string, bookingID int64) (*models.Booking, error) {
	var booking models.Booking
	if err := ac.get(ctx, "booking lookup", fmt.Sprintf("/api/booking?id=%d", bookingID), token, &booking); err != nil {
		return nil, err
	}
	if booking.BookingID == 0 {
		booking.BookingID = bookingID
	}
	if booking.TripType == "" {
		return nil, &apperrors.DataInvalidError{Op: "booking lookup", Field: "tripType"}
	}
	return &booking, nil
}

// GetTicket fetches a single ticket with its owner data.
func (ac *AirlineClient) GetTicket(ctx context.Context, token string, ticketID int64) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := ac.get(ctx, "ticket lookup", fmt.Sprintf("/api/ticket?id=%d", ticketID), token, &ticket); err != nil {
		return nil, err
	}
	if ticket.TicketID == 0 {
		ticket.TicketID = ticketID
	}
	return &ticket, nil
}

// UpdateSeats persists seat codes onto tickets. Called only after the payment
// provider reports success.
func (ac *AirlineClient) UpdateSeats(ctx context.Context, token string, updates []seatmap.SeatUpdate) error {
	jsonBody, err := json.Marshal(updates)
	if err != nil {
		return fmt.Errorf("failed to marshal seat updates: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, ac.baseURL+"/api/ticket/update-seats", bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := ac.httpClient.Do(req)
	if err != nil {
		return &apperrors.FetchError{Op: "seat update", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &apperrors.FetchError{Op: "seat update", Status: resp.StatusCode}
	}
	return nil
}

// CancelTicket voids a ticket. Admin-side operation, passed through for the
// ticket-management collaborator.
func (ac *AirlineClient) CancelTicket(ctx context.Context, token string, ticketID int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, fmt.Sprintf("%s/api/ticket/cancel?id=%d", ac.baseURL, ticketID), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := ac.httpClient.Do(req)
	if err != nil {
		return &apperrors.FetchError{Op: "ticket cancel", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &apperrors.FetchError{Op: "ticket cancel", Status: resp.StatusCode}
	}
	return nil
}
