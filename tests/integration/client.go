package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"skylane/internal/models"
)

// TestClient drives the check-in API over HTTP.
type TestClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewTestClient(baseURL, token string) *TestClient {
	return &TestClient{
		BaseURL: baseURL,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *TestClient) makeRequest(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reqBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

func decode[T any](t *testing.T, resp *http.Response, wantStatus int) *T {
	t.Helper()
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status %d, got %d: %s", wantStatus, resp.StatusCode, body)
	}

	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return &out
}

func (c *TestClient) SearchFlights(t *testing.T, departureCity, arrivalCity, flightDate string) *models.SearchFlightsResponse {
	path := fmt.Sprintf("/api/flights/search?departureCity=%s&arrivalCity=%s&flightDate=%s",
		departureCity, arrivalCity, flightDate)
	resp := c.makeRequest(t, "GET", path, nil)
	return decode[models.SearchFlightsResponse](t, resp, http.StatusOK)
}

func (c *TestClient) StartSession(t *testing.T, req *models.StartSessionRequest) *models.SessionView {
	resp := c.makeRequest(t, "POST", "/api/checkin/sessions", req)
	return decode[models.SessionView](t, resp, http.StatusCreated)
}

func (c *TestClient) GetSession(t *testing.T, sessionID string) *models.SessionView {
	resp := c.makeRequest(t, "GET", "/api/checkin/sessions/"+sessionID, nil)
	return decode[models.SessionView](t, resp, http.StatusOK)
}

func (c *TestClient) Continue(t *testing.T, sessionID string) *models.SessionView {
	resp := c.makeRequest(t, "POST", "/api/checkin/sessions/"+sessionID+"/continue", nil)
	return decode[models.SessionView](t, resp, http.StatusOK)
}

func (c *TestClient) Back(t *testing.T, sessionID string) *models.SessionView {
	resp := c.makeRequest(t, "POST", "/api/checkin/sessions/"+sessionID+"/back", nil)
	return decode[models.SessionView](t, resp, http.StatusOK)
}

func (c *TestClient) SubmitPassengers(t *testing.T, sessionID string, req *models.SubmitPassengersRequest) *models.SessionView {
	resp := c.makeRequest(t, "POST", "/api/checkin/sessions/"+sessionID+"/passengers", req)
	return decode[models.SessionView](t, resp, http.StatusOK)
}

func (c *TestClient) AssignSeat(t *testing.T, sessionID string, req *models.AssignSeatRequest) *models.SessionView {
	resp := c.makeRequest(t, "POST", "/api/checkin/sessions/"+sessionID+"/seats", req)
	return decode[models.SessionView](t, resp, http.StatusOK)
}

func (c *TestClient) SwitchLeg(t *testing.T, sessionID string, leg models.Leg) *models.SessionView {
	resp := c.makeRequest(t, "POST", "/api/checkin/sessions/"+sessionID+"/leg", &models.SwitchLegRequest{Leg: leg})
	return decode[models.SessionView](t, resp, http.StatusOK)
}

func (c *TestClient) CreatePaymentIntent(t *testing.T, sessionID string) *models.PaymentIntentResponse {
	resp := c.makeRequest(t, "POST", "/api/checkin/sessions/"+sessionID+"/payment-intent", nil)
	return decode[models.PaymentIntentResponse](t, resp, http.StatusCreated)
}

func (c *TestClient) ConfirmPayment(t *testing.T, sessionID string, req *models.ConfirmPaymentRequest) *models.SessionView {
	resp := c.makeRequest(t, "POST", "/api/checkin/sessions/"+sessionID+"/payment-confirm", req)
	return decode[models.SessionView](t, resp, http.StatusOK)
}
