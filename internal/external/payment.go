package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	apperrors "skylane/internal/errors"
)

// PaymentClient is the external payment-provider boundary. The core only
// requests an intent, hands the client secret to the hosted form and consumes
// the terminal confirm result.
type PaymentClient struct {
	baseURL    string
	httpClient *http.Client
}

type PaymentConfig struct {
	BaseURL string
	Timeout time.Duration
}

type paymentIntentRequest struct {
	BookingID int64  `json:"booking_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

type paymentIntentResponse struct {
	ClientSecret string `json:"client_secret"`
}

type confirmRequest struct {
	ClientSecret    string `json:"client_secret"`
	PaymentMethodID string `json:"payment_method"`
}

type confirmResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ConfirmResult is the provider's terminal verdict on one confirmation
// attempt. It is authoritative; failed payments are only retried by the user
// resubmitting the form.
type ConfirmResult struct {
	Success bool
	Reason  string
}

func NewPaymentClient(cfg PaymentConfig) *PaymentClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &PaymentClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// CreateIntent registers a payment intent for a booking and returns the
// client secret. Callers validate amount and currency before invoking; this
// never goes to the network with partial data.
func (pc *PaymentClient) CreateIntent(ctx context.Context, bookingID, amount int64, currency string) (string, error) {
	if amount <= 0 {
		return "", &apperrors.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if currency == "" {
		return "", &apperrors.ValidationError{Field: "currency", Reason: "must not be empty"}
	}

	jsonBody, err := json.Marshal(paymentIntentRequest{
		BookingID: bookingID,
		Amount:    amount,
		Currency:  currency,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pc.baseURL+"/api/payment-intents", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := pc.httpClient.Do(req)
	if err != nil {
		return "", &apperrors.FetchError{Op: "payment intent", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &apperrors.FetchError{Op: "payment intent", Status: resp.StatusCode}
	}

	var result paymentIntentResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &apperrors.FetchError{Op: "payment intent", Err: err}
	}
	if result.ClientSecret == "" {
		return "", &apperrors.DataInvalidError{Op: "payment intent", Field: "client_secret"}
	}

	return result.ClientSecret, nil
}

// Confirm submits the payment form state against an intent. A reachable
// provider always yields a terminal result; transport failures come back as
// FetchError so the user can resubmit.
func (pc *PaymentClient) Confirm(ctx context.Context, clientSecret, paymentMethodID string) (*ConfirmResult, error) {
	jsonBody, err := json.Marshal(confirmRequest{
		ClientSecret:    clientSecret,
		PaymentMethodID: paymentMethodID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pc.baseURL+"/api/payment-intents/confirm", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := pc.httpClient.Do(req)
	if err != nil {
		return nil, &apperrors.FetchError{Op: "payment confirm", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &apperrors.FetchError{Op: "payment confirm", Status: resp.StatusCode}
	}

	var result confirmResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &apperrors.FetchError{Op: "payment confirm", Err: err}
	}

	if result.Status != "succeeded" {
		reason := result.Error
		if reason == "" {
			reason = result.Status
		}
		return &ConfirmResult{Success: false, Reason: reason}, nil
	}
	return &ConfirmResult{Success: true}, nil
}
