package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the check-in workflow. Handlers map these to HTTP
// statuses; services wrap them with context via fmt.Errorf and %w.
var (
	ErrInvalidBasePrice  = errors.New("base price must be a positive amount")
	ErrFareNotFound      = errors.New("fare option not found on flight")
	ErrSeatUnavailable   = errors.New("seat is blocked or unavailable")
	ErrNoSeatsSelected   = errors.New("no seats selected to persist")
	ErrSeatConflict      = errors.New("seat is held by another session")
	ErrSessionNotFound   = errors.New("check-in session not found")
	ErrSessionBusy       = errors.New("session has a request in flight")
	ErrInvalidTransition = errors.New("transition not allowed in current state")
	ErrStaleResult       = errors.New("result discarded: session moved on")
	ErrUnauthorized      = errors.New("caller is not authorized")
)

// FetchError reports a failed call to the upstream airline API. Terminal for
// the current step; the user may retry the step.
type FetchError struct {
	Op     string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: upstream returned %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DataInvalidError reports an upstream payload missing expected fields.
type DataInvalidError struct {
	Op    string
	Field string
}

func (e *DataInvalidError) Error() string {
	return fmt.Sprintf("%s: response missing %s", e.Op, e.Field)
}

// ValidationError reports malformed user input. Handled entirely within the
// step that produced it and never forwarded upstream.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// BookingCreationError carries the upstream message, when present, so the
// user sees why the booking was rejected.
type BookingCreationError struct {
	Message string
	Err     error
}

func (e *BookingCreationError) Error() string {
	if e.Message != "" {
		return "booking creation failed: " + e.Message
	}
	return fmt.Sprintf("booking creation failed: %v", e.Err)
}

func (e *BookingCreationError) Unwrap() error { return e.Err }

// PaymentError is a provider-reported failure. Retryable by resubmitting the
// payment form, never automatically.
type PaymentError struct {
	Reason string
}

func (e *PaymentError) Error() string {
	return "payment failed: " + e.Reason
}

// SeatPersistenceError means payment succeeded but the seat save did not.
// Surfaced distinctly so the user is never told seats are confirmed when they
// are not.
type SeatPersistenceError struct {
	Err error
}

func (e *SeatPersistenceError) Error() string {
	return fmt.Sprintf("seats not saved after payment: %v", e.Err)
}

func (e *SeatPersistenceError) Unwrap() error { return e.Err }
