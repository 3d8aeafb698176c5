package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "skylane/internal/errors"
	"skylane/internal/service"
)

type Handlers struct {
	services *service.Services
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		services: services,
	}
}

// writeError maps the workflow error taxonomy onto HTTP statuses. Validation
// problems are the caller's, consistency violations conflict with session
// state, upstream trouble is a bad gateway, and the two payment-adjacent
// failures stay distinguishable.
func writeError(c *gin.Context, err error) {
	var validationErr *apperrors.ValidationError
	var paymentErr *apperrors.PaymentError
	var persistErr *apperrors.SeatPersistenceError
	var bookingErr *apperrors.BookingCreationError
	var fetchErr *apperrors.FetchError
	var dataErr *apperrors.DataInvalidError

	switch {
	case errors.As(err, &validationErr),
		errors.Is(err, apperrors.ErrInvalidBasePrice),
		errors.Is(err, apperrors.ErrNoSeatsSelected):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})

	case errors.Is(err, apperrors.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})

	case errors.Is(err, apperrors.ErrSessionBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "A request for this step is already in flight"})

	case errors.Is(err, apperrors.ErrInvalidTransition),
		errors.Is(err, apperrors.ErrStaleResult),
		errors.Is(err, apperrors.ErrFareNotFound),
		errors.Is(err, apperrors.ErrSeatUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, apperrors.ErrSeatConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "seat_conflict"})

	case errors.As(err, &paymentErr):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error(), "code": "payment_failed"})

	case errors.As(err, &persistErr):
		// Payment went through; this must not read as a payment failure.
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "code": "seat_persistence_failed"})

	case errors.As(err, &bookingErr),
		errors.As(err, &fetchErr),
		errors.As(err, &dataErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
