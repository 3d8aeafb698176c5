package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skylane/internal/logger"
	"skylane/internal/models"
)

// Payment step handlers

// CreatePaymentIntent - POST /api/checkin/sessions/:id/payment-intent
func (h *Handlers) CreatePaymentIntent(c *gin.Context) {
	sessionID := c.Param("id")
	ctx := logger.ContextWithSessionID(c.Request.Context(), sessionID)

	intent, err := h.services.Checkin.CreateIntent(ctx, sessionID)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to create payment intent", "error", err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, intent)
}

// ConfirmPayment - POST /api/checkin/sessions/:id/payment-confirm
func (h *Handlers) ConfirmPayment(c *gin.Context) {
	sessionID := c.Param("id")

	var req models.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := logger.ContextWithSessionID(c.Request.Context(), sessionID)
	view, err := h.services.Checkin.ConfirmPayment(ctx, sessionID, &req)
	if err != nil {
		logger.WithContext(ctx).Error("Payment confirmation did not complete", "error", err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}
