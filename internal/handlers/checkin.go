package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"skylane/internal/logger"
	"skylane/internal/middleware"
	"skylane/internal/models"
)

// Check-in workflow handlers. All routes sit behind BearerAuth; the session
// keeps the token it was opened with for its upstream calls.

// StartSession - POST /api/checkin/sessions
func (h *Handlers) StartSession(c *gin.Context) {
	token, ok := middleware.TokenFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.services.Checkin.StartSession(c.Request.Context(), token, &req)
	if err != nil {
		slog.Error("Failed to start check-in session", "error", err, "booking_id", req.BookingID)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

// GetSession - GET /api/checkin/sessions/:id
func (h *Handlers) GetSession(c *gin.Context) {
	view, err := h.services.Checkin.GetSession(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ContinueSession - POST /api/checkin/sessions/:id/continue
func (h *Handlers) ContinueSession(c *gin.Context) {
	view, err := h.services.Checkin.Continue(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// BackSession - POST /api/checkin/sessions/:id/back
func (h *Handlers) BackSession(c *gin.Context) {
	view, err := h.services.Checkin.Back(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SubmitPassengers - POST /api/checkin/sessions/:id/passengers
func (h *Handlers) SubmitPassengers(c *gin.Context) {
	sessionID := c.Param("id")

	var req models.SubmitPassengersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := logger.ContextWithSessionID(c.Request.Context(), sessionID)
	view, err := h.services.Checkin.SubmitPassengers(ctx, sessionID, &req)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to submit passengers", "error", err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// AssignSeat - POST /api/checkin/sessions/:id/seats
func (h *Handlers) AssignSeat(c *gin.Context) {
	var req models.AssignSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.services.Checkin.AssignSeat(c.Param("id"), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SwitchLeg - POST /api/checkin/sessions/:id/leg
func (h *Handlers) SwitchLeg(c *gin.Context) {
	var req models.SwitchLegRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.services.Checkin.SwitchLeg(c.Param("id"), req.Leg)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetArchivedCheckin - GET /api/checkin/archive/:id
func (h *Handlers) GetArchivedCheckin(c *gin.Context) {
	record, err := h.services.Checkin.ArchivedCheckin(c.Request.Context(), c.Param("id"))
	if err != nil {
		slog.Error("Failed to load archived check-in", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load archived check-in"})
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Check-in not found"})
		return
	}
	c.JSON(http.StatusOK, record)
}

// GetArchivedEvents - GET /api/checkin/archive/:id/events
func (h *Handlers) GetArchivedEvents(c *gin.Context) {
	sessionID := c.Param("id")

	events, err := h.services.Checkin.ArchivedEvents(c.Request.Context(), sessionID)
	if err != nil {
		slog.Error("Failed to load archived events", "session_id", sessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load archived events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessionId": sessionID,
		"events":    events,
	})
}

// ListArchivedCheckins - GET /api/checkin/archive?bookingId=
func (h *Handlers) ListArchivedCheckins(c *gin.Context) {
	bookingID, err := strconv.ParseInt(c.Query("bookingId"), 10, 64)
	if err != nil || bookingID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bookingId must be a positive integer"})
		return
	}

	records, err := h.services.Checkin.ArchivedCheckinsForBooking(c.Request.Context(), bookingID)
	if err != nil {
		slog.Error("Failed to list archived check-ins", "booking_id", bookingID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list archived check-ins"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bookingId": bookingID,
		"checkins":  records,
	})
}
