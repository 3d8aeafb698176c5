package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"skylane/internal/middleware"
)

// Ticket management passthrough handlers (admin collaborator surface).

// GetTicket - GET /api/tickets?id=
func (h *Handlers) GetTicket(c *gin.Context) {
	token, ok := middleware.TokenFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	id, _ := strconv.ParseInt(c.Query("id"), 10, 64)
	ticket, err := h.services.Tickets.Get(c.Request.Context(), token, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// CancelTicket - PUT /api/tickets/cancel?id=
func (h *Handlers) CancelTicket(c *gin.Context) {
	token, ok := middleware.TokenFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	id, _ := strconv.ParseInt(c.Query("id"), 10, 64)
	if err := h.services.Tickets.Cancel(c.Request.Context(), token, id); err != nil {
		slog.Error("Failed to cancel ticket", "error", err, "ticket_id", id)
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}
