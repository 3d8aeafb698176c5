package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"skylane/internal/models"
)

// Flight catalog handlers

// SearchFlights - GET /api/flights/search
func (h *Handlers) SearchFlights(c *gin.Context) {
	departureCity := c.Query("departureCity")
	arrivalCity := c.Query("arrivalCity")
	flightDate := c.Query("flightDate")

	response, err := h.services.Flights.Search(c.Request.Context(), departureCity, arrivalCity, flightDate)
	if err != nil {
		slog.Error("Failed to search flights", "error", err,
			"departure_city", departureCity, "arrival_city", arrivalCity)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetFlight - GET /api/flights/:id
func (h *Handlers) GetFlight(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
		return
	}

	view, err := h.services.Flights.GetByID(c.Request.Context(), id)
	if err != nil {
		slog.Error("Failed to get flight", "error", err, "flight_id", id)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// SuggestedFlights - GET /api/flights/suggested
func (h *Handlers) SuggestedFlights(c *gin.Context) {
	minPrice, _ := strconv.ParseInt(c.DefaultQuery("minPrice", "0"), 10, 64)
	maxPrice, _ := strconv.ParseInt(c.DefaultQuery("maxPrice", "0"), 10, 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	req := &models.SuggestedFlightsRequest{
		MinPrice:        minPrice,
		MaxPrice:        maxPrice,
		DepartureWindow: c.DefaultQuery("departureWindow", "all"),
		Limit:           limit,
	}

	flights, err := h.services.Suggestions.Suggest(c.Request.Context(), req)
	if err != nil {
		slog.Error("Failed to list suggested flights", "error", err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"flights": flights})
}
