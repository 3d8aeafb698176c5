package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "skylane/internal/errors"
	"skylane/internal/external"
	"skylane/internal/fares"
	"skylane/internal/logger"
	"skylane/internal/metrics"
	"skylane/internal/models"
)

// FlightService fetches and normalizes flight records. Search responses are
// cached for one page view; by-id lookups always re-fetch.
type FlightService struct {
	airline *external.AirlineClient
	cache   SearchCache
	events  EventPublisher
}

func NewFlightService(airline *external.AirlineClient, searchCache SearchCache, events EventPublisher) *FlightService {
	return &FlightService{
		airline: airline,
		cache:   searchCache,
		events:  events,
	}
}

// ValidateSearch rejects malformed search input before any network call.
func ValidateSearch(departureCity, arrivalCity, flightDate string) error {
	if departureCity == "" {
		return &apperrors.ValidationError{Field: "departureCity", Reason: "required"}
	}
	if arrivalCity == "" {
		return &apperrors.ValidationError{Field: "arrivalCity", Reason: "required"}
	}
	if departureCity == arrivalCity {
		return &apperrors.ValidationError{Field: "arrivalCity", Reason: "must differ from departure city"}
	}
	if flightDate == "" {
		return &apperrors.ValidationError{Field: "flightDate", Reason: "required"}
	}
	if _, err := time.Parse("2006-01-02", flightDate); err != nil {
		return &apperrors.ValidationError{Field: "flightDate", Reason: "must be yyyy-MM-dd"}
	}
	return nil
}

// Search returns normalized one-way availability for a route and date.
func (s *FlightService) Search(ctx context.Context, departureCity, arrivalCity, flightDate string) (*models.SearchFlightsResponse, error) {
	if err := ValidateSearch(departureCity, arrivalCity, flightDate); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if body, err := s.cache.GetSearch(ctx, departureCity, arrivalCity, flightDate); err == nil && body != nil {
			var cached models.SearchFlightsResponse
			if err := json.Unmarshal(body, &cached); err == nil {
				metrics.SearchCacheHits.WithLabelValues("hit").Inc()
				return &cached, nil
			}
		}
		metrics.SearchCacheHits.WithLabelValues("miss").Inc()
	}

	flights, err := s.airline.SearchFlights(ctx, departureCity, arrivalCity, flightDate)
	if err != nil {
		return nil, err
	}

	response := &models.SearchFlightsResponse{Flights: make([]models.FlightView, 0, len(flights))}
	for i := range flights {
		view, err := Normalize(&flights[i])
		if err != nil {
			return nil, err
		}
		response.Flights = append(response.Flights, *view)
	}

	if s.cache != nil {
		if body, err := json.Marshal(response); err == nil {
			if err := s.cache.SetSearch(ctx, departureCity, arrivalCity, flightDate, body); err != nil {
				logger.WithContext(ctx).Warn("Failed to cache search response", "error", err)
			}
		}
	}

	if s.events != nil {
		event := models.FlightSearchedEvent{
			DepartureCity: departureCity,
			ArrivalCity:   arrivalCity,
			FlightDate:    flightDate,
			Flights:       response.Flights,
			Timestamp:     time.Now(),
		}
		if err := s.events.Publish(models.EventFlightSearched, event); err != nil {
			logger.WithContext(ctx).Error("Failed to publish flight searched event", "error", err)
		}
	}

	return response, nil
}

// GetByID fetches and normalizes a single flight.
func (s *FlightService) GetByID(ctx context.Context, flightID int64) (*models.FlightView, error) {
	flight, err := s.airline.GetFlight(ctx, flightID)
	if err != nil {
		return nil, err
	}
	return Normalize(flight)
}

// ResolveOption fetches a flight and resolves the fare option a purchase
// refers to. A stale option id fails with ErrFareNotFound.
func (s *FlightService) ResolveOption(ctx context.Context, flightID int64, optionID string) (*models.FlightView, fares.Option, error) {
	view, err := s.GetByID(ctx, flightID)
	if err != nil {
		return nil, fares.Option{}, err
	}

	options, err := fares.DeriveAll(view.EconomyPrice)
	if err != nil {
		return nil, fares.Option{}, err
	}
	option, err := fares.Select(options, optionID)
	if err != nil {
		return nil, fares.Option{}, err
	}
	return view, option, nil
}

// Normalize turns a raw upstream record into the display model: parsed times,
// whole-minute duration, business price at the fixed multiplier and the fare
// options for both cabins.
func Normalize(flight *models.Flight) (*models.FlightView, error) {
	if flight.BasePrice <= 0 {
		return nil, &apperrors.DataInvalidError{Op: "flight normalize", Field: "basePrice"}
	}
	departure := flight.DepartureTime.Time
	arrival := flight.ArrivalTime.Time
	if !arrival.After(departure) {
		return nil, &apperrors.DataInvalidError{Op: "flight normalize", Field: "arrivalTime"}
	}

	economyOptions, err := fares.Derive(flight.BasePrice, fares.CabinEconomy)
	if err != nil {
		return nil, err
	}
	businessPrice := fares.BusinessBase(flight.BasePrice)
	businessOptions, err := fares.Derive(businessPrice, fares.CabinBusiness)
	if err != nil {
		return nil, err
	}

	return &models.FlightView{
		ID:               flight.FlightID,
		FlightNumber:     flight.FlightNumber,
		Airline:          flight.Airline,
		Aircraft:         flight.AircraftType,
		DepartureCity:    flight.DepartureCity,
		ArrivalCity:      flight.ArrivalCity,
		DepartureAirport: flight.DepartureAirport,
		ArrivalAirport:   flight.ArrivalAirport,
		DepartureTimeRaw: departure.Format(time.RFC3339),
		ArrivalTimeRaw:   arrival.Format(time.RFC3339),
		DepartureTime:    departure.Format("15:04"),
		ArrivalTime:      arrival.Format("15:04"),
		DepartureDate:    departure.Format("2006-01-02"),
		Duration:         formatDuration(arrival.Sub(departure)),
		EconomyPrice:     flight.BasePrice,
		BusinessPrice:    businessPrice,
		SeatsLeft:        seatsLeftPlaceholder(flight.FlightID),
		EconomyOptions:   economyOptions,
		BusinessOptions:  businessOptions,
	}, nil
}

// formatDuration floors to whole minutes and renders "Hh Mm".
func formatDuration(d time.Duration) string {
	minutes := int64(d.Minutes())
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

// seatsLeftPlaceholder stands in for real availability, which lives in the
// reservation service. Deterministic per flight so repeated views agree.
func seatsLeftPlaceholder(flightID int64) int {
	return int(20 + flightID%60)
}
