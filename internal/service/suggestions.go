package service

import (
	"context"

	apperrors "skylane/internal/errors"
	"skylane/internal/external"
	"skylane/internal/logger"
	"skylane/internal/models"
	"skylane/internal/search"
)

// SuggestionService serves the home-page flight suggestions: budget- and
// departure-window-filtered flights from the search index, with a live
// airline-API fallback when the index is unreachable.
type SuggestionService struct {
	suggester FlightSuggester
	airline   *external.AirlineClient
}

func NewSuggestionService(suggester FlightSuggester, airline *external.AirlineClient) *SuggestionService {
	return &SuggestionService{
		suggester: suggester,
		airline:   airline,
	}
}

func (s *SuggestionService) Suggest(ctx context.Context, req *models.SuggestedFlightsRequest) ([]models.FlightView, error) {
	if req.MinPrice < 0 || req.MaxPrice < 0 {
		return nil, &apperrors.ValidationError{Field: "minPrice", Reason: "must not be negative"}
	}
	if req.MaxPrice > 0 && req.MinPrice > req.MaxPrice {
		return nil, &apperrors.ValidationError{Field: "maxPrice", Reason: "must be at least minPrice"}
	}
	switch req.DepartureWindow {
	case "", "all", "morning", "afternoon", "evening":
	default:
		return nil, &apperrors.ValidationError{Field: "departureWindow", Reason: "must be all, morning, afternoon or evening"}
	}

	limit := req.Limit
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	if s.suggester != nil {
		docs, err := s.suggester.Suggest(ctx, search.SuggestQuery{
			MinPrice: req.MinPrice,
			MaxPrice: req.MaxPrice,
			Window:   req.DepartureWindow,
			Limit:    limit,
		})
		if err == nil {
			return viewsFromDocs(docs)
		}
		logger.WithContext(ctx).Warn("Suggestion index unavailable, falling back to airline API", "error", err)
	}

	return s.fallback(ctx, req, limit)
}

// fallback lists inventory from the airline API and applies the filters
// in-process.
func (s *SuggestionService) fallback(ctx context.Context, req *models.SuggestedFlightsRequest, limit int) ([]models.FlightView, error) {
	flights, err := s.airline.ListFlights(ctx, 1, limit*3)
	if err != nil {
		return nil, err
	}

	var views []models.FlightView
	for i := range flights {
		view, err := Normalize(&flights[i])
		if err != nil {
			continue
		}
		if req.MinPrice > 0 && view.EconomyPrice < req.MinPrice {
			continue
		}
		if req.MaxPrice > 0 && view.EconomyPrice > req.MaxPrice {
			continue
		}
		if !inWindow(flights[i].DepartureTime.Hour(), req.DepartureWindow) {
			continue
		}
		views = append(views, *view)
		if len(views) == limit {
			break
		}
	}
	return views, nil
}

func inWindow(hour int, window string) bool {
	switch window {
	case "morning":
		return hour < 12
	case "afternoon":
		return hour >= 12 && hour < 18
	case "evening":
		return hour >= 18
	default:
		return true
	}
}

func viewsFromDocs(docs []search.FlightDoc) ([]models.FlightView, error) {
	views := make([]models.FlightView, 0, len(docs))
	for _, doc := range docs {
		flight := models.Flight{
			FlightID:      doc.ID,
			FlightNumber:  doc.FlightNumber,
			Airline:       doc.Airline,
			DepartureCity: doc.DepartureCity,
			ArrivalCity:   doc.ArrivalCity,
			DepartureTime: models.FlexTime{Time: doc.DepartureTime},
			ArrivalTime:   models.FlexTime{Time: doc.ArrivalTime},
			BasePrice:     doc.EconomyPrice,
		}
		view, err := Normalize(&flight)
		if err != nil {
			// A malformed document should not sink the whole listing.
			continue
		}
		views = append(views, *view)
	}
	return views, nil
}
