package service

import (
	"context"
	"time"

	"skylane/internal/external"
	"skylane/internal/repository"
	"skylane/internal/search"
)

// EventPublisher is the workflow event bus. *messaging.NATSClient satisfies
// it; services tolerate a nil publisher and keep working without the bus.
type EventPublisher interface {
	Publish(subject string, data interface{}) error
}

// SearchCache is the short-TTL flight search cache.
type SearchCache interface {
	GetSearch(ctx context.Context, departureCity, arrivalCity, flightDate string) ([]byte, error)
	SetSearch(ctx context.Context, departureCity, arrivalCity, flightDate string, body []byte) error
}

// SeatHolder fences concurrent sessions off the same physical seat before
// persistence. *cache.ValkeyClient satisfies it.
type SeatHolder interface {
	AcquireSeatHold(ctx context.Context, flightID int64, seatID, sessionID string) (bool, error)
	ReleaseSeatHold(ctx context.Context, flightID int64, seatID, sessionID string) error
}

// FlightSuggester answers suggestion queries from the flight index.
type FlightSuggester interface {
	Suggest(ctx context.Context, q search.SuggestQuery) ([]search.FlightDoc, error)
}

type Services struct {
	Flights     *FlightService
	Checkin     *CheckinService
	Suggestions *SuggestionService
	Tickets     *TicketService
}

type Deps struct {
	Airline    *external.AirlineClient
	Payment    *external.PaymentClient
	Events     EventPublisher
	Cache      SearchCache
	SeatHolds  SeatHolder
	Suggester  FlightSuggester
	Repos      *repository.Repositories
	SessionTTL time.Duration
}

func NewServices(deps Deps) *Services {
	flights := NewFlightService(deps.Airline, deps.Cache, deps.Events)
	checkin := NewCheckinService(deps.Airline, deps.Payment, flights, deps.Events, deps.SeatHolds, deps.Repos, deps.SessionTTL)
	suggestions := NewSuggestionService(deps.Suggester, deps.Airline)
	tickets := NewTicketService(deps.Airline)

	return &Services{
		Flights:     flights,
		Checkin:     checkin,
		Suggestions: suggestions,
		Tickets:     tickets,
	}
}
