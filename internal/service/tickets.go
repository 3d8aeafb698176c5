package service

import (
	"context"

	apperrors "skylane/internal/errors"
	"skylane/internal/external"
	"skylane/internal/models"
)

// TicketService is the thin ticket-management passthrough used by the admin
// collaborator: single-ticket lookup and cancellation.
type TicketService struct {
	airline *external.AirlineClient
}

func NewTicketService(airline *external.AirlineClient) *TicketService {
	return &TicketService{airline: airline}
}

func (s *TicketService) Get(ctx context.Context, token string, ticketID int64) (*models.Ticket, error) {
	if ticketID <= 0 {
		return nil, &apperrors.ValidationError{Field: "id", Reason: "must be a positive integer"}
	}
	return s.airline.GetTicket(ctx, token, ticketID)
}

func (s *TicketService) Cancel(ctx context.Context, token string, ticketID int64) error {
	if ticketID <= 0 {
		return &apperrors.ValidationError{Field: "id", Reason: "must be a positive integer"}
	}
	return s.airline.CancelTicket(ctx, token, ticketID)
}
