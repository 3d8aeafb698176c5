package seatmap

import (
	"fmt"
	"math/rand"

	apperrors "skylane/internal/errors"
)

// Status of a single seat in the cabin grid.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusUnavailable Status = "unavailable"
	StatusBlocked     Status = "blocked"
	StatusSelected    Status = "selected"
)

// Seat is one position in the cabin grid, identified by row+column ("12A").
type Seat struct {
	ID     string `json:"id"`
	Row    int    `json:"row"`
	Column string `json:"column"`
	Status Status `json:"status"`
}

// DefaultRowCount and DefaultColumns describe the single narrow-body layout
// in service. Rows 18 and 32 are emergency-exit rows and stay blocked.
const DefaultRowCount = 44

var DefaultColumns = []string{"A", "B", "C", "D", "E", "G"}

var blockedRows = map[int]bool{18: true, 32: true}

// unavailableRatio is the share of seats marked unavailable in the sample
// map. Real inventory comes from the reservation service; this stands in
// until seat persistence, which is conditional on a hold.
const unavailableRatio = 0.3

// Generate builds a seat grid. The random source decides which seats are
// unavailable, so tests inject a fixed seed.
func Generate(rowCount int, columns []string, rng *rand.Rand) []Seat {
	seats := make([]Seat, 0, rowCount*len(columns))
	for row := 1; row <= rowCount; row++ {
		for _, col := range columns {
			status := StatusAvailable
			if blockedRows[row] {
				status = StatusBlocked
			} else if rng.Float64() < unavailableRatio {
				status = StatusUnavailable
			}
			seats = append(seats, Seat{
				ID:     fmt.Sprintf("%d%s", row, col),
				Row:    row,
				Column: col,
				Status: status,
			})
		}
	}
	return seats
}

// Map binds a seat grid to the passengers of one trip leg. Assignments keep
// selected seats in bijection with seated passengers: a passenger holds at
// most one seat and no seat is selected by two passengers.
type Map struct {
	Seats      []Seat
	assignment map[int64]string // ticket id -> seat id
}

// New wraps a generated grid with an empty assignment.
func New(seats []Seat) *Map {
	return &Map{
		Seats:      seats,
		assignment: make(map[int64]string),
	}
}

// SeatFor returns the seat currently assigned to a passenger, if any.
func (m *Map) SeatFor(ticketID int64) (string, bool) {
	seatID, ok := m.assignment[ticketID]
	return seatID, ok
}

// Assignments returns a copy of the passenger -> seat binding.
func (m *Map) Assignments() map[int64]string {
	out := make(map[int64]string, len(m.assignment))
	for ticketID, seatID := range m.assignment {
		out[ticketID] = seatID
	}
	return out
}

// Assign marks seatID selected for the passenger. A previously held seat of
// the same passenger reverts to available; every other seat is untouched.
func (m *Map) Assign(seatID string, ticketID int64) error {
	idx := -1
	for i, seat := range m.Seats {
		if seat.ID == seatID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("assign seat %q: %w", seatID, apperrors.ErrSeatUnavailable)
	}

	switch m.Seats[idx].Status {
	case StatusAvailable:
	case StatusSelected:
		// Selected seats belong to some passenger already. Re-selecting your
		// own seat is a no-op; taking another passenger's seat is refused.
		if m.assignment[ticketID] == seatID {
			return nil
		}
		return fmt.Errorf("assign seat %q: %w", seatID, apperrors.ErrSeatUnavailable)
	default:
		return fmt.Errorf("assign seat %q: %w", seatID, apperrors.ErrSeatUnavailable)
	}

	if prev, ok := m.assignment[ticketID]; ok {
		for i, seat := range m.Seats {
			if seat.ID == prev {
				m.Seats[i].Status = StatusAvailable
				break
			}
		}
	}

	m.Seats[idx].Status = StatusSelected
	m.assignment[ticketID] = seatID
	return nil
}

// SeatUpdate is one row of the persistence payload sent to the ticket API.
type SeatUpdate struct {
	TicketID int64  `json:"ticketId"`
	SeatCode string `json:"seatCode"`
}

// PersistencePayload lists the seat codes to save, in passenger order,
// skipping passengers without an assigned seat. An empty result is an error:
// there is nothing to persist.
func PersistencePayload(maps []*Map, order []int64) ([]SeatUpdate, error) {
	var payload []SeatUpdate
	for _, ticketID := range order {
		for _, m := range maps {
			if seatID, ok := m.assignment[ticketID]; ok {
				payload = append(payload, SeatUpdate{TicketID: ticketID, SeatCode: seatID})
			}
		}
	}
	if len(payload) == 0 {
		return nil, apperrors.ErrNoSeatsSelected
	}
	return payload, nil
}
