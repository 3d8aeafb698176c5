package checkin

import (
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "skylane/internal/errors"
	"skylane/internal/fares"
	"skylane/internal/models"
	"skylane/internal/seatmap"
)

// State is one step of the check-in workflow. Steps advance only on explicit
// confirmation and never skip.
type State string

const (
	StateFlightReview  State = "flight_review"
	StatePassengerList State = "passenger_list"
	StateSeatSelection State = "seat_selection"
	StatePayment       State = "payment"
	StateConfirmation  State = "confirmation"
)

var forwardTransitions = map[State]State{
	StateFlightReview:  StatePassengerList,
	StatePassengerList: StateSeatSelection,
	StateSeatSelection: StatePayment,
	StatePayment:       StateConfirmation,
}

var backTransitions = map[State]State{
	StatePassengerList: StateFlightReview,
	StateSeatSelection: StatePassengerList,
	StatePayment:       StateSeatSelection,
}

// LegContext is one trip leg's working set: the reviewed flight, the chosen
// fare, the issued tickets and the in-progress seat map. The two legs of a
// round trip are independent contexts; switching never clears either.
type LegContext struct {
	Flight  *models.FlightView
	Option  fares.Option
	Tickets []models.Ticket
	Seats   *seatmap.Map
}

// Session is one workflow instance. It exclusively owns its Booking/Ticket/
// Seat working set; all mutation goes through the locked methods or a Commit
// callback. Display reads are snapshots.
type Session struct {
	mu sync.Mutex

	ID       string
	Token    string
	State    State
	TripType models.TripType

	BookingID      int64
	PassengerCount int
	Passengers     []models.PassengerInput

	ActiveLeg models.Leg
	Departure *LegContext
	Return    *LegContext

	ClientSecret string
	TotalAmount  int64
	Currency     string
	PaidAt       time.Time

	// revision fences async results: back navigation bumps it, and a commit
	// carrying an older revision is discarded instead of applied.
	revision int64
	// inFlight blocks duplicate submission while a network call for the
	// current step is unresolved.
	inFlight bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewSession(token string, tripType models.TripType) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.New().String(),
		Token:     token,
		State:     StateFlightReview,
		TripType:  tripType,
		ActiveLeg: models.LegDeparture,
		Currency:  "VND",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Leg returns the context for a leg, nil when the leg does not exist on this
// trip. Callers run inside a Commit or Update callback.
func (s *Session) Leg(leg models.Leg) *LegContext {
	switch leg {
	case models.LegDeparture:
		return s.Departure
	case models.LegReturn:
		return s.Return
	default:
		return nil
	}
}

// Begin marks a network call in flight for the current step and returns the
// revision the result must carry back. A second Begin before Finish/Commit
// fails with ErrSessionBusy. The check callback runs under the session lock
// before the guard is taken: it validates preconditions and copies whatever
// the call needs out of the session, so the caller never reads fields after
// the lock is released. A check failure leaves the guard untouched.
func (s *Session) Begin(check func(*Session) error) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight {
		return 0, apperrors.ErrSessionBusy
	}
	if check != nil {
		if err := check(s); err != nil {
			return 0, err
		}
	}
	s.inFlight = true
	return s.revision, nil
}

// Finish releases the in-flight guard without applying anything. Used when
// the call failed before producing a committable result.
func (s *Session) Finish() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}

// Commit applies the result of an async call started at revision rev. When
// the session has since navigated back, the result is stale and dropped with
// ErrStaleResult. The in-flight guard is released either way.
func (s *Session) Commit(rev int64, apply func(*Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inFlight = false
	if rev != s.revision {
		return apperrors.ErrStaleResult
	}
	if err := apply(s); err != nil {
		return err
	}
	s.UpdatedAt = time.Now()
	return nil
}

// Update runs a synchronous mutation under the session lock.
func (s *Session) Update(apply func(*Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := apply(s); err != nil {
		return err
	}
	s.UpdatedAt = time.Now()
	return nil
}

// advance moves one step forward. Callers hold the lock via Update/Commit.
func (s *Session) advance() error {
	next, ok := forwardTransitions[s.State]
	if !ok {
		return apperrors.ErrInvalidTransition
	}
	s.State = next
	return nil
}

// Continue confirms the current step where confirmation has no side effect:
// FlightReview once both legs are loaded, PassengerList once tickets exist,
// SeatSelection once at least one seat is picked.
func (s *Session) Continue() error {
	return s.Update(func(s *Session) error {
		switch s.State {
		case StateFlightReview:
			if s.Departure == nil || s.Departure.Flight == nil {
				return apperrors.ErrInvalidTransition
			}
			if s.TripType == models.TripRoundTrip && (s.Return == nil || s.Return.Flight == nil) {
				return apperrors.ErrInvalidTransition
			}
		case StatePassengerList:
			if s.BookingID == 0 || len(s.Departure.Tickets) == 0 {
				return apperrors.ErrInvalidTransition
			}
		case StateSeatSelection:
			if !s.hasAnySeat() {
				return apperrors.ErrNoSeatsSelected
			}
			if s.TotalAmount <= 0 || s.Currency == "" {
				return apperrors.ErrInvalidTransition
			}
		default:
			return apperrors.ErrInvalidTransition
		}
		return s.advance()
	})
}

// Back returns to the previous step. It is allowed while a call is in flight
// (the request is not cancelled) and bumps the revision so the late result is
// discarded. Data from the abandoned step is kept.
func (s *Session) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := backTransitions[s.State]
	if !ok {
		return apperrors.ErrInvalidTransition
	}
	s.State = prev
	s.revision++
	s.UpdatedAt = time.Now()
	return nil
}

func (s *Session) hasAnySeat() bool {
	if s.Departure != nil && s.Departure.Seats != nil && len(s.Departure.Seats.Assignments()) > 0 {
		return true
	}
	if s.Return != nil && s.Return.Seats != nil && len(s.Return.Seats.Assignments()) > 0 {
		return true
	}
	return false
}

// SwitchLeg changes the active seat-selection leg. Both legs' assignments
// survive the switch.
func (s *Session) SwitchLeg(leg models.Leg) error {
	return s.Update(func(s *Session) error {
		if s.State != StateSeatSelection {
			return apperrors.ErrInvalidTransition
		}
		if s.Leg(leg) == nil {
			return &apperrors.ValidationError{Field: "leg", Reason: "leg not present on this trip"}
		}
		s.ActiveLeg = leg
		return nil
	})
}

// Snapshot renders the latest committed state for display. It never exposes
// the working set itself.
func (s *Session) Snapshot() *models.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := &models.SessionView{
		SessionID:   s.ID,
		State:       string(s.State),
		TripType:    s.TripType,
		BookingID:   s.BookingID,
		ActiveLeg:   s.ActiveLeg,
		Departure:   legView(s.Departure),
		TotalAmount: s.TotalAmount,
		Currency:    s.Currency,
	}
	if s.Return != nil {
		rv := legView(s.Return)
		view.Return = &rv
	}
	if !s.PaidAt.IsZero() {
		view.PaidAt = s.PaidAt.Format(time.RFC3339)
	}
	return view
}

func legView(lc *LegContext) models.LegView {
	if lc == nil {
		return models.LegView{}
	}

	view := models.LegView{
		Flight: lc.Flight,
	}
	if lc.Seats != nil {
		view.Seats = append([]seatmap.Seat(nil), lc.Seats.Seats...)
	}

	for _, ticket := range lc.Tickets {
		pv := models.PassengerView{
			TicketID:    ticket.TicketID,
			Title:       ticket.Owner.Title(),
			Name:        ticket.Owner.FullName(),
			FlightClass: ticket.FlightClass,
			Seat:        ticket.SeatCode,
		}
		if lc.Seats != nil {
			if seatID, ok := lc.Seats.SeatFor(ticket.TicketID); ok {
				pv.Seat = seatID
			}
		}
		view.Passengers = append(view.Passengers, pv)
	}
	return view
}
