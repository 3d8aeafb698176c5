package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"skylane/internal/checkin"
	apperrors "skylane/internal/errors"
	"skylane/internal/external"
	"skylane/internal/fares"
	"skylane/internal/logger"
	"skylane/internal/metrics"
	"skylane/internal/models"
	"skylane/internal/repository"
	"skylane/internal/seatmap"
)

// CheckinService drives the booking/check-in workflow: session lifecycle,
// booking creation, seat assignment and the payment-gated seat persistence.
type CheckinService struct {
	airline   *external.AirlineClient
	payment   *external.PaymentClient
	flights   *FlightService
	events    EventPublisher
	seatHolds SeatHolder
	repos     *repository.Repositories
	store     *checkin.Store

	// seatSource feeds sample seat maps; tests inject a fixed seed.
	seatSource func() *rand.Rand
}

func NewCheckinService(airline *external.AirlineClient, payment *external.PaymentClient, flights *FlightService, events EventPublisher, seatHolds SeatHolder, repos *repository.Repositories, sessionTTL time.Duration) *CheckinService {
	return &CheckinService{
		airline:   airline,
		payment:   payment,
		flights:   flights,
		events:    events,
		seatHolds: seatHolds,
		repos:     repos,
		store:     checkin.NewStore(sessionTTL),
		seatSource: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
}

// SetSeatSource overrides the seat map randomness. Test hook.
func (s *CheckinService) SetSeatSource(source func() *rand.Rand) {
	s.seatSource = source
}

func (s *CheckinService) Close() {
	s.store.Close()
}

// StartSession opens a workflow session: either resuming an existing booking
// by id, or starting a fresh purchase from a flight + fare selection.
func (s *CheckinService) StartSession(ctx context.Context, token string, req *models.StartSessionRequest) (*models.SessionView, error) {
	var (
		sess *checkin.Session
		err  error
	)
	if req.BookingID != 0 {
		sess, err = s.resumeSession(ctx, token, req.BookingID)
	} else {
		sess, err = s.freshSession(ctx, token, req)
	}
	if err != nil {
		return nil, err
	}

	// Snapshot the event before Put: once stored the session is reachable
	// from other requests.
	started := models.CheckinStartedEvent{
		SessionID: sess.ID,
		BookingID: sess.BookingID,
		TripType:  sess.TripType,
		Timestamp: time.Now(),
	}

	s.store.Put(sess)
	metrics.SessionsStarted.Inc()
	s.publish(ctx, models.EventCheckinStarted, started)

	return sess.Snapshot(), nil
}

// resumeSession rebuilds the working set of an already-created booking: both
// legs' flights, the issued tickets and fresh seat maps.
func (s *CheckinService) resumeSession(ctx context.Context, token string, bookingID int64) (*checkin.Session, error) {
	booking, err := s.airline.GetBooking(ctx, token, bookingID)
	if err != nil {
		return nil, err
	}

	sess := checkin.NewSession(token, booking.TripType)
	sess.BookingID = booking.BookingID

	departure, total, err := s.resumeLeg(ctx, token, booking.DepartureFlightID, booking.DepartureIDTickets)
	if err != nil {
		return nil, err
	}
	sess.Departure = departure
	sess.PassengerCount = len(departure.Tickets)
	sess.TotalAmount = total

	if booking.TripType == models.TripRoundTrip {
		if booking.ReturnFlightID == 0 || len(booking.ReturnIDTickets) == 0 {
			return nil, &apperrors.DataInvalidError{Op: "booking resume", Field: "returnFlightId"}
		}
		ret, retTotal, err := s.resumeLeg(ctx, token, booking.ReturnFlightID, booking.ReturnIDTickets)
		if err != nil {
			return nil, err
		}
		sess.Return = ret
		sess.TotalAmount += retTotal
	}

	return sess, nil
}

func (s *CheckinService) resumeLeg(ctx context.Context, token string, flightID int64, ticketIDs []int64) (*checkin.LegContext, int64, error) {
	view, err := s.flights.GetByID(ctx, flightID)
	if err != nil {
		return nil, 0, err
	}

	leg := &checkin.LegContext{
		Flight: view,
		Seats:  s.newSeatMap(),
	}

	var total int64
	for _, ticketID := range ticketIDs {
		ticket, err := s.airline.GetTicket(ctx, token, ticketID)
		if err != nil {
			return nil, 0, err
		}
		leg.Tickets = append(leg.Tickets, *ticket)
		total += ticket.Price
		if len(leg.Tickets) == 1 {
			leg.Option = fares.Option{
				ID:    string(fares.Cabin(ticket.FlightClass)) + "1",
				Cabin: fares.Cabin(ticket.FlightClass),
				Price: ticket.Price,
			}
		}
	}
	return leg, total, nil
}

// freshSession starts a purchase flow from a fare selection. The booking does
// not exist yet; SubmitPassengers creates it.
func (s *CheckinService) freshSession(ctx context.Context, token string, req *models.StartSessionRequest) (*checkin.Session, error) {
	if req.DepartureFlightID == 0 || req.DepartureOptionID == "" {
		return nil, &apperrors.ValidationError{Field: "departureFlightId", Reason: "flight and fare option required"}
	}
	if req.PassengerCount <= 0 {
		return nil, &apperrors.ValidationError{Field: "passengerCount", Reason: "must be a positive integer"}
	}
	if (req.ReturnFlightID == 0) != (req.ReturnOptionID == "") {
		return nil, &apperrors.ValidationError{Field: "returnFlightId", Reason: "return flight and fare option go together"}
	}

	tripType := models.TripOneWay
	if req.ReturnFlightID != 0 {
		tripType = models.TripRoundTrip
	}

	sess := checkin.NewSession(token, tripType)
	sess.PassengerCount = req.PassengerCount

	depView, depOption, err := s.flights.ResolveOption(ctx, req.DepartureFlightID, req.DepartureOptionID)
	if err != nil {
		return nil, err
	}
	sess.Departure = &checkin.LegContext{Flight: depView, Option: depOption}
	perPassenger := depOption.Price

	if tripType == models.TripRoundTrip {
		retView, retOption, err := s.flights.ResolveOption(ctx, req.ReturnFlightID, req.ReturnOptionID)
		if err != nil {
			return nil, err
		}
		outboundArrival, err1 := time.Parse(time.RFC3339, depView.ArrivalTimeRaw)
		returnDeparture, err2 := time.Parse(time.RFC3339, retView.DepartureTimeRaw)
		if err1 == nil && err2 == nil && !returnDeparture.After(outboundArrival) {
			return nil, &apperrors.ValidationError{Field: "returnFlightId", Reason: "return flight departs before the outbound arrives"}
		}
		sess.Return = &checkin.LegContext{Flight: retView, Option: retOption}
		perPassenger += retOption.Price
	}

	sess.TotalAmount = perPassenger * int64(req.PassengerCount)
	return sess, nil
}

func (s *CheckinService) GetSession(sessionID string) (*models.SessionView, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Snapshot(), nil
}

// Continue confirms the current step.
func (s *CheckinService) Continue(sessionID string) (*models.SessionView, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.Continue(); err != nil {
		return nil, err
	}
	return sess.Snapshot(), nil
}

// Back returns to the previous step without discarding later-step data.
func (s *CheckinService) Back(sessionID string) (*models.SessionView, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.Back(); err != nil {
		return nil, err
	}
	return sess.Snapshot(), nil
}

// SubmitPassengers validates the passenger list, creates the booking upstream
// and loads the issued tickets. One ticket-creation request per passenger per
// leg, price and cabin copied from the chosen fare.
func (s *CheckinService) SubmitPassengers(ctx context.Context, sessionID string, req *models.SubmitPassengersRequest) (*models.SessionView, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	owners := make([]models.TicketOwner, 0, len(req.Passengers))
	for i, p := range req.Passengers {
		owner, err := normalizeOwner(p)
		if err != nil {
			return nil, fmt.Errorf("passenger %d: %w", i+1, err)
		}
		owners = append(owners, owner)
	}

	// The state checks and the booking body both read the session, so they
	// run inside the Begin callback under the session lock.
	var (
		token      string
		tripType   models.TripType
		count      int
		bookingReq *external.CreateBookingRequest
	)
	rev, err := sess.Begin(func(sess *checkin.Session) error {
		if sess.State != checkin.StatePassengerList {
			return apperrors.ErrInvalidTransition
		}
		if sess.BookingID != 0 {
			return &apperrors.ValidationError{Field: "bookingId", Reason: "booking already created for this session"}
		}
		if len(req.Passengers) != sess.PassengerCount {
			return &apperrors.ValidationError{
				Field:  "passengers",
				Reason: fmt.Sprintf("expected %d passengers, got %d", sess.PassengerCount, len(req.Passengers)),
			}
		}
		token = sess.Token
		tripType = sess.TripType
		count = sess.PassengerCount
		bookingReq = buildBookingRequest(sess, owners)
		return nil
	})
	if err != nil {
		return nil, err
	}

	bookingID, err := s.airline.CreateBooking(ctx, token, bookingReq)
	if err != nil {
		sess.Finish()
		return nil, err
	}

	booking, err := s.airline.GetBooking(ctx, token, bookingID)
	if err != nil {
		sess.Finish()
		return nil, err
	}
	depTickets, err := s.fetchTickets(ctx, token, booking.DepartureIDTickets)
	if err != nil {
		sess.Finish()
		return nil, err
	}
	var retTickets []models.Ticket
	if tripType == models.TripRoundTrip {
		retTickets, err = s.fetchTickets(ctx, token, booking.ReturnIDTickets)
		if err != nil {
			sess.Finish()
			return nil, err
		}
	}

	err = sess.Commit(rev, func(sess *checkin.Session) error {
		sess.BookingID = bookingID
		sess.Passengers = req.Passengers
		sess.Departure.Tickets = depTickets
		sess.Departure.Seats = s.newSeatMap()
		if sess.Return != nil {
			sess.Return.Tickets = retTickets
			sess.Return.Seats = s.newSeatMap()
		}
		sess.State = checkin.StateSeatSelection
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, models.EventBookingCreated, models.BookingCreatedEvent{
		SessionID:      sess.ID,
		BookingID:      bookingID,
		TripType:       tripType,
		PassengerCount: count,
		Timestamp:      time.Now(),
	})

	return sess.Snapshot(), nil
}

// AssignSeat binds a seat to a passenger on one leg.
func (s *CheckinService) AssignSeat(sessionID string, req *models.AssignSeatRequest) (*models.SessionView, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	err = sess.Update(func(sess *checkin.Session) error {
		if sess.State != checkin.StateSeatSelection {
			return apperrors.ErrInvalidTransition
		}
		leg := sess.Leg(req.Leg)
		if leg == nil || leg.Seats == nil {
			return &apperrors.ValidationError{Field: "leg", Reason: "leg not present on this trip"}
		}
		if !legHasTicket(leg, req.TicketID) {
			return &apperrors.ValidationError{Field: "ticketId", Reason: "ticket does not belong to this leg"}
		}
		return leg.Seats.Assign(req.SeatID, req.TicketID)
	})
	if err != nil {
		return nil, err
	}
	return sess.Snapshot(), nil
}

// SwitchLeg changes the active seat-selection leg.
func (s *CheckinService) SwitchLeg(sessionID string, leg models.Leg) (*models.SessionView, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.SwitchLeg(leg); err != nil {
		return nil, err
	}
	return sess.Snapshot(), nil
}

// CreateIntent requests a payment intent for the session total.
func (s *CheckinService) CreateIntent(ctx context.Context, sessionID string) (*models.PaymentIntentResponse, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	var (
		bookingID int64
		amount    int64
		currency  string
	)
	rev, err := sess.Begin(func(sess *checkin.Session) error {
		if sess.State != checkin.StatePayment {
			return apperrors.ErrInvalidTransition
		}
		bookingID = sess.BookingID
		amount = sess.TotalAmount
		currency = sess.Currency
		return nil
	})
	if err != nil {
		return nil, err
	}

	secret, err := s.payment.CreateIntent(ctx, bookingID, amount, currency)
	if err != nil {
		sess.Finish()
		return nil, err
	}

	err = sess.Commit(rev, func(sess *checkin.Session) error {
		sess.ClientSecret = secret
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, models.EventPaymentInitiated, models.PaymentInitiatedEvent{
		SessionID: sess.ID,
		BookingID: bookingID,
		Amount:    amount,
		Currency:  currency,
		Timestamp: time.Now(),
	})

	return &models.PaymentIntentResponse{
		ClientSecret: secret,
		Amount:       amount,
		Currency:     currency,
	}, nil
}

// ConfirmPayment submits the payment form and, only after the provider
// reports success, persists the chosen seats. A failed persistence keeps the
// session out of Confirmation and is reported distinctly from payment
// failure.
func (s *CheckinService) ConfirmPayment(ctx context.Context, sessionID string, req *models.ConfirmPaymentRequest) (*models.SessionView, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	// The seat payload is built inside the Begin callback, before charging:
	// an empty selection must fail without touching the provider, and the
	// assignments must not shift between the check and the persistence call.
	var (
		token        string
		tripType     models.TripType
		bookingID    int64
		amount       int64
		currency     string
		clientSecret string
		payload      []seatmap.SeatUpdate
		flightBySeat map[string]int64
	)
	rev, err := sess.Begin(func(sess *checkin.Session) error {
		if sess.State != checkin.StatePayment {
			return apperrors.ErrInvalidTransition
		}
		if sess.ClientSecret == "" {
			return &apperrors.ValidationError{Field: "clientSecret", Reason: "payment intent not created"}
		}
		var err error
		payload, flightBySeat, err = seatPayload(sess)
		if err != nil {
			return err
		}
		token = sess.Token
		tripType = sess.TripType
		bookingID = sess.BookingID
		amount = sess.TotalAmount
		currency = sess.Currency
		clientSecret = sess.ClientSecret
		return nil
	})
	if err != nil {
		return nil, err
	}

	result, err := s.payment.Confirm(ctx, clientSecret, req.PaymentMethodID)
	if err != nil {
		sess.Finish()
		return nil, err
	}
	if !result.Success {
		sess.Finish()
		metrics.PaymentFailures.Inc()
		s.publish(ctx, models.EventPaymentFailed, models.PaymentFailedEvent{
			SessionID: sess.ID,
			BookingID: bookingID,
			Reason:    result.Reason,
			Timestamp: time.Now(),
		})
		return nil, &apperrors.PaymentError{Reason: result.Reason}
	}

	s.publish(ctx, models.EventPaymentCompleted, models.PaymentCompletedEvent{
		SessionID: sess.ID,
		BookingID: bookingID,
		Amount:    amount,
		Timestamp: time.Now(),
	})

	// Payment succeeded. Take conditional holds so two sessions cannot
	// persist the same physical seat, then save.
	if err := s.acquireHolds(ctx, sess.ID, payload, flightBySeat); err != nil {
		sess.Finish()
		return nil, err
	}

	if err := s.airline.UpdateSeats(ctx, token, payload); err != nil {
		sess.Finish()
		return nil, &apperrors.SeatPersistenceError{Err: err}
	}

	s.publish(ctx, models.EventSeatsPersisted, models.SeatsPersistedEvent{
		SessionID: sess.ID,
		BookingID: bookingID,
		SeatCount: len(payload),
		Timestamp: time.Now(),
	})

	err = sess.Commit(rev, func(sess *checkin.Session) error {
		sess.PaidAt = time.Now()
		applySeatCodes(sess.Departure, payload)
		applySeatCodes(sess.Return, payload)
		sess.State = checkin.StateConfirmation
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.SessionsCompleted.Inc()
	s.publish(ctx, models.EventCheckinCompleted, models.CheckinCompletedEvent{
		SessionID:   sess.ID,
		BookingID:   bookingID,
		TripType:    tripType,
		TotalAmount: amount,
		Currency:    currency,
		Timestamp:   time.Now(),
	})

	return sess.Snapshot(), nil
}

// ArchivedCheckin serves the durable record of a completed session from the
// archive the consumers maintain.
func (s *CheckinService) ArchivedCheckin(ctx context.Context, sessionID string) (*models.CheckinRecord, error) {
	if s.repos == nil {
		return nil, fmt.Errorf("archive unavailable")
	}
	return s.repos.Checkins.GetBySessionID(ctx, sessionID)
}

// ArchivedEvents returns a session's audit trail, oldest first.
func (s *CheckinService) ArchivedEvents(ctx context.Context, sessionID string) ([]repository.ArchivedEvent, error) {
	if s.repos == nil {
		return nil, fmt.Errorf("archive unavailable")
	}
	return s.repos.Events.ListBySessionID(ctx, sessionID)
}

// ArchivedCheckinsForBooking lists every session recorded against a booking,
// newest first. A booking resumed across devices leaves one row per session.
func (s *CheckinService) ArchivedCheckinsForBooking(ctx context.Context, bookingID int64) ([]models.CheckinRecord, error) {
	if s.repos == nil {
		return nil, fmt.Errorf("archive unavailable")
	}
	return s.repos.Checkins.ListByBookingID(ctx, bookingID)
}

func (s *CheckinService) newSeatMap() *seatmap.Map {
	return seatmap.New(seatmap.Generate(seatmap.DefaultRowCount, seatmap.DefaultColumns, s.seatSource()))
}

func (s *CheckinService) fetchTickets(ctx context.Context, token string, ticketIDs []int64) ([]models.Ticket, error) {
	tickets := make([]models.Ticket, 0, len(ticketIDs))
	for _, id := range ticketIDs {
		ticket, err := s.airline.GetTicket(ctx, token, id)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *ticket)
	}
	return tickets, nil
}

// acquireHolds takes one hold per seat. On a conflict every hold already
// taken for this attempt is released before reporting ErrSeatConflict.
func (s *CheckinService) acquireHolds(ctx context.Context, sessionID string, payload []seatmap.SeatUpdate, flightBySeat map[string]int64) error {
	if s.seatHolds == nil {
		return nil
	}

	var taken []seatmap.SeatUpdate
	for _, update := range payload {
		flightID := flightBySeat[update.SeatCode]
		ok, err := s.seatHolds.AcquireSeatHold(ctx, flightID, update.SeatCode, sessionID)
		if err == nil && ok {
			taken = append(taken, update)
			continue
		}

		for _, held := range taken {
			if relErr := s.seatHolds.ReleaseSeatHold(ctx, flightBySeat[held.SeatCode], held.SeatCode, sessionID); relErr != nil {
				logger.WithContext(ctx).Warn("Failed to release seat hold", "seat", held.SeatCode, "error", relErr)
			}
		}
		if err != nil {
			return &apperrors.SeatPersistenceError{Err: err}
		}
		metrics.SeatConflicts.Inc()
		return fmt.Errorf("seat %s: %w", update.SeatCode, apperrors.ErrSeatConflict)
	}
	return nil
}

// seatPayload flattens both legs' assignments into the persistence payload,
// in passenger order, and maps each seat back to its flight for the holds.
func seatPayload(sess *checkin.Session) ([]seatmap.SeatUpdate, map[string]int64, error) {
	var maps []*seatmap.Map
	var order []int64
	flightBySeat := make(map[string]int64)

	for _, leg := range []*checkin.LegContext{sess.Departure, sess.Return} {
		if leg == nil || leg.Seats == nil {
			continue
		}
		maps = append(maps, leg.Seats)
		for _, ticket := range leg.Tickets {
			order = append(order, ticket.TicketID)
		}
		for _, seatID := range leg.Seats.Assignments() {
			flightBySeat[seatID] = leg.Flight.ID
		}
	}

	payload, err := seatmap.PersistencePayload(maps, order)
	if err != nil {
		return nil, nil, err
	}
	return payload, flightBySeat, nil
}

func applySeatCodes(leg *checkin.LegContext, payload []seatmap.SeatUpdate) {
	if leg == nil {
		return
	}
	for i := range leg.Tickets {
		for _, update := range payload {
			if update.TicketID == leg.Tickets[i].TicketID {
				leg.Tickets[i].SeatCode = update.SeatCode
			}
		}
	}
}

func legHasTicket(leg *checkin.LegContext, ticketID int64) bool {
	for _, ticket := range leg.Tickets {
		if ticket.TicketID == ticketID {
			return true
		}
	}
	return false
}

// buildBookingRequest assembles the upstream booking body. One-way bookings
// omit the return ticket list entirely; its absence is meaningful.
func buildBookingRequest(sess *checkin.Session, owners []models.TicketOwner) *external.CreateBookingRequest {
	req := &external.CreateBookingRequest{
		DepartureCity:           sess.Departure.Flight.DepartureCity,
		ArrivalCity:             sess.Departure.Flight.ArrivalCity,
		DepartureFlightID:       sess.Departure.Flight.ID,
		TripType:                sess.TripType,
		DepartureTicketDataList: ticketDataList(sess.Departure.Option, owners),
	}

	if sess.TripType == models.TripRoundTrip && sess.Return != nil {
		returnFlightID := sess.Return.Flight.ID
		req.ReturnFlightID = &returnFlightID
		returnList := ticketDataList(sess.Return.Option, owners)
		req.ReturnTicketDataList = &returnList
	}
	return req
}

func ticketDataList(option fares.Option, owners []models.TicketOwner) []external.TicketData {
	list := make([]external.TicketData, 0, len(owners))
	for _, owner := range owners {
		list = append(list, external.TicketData{
			Price:       option.Price,
			FlightClass: string(option.Cabin),
			OwnerData:   owner,
		})
	}
	return list
}

// normalizeOwner validates one passenger form entry and normalizes the birth
// date from dd/MM/yyyy to yyyy-MM-dd.
func normalizeOwner(p models.PassengerInput) (models.TicketOwner, error) {
	if p.IDNumber == "" {
		return models.TicketOwner{}, &apperrors.ValidationError{Field: "idNumber", Reason: "required"}
	}
	if p.FirstName == "" || p.LastName == "" {
		return models.TicketOwner{}, &apperrors.ValidationError{Field: "firstName", Reason: "full name required"}
	}
	if p.PhoneNumber == "" {
		return models.TicketOwner{}, &apperrors.ValidationError{Field: "phoneNumber", Reason: "required"}
	}

	birth, err := time.Parse("02/01/2006", p.BirthDate)
	if err != nil {
		return models.TicketOwner{}, &apperrors.ValidationError{Field: "birthDate", Reason: "must be dd/MM/yyyy"}
	}

	return models.TicketOwner{
		IdentityCardNumber: p.IDNumber,
		FirstName:          p.FirstName,
		LastName:           p.LastName,
		PhoneNumber:        p.PhoneNumber,
		DateOfBirth:        birth.Format("2006-01-02"),
		Gender:             p.Gender,
		Address:            p.Address,
	}, nil
}

func (s *CheckinService) publish(ctx context.Context, subject string, data interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(subject, data); err != nil {
		logger.WithContext(ctx).Error("Failed to publish event", "subject", subject, "error", err)
	}
}
