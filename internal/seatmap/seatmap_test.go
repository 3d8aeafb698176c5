package seatmap

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "skylane/internal/errors"
)

func newTestGrid(seed int64) []Seat {
	return Generate(DefaultRowCount, DefaultColumns, rand.New(rand.NewSource(seed)))
}

func TestGenerateGridShape(t *testing.T) {
	seats := newTestGrid(1)
	require.Len(t, seats, DefaultRowCount*len(DefaultColumns))

	assert.Equal(t, "1A", seats[0].ID)
	assert.Equal(t, "44G", seats[len(seats)-1].ID)
}

func TestGenerateBlockedRows(t *testing.T) {
	// Exit rows must be blocked for any seed.
	for seed := int64(0); seed < 50; seed++ {
		for _, seat := range newTestGrid(seed) {
			if seat.Row == 18 || seat.Row == 32 {
				assert.Equal(t, StatusBlocked, seat.Status, "seat %s seed %d", seat.ID, seed)
			} else {
				assert.NotEqual(t, StatusBlocked, seat.Status, "seat %s seed %d", seat.ID, seed)
			}
		}
	}
}

func TestGenerateDeterministicPerSeed(t *testing.T) {
	assert.Equal(t, newTestGrid(7), newTestGrid(7))
}

func TestGenerateUnavailableShare(t *testing.T) {
	unavailable := 0
	total := 0
	for _, seat := range newTestGrid(42) {
		if seat.Status == StatusBlocked {
			continue
		}
		total++
		if seat.Status == StatusUnavailable {
			unavailable++
		}
	}

	share := float64(unavailable) / float64(total)
	assert.InDelta(t, 0.3, share, 0.1)
}

func findSeat(t *testing.T, m *Map, id string) Seat {
	t.Helper()
	for _, seat := range m.Seats {
		if seat.ID == id {
			return seat
		}
	}
	t.Fatalf("seat %s not found", id)
	return Seat{}
}

// allAvailableMap builds a grid with no random unavailability so assignment
// tests are not hostage to the seed.
func allAvailableMap() *Map {
	rng := rand.New(rand.NewSource(0))
	seats := Generate(DefaultRowCount, DefaultColumns, rng)
	for i := range seats {
		if seats[i].Status == StatusUnavailable {
			seats[i].Status = StatusAvailable
		}
	}
	return New(seats)
}

func TestAssignMovesPassenger(t *testing.T) {
	m := allAvailableMap()

	require.NoError(t, m.Assign("12A", 101))
	assert.Equal(t, StatusSelected, findSeat(t, m, "12A").Status)

	// The same passenger picks another seat: the old one frees up.
	require.NoError(t, m.Assign("12B", 101))
	assert.Equal(t, StatusAvailable, findSeat(t, m, "12A").Status)
	assert.Equal(t, StatusSelected, findSeat(t, m, "12B").Status)

	seatID, ok := m.SeatFor(101)
	require.True(t, ok)
	assert.Equal(t, "12B", seatID)
}

func TestAssignRefusesTakenSeat(t *testing.T) {
	m := allAvailableMap()

	require.NoError(t, m.Assign("12A", 101))

	// Another passenger cannot take 12A while passenger 101 holds it.
	err := m.Assign("12A", 102)
	assert.ErrorIs(t, err, apperrors.ErrSeatUnavailable)
	assert.Equal(t, StatusSelected, findSeat(t, m, "12A").Status)

	seatID, ok := m.SeatFor(101)
	require.True(t, ok)
	assert.Equal(t, "12A", seatID)
	_, ok = m.SeatFor(102)
	assert.False(t, ok)
}

func TestAssignOwnSeatIsNoop(t *testing.T) {
	m := allAvailableMap()

	require.NoError(t, m.Assign("3C", 101))
	require.NoError(t, m.Assign("3C", 101))
	assert.Equal(t, StatusSelected, findSeat(t, m, "3C").Status)
}

func TestAssignBlockedAndUnknown(t *testing.T) {
	m := allAvailableMap()

	assert.ErrorIs(t, m.Assign("18A", 101), apperrors.ErrSeatUnavailable)
	assert.ErrorIs(t, m.Assign("99Z", 101), apperrors.ErrSeatUnavailable)
}

func TestSelectedSeatsMatchSeatedPassengers(t *testing.T) {
	m := allAvailableMap()

	require.NoError(t, m.Assign("1A", 101))
	require.NoError(t, m.Assign("1B", 102))
	require.NoError(t, m.Assign("2C", 101)) // 101 moves

	selected := 0
	for _, seat := range m.Seats {
		if seat.Status == StatusSelected {
			selected++
		}
	}
	assert.Equal(t, len(m.Assignments()), selected)

	// No two passengers share a seat.
	seen := map[string]bool{}
	for _, seatID := range m.Assignments() {
		assert.False(t, seen[seatID], "seat %s assigned twice", seatID)
		seen[seatID] = true
	}
}

func TestPersistencePayload(t *testing.T) {
	departure := allAvailableMap()
	ret := allAvailableMap()

	require.NoError(t, departure.Assign("12A", 101))
	require.NoError(t, ret.Assign("14C", 201))

	payload, err := PersistencePayload([]*Map{departure, ret}, []int64{101, 102, 201})
	require.NoError(t, err)

	// Passenger 102 never picked a seat and is filtered out.
	assert.Equal(t, []SeatUpdate{
		{TicketID: 101, SeatCode: "12A"},
		{TicketID: 201, SeatCode: "14C"},
	}, payload)
}

func TestPersistencePayloadEmpty(t *testing.T) {
	_, err := PersistencePayload([]*Map{allAvailableMap()}, []int64{101})
	assert.ErrorIs(t, err, apperrors.ErrNoSeatsSelected)
}
