package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skylane/internal/models"
)

func testView() *models.FlightView {
	return &models.FlightView{
		ID:               42,
		FlightNumber:     "SL218",
		Airline:          "Skylane Air",
		DepartureCity:    "SGN",
		ArrivalCity:      "HAN",
		DepartureTimeRaw: "2026-09-01T06:30:00Z",
		ArrivalTimeRaw:   "2026-09-01T08:35:00Z",
		EconomyPrice:     1_200_000,
		BusinessPrice:    1_800_000,
		SeatsLeft:        58,
	}
}

func TestDocFromView(t *testing.T) {
	doc, err := DocFromView(testView())
	require.NoError(t, err)

	assert.Equal(t, int64(42), doc.ID)
	assert.Equal(t, "SL218", doc.FlightNumber)
	assert.Equal(t, "SGN", doc.DepartureCity)
	assert.Equal(t, "HAN", doc.ArrivalCity)
	assert.Equal(t, time.Date(2026, 9, 1, 6, 30, 0, 0, time.UTC), doc.DepartureTime)
	assert.Equal(t, time.Date(2026, 9, 1, 8, 35, 0, 0, time.UTC), doc.ArrivalTime)
	assert.Equal(t, int64(1_200_000), doc.EconomyPrice)
	assert.Equal(t, int64(1_800_000), doc.BusinessPrice)
	assert.Equal(t, 58, doc.SeatsLeft)
}

func TestDocFromViewRejectsBadTimes(t *testing.T) {
	view := testView()
	view.DepartureTimeRaw = "01/09/2026 06:30"
	_, err := DocFromView(view)
	assert.Error(t, err)

	view = testView()
	view.ArrivalTimeRaw = ""
	_, err = DocFromView(view)
	assert.Error(t, err)
}

func TestWindowHours(t *testing.T) {
	morning, ok := windowHours("morning")
	require.True(t, ok)
	// Morning covers everything before noon, red-eyes included.
	assert.Equal(t, 0, morning["gte"])
	assert.Equal(t, 12, morning["lt"])

	afternoon, ok := windowHours("afternoon")
	require.True(t, ok)
	assert.Equal(t, 12, afternoon["gte"])
	assert.Equal(t, 18, afternoon["lt"])

	evening, ok := windowHours("evening")
	require.True(t, ok)
	assert.Equal(t, 18, evening["gte"])

	_, ok = windowHours("all")
	assert.False(t, ok)
}
