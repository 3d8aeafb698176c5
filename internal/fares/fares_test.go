package fares

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "skylane/internal/errors"
)

func TestDeriveEconomy(t *testing.T) {
	options, err := Derive(2_000_000, CabinEconomy)
	require.NoError(t, err)
	require.Len(t, options, 2)

	standard, flexible := options[0], options[1]

	assert.Equal(t, "economy1", standard.ID)
	assert.Equal(t, int64(2_000_000), standard.Price)
	assert.Equal(t, int64(860_000), standard.ChangeFee)
	assert.Equal(t, int64(860_000), standard.RefundFee)
	assert.Equal(t, "1 x 23 kg", standard.CheckedBaggage)

	assert.Equal(t, "economy2", flexible.ID)
	assert.Equal(t, int64(2_500_000), flexible.Price)
	assert.Equal(t, int64(430_000), flexible.ChangeFee)
	assert.Equal(t, int64(430_000), flexible.RefundFee)
}

func TestDeriveBusinessFees(t *testing.T) {
	options, err := Derive(3_000_000, CabinBusiness)
	require.NoError(t, err)
	require.Len(t, options, 2)

	assert.Equal(t, int64(360_000), options[0].ChangeFee)
	assert.Equal(t, int64(180_000), options[1].ChangeFee)
	assert.Equal(t, "2 x 32 kg", options[0].CheckedBaggage)
}

func TestDeriveFlexibleRelation(t *testing.T) {
	for _, base := range []int64{1, 100_000, 2_000_000, 9_999_999} {
		for _, cabin := range []Cabin{CabinEconomy, CabinBusiness} {
			options, err := Derive(base, cabin)
			require.NoError(t, err)
			require.Len(t, options, 2)

			assert.Equal(t, options[0].Price+FlexiblePriceStep, options[1].Price)
			assert.Equal(t, options[0].ChangeFee/2, options[1].ChangeFee)
		}
	}
}

func TestDeriveRejectsNonPositivePrice(t *testing.T) {
	for _, base := range []int64{0, -1, -2_000_000} {
		_, err := Derive(base, CabinEconomy)
		assert.ErrorIs(t, err, apperrors.ErrInvalidBasePrice)
	}
}

func TestDeriveIsDeterministic(t *testing.T) {
	first, err := DeriveAll(2_000_000)
	require.NoError(t, err)
	second, err := DeriveAll(2_000_000)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDeriveAllOrderingAndBusinessBase(t *testing.T) {
	options, err := DeriveAll(2_000_000)
	require.NoError(t, err)
	require.Len(t, options, 4)

	assert.Equal(t, []string{"economy1", "economy2", "business1", "business2"},
		[]string{options[0].ID, options[1].ID, options[2].ID, options[3].ID})

	// business base = economy base * 1.5
	assert.Equal(t, int64(3_000_000), options[2].Price)
	assert.Equal(t, int64(3_500_000), options[3].Price)
}

func TestSelect(t *testing.T) {
	options, err := DeriveAll(2_000_000)
	require.NoError(t, err)

	opt, err := Select(options, "business2")
	require.NoError(t, err)
	assert.Equal(t, CabinBusiness, opt.Cabin)
	assert.Equal(t, int64(3_500_000), opt.Price)

	_, err = Select(options, "firstclass1")
	assert.ErrorIs(t, err, apperrors.ErrFareNotFound)
}
