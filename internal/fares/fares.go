package fares

import (
	"fmt"

	apperrors "skylane/internal/errors"
)

// Cabin is the fare class of a ticket.
type Cabin string

const (
	CabinEconomy  Cabin = "economy"
	CabinBusiness Cabin = "business"
)

// BusinessPriceMultiplier converts an economy base price into the business
// base price. Computed once by the flight catalog, never re-derived here.
const BusinessPriceMultiplier = 1.5

// FlexiblePriceStep is added on top of the standard price for the flexible
// variant of either cabin.
const FlexiblePriceStep = 500_000

const (
	economyChangeFee  = 860_000
	businessChangeFee = 360_000
)

// Option is a purchasable fare variant. Derived on demand, never stored.
type Option struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Cabin          Cabin  `json:"cabin"`
	Price          int64  `json:"price"`
	ChangeFee      int64  `json:"changeFee"`
	RefundFee      int64  `json:"refundFee"`
	CheckedBaggage string `json:"checkedBaggage"`
	CarryOn        string `json:"carryOn"`
}

// Derive returns the two purchasable options for a cabin: standard at the
// base price, flexible at base+step with halved fees. Output depends only on
// the inputs.
func Derive(basePrice int64, cabin Cabin) ([]Option, error) {
	if basePrice <= 0 {
		return nil, fmt.Errorf("derive fare options: %w", apperrors.ErrInvalidBasePrice)
	}

	changeFee := int64(economyChangeFee)
	refundFee := int64(economyChangeFee)
	checkedBaggage := "1 x 23 kg"
	standardName := "Standard Economy"
	flexibleName := "Flexible Economy"
	if cabin == CabinBusiness {
		changeFee = businessChangeFee
		refundFee = businessChangeFee
		checkedBaggage = "2 x 32 kg"
		standardName = "Standard Business"
		flexibleName = "Flexible Business"
	}
	carryOn := "Up to 12 kg"

	return []Option{
		{
			ID:             fmt.Sprintf("%s1", cabin),
			Name:           standardName,
			Cabin:          cabin,
			Price:          basePrice,
			ChangeFee:      changeFee,
			RefundFee:      refundFee,
			CheckedBaggage: checkedBaggage,
			CarryOn:        carryOn,
		},
		{
			ID:             fmt.Sprintf("%s2", cabin),
			Name:           flexibleName,
			Cabin:          cabin,
			Price:          basePrice + FlexiblePriceStep,
			ChangeFee:      changeFee / 2,
			RefundFee:      refundFee / 2,
			CheckedBaggage: checkedBaggage,
			CarryOn:        carryOn,
		},
	}, nil
}

// BusinessBase converts an economy base price to the business base price.
func BusinessBase(economyBasePrice int64) int64 {
	return int64(float64(economyBasePrice) * BusinessPriceMultiplier)
}

// DeriveAll returns the combined four-option list for a flight, economy
// first: economy1, economy2, business1, business2. The business base price is
// economyBasePrice × 1.5.
func DeriveAll(economyBasePrice int64) ([]Option, error) {
	economy, err := Derive(economyBasePrice, CabinEconomy)
	if err != nil {
		return nil, err
	}

	business, err := Derive(BusinessBase(economyBasePrice), CabinBusiness)
	if err != nil {
		return nil, err
	}

	return append(economy, business...), nil
}

// Select resolves a fare option by id from the combined list of a flight.
// A stale id from a different flight fails with ErrFareNotFound.
func Select(options []Option, optionID string) (Option, error) {
	for _, opt := range options {
		if opt.ID == optionID {
			return opt, nil
		}
	}
	return Option{}, fmt.Errorf("select fare %q: %w", optionID, apperrors.ErrFareNotFound)
}
