package pricing

import (
	"math"
	"time"

	"cabinbook/internal/domain"
)

// AddOn is a flat fee added on top of the seat or bed price.
type AddOn struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

type Input struct {
	BasePrice     float64
	Category      *domain.Category
	Slot          *domain.Slot
	MonthlyFactor float64
	AddOns        []AddOn
	Coupon        *domain.Coupon
	At            time.Time
}

// Quote is an itemized price. Only SeatOrBedPrice, Discount and Total are
// rounded; intermediate values keep full precision.
type Quote struct {
	EffectiveMonthlyPrice float64 `json:"effective_monthly_price"`
	MonthlyFactor         float64 `json:"monthly_factor"`
	SeatOrBedPrice        float64 `json:"seat_or_bed_price"`
	AddOns                []AddOn `json:"add_ons,omitempty"`
	AddOnTotal            float64 `json:"add_on_total"`
	Subtotal              float64 `json:"subtotal"`
	CouponCode            string  `json:"coupon_code,omitempty"`
	Discount              float64 `json:"discount"`
	Total                 float64 `json:"total"`
}

// Round2 rounds a monetary value to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// EffectiveMonthlyPrice picks the monthly rate a booking is priced from. A
// selected slot's price is used verbatim; otherwise the base price is adjusted
// by the category.
func EffectiveMonthlyPrice(basePrice float64, category *domain.Category, slot *domain.Slot) float64 {
	if slot != nil {
		return slot.Price
	}
	if category == nil {
		return basePrice
	}
	switch category.AdjustmentType {
	case domain.AdjustmentOverride:
		return category.Amount
	case domain.AdjustmentFlat:
		return math.Max(0, basePrice+category.Amount)
	}
	return basePrice
}

// Calculate prices a booking. An invalid coupon fails the whole quote with
// ErrCouponInvalid rather than silently pricing without it.
func Calculate(in Input) (Quote, error) {
	monthly := EffectiveMonthlyPrice(in.BasePrice, in.Category, in.Slot)

	q := Quote{
		EffectiveMonthlyPrice: monthly,
		MonthlyFactor:         in.MonthlyFactor,
		SeatOrBedPrice:        Round2(monthly * in.MonthlyFactor),
		AddOns:                in.AddOns,
	}
	for _, a := range in.AddOns {
		q.AddOnTotal += a.Amount
	}
	q.Subtotal = q.SeatOrBedPrice + q.AddOnTotal

	if in.Coupon != nil {
		if err := ValidateCoupon(in.Coupon, q.Subtotal, in.At); err != nil {
			return Quote{}, err
		}
		q.CouponCode = in.Coupon.Code
		q.Discount = Round2(Discount(in.Coupon, q.Subtotal))
	}

	q.Total = math.Max(0, Round2(q.Subtotal-q.Discount))
	return q, nil
}
