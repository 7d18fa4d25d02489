package pricing

import (
	"fmt"
	"math"
	"time"

	"cabinbook/internal/domain"
)

// ValidateCoupon checks that a coupon may be applied to subtotal at the given time.
func ValidateCoupon(c *domain.Coupon, subtotal float64, at time.Time) error {
	switch {
	case !c.IsActive:
		return fmt.Errorf("%w: %s is inactive", domain.ErrCouponInvalid, c.Code)
	case at.Before(c.ValidFrom):
		return fmt.Errorf("%w: %s is not valid yet", domain.ErrCouponInvalid, c.Code)
	case !at.Before(c.ValidTo):
		return fmt.Errorf("%w: %s has expired", domain.ErrCouponInvalid, c.Code)
	case c.Exhausted():
		return fmt.Errorf("%w: %s usage limit reached", domain.ErrCouponInvalid, c.Code)
	case subtotal < c.MinOrderAmount:
		return fmt.Errorf("%w: %s requires a minimum order of %.2f", domain.ErrCouponInvalid, c.Code, c.MinOrderAmount)
	}
	if c.Type != domain.CouponPercentage && c.Type != domain.CouponFixed {
		return fmt.Errorf("%w: %s has unknown type %q", domain.ErrCouponInvalid, c.Code, c.Type)
	}
	return nil
}

// Discount computes the unrounded discount against subtotal, never exceeding it.
func Discount(c *domain.Coupon, subtotal float64) float64 {
	var d float64
	switch c.Type {
	case domain.CouponPercentage:
		d = subtotal * c.Value / 100
		if c.MaxDiscountAmount != nil {
			d = math.Min(d, *c.MaxDiscountAmount)
		}
	case domain.CouponFixed:
		d = c.Value
	}
	return math.Max(0, math.Min(d, subtotal))
}
