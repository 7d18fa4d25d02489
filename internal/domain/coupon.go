package domain

import "time"

type CouponType string

const (
	CouponPercentage CouponType = "percentage"
	CouponFixed      CouponType = "fixed"
)

// Coupon is applied at most once per reservation against the pre-discount subtotal.
type Coupon struct {
	ID                int64      `json:"id" gorm:"primaryKey"`
	Code              string     `json:"code" gorm:"type:varchar(64);not null;uniqueIndex"`
	Type              CouponType `json:"type" gorm:"type:varchar(16);not null"`
	Value             float64    `json:"value" gorm:"not null"`
	MaxDiscountAmount *float64   `json:"max_discount_amount,omitempty"`
	MinOrderAmount    float64    `json:"min_order_amount" gorm:"not null;default:0"`
	ValidFrom         time.Time  `json:"valid_from" gorm:"not null"`
	ValidTo           time.Time  `json:"valid_to" gorm:"not null"`
	UsageLimit        int        `json:"usage_limit" gorm:"not null;default:0"` // 0 means unlimited
	UsedCount         int        `json:"used_count" gorm:"not null;default:0"`
	IsActive          bool       `json:"is_active" gorm:"not null"`
	CreatedAt         time.Time  `json:"created_at"`
}

func (Coupon) TableName() string { return "coupons" }

func (c *Coupon) Exhausted() bool {
	return c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit
}
