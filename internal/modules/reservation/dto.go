package reservation

import (
	"time"

	"cabinbook/internal/domain"
	"cabinbook/internal/modules/pricing"
)

// CreateInput is a validated booking request.
type CreateInput struct {
	UserID         int64
	ResourceID     int64
	SlotID         *int64
	StartDate      time.Time
	DurationType   domain.DurationType
	DurationCount  int
	CouponCode     string
	UseAdvance     bool
	WithLocker     bool
	IdempotencyKey string
}

type RenewInput struct {
	ReservationID  int64
	ActorID        int64
	Admin          bool
	DurationType   domain.DurationType
	DurationCount  int
	RequestedStart *time.Time
	CouponCode     string
	UseAdvance     bool
	WithLocker     bool
	IdempotencyKey string
}

type CancelInput struct {
	ReservationID int64
	ActorID       int64
	Admin         bool
	Reason        string
}

type TransferInput struct {
	ReservationID    int64
	ActorID          int64
	Admin            bool
	TargetResourceID int64
}

// Receipt is returned by create and renew.
type Receipt struct {
	ReservationID int64                    `json:"reservation_id"`
	OrderRef      string                   `json:"order_ref"`
	Status        domain.ReservationStatus `json:"status"`
	StartDate     time.Time                `json:"start_date"`
	EndDate       time.Time                `json:"end_date"`
	TotalPrice    float64                  `json:"total_price"`
	AmountDueNow  float64                  `json:"amount_due_now"`
	RemainingDue  float64                  `json:"remaining_due"`
	DueDate       *time.Time               `json:"due_date,omitempty"`
	HoldExpiresAt *time.Time               `json:"hold_expires_at,omitempty"`
	PaymentURL    string                   `json:"payment_url,omitempty"`
	Replayed      bool                     `json:"replayed,omitempty"`
}

func receiptFor(r *domain.Reservation, replayed bool) *Receipt {
	return &Receipt{
		ReservationID: r.ID,
		OrderRef:      r.OrderRef,
		Status:        r.Status,
		StartDate:     r.StartDate,
		EndDate:       r.EndDate,
		TotalPrice:    r.TotalPrice,
		AmountDueNow:  r.AmountDueNow(),
		RemainingDue:  r.RemainingAmount,
		DueDate:       r.DueDate,
		HoldExpiresAt: r.HoldExpiresAt,
		Replayed:      replayed,
	}
}

// QuoteResult prices a request without reserving anything.
type QuoteResult struct {
	Span      domain.Span         `json:"span"`
	Quote     pricing.Quote       `json:"quote"`
	Plan      pricing.PaymentPlan `json:"plan"`
	Available bool                `json:"available"`
}

// HTTP payloads.

type createRequest struct {
	ResourceID    int64  `json:"resource_id" validate:"required,gt=0"`
	SlotID        *int64 `json:"slot_id" validate:"omitempty,gt=0"`
	StartDate     string `json:"start_date" validate:"required,datetime=2006-01-02"`
	DurationType  string `json:"duration_type" validate:"required,duration_type"`
	DurationCount int    `json:"duration_count"`
	CouponCode    string `json:"coupon_code" validate:"omitempty,max=64"`
	UseAdvance    bool   `json:"use_advance"`
	WithLocker    bool   `json:"with_locker"`
}

type renewRequest struct {
	DurationType   string `json:"duration_type" validate:"required,duration_type"`
	DurationCount  int    `json:"duration_count"`
	RequestedStart string `json:"requested_start" validate:"omitempty,datetime=2006-01-02"`
	CouponCode     string `json:"coupon_code" validate:"omitempty,max=64"`
	UseAdvance     bool   `json:"use_advance"`
	WithLocker     bool   `json:"with_locker"`
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=64"`
}

type transferRequest struct {
	TargetResourceID int64 `json:"target_resource_id" validate:"required,gt=0"`
}

type confirmPaymentRequest struct {
	OrderRef string  `json:"order_ref" validate:"required"`
	Amount   float64 `json:"amount" validate:"gte=0"`
}
