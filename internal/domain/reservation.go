package domain

import "time"

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPartial   PaymentStatus = "partial"
	PaymentCompleted PaymentStatus = "completed"
)

const (
	CancelReasonHoldExpired   = "hold_expired"
	CancelReasonDueMissed     = "advance_due_missed"
	CancelReasonCustomer      = "customer_request"
	CancelReasonAdministrator = "administrative"
)

// Reservation is a date-ranged claim on a resource. Prices are a snapshot taken
// at creation and never recomputed.
type Reservation struct {
	ID            int64             `json:"id" gorm:"primaryKey"`
	ResourceID    int64             `json:"resource_id" gorm:"not null;index:idx_reservations_resource_start,priority:1"`
	ContainerID   int64             `json:"container_id" gorm:"not null;index"`
	UserID        int64             `json:"user_id" gorm:"not null;index;uniqueIndex:idx_reservations_user_idempotency,priority:1"`
	SlotID        *int64            `json:"slot_id,omitempty"`
	StartDate     time.Time         `json:"start_date" gorm:"not null;index:idx_reservations_resource_start,priority:2"`
	EndDate       time.Time         `json:"end_date" gorm:"not null"`
	DurationType  DurationType      `json:"duration_type" gorm:"type:varchar(16);not null"`
	DurationCount int               `json:"duration_count" gorm:"not null"`
	Status        ReservationStatus `json:"status" gorm:"type:varchar(16);not null;index"`
	PaymentStatus PaymentStatus     `json:"payment_status" gorm:"type:varchar(16);not null"`

	SeatOrBedPrice   float64    `json:"seat_or_bed_price" gorm:"not null"`
	AddOnAmount      float64    `json:"add_on_amount" gorm:"not null;default:0"`
	DiscountAmount   float64    `json:"discount_amount" gorm:"not null;default:0"`
	CouponCode       *string    `json:"coupon_code,omitempty" gorm:"type:varchar(64)"`
	TotalPrice       float64    `json:"total_price" gorm:"not null"`
	AdvanceAmount    float64    `json:"advance_amount" gorm:"not null"`
	RemainingAmount  float64    `json:"remaining_amount" gorm:"not null;default:0"`
	AmountPaid       float64    `json:"amount_paid" gorm:"not null;default:0"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	AutoCancelOnMiss bool       `json:"auto_cancel_on_miss" gorm:"not null;default:false"`

	OrderRef        string     `json:"order_ref" gorm:"type:varchar(64);not null;uniqueIndex"`
	IdempotencyHash *string    `json:"-" gorm:"type:varchar(64);uniqueIndex:idx_reservations_user_idempotency,priority:2"`
	HoldExpiresAt   *time.Time `json:"hold_expires_at,omitempty" gorm:"index"`

	RenewedFromID     *int64     `json:"renewed_from_id,omitempty"`
	TransferredFromID *int64     `json:"transferred_from_id,omitempty"`
	CancelReason      string     `json:"cancel_reason,omitempty" gorm:"type:varchar(64)"`
	ConfirmedAt       *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt       *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (Reservation) TableName() string { return "reservations" }

// Range returns the half-open interval covered by the reservation.
func (r *Reservation) Range() DateRange {
	return DateRange{Start: r.StartDate, End: r.EndDate.Add(time.Second)}
}

// Blocks reports whether the reservation occupies its resource at now.
// Confirmed reservations always do, pending holds only until they expire.
func (r *Reservation) Blocks(now time.Time) bool {
	switch r.Status {
	case ReservationConfirmed:
		return true
	case ReservationPending:
		return r.HoldExpiresAt != nil && now.Before(*r.HoldExpiresAt)
	default:
		return false
	}
}

func (r *Reservation) HoldElapsed(now time.Time) bool {
	return r.Status == ReservationPending && (r.HoldExpiresAt == nil || !now.Before(*r.HoldExpiresAt))
}

// AmountDueNow is what the payment collaborator must confirm to move a hold to confirmed.
func (r *Reservation) AmountDueNow() float64 {
	return r.AdvanceAmount
}

// TransitionGuard names the state a row must still be in for a guarded update to apply.
// Zero fields are not checked.
type TransitionGuard struct {
	Status        ReservationStatus
	PaymentStatus PaymentStatus
	ResourceID    int64
}

var transitions = map[ReservationStatus][]ReservationStatus{
	ReservationPending:   {ReservationConfirmed, ReservationCancelled},
	ReservationConfirmed: {ReservationCancelled},
}

// CanTransition reports whether a reservation may move from one status to another.
func CanTransition(from, to ReservationStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
