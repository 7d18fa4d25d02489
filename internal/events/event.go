package events

import (
	"time"

	"github.com/google/uuid"

	"cabinbook/internal/domain"
)

type Type string

const (
	ReservationCreated          Type = "reservation.created"
	ReservationConfirmed        Type = "reservation.confirmed"
	ReservationPaymentCompleted Type = "reservation.payment_completed"
	ReservationCancelled        Type = "reservation.cancelled"
	ReservationExpired          Type = "reservation.expired"
	ReservationRenewed          Type = "reservation.renewed"
	ReservationTransferred      Type = "reservation.transferred"
)

// Event describes a committed reservation change.
type Event struct {
	ID                 string                   `json:"id"`
	Type               Type                     `json:"type"`
	ReservationID      int64                    `json:"reservation_id"`
	ResourceID         int64                    `json:"resource_id"`
	PreviousResourceID int64                    `json:"previous_resource_id,omitempty"`
	ContainerID        int64                    `json:"container_id"`
	UserID             int64                    `json:"user_id"`
	Status             domain.ReservationStatus `json:"status"`
	PaymentStatus      domain.PaymentStatus     `json:"payment_status"`
	StartDate          time.Time                `json:"start_date"`
	EndDate            time.Time                `json:"end_date"`
	Reason             string                   `json:"reason,omitempty"`
	OccurredAt         time.Time                `json:"occurred_at"`
}

// FromReservation builds an event snapshot of r.
func FromReservation(t Type, r *domain.Reservation, at time.Time) Event {
	return Event{
		ID:            uuid.NewString(),
		Type:          t,
		ReservationID: r.ID,
		ResourceID:    r.ResourceID,
		ContainerID:   r.ContainerID,
		UserID:        r.UserID,
		Status:        r.Status,
		PaymentStatus: r.PaymentStatus,
		StartDate:     r.StartDate,
		EndDate:       r.EndDate,
		Reason:        r.CancelReason,
		OccurredAt:    at.UTC(),
	}
}
