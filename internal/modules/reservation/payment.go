package reservation

import (
	"context"
	"fmt"
	"math"

	"cabinbook/internal/domain"
	"cabinbook/internal/events"
)

func sameAmount(a, b float64) bool {
	return math.Abs(a-b) < 0.005
}

// ConfirmPayment reconciles a confirmed payment for orderRef. The first
// payment must equal the amount due now and moves a live hold to confirmed.
// A second payment equal to the remaining balance completes a partial one.
// Paying for an elapsed hold cancels it and returns ErrHoldExpired.
func (s *Service) ConfirmPayment(ctx context.Context, orderRef string, amount float64) (*domain.Reservation, error) {
	now := s.clock()

	var updated *domain.Reservation
	var eventType events.Type
	err := s.run(ctx, "confirm_payment", func(ctx context.Context) error {
		updated, eventType = nil, ""

		r, err := s.reservations.GetByOrderRef(ctx, orderRef)
		if err != nil {
			return err
		}

		var guard domain.TransitionGuard
		var changes map[string]any
		switch r.Status {
		case domain.ReservationCancelled:
			return fmt.Errorf("%w: reservation %d is cancelled", domain.ErrInvalidStatusTransition, r.ID)

		case domain.ReservationPending:
			guard = domain.TransitionGuard{Status: domain.ReservationPending}
			if r.HoldElapsed(now) {
				eventType = events.ReservationExpired
				changes = map[string]any{
					"status":        domain.ReservationCancelled,
					"cancel_reason": domain.CancelReasonHoldExpired,
					"cancelled_at":  now,
				}
				break
			}
			if !sameAmount(amount, r.AmountDueNow()) {
				return fmt.Errorf("%w: expected %.2f, got %.2f", domain.ErrPaymentMismatch, r.AmountDueNow(), amount)
			}
			paymentStatus := domain.PaymentCompleted
			if r.RemainingAmount > 0 {
				paymentStatus = domain.PaymentPartial
			}
			eventType = events.ReservationConfirmed
			changes = map[string]any{
				"status":          domain.ReservationConfirmed,
				"payment_status":  paymentStatus,
				"amount_paid":     r.AmountPaid + amount,
				"confirmed_at":    now,
				"hold_expires_at": nil,
			}

		case domain.ReservationConfirmed:
			if r.PaymentStatus != domain.PaymentPartial {
				return fmt.Errorf("%w: reservation %d is already paid", domain.ErrInvalidStatusTransition, r.ID)
			}
			if !sameAmount(amount, r.RemainingAmount) {
				return fmt.Errorf("%w: expected %.2f, got %.2f", domain.ErrPaymentMismatch, r.RemainingAmount, amount)
			}
			guard = domain.TransitionGuard{Status: domain.ReservationConfirmed, PaymentStatus: domain.PaymentPartial}
			eventType = events.ReservationPaymentCompleted
			changes = map[string]any{
				"payment_status": domain.PaymentCompleted,
				"amount_paid":    r.AmountPaid + amount,
			}

		default:
			return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidStatusTransition, r.Status)
		}

		ok, err := s.reservations.UpdateGuarded(ctx, r.ID, guard, changes)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: reservation %d changed concurrently", domain.ErrInvalidStatusTransition, r.ID)
		}
		if eventType == events.ReservationExpired {
			if err := s.releaseCoupon(ctx, r); err != nil {
				return err
			}
		}
		updated, err = s.reservations.GetByID(ctx, r.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, events.FromReservation(eventType, updated, now), updated.ContainerID)
	if eventType == events.ReservationExpired {
		s.log.Info("payment arrived after hold expired", "reservation_id", updated.ID, "order_ref", orderRef)
		return updated, fmt.Errorf("%w: reservation %d", domain.ErrHoldExpired, updated.ID)
	}
	s.log.Info("payment confirmed",
		"reservation_id", updated.ID,
		"payment_status", updated.PaymentStatus,
		"amount", amount,
	)
	return updated, nil
}
