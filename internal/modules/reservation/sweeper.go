package reservation

import (
	"context"
	"fmt"
	"time"

	"cabinbook/internal/domain"
	"cabinbook/internal/events"
)

// SweepResult counts what one sweep changed.
type SweepResult struct {
	ExpiredHolds int           `json:"expired_holds"`
	MissedDues   int           `json:"missed_dues"`
	Failed       int           `json:"failed"`
	Duration     time.Duration `json:"duration"`
}

// SweepOnce cancels elapsed holds and partially paid reservations whose due
// date passed under an auto-cancel policy. Each item is an independent guarded
// transition, so the sweep is safe to run concurrently with itself and with
// payments. A failing item is logged and skipped.
func (s *Service) SweepOnce(ctx context.Context) (SweepResult, error) {
	started := time.Now()
	now := s.clock()
	var result SweepResult

	holds, err := s.reservations.ListExpiredHolds(ctx, now, s.cfg.SweepBatchSize)
	if err != nil {
		return result, fmt.Errorf("list expired holds: %w", err)
	}
	for i := range holds {
		ok, err := s.sweepItem(ctx, &holds[i], domain.TransitionGuard{Status: domain.ReservationPending},
			domain.CancelReasonHoldExpired, events.ReservationExpired, now)
		switch {
		case err != nil:
			result.Failed++
		case ok:
			result.ExpiredHolds++
		}
	}

	dues, err := s.reservations.ListOverdueDues(ctx, now, s.cfg.SweepBatchSize)
	if err != nil {
		return result, fmt.Errorf("list overdue dues: %w", err)
	}
	for i := range dues {
		guard := domain.TransitionGuard{Status: domain.ReservationConfirmed, PaymentStatus: domain.PaymentPartial}
		ok, err := s.sweepItem(ctx, &dues[i], guard, domain.CancelReasonDueMissed, events.ReservationCancelled, now)
		switch {
		case err != nil:
			result.Failed++
		case ok:
			result.MissedDues++
		}
	}

	result.Duration = time.Since(started)
	s.log.Info("sweep completed",
		"expired_holds", result.ExpiredHolds,
		"missed_dues", result.MissedDues,
		"failed", result.Failed,
		"duration", result.Duration,
	)
	return result, nil
}

func (s *Service) sweepItem(ctx context.Context, r *domain.Reservation, guard domain.TransitionGuard, reason string, t events.Type, now time.Time) (bool, error) {
	var ok bool
	err := s.run(ctx, "sweep", func(ctx context.Context) error {
		var err error
		ok, err = s.reservations.UpdateGuarded(ctx, r.ID, guard, map[string]any{
			"status":        domain.ReservationCancelled,
			"cancel_reason": reason,
			"cancelled_at":  now,
		})
		if err != nil || !ok {
			return err
		}
		return s.releaseCoupon(ctx, r)
	})
	if err != nil {
		s.log.Warn("sweep item failed", "reservation_id", r.ID, "reason", reason, "error", err)
		return false, err
	}
	if !ok {
		// already moved on by a payment or another sweep
		return false, nil
	}

	r.Status = domain.ReservationCancelled
	r.CancelReason = reason
	r.CancelledAt = &now
	s.afterCommit(ctx, events.FromReservation(t, r, now), r.ContainerID)
	return true, nil
}

// Schedule runs SweepOnce every interval until ctx is done or the returned
// channel is closed.
func (s *Service) Schedule(ctx context.Context, interval time.Duration) chan struct{} {
	stopCh := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := s.SweepOnce(ctx); err != nil {
					s.log.Error("scheduled sweep failed", "error", err)
				}
			case <-stopCh:
				s.log.Info("sweep scheduler stopped")
				return
			case <-ctx.Done():
				s.log.Info("sweep scheduler stopped", "reason", ctx.Err())
				return
			}
		}
	}()

	s.log.Info("sweep scheduler started", "interval", interval)
	return stopCh
}
