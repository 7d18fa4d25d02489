package reservation

import (
	"context"
	"fmt"
	"strings"

	"cabinbook/internal/domain"
	"cabinbook/internal/events"
	"cabinbook/internal/modules/availability"
)

// Cancel releases a reservation. Owners may cancel pending or confirmed
// reservations that have not started; admins may cancel anything not yet
// cancelled.
func (s *Service) Cancel(ctx context.Context, in CancelInput) (*domain.Reservation, error) {
	now := s.clock()

	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = domain.CancelReasonCustomer
		if in.Admin {
			reason = domain.CancelReasonAdministrator
		}
	}

	var updated *domain.Reservation
	err := s.run(ctx, "cancel", func(ctx context.Context) error {
		r, err := s.reservations.GetByID(ctx, in.ReservationID)
		if err != nil {
			return err
		}
		if err := s.authorize(r, in.ActorID, in.Admin); err != nil {
			return err
		}
		if !domain.CanTransition(r.Status, domain.ReservationCancelled) {
			return fmt.Errorf("%w: reservation %d is %s", domain.ErrInvalidStatusTransition, r.ID, r.Status)
		}
		if !in.Admin && !r.StartDate.After(now) {
			return fmt.Errorf("%w: reservation %d has already started", domain.ErrInvalidStatusTransition, r.ID)
		}

		ok, err := s.reservations.UpdateGuarded(ctx, r.ID, domain.TransitionGuard{Status: r.Status}, map[string]any{
			"status":        domain.ReservationCancelled,
			"cancel_reason": reason,
			"cancelled_at":  now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: reservation %d changed concurrently", domain.ErrInvalidStatusTransition, r.ID)
		}
		if err := s.releaseCoupon(ctx, r); err != nil {
			return err
		}
		updated, err = s.reservations.GetByID(ctx, r.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, events.FromReservation(events.ReservationCancelled, updated, now), updated.ContainerID)
	s.log.Info("reservation cancelled", "reservation_id", updated.ID, "reason", reason, "admin", in.Admin)
	return updated, nil
}

// Transfer moves a live reservation to another free resource of the same
// container for the same dates. Prices are kept. Any failed check leaves
// both resources untouched and returns ErrTransferConflict.
func (s *Service) Transfer(ctx context.Context, in TransferInput) (*domain.Reservation, error) {
	now := s.clock()

	var updated *domain.Reservation
	var from int64
	err := s.run(ctx, "transfer", func(ctx context.Context) error {
		r, err := s.reservations.GetByID(ctx, in.ReservationID)
		if err != nil {
			return err
		}
		if err := s.authorize(r, in.ActorID, in.Admin); err != nil {
			return err
		}
		switch {
		case r.Status == domain.ReservationPending && r.HoldElapsed(now):
			return fmt.Errorf("%w: reservation %d", domain.ErrHoldExpired, r.ID)
		case r.Status != domain.ReservationPending && r.Status != domain.ReservationConfirmed:
			return fmt.Errorf("%w: reservation %d is %s", domain.ErrInvalidStatusTransition, r.ID, r.Status)
		}
		if in.TargetResourceID == r.ResourceID {
			return fmt.Errorf("%w: target is the current resource", domain.ErrTransferConflict)
		}

		locked, err := s.catalog.LockResources(ctx, r.ResourceID, in.TargetResourceID)
		if err != nil {
			return err
		}
		if !containsResource(locked, in.TargetResourceID) {
			return fmt.Errorf("%w: resource %d does not exist", domain.ErrTransferConflict, in.TargetResourceID)
		}

		target, err := s.catalog.GetResource(ctx, in.TargetResourceID)
		if err != nil {
			return err
		}
		switch {
		case target.ContainerID != r.ContainerID:
			return fmt.Errorf("%w: resource %d belongs to another container", domain.ErrTransferConflict, target.ID)
		case !target.IsActive || target.IsBlocked:
			return fmt.Errorf("%w: resource %d is not bookable", domain.ErrTransferConflict, target.ID)
		}

		var slotID *int64
		if r.SlotID != nil {
			source, err := s.catalog.GetResource(ctx, r.ResourceID)
			if err != nil {
				return err
			}
			slot := source.FindSlot(*r.SlotID)
			if slot == nil {
				return fmt.Errorf("%w: slot %d no longer exists", domain.ErrTransferConflict, *r.SlotID)
			}
			mapped := target.FindSlotByName(slot.Name)
			if mapped == nil {
				return fmt.Errorf("%w: resource %d has no %q slot", domain.ErrTransferConflict, target.ID, slot.Name)
			}
			slotID = &mapped.ID
		}

		rng := r.Range()
		blocking, err := s.reservations.ListBlocking(ctx, []int64{target.ID}, rng, now)
		if err != nil {
			return err
		}
		if res := availability.NewIndex(blocking, now).Check(*target, rng); !res.Available {
			return fmt.Errorf("%w: %w", domain.ErrTransferConflict, res.Err())
		}

		ok, err := s.reservations.UpdateGuarded(ctx, r.ID, domain.TransitionGuard{Status: r.Status, ResourceID: r.ResourceID}, map[string]any{
			"resource_id":         target.ID,
			"slot_id":             slotID,
			"transferred_from_id": r.ResourceID,
		})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: reservation %d changed concurrently", domain.ErrTransferConflict, r.ID)
		}
		from = r.ResourceID
		updated, err = s.reservations.GetByID(ctx, r.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	e := events.FromReservation(events.ReservationTransferred, updated, now)
	e.PreviousResourceID = from
	s.afterCommit(ctx, e, updated.ContainerID)
	s.log.Info("reservation transferred", "reservation_id", updated.ID, "from", from, "to", updated.ResourceID)
	return updated, nil
}

func containsResource(list []domain.Resource, id int64) bool {
	for _, r := range list {
		if r.ID == id {
			return true
		}
	}
	return false
}
