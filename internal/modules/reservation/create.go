package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"cabinbook/internal/domain"
	"cabinbook/internal/events"
	"cabinbook/internal/modules/availability"
	"cabinbook/internal/modules/pricing"
)

const cancelReasonOrderFailed = "payment_order_failed"

// draft is a booking request resolved against the catalog.
type draft struct {
	resource  *domain.Resource
	container *domain.Container
	slot      *domain.Slot
	span      domain.Span
	coupon    *domain.Coupon
	quote     pricing.Quote
	plan      pricing.PaymentPlan
}

func validateCreate(in CreateInput) error {
	switch {
	case in.UserID <= 0:
		return fmt.Errorf("%w: user is required", domain.ErrValidation)
	case in.ResourceID <= 0:
		return fmt.Errorf("%w: resource_id is required", domain.ErrValidation)
	case !in.DurationType.Valid():
		return fmt.Errorf("%w: unknown duration type %q", domain.ErrValidation, in.DurationType)
	}
	return nil
}

// prepare normalizes the duration and loads the resource, its container and
// the selected slot, enforcing the advance booking window.
func (s *Service) prepare(ctx context.Context, in CreateInput, now time.Time) (*draft, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}
	span, err := domain.NormalizeDuration(in.StartDate.In(s.cfg.Location), in.DurationType, in.DurationCount)
	if err != nil {
		return nil, err
	}

	resource, err := s.catalog.GetResource(ctx, in.ResourceID)
	if err != nil {
		return nil, err
	}
	container, err := s.catalog.GetContainer(ctx, resource.ContainerID)
	if err != nil {
		return nil, err
	}
	if !container.IsActive {
		return nil, &domain.ConflictError{ResourceID: resource.ID, Blocked: true}
	}
	if err := availability.CheckAdvanceWindow(span.Start, now, container.MaxAdvanceBookingDays); err != nil {
		return nil, err
	}

	d := &draft{resource: resource, container: container, span: span}
	if in.SlotID != nil {
		if d.slot = resource.FindSlot(*in.SlotID); d.slot == nil {
			return nil, fmt.Errorf("%w: slot %d does not belong to resource %d", domain.ErrValidation, *in.SlotID, resource.ID)
		}
	}
	return d, nil
}

func (s *Service) checkFree(ctx context.Context, d *draft, now time.Time) (availability.Result, error) {
	rng := d.span.Range()
	blocking, err := s.reservations.ListBlocking(ctx, []int64{d.resource.ID}, rng, now)
	if err != nil {
		return availability.Result{}, err
	}
	return availability.NewIndex(blocking, now).Check(*d.resource, rng), nil
}

func (s *Service) price(ctx context.Context, d *draft, in CreateInput, now time.Time) error {
	var addOns []pricing.AddOn
	if in.WithLocker && d.container.LockerFee > 0 {
		addOns = append(addOns, pricing.AddOn{Name: "locker", Amount: d.container.LockerFee})
	}
	if d.container.SecurityDeposit > 0 {
		addOns = append(addOns, pricing.AddOn{Name: "security_deposit", Amount: d.container.SecurityDeposit})
	}

	if code := strings.TrimSpace(in.CouponCode); code != "" {
		coupon, err := s.catalog.GetCouponByCode(ctx, code)
		if err != nil {
			return err
		}
		d.coupon = coupon
	}

	q, err := pricing.Calculate(pricing.Input{
		BasePrice:     d.resource.BasePrice,
		Category:      d.resource.Category,
		Slot:          d.slot,
		MonthlyFactor: d.span.MonthlyFactor,
		AddOns:        addOns,
		Coupon:        d.coupon,
		At:            now,
	})
	if err != nil {
		return err
	}
	d.quote = q

	d.plan = pricing.FullPayment(q.Total)
	if in.UseAdvance {
		d.plan = pricing.Plan(q.Total, d.container.AdvancePolicy, in.DurationType, d.span.Start)
	}
	return nil
}

func (s *Service) newReservation(d *draft, in CreateInput, now time.Time, hash string, renewedFrom *int64) *domain.Reservation {
	r := &domain.Reservation{
		ResourceID:      d.resource.ID,
		ContainerID:     d.container.ID,
		UserID:          in.UserID,
		StartDate:       d.span.Start,
		EndDate:         d.span.End,
		DurationType:    in.DurationType,
		DurationCount:   in.DurationCount,
		Status:          domain.ReservationPending,
		PaymentStatus:   domain.PaymentPending,
		SeatOrBedPrice:  d.quote.SeatOrBedPrice,
		AddOnAmount:     pricing.Round2(d.quote.AddOnTotal),
		DiscountAmount:  d.quote.Discount,
		TotalPrice:      d.quote.Total,
		AdvanceAmount:   d.plan.AmountDueNow,
		RemainingAmount: d.plan.RemainingDue,
		DueDate:         d.plan.DueDate,
		OrderRef:        uuid.NewString(),
		RenewedFromID:   renewedFrom,
	}
	r.AutoCancelOnMiss = d.plan.Partial() && d.container.AdvancePolicy.AutoCancelOnMiss
	if d.slot != nil {
		r.SlotID = &d.slot.ID
	}
	if d.coupon != nil {
		code := d.coupon.Code
		r.CouponCode = &code
	}
	if hash != "" {
		r.IdempotencyHash = &hash
	}

	// Nothing to collect: confirm immediately.
	if r.TotalPrice == 0 {
		r.Status = domain.ReservationConfirmed
		r.PaymentStatus = domain.PaymentCompleted
		r.ConfirmedAt = &now
		return r
	}
	hold := now.Add(s.cfg.HoldDuration)
	r.HoldExpiresAt = &hold
	return r
}

// Quote prices a request and reports whether the resource is free, without
// reserving anything.
func (s *Service) Quote(ctx context.Context, in CreateInput) (*QuoteResult, error) {
	now := s.clock()
	d, err := s.prepare(ctx, in, now)
	if err != nil {
		return nil, err
	}
	res, err := s.checkFree(ctx, d, now)
	if err != nil {
		return nil, err
	}
	if err := s.price(ctx, d, in, now); err != nil {
		return nil, err
	}
	return &QuoteResult{Span: d.span, Quote: d.quote, Plan: d.plan, Available: res.Available}, nil
}

// Create places a hold on a free resource and returns what must be paid now.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Receipt, error) {
	return s.create(ctx, in, nil)
}

func (s *Service) create(ctx context.Context, in CreateInput, renewedFrom *int64) (*Receipt, error) {
	now := s.clock()
	var hash string
	if in.IdempotencyKey != "" {
		hash = IdempotencyHash(in.IdempotencyKey)
	}

	var created *domain.Reservation
	var replayed bool
	err := s.run(ctx, "create", func(ctx context.Context) error {
		created, replayed = nil, false

		if hash != "" {
			existing, err := s.reservations.FindByIdempotencyHash(ctx, in.UserID, hash)
			if err == nil {
				created, replayed = existing, true
				return nil
			}
			if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
		}

		if _, err := s.catalog.LockResources(ctx, in.ResourceID); err != nil {
			return err
		}
		d, err := s.prepare(ctx, in, now)
		if err != nil {
			return err
		}
		res, err := s.checkFree(ctx, d, now)
		if err != nil {
			return err
		}
		if !res.Available {
			return res.Err()
		}
		if err := s.price(ctx, d, in, now); err != nil {
			return err
		}

		r := s.newReservation(d, in, now, hash, renewedFrom)
		if err := s.reservations.Create(ctx, r); err != nil {
			return err
		}
		if d.coupon != nil {
			ok, err := s.catalog.ConsumeCoupon(ctx, d.coupon.ID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %s usage limit reached", domain.ErrCouponInvalid, d.coupon.Code)
			}
		}
		created = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	if replayed {
		s.log.Info("idempotent create replayed", "reservation_id", created.ID, "user_id", in.UserID)
		return receiptFor(created, true), nil
	}

	var paymentURL string
	if s.gateway != nil && created.Status == domain.ReservationPending {
		paymentURL, err = s.gateway.CreateOrder(ctx, created.OrderRef, created.AmountDueNow())
		if err != nil {
			s.log.Error("payment order failed, releasing hold", "reservation_id", created.ID, "error", err)
			s.releaseHold(ctx, created, now)
			return nil, fmt.Errorf("create payment order: %w", err)
		}
	}

	eventType := events.ReservationCreated
	if renewedFrom != nil {
		eventType = events.ReservationRenewed
	}
	s.afterCommit(ctx, events.FromReservation(eventType, created, now), created.ContainerID)
	s.log.Info("reservation created",
		"reservation_id", created.ID,
		"resource_id", created.ResourceID,
		"user_id", created.UserID,
		"total", created.TotalPrice,
		"due_now", created.AmountDueNow(),
	)
	receipt := receiptFor(created, false)
	receipt.PaymentURL = paymentURL
	return receipt, nil
}

func (s *Service) releaseHold(ctx context.Context, r *domain.Reservation, now time.Time) {
	var ok bool
	err := s.run(ctx, "release_hold", func(ctx context.Context) error {
		var err error
		ok, err = s.reservations.UpdateGuarded(ctx, r.ID, domain.TransitionGuard{Status: domain.ReservationPending}, map[string]any{
			"status":        domain.ReservationCancelled,
			"cancel_reason": cancelReasonOrderFailed,
			"cancelled_at":  now,
		})
		if err != nil || !ok {
			return err
		}
		return s.releaseCoupon(ctx, r)
	})
	if err != nil || !ok {
		s.log.Error("releasing hold failed", "reservation_id", r.ID, "error", err)
		return
	}
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, r.ContainerID)
	}
}

// Renew books the same resource again for the same user, starting the day
// after the later of the user's latest booking end and the requested start.
func (s *Service) Renew(ctx context.Context, in RenewInput) (*Receipt, error) {
	src, err := s.reservations.GetByID(ctx, in.ReservationID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(src, in.ActorID, in.Admin); err != nil {
		return nil, err
	}
	if src.Status != domain.ReservationConfirmed {
		return nil, fmt.Errorf("%w: only confirmed reservations can be renewed", domain.ErrInvalidStatusTransition)
	}

	now := s.clock()
	start, err := s.renewalStart(ctx, src, in.RequestedStart, now)
	if err != nil {
		return nil, err
	}

	return s.create(ctx, CreateInput{
		UserID:         src.UserID,
		ResourceID:     src.ResourceID,
		SlotID:         src.SlotID,
		StartDate:      start,
		DurationType:   in.DurationType,
		DurationCount:  in.DurationCount,
		CouponCode:     in.CouponCode,
		UseAdvance:     in.UseAdvance,
		WithLocker:     in.WithLocker,
		IdempotencyKey: in.IdempotencyKey,
	}, &src.ID)
}

// renewalStart returns the day after the latest of the source end, every
// blocking reservation the user holds on the resource from today on, and the
// requested start. The result is always strictly after all of them. A source
// that already ended does not count, so renewing it starts no earlier than
// today.
func (s *Service) renewalStart(ctx context.Context, src *domain.Reservation, requested *time.Time, now time.Time) (time.Time, error) {
	today := domain.StartOfDay(now.In(s.cfg.Location))
	latest, err := s.reservations.LatestEndForUser(ctx, src.ResourceID, src.UserID, today, now)
	if err != nil {
		return time.Time{}, err
	}

	end := today.AddDate(0, 0, -1)
	if src.EndDate.After(end) {
		end = src.EndDate
	}
	if latest != nil && latest.After(end) {
		end = *latest
	}
	if requested != nil && requested.After(end) {
		end = *requested
	}
	return domain.StartOfDay(end.In(s.cfg.Location)).AddDate(0, 0, 1), nil
}
