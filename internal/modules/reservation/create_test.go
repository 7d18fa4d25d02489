package reservation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cabinbook/internal/domain"
	"cabinbook/internal/events"
)

func TestCreate_PlacesHold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	receipt, err := f.svc.Create(ctx, monthly(7, f.s1.ID, day(2024, 1, 15)))
	require.NoError(t, err)

	assert.Equal(t, domain.ReservationPending, receipt.Status)
	assert.True(t, receipt.StartDate.Equal(day(2024, 1, 15)))
	assert.True(t, receipt.EndDate.Equal(day(2024, 2, 15).Add(-time.Second)))
	assert.Equal(t, 3000.0, receipt.TotalPrice)
	assert.Equal(t, 3000.0, receipt.AmountDueNow)
	assert.Zero(t, receipt.RemainingDue)
	assert.Nil(t, receipt.DueDate)
	require.NotNil(t, receipt.HoldExpiresAt)
	assert.True(t, receipt.HoldExpiresAt.Equal(fixtureNow.Add(DefaultHoldDuration)))
	assert.False(t, receipt.Replayed)
	assert.Equal(t, "https://pay.test/"+receipt.OrderRef, receipt.PaymentURL)

	assert.Equal(t, 3000.0, f.gateway.orders[receipt.OrderRef])
	assert.Equal(t, []events.Type{events.ReservationCreated}, f.publisher.types())
	assert.Equal(t, 1, f.cache.invalidated[f.hall.ID])

	stored := f.get(t, receipt.ReservationID)
	assert.Equal(t, f.hall.ID, stored.ContainerID)
	assert.Equal(t, 3000.0, stored.SeatOrBedPrice)
	assert.Equal(t, domain.PaymentPending, stored.PaymentStatus)
}

func TestCreate_Pricing(t *testing.T) {
	tests := []struct {
		name  string
		in    func(f *fixture) CreateInput
		total float64
	}{
		{
			name:  "daily prorates the monthly price",
			in:    func(f *fixture) CreateInput { return daily(7, f.s1.ID, day(2024, 1, 15), 10) },
			total: 1000,
		},
		{
			name:  "weekly applies the category adjustment",
			in:    func(f *fixture) CreateInput { return CreateInput{UserID: 7, ResourceID: f.s2.ID, StartDate: day(2024, 1, 15), DurationType: domain.DurationWeekly, DurationCount: 2} },
			total: 1600,
		},
		{
			name: "slot price replaces the full day price",
			in: func(f *fixture) CreateInput {
				in := daily(7, f.s2.ID, day(2024, 1, 15), 10)
				slot := f.slotID(t, f.s2.ID, "morning")
				in.SlotID = &slot
				return in
			},
			total: 533.33,
		},
		{
			name: "locker fee is added on request",
			in: func(f *fixture) CreateInput {
				in := daily(7, f.s1.ID, day(2024, 1, 15), 10)
				in.WithLocker = true
				return in
			},
			total: 1100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			receipt, err := f.svc.Create(context.Background(), tt.in(f))
			require.NoError(t, err)
			assert.InDelta(t, tt.total, receipt.TotalPrice, 0.001)
		})
	}
}

func TestCreate_RejectsOverlapButAllowsTouchingBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	existing := f.insert(t, f.s1.ID, 8, day(2024, 1, 1), 31, domain.ReservationConfirmed)

	_, err := f.svc.Create(ctx, daily(7, f.s1.ID, day(2024, 1, 15), 5))
	require.ErrorIs(t, err, domain.ErrResourceConflict)
	var conflict *domain.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, f.s1.ID, conflict.ResourceID)
	assert.Equal(t, []int64{existing.ID}, conflict.ReservationIDs)
	assert.Zero(t, f.gateway.count())

	receipt, err := f.svc.Create(ctx, daily(7, f.s1.ID, day(2024, 2, 1), 9))
	require.NoError(t, err)
	assert.True(t, receipt.StartDate.Equal(day(2024, 2, 1)))
}

func TestCreate_LiveHoldBlocksExpiredHoldDoesNot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, daily(7, f.s1.ID, day(2024, 1, 15), 5))
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, daily(8, f.s1.ID, day(2024, 1, 17), 5))
	require.ErrorIs(t, err, domain.ErrResourceConflict)

	f.advance(DefaultHoldDuration)
	_, err = f.svc.Create(ctx, daily(8, f.s1.ID, day(2024, 1, 17), 5))
	require.NoError(t, err)
}

func TestCreate_Rejections(t *testing.T) {
	tests := []struct {
		name string
		in   func(f *fixture) CreateInput
		want error
	}{
		{
			name: "blocked resource",
			in:   func(f *fixture) CreateInput { return daily(7, f.s3.ID, day(2024, 1, 15), 5) },
			want: domain.ErrResourceConflict,
		},
		{
			name: "zero count",
			in:   func(f *fixture) CreateInput { return daily(7, f.s1.ID, day(2024, 1, 15), 0) },
			want: domain.ErrInvalidDuration,
		},
		{
			name: "unknown duration type",
			in: func(f *fixture) CreateInput {
				in := daily(7, f.s1.ID, day(2024, 1, 15), 1)
				in.DurationType = "yearly"
				return in
			},
			want: domain.ErrValidation,
		},
		{
			name: "start in the past",
			in:   func(f *fixture) CreateInput { return daily(7, f.s1.ID, day(2024, 1, 9), 2) },
			want: domain.ErrValidation,
		},
		{
			name: "beyond the advance window",
			in:   func(f *fixture) CreateInput { return daily(7, f.s1.ID, day(2024, 3, 11), 2) },
			want: domain.ErrAdvanceWindowExceeded,
		},
		{
			name: "unknown resource",
			in:   func(f *fixture) CreateInput { return daily(7, 999, day(2024, 1, 15), 2) },
			want: domain.ErrNotFound,
		},
		{
			name: "slot of another resource",
			in: func(f *fixture) CreateInput {
				in := daily(7, f.s1.ID, day(2024, 1, 15), 2)
				slot := f.slotID(t, f.s2.ID, "morning")
				in.SlotID = &slot
				return in
			},
			want: domain.ErrValidation,
		},
		{
			name: "unknown coupon",
			in: func(f *fixture) CreateInput {
				in := daily(7, f.s1.ID, day(2024, 1, 15), 2)
				in.CouponCode = "NOPE"
				return in
			},
			want: domain.ErrCouponInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Create(context.Background(), tt.in(f))
			require.ErrorIs(t, err, tt.want)

			var n int64
			require.NoError(t, f.db.Model(&domain.Reservation{}).Count(&n).Error)
			assert.Zero(t, n)
			assert.Empty(t, f.publisher.types())
		})
	}
}

func TestCreate_CouponIsConsumedOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := monthly(7, f.s1.ID, day(2024, 1, 15))
	in.CouponCode = "save10"
	receipt, err := f.svc.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 2950.0, receipt.TotalPrice)

	stored := f.get(t, receipt.ReservationID)
	require.NotNil(t, stored.CouponCode)
	assert.Equal(t, "SAVE10", *stored.CouponCode)
	assert.Equal(t, 50.0, stored.DiscountAmount)

	var used domain.Coupon
	require.NoError(t, f.db.Where("code = ?", "SAVE10").First(&used).Error)
	assert.Equal(t, 1, used.UsedCount)

	again := daily(8, f.s2.ID, day(2024, 1, 15), 5)
	again.CouponCode = "SAVE10"
	_, err = f.svc.Create(ctx, again)
	require.ErrorIs(t, err, domain.ErrCouponInvalid)
}

func TestCreate_FreeBookingConfirmsImmediately(t *testing.T) {
	f := newFixture(t)

	in := monthly(7, f.s1.ID, day(2024, 1, 15))
	in.CouponCode = "FREE"
	receipt, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, domain.ReservationConfirmed, receipt.Status)
	assert.Zero(t, receipt.TotalPrice)
	assert.Nil(t, receipt.HoldExpiresAt)
	assert.Zero(t, f.gateway.count())
	assert.Equal(t, domain.PaymentCompleted, f.get(t, receipt.ReservationID).PaymentStatus)
}

func TestCreate_AdvancePlan(t *testing.T) {
	f := newFixture(t)

	in := monthly(7, f.s1.ID, day(2024, 1, 15))
	in.UseAdvance = true
	receipt, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 3000.0, receipt.TotalPrice)
	assert.Equal(t, 1200.0, receipt.AmountDueNow)
	assert.Equal(t, 1800.0, receipt.RemainingDue)
	require.NotNil(t, receipt.DueDate)
	assert.True(t, receipt.DueDate.Equal(day(2024, 1, 22)))
	assert.Equal(t, 1200.0, f.gateway.orders[receipt.OrderRef])
	assert.True(t, f.get(t, receipt.ReservationID).AutoCancelOnMiss)

	// the policy only covers monthly bookings
	short := daily(7, f.s2.ID, day(2024, 1, 15), 10)
	short.UseAdvance = true
	receipt, err = f.svc.Create(context.Background(), short)
	require.NoError(t, err)
	assert.Equal(t, receipt.TotalPrice, receipt.AmountDueNow)
	assert.Nil(t, receipt.DueDate)
}

func TestCreate_IdempotencyKeyReplays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := daily(7, f.s1.ID, day(2024, 1, 15), 5)
	in.IdempotencyKey = "order-42"
	first, err := f.svc.Create(ctx, in)
	require.NoError(t, err)

	second, err := f.svc.Create(ctx, in)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.ReservationID, second.ReservationID)
	assert.Equal(t, first.OrderRef, second.OrderRef)
	assert.Equal(t, 1, f.gateway.count())

	// keys are scoped per user
	other := daily(8, f.s2.ID, day(2024, 1, 15), 5)
	other.IdempotencyKey = "order-42"
	third, err := f.svc.Create(ctx, other)
	require.NoError(t, err)
	assert.False(t, third.Replayed)
	assert.NotEqual(t, first.ReservationID, third.ReservationID)
}

func TestCreate_GatewayFailureReleasesHold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gateway.err = errGatewayDown

	_, err := f.svc.Create(ctx, daily(7, f.s1.ID, day(2024, 1, 15), 5))
	require.ErrorIs(t, err, errGatewayDown)

	var released domain.Reservation
	require.NoError(t, f.db.First(&released).Error)
	assert.Equal(t, domain.ReservationCancelled, released.Status)
	assert.Equal(t, cancelReasonOrderFailed, released.CancelReason)

	f.gateway.err = nil
	_, err = f.svc.Create(ctx, daily(8, f.s1.ID, day(2024, 1, 15), 5))
	require.NoError(t, err)
}

func TestCreate_ConcurrentRequestsSingleWinner(t *testing.T) {
	f := newFixture(t)

	const n = 6
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Create(context.Background(), daily(int64(100+i), f.s1.ID, day(2024, 1, 15), 5))
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrResourceConflict)
	}
	assert.Equal(t, 1, ok)

	var held int64
	require.NoError(t, f.db.Model(&domain.Reservation{}).Where("status = ?", domain.ReservationPending).Count(&held).Error)
	assert.Equal(t, int64(1), held)
}

func TestQuote_DoesNotReserve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := monthly(7, f.s1.ID, day(2024, 1, 15))
	in.UseAdvance = true
	in.CouponCode = "SAVE10"
	q, err := f.svc.Quote(ctx, in)
	require.NoError(t, err)

	assert.True(t, q.Available)
	assert.Equal(t, 2950.0, q.Quote.Total)
	assert.Equal(t, 50.0, q.Quote.Discount)
	assert.Equal(t, 1180.0, q.Plan.AmountDueNow)
	assert.Equal(t, 1770.0, q.Plan.RemainingDue)

	var n int64
	require.NoError(t, f.db.Model(&domain.Reservation{}).Count(&n).Error)
	assert.Zero(t, n)
	assert.Zero(t, f.gateway.count())

	f.insert(t, f.s1.ID, 8, day(2024, 1, 20), 3, domain.ReservationConfirmed)
	q, err = f.svc.Quote(ctx, in)
	require.NoError(t, err)
	assert.False(t, q.Available)
}

func TestIdempotencyHash(t *testing.T) {
	a := IdempotencyHash("key-1")
	assert.Len(t, a, 64)
	assert.Equal(t, a, IdempotencyHash("  key-1 "))
	assert.NotEqual(t, a, IdempotencyHash("key-2"))
}
