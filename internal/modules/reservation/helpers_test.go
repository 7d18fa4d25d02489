package reservation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"cabinbook/internal/database"
	"cabinbook/internal/domain"
	"cabinbook/internal/events"
	"cabinbook/internal/pkg/logger"
	"cabinbook/internal/repository"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fakeGateway struct {
	mu     sync.Mutex
	orders map[string]float64
	err    error
}

func (g *fakeGateway) CreateOrder(_ context.Context, orderRef string, amount float64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	g.orders[orderRef] = amount
	return "https://pay.test/" + orderRef, nil
}

func (g *fakeGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.orders)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func (p *recordingPublisher) last() events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

type countingCache struct {
	mu          sync.Mutex
	invalidated map[int64]int
}

func (c *countingCache) Invalidate(_ context.Context, containerID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated[containerID]++
	return nil
}

// fixture is a coordinator wired to an in-memory sqlite database.
//
// Catalog: hall (active, 60 day window, locker fee 100, 40% advance on
// monthly bookings due 7 days after start, auto cancel) with
//
//	s1  3000, slot "morning" 1500
//	s2  3000, category flat +200, slot "morning" 1600
//	s3  blocked
//
// and s4 in a second container.
type fixture struct {
	svc          *Service
	db           *gorm.DB
	reservations *repository.ReservationRepository
	gateway      *fakeGateway
	publisher    *recordingPublisher
	cache        *countingCache

	hall   domain.Container
	s1     domain.Resource
	s2     domain.Resource
	s3     domain.Resource
	s4     domain.Resource
	mu     sync.Mutex
	nowVal time.Time
}

var fixtureNow = time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Connect("file:"+name+"?mode=memory&cache=shared", database.Options{MaxOpenConns: 1}, logger.Discard())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	f := &fixture{
		db:        db,
		gateway:   &fakeGateway{orders: map[string]float64{}},
		publisher: &recordingPublisher{},
		cache:     &countingCache{invalidated: map[int64]int{}},
		nowVal:    fixtureNow,
	}
	f.seed(t)

	f.reservations = repository.NewReservationRepository(db)
	f.svc = NewService(Deps{
		Tx:           repository.NewTxManager(db),
		Catalog:      repository.NewCatalogRepository(db),
		Reservations: f.reservations,
		Gateway:      f.gateway,
		Publisher:    f.publisher,
		Cache:        f.cache,
		Log:          logger.Discard(),
	}, Config{}).WithClock(f.now)
	return f
}

func (f *fixture) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nowVal
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nowVal = f.nowVal.Add(d)
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()
	f.hall = domain.Container{
		Name:                  "North Hall",
		Kind:                  domain.ContainerReadingRoom,
		MaxAdvanceBookingDays: 60,
		LockerFee:             100,
		AdvancePolicy: domain.AdvancePolicy{
			Enabled:                 true,
			Percentage:              40,
			ApplicableDurationTypes: domain.DurationTypes{domain.DurationMonthly},
			ValidityDays:            7,
			AutoCancelOnMiss:        true,
		},
		IsActive: true,
	}
	require.NoError(t, f.db.Create(&f.hall).Error)
	other := domain.Container{Name: "Hostel", Kind: domain.ContainerHostel, IsActive: true}
	require.NoError(t, f.db.Create(&other).Error)

	window := domain.Category{ContainerID: f.hall.ID, Name: "window", AdjustmentType: domain.AdjustmentFlat, Amount: 200}
	require.NoError(t, f.db.Create(&window).Error)

	f.s1 = domain.Resource{ContainerID: f.hall.ID, Kind: domain.ResourceSeat, Label: "S1", BasePrice: 3000, IsActive: true}
	f.s2 = domain.Resource{ContainerID: f.hall.ID, Kind: domain.ResourceSeat, Label: "S2", BasePrice: 3000, CategoryID: &window.ID, IsActive: true}
	f.s3 = domain.Resource{ContainerID: f.hall.ID, Kind: domain.ResourceSeat, Label: "S3", BasePrice: 3000, IsActive: true, IsBlocked: true, BlockReason: "repair"}
	f.s4 = domain.Resource{ContainerID: other.ID, Kind: domain.ResourceBed, Label: "B1", BasePrice: 3000, IsActive: true}
	for _, r := range []*domain.Resource{&f.s1, &f.s2, &f.s3, &f.s4} {
		require.NoError(t, f.db.Create(r).Error)
	}

	slots := []domain.Slot{
		{ResourceID: f.s1.ID, Name: "morning", StartTime: "06:00", EndTime: "12:00", Price: 1500},
		{ResourceID: f.s2.ID, Name: "morning", StartTime: "06:00", EndTime: "12:00", Price: 1600},
	}
	require.NoError(t, f.db.Create(&slots).Error)

	max50 := 50.0
	coupons := []domain.Coupon{
		{Code: "SAVE10", Type: domain.CouponPercentage, Value: 10, MaxDiscountAmount: &max50, UsageLimit: 1,
			ValidFrom: day(2024, 1, 1), ValidTo: day(2025, 1, 1), IsActive: true},
		{Code: "FREE", Type: domain.CouponFixed, Value: 10000,
			ValidFrom: day(2024, 1, 1), ValidTo: day(2025, 1, 1), IsActive: true},
	}
	require.NoError(t, f.db.Create(&coupons).Error)
}

// slotID returns the id of the named slot on a resource.
func (f *fixture) slotID(t *testing.T, resourceID int64, name string) int64 {
	t.Helper()
	var s domain.Slot
	require.NoError(t, f.db.Where("resource_id = ? AND name = ?", resourceID, name).First(&s).Error)
	return s.ID
}

// insert stores a reservation directly, bypassing the coordinator.
func (f *fixture) insert(t *testing.T, resourceID, userID int64, start time.Time, days int, status domain.ReservationStatus) *domain.Reservation {
	t.Helper()
	r := &domain.Reservation{
		ResourceID:    resourceID,
		ContainerID:   f.hall.ID,
		UserID:        userID,
		StartDate:     start,
		EndDate:       start.AddDate(0, 0, days).Add(-time.Second),
		DurationType:  domain.DurationDaily,
		DurationCount: days,
		Status:        status,
		PaymentStatus: domain.PaymentCompleted,
		TotalPrice:    100,
		AdvanceAmount: 100,
		OrderRef:      uuid.NewString(),
	}
	require.NoError(t, f.reservations.Create(context.Background(), r))
	return r
}

func (f *fixture) get(t *testing.T, id int64) *domain.Reservation {
	t.Helper()
	r, err := f.reservations.GetByID(context.Background(), id)
	require.NoError(t, err)
	return r
}

func monthly(userID, resourceID int64, start time.Time) CreateInput {
	return CreateInput{
		UserID:        userID,
		ResourceID:    resourceID,
		StartDate:     start,
		DurationType:  domain.DurationMonthly,
		DurationCount: 1,
	}
}

func daily(userID, resourceID int64, start time.Time, days int) CreateInput {
	return CreateInput{
		UserID:        userID,
		ResourceID:    resourceID,
		StartDate:     start,
		DurationType:  domain.DurationDaily,
		DurationCount: days,
	}
}

var errGatewayDown = errors.New("gateway unavailable")
