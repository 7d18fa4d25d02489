package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cabinbook/internal/domain"
	"cabinbook/internal/events"
	"cabinbook/internal/pkg/logger"
)

const (
	DefaultHoldDuration   = 10 * time.Minute
	DefaultSweepBatchSize = 100
)

type Config struct {
	HoldDuration time.Duration
	// Location defines calendar days for "today" and booking dates.
	Location       *time.Location
	SweepBatchSize int
}

type Deps struct {
	Tx           TxManager
	Catalog      CatalogRepository
	Reservations ReservationRepository
	Gateway      PaymentGateway
	Publisher    Publisher
	Cache        CacheInvalidator
	Log          *logger.Logger
}

// Service coordinates reservation lifecycle changes. Every mutation runs in
// one transaction; events and cache invalidation happen after commit.
type Service struct {
	tx           TxManager
	catalog      CatalogRepository
	reservations ReservationRepository
	gateway      PaymentGateway
	publisher    Publisher
	cache        CacheInvalidator
	log          *logger.Logger
	cfg          Config
	now          func() time.Time
}

func NewService(deps Deps, cfg Config) *Service {
	if cfg.HoldDuration <= 0 {
		cfg.HoldDuration = DefaultHoldDuration
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.SweepBatchSize <= 0 {
		cfg.SweepBatchSize = DefaultSweepBatchSize
	}
	if deps.Publisher == nil {
		deps.Publisher = events.Nop{}
	}
	if deps.Log == nil {
		deps.Log = logger.Discard()
	}
	return &Service{
		tx:           deps.Tx,
		catalog:      deps.Catalog,
		reservations: deps.Reservations,
		gateway:      deps.Gateway,
		publisher:    deps.Publisher,
		cache:        deps.Cache,
		log:          deps.Log,
		cfg:          cfg,
		now:          time.Now,
	}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) clock() time.Time {
	return s.now().In(s.cfg.Location)
}

// run executes fn in a transaction, retrying once when it lost a
// serialization race. A second loss is reported as a resource conflict.
func (s *Service) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	err := s.tx.ExecuteTransaction(ctx, fn)
	if !errors.Is(err, domain.ErrConcurrentUpdate) {
		return err
	}
	s.log.Warn("retrying after concurrent update", "op", op, "error", err)

	err = s.tx.ExecuteTransaction(ctx, fn)
	if errors.Is(err, domain.ErrConcurrentUpdate) {
		return fmt.Errorf("%w: %s lost a concurrent update twice", domain.ErrResourceConflict, op)
	}
	return err
}

// afterCommit invalidates cached availability and publishes the event. Both
// are best effort; the change has already committed.
func (s *Service) afterCommit(ctx context.Context, e events.Event, containerIDs ...int64) {
	if s.cache != nil {
		for _, id := range containerIDs {
			if err := s.cache.Invalidate(ctx, id); err != nil {
				s.log.Warn("availability cache invalidation failed", "container_id", id, "error", err)
			}
		}
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.log.Warn("event publish failed", "event", e.Type, "reservation_id", e.ReservationID, "error", err)
	}
}

// releaseCoupon gives back the coupon use of a hold that is being cancelled
// before it was ever paid. Paid reservations keep their use.
func (s *Service) releaseCoupon(ctx context.Context, r *domain.Reservation) error {
	if r.CouponCode == nil || r.Status != domain.ReservationPending {
		return nil
	}
	return s.catalog.ReleaseCoupon(ctx, *r.CouponCode)
}

func (s *Service) authorize(r *domain.Reservation, actorID int64, admin bool) error {
	if admin || r.UserID == actorID {
		return nil
	}
	return fmt.Errorf("%w: reservation %d belongs to another user", domain.ErrForbidden, r.ID)
}

// Get returns a reservation visible to the actor.
func (s *Service) Get(ctx context.Context, id, actorID int64, admin bool) (*domain.Reservation, error) {
	r, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(r, actorID, admin); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) ListMine(ctx context.Context, userID int64) ([]domain.Reservation, error) {
	return s.reservations.ListByUser(ctx, userID)
}
