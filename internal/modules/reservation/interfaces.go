package reservation

import (
	"context"
	"time"

	"cabinbook/internal/domain"
	"cabinbook/internal/events"
)

type TxManager interface {
	ExecuteTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type CatalogRepository interface {
	GetContainer(ctx context.Context, id int64) (*domain.Container, error)
	GetResource(ctx context.Context, id int64) (*domain.Resource, error)
	LockResources(ctx context.Context, ids ...int64) ([]domain.Resource, error)
	GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error)
	ConsumeCoupon(ctx context.Context, id int64) (bool, error)
	ReleaseCoupon(ctx context.Context, code string) error
}

type ReservationRepository interface {
	Create(ctx context.Context, r *domain.Reservation) error
	GetByID(ctx context.Context, id int64) (*domain.Reservation, error)
	GetByOrderRef(ctx context.Context, orderRef string) (*domain.Reservation, error)
	FindByIdempotencyHash(ctx context.Context, userID int64, hash string) (*domain.Reservation, error)
	ListBlocking(ctx context.Context, resourceIDs []int64, r domain.DateRange, now time.Time) ([]domain.Reservation, error)
	LatestEndForUser(ctx context.Context, resourceID, userID int64, since, now time.Time) (*time.Time, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Reservation, error)
	UpdateGuarded(ctx context.Context, id int64, guard domain.TransitionGuard, changes map[string]any) (bool, error)
	ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error)
	ListOverdueDues(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error)
}

// PaymentGateway opens a payment order for the amount due now and returns
// the URL the customer pays at. Confirmation arrives later through
// ConfirmPayment.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, orderRef string, amount float64) (string, error)
}

type Publisher interface {
	Publish(ctx context.Context, e events.Event) error
}

type CacheInvalidator interface {
	Invalidate(ctx context.Context, containerID int64) error
}
