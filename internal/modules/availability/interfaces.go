package availability

import (
	"context"
	"time"

	"cabinbook/internal/domain"
)

type CatalogReader interface {
	GetContainer(ctx context.Context, id int64) (*domain.Container, error)
	GetResource(ctx context.Context, id int64) (*domain.Resource, error)
	ListResources(ctx context.Context, containerID int64) ([]domain.Resource, error)
	GetResources(ctx context.Context, ids []int64) ([]domain.Resource, error)
}

type ReservationReader interface {
	// ListBlocking returns reservations on the given resources overlapping r
	// that block at now.
	ListBlocking(ctx context.Context, resourceIDs []int64, r domain.DateRange, now time.Time) ([]domain.Reservation, error)
}

// Cache stores container availability reports. Invalidate must make every
// previously stored report for the container unreachable.
type Cache interface {
	Get(ctx context.Context, containerID int64, r domain.DateRange) ([]Result, bool)
	Set(ctx context.Context, containerID int64, r domain.DateRange, results []Result)
	Invalidate(ctx context.Context, containerID int64) error
}
