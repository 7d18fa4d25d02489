package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cabinbook/internal/domain"
	"cabinbook/internal/pkg/logger"
)

// Query selects resources either by container or by explicit ids.
type Query struct {
	ContainerID int64
	ResourceIDs []int64
	Range       domain.DateRange
}

type Report struct {
	ContainerID int64     `json:"container_id,omitempty"`
	From        time.Time `json:"from"`
	To          time.Time `json:"to"`
	Resources   []Result  `json:"resources"`
	Cached      bool      `json:"cached"`
}

type StateReport struct {
	ResourceID int64                `json:"resource_id"`
	Date       string               `json:"date"`
	State      domain.ResourceState `json:"state"`
}

type Service struct {
	catalog      CatalogReader
	reservations ReservationReader
	cache        Cache
	log          *logger.Logger
	now          func() time.Time
}

func NewService(catalog CatalogReader, reservations ReservationReader, cache Cache, log *logger.Logger) *Service {
	if cache == nil {
		cache = NopCache{}
	}
	return &Service{
		catalog:      catalog,
		reservations: reservations,
		cache:        cache,
		log:          log,
		now:          time.Now,
	}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Check answers a bulk availability query with one reservation scan.
// Container queries are served from the cache when possible.
func (s *Service) Check(ctx context.Context, q Query) (*Report, error) {
	if q.ContainerID == 0 && len(q.ResourceIDs) == 0 {
		return nil, fmt.Errorf("%w: container_id or resource_ids is required", domain.ErrValidation)
	}

	report := &Report{ContainerID: q.ContainerID, From: q.Range.Start, To: q.Range.End}

	var resources []domain.Resource
	containers := make(map[int64]*domain.Container)
	var err error
	if q.ContainerID != 0 {
		if cached, ok := s.cache.Get(ctx, q.ContainerID, q.Range); ok {
			s.log.Debug("availability served from cache", "container_id", q.ContainerID)
			report.Resources = cached
			report.Cached = true
			return report, nil
		}
		container, cerr := s.catalog.GetContainer(ctx, q.ContainerID)
		if cerr != nil {
			return nil, cerr
		}
		containers[q.ContainerID] = container
		resources, err = s.catalog.ListResources(ctx, q.ContainerID)
	} else {
		resources, err = s.catalog.GetResources(ctx, q.ResourceIDs)
	}
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(resources))
	for _, r := range resources {
		ids = append(ids, r.ID)
	}

	now := s.now()
	reservations, err := s.reservations.ListBlocking(ctx, ids, q.Range, now)
	if err != nil {
		return nil, err
	}

	report.Resources = NewIndex(reservations, now).Bulk(resources, q.Range)
	if err := s.applyWindow(ctx, report.Resources, resources, containers, q.Range.Start, now); err != nil {
		return nil, err
	}
	if q.ContainerID != 0 {
		s.cache.Set(ctx, q.ContainerID, q.Range, report.Resources)
	}
	return report, nil
}

// applyWindow marks results whose container does not accept bookings starting
// at start yet. results and resources share their order.
func (s *Service) applyWindow(ctx context.Context, results []Result, resources []domain.Resource, containers map[int64]*domain.Container, start, now time.Time) error {
	for i := range results {
		id := resources[i].ContainerID
		c, ok := containers[id]
		if !ok {
			var err error
			if c, err = s.catalog.GetContainer(ctx, id); err != nil {
				return err
			}
			containers[id] = c
		}
		if err := CheckAdvanceWindow(start, now, c.MaxAdvanceBookingDays); errors.Is(err, domain.ErrAdvanceWindowExceeded) {
			results[i].BeyondWindow = true
			results[i].Available = false
		}
	}
	return nil
}

// ResourceState derives the state of one resource on the day of asOf.
func (s *Service) ResourceState(ctx context.Context, resourceID int64, asOf time.Time) (*StateReport, error) {
	resource, err := s.catalog.GetResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	day := domain.StartOfDay(asOf)
	reservations, err := s.reservations.ListBlocking(ctx, []int64{resourceID},
		domain.DateRange{Start: day, End: day.AddDate(0, 0, 1)}, s.now())
	if err != nil {
		return nil, err
	}

	return &StateReport{
		ResourceID: resourceID,
		Date:       day.Format(domain.DateLayout),
		State:      domain.DeriveState(*resource, reservations, day),
	}, nil
}
