package availability

import (
	"sort"
	"time"

	"cabinbook/internal/domain"
)

// Result is the availability of one resource for one range.
// State is the display state on the first day of the range. BeyondWindow is
// set when the range starts after the container's advance booking window.
type Result struct {
	ResourceID   int64                `json:"resource_id"`
	Label        string               `json:"label,omitempty"`
	Available    bool                 `json:"available"`
	Blocked      bool                 `json:"blocked"`
	BeyondWindow bool                 `json:"beyond_window,omitempty"`
	State        domain.ResourceState `json:"state"`
	ConflictIDs  []int64              `json:"conflict_ids,omitempty"`
}

// Index groups blocking reservations by resource, sorted by start date, so a
// bulk query scans each resource's list once.
type Index struct {
	now        time.Time
	byResource map[int64][]domain.Reservation
}

// NewIndex keeps only the reservations that block at now.
func NewIndex(reservations []domain.Reservation, now time.Time) *Index {
	ix := &Index{now: now, byResource: make(map[int64][]domain.Reservation)}
	for _, r := range reservations {
		if !r.Blocks(now) {
			continue
		}
		ix.byResource[r.ResourceID] = append(ix.byResource[r.ResourceID], r)
	}
	for id := range ix.byResource {
		list := ix.byResource[id]
		sort.Slice(list, func(i, j int) bool {
			return list[i].StartDate.Before(list[j].StartDate)
		})
	}
	return ix
}

// Conflicts returns the reservations on resourceID that overlap r.
func (ix *Index) Conflicts(resourceID int64, r domain.DateRange) []domain.Reservation {
	var out []domain.Reservation
	for _, res := range ix.byResource[resourceID] {
		if !res.StartDate.Before(r.End) {
			break
		}
		if res.Range().Overlaps(r) {
			out = append(out, res)
		}
	}
	return out
}

// Free reports whether resourceID has no blocking reservation overlapping r,
// ignoring the reservation with id except (0 ignores nothing).
func (ix *Index) Free(resourceID int64, r domain.DateRange, except int64) bool {
	for _, res := range ix.Conflicts(resourceID, r) {
		if res.ID != except {
			return false
		}
	}
	return true
}

func (ix *Index) Check(resource domain.Resource, r domain.DateRange) Result {
	out := Result{
		ResourceID: resource.ID,
		Label:      resource.Label,
		Blocked:    resource.IsBlocked || !resource.IsActive,
		State:      domain.DeriveState(resource, ix.byResource[resource.ID], r.Start),
	}
	for _, c := range ix.Conflicts(resource.ID, r) {
		out.ConflictIDs = append(out.ConflictIDs, c.ID)
	}
	out.Available = !out.Blocked && len(out.ConflictIDs) == 0
	return out
}

// Bulk checks every resource against the same range, in input order.
func (ix *Index) Bulk(resources []domain.Resource, r domain.DateRange) []Result {
	out := make([]Result, 0, len(resources))
	for _, res := range resources {
		out = append(out, ix.Check(res, r))
	}
	return out
}

// Err converts an unavailable result into a ConflictError, or nil.
func (res Result) Err() error {
	if res.Available {
		return nil
	}
	return &domain.ConflictError{
		ResourceID:     res.ResourceID,
		Blocked:        res.Blocked,
		ReservationIDs: res.ConflictIDs,
	}
}
