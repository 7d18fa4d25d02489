package domain

import "time"

type ResourceState string

const (
	StateAvailable    ResourceState = "available"
	StateBooked       ResourceState = "booked"
	StateExpiringSoon ResourceState = "expiring_soon"
	StateBlocked      ResourceState = "blocked"
)

// ExpiringSoonDays is the inclusive threshold of remaining days at which a
// covering reservation is reported as expiring soon.
const ExpiringSoonDays = 5

// DeriveState computes the display state of a resource on the day of asOf.
// Inactive resources report as blocked. Only confirmed reservations are
// considered. The result depends on nothing but its arguments.
func DeriveState(resource Resource, reservations []Reservation, asOf time.Time) ResourceState {
	if resource.IsBlocked || !resource.IsActive {
		return StateBlocked
	}

	day := StartOfDay(asOf)
	covering := -1
	var lastDay time.Time
	for i := range reservations {
		r := &reservations[i]
		if r.ResourceID != resource.ID || r.Status != ReservationConfirmed {
			continue
		}
		if !r.Range().Contains(day) {
			continue
		}
		if covering == -1 || r.EndDate.After(lastDay) {
			covering = i
			lastDay = r.EndDate
		}
	}
	if covering == -1 {
		return StateAvailable
	}

	if DaysBetween(day, lastDay) <= ExpiringSoonDays {
		return StateExpiringSoon
	}
	return StateBooked
}
