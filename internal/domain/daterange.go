package domain

import (
	"fmt"
	"math"
	"time"
)

const DateLayout = "2006-01-02"

// DateRange is a half-open interval [Start, End).
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewDateRange(start, end time.Time) (DateRange, error) {
	if !end.After(start) {
		return DateRange{}, fmt.Errorf("%w: end must be after start", ErrValidation)
	}
	return DateRange{Start: start, End: end}, nil
}

// Overlaps reports whether two half-open ranges share any instant.
// Ranges that only touch at a boundary do not overlap.
func (r DateRange) Overlaps(o DateRange) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysBetween counts calendar days from the day of a to the day of b.
func DaysBetween(a, b time.Time) int {
	from := StartOfDay(a)
	to := StartOfDay(b.In(a.Location()))
	return int(math.Round(to.Sub(from).Hours() / 24))
}

// ParseDate parses a YYYY-MM-DD value as midnight in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", ErrValidation, value)
	}
	return t, nil
}

// ParseDateRange parses a [from, to) query where to is exclusive.
func ParseDateRange(from, to string, loc *time.Location) (DateRange, error) {
	start, err := ParseDate(from, loc)
	if err != nil {
		return DateRange{}, err
	}
	end, err := ParseDate(to, loc)
	if err != nil {
		return DateRange{}, err
	}
	return NewDateRange(start, end)
}
