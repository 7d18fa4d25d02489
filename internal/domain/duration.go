package domain

import (
	"fmt"
	"strings"
	"time"
)

type DurationType string

const (
	DurationDaily   DurationType = "daily"
	DurationWeekly  DurationType = "weekly"
	DurationMonthly DurationType = "monthly"
)

var durationTypes = []DurationType{DurationDaily, DurationWeekly, DurationMonthly}

// ParseDurationType accepts only the three known duration types.
func ParseDurationType(value string) (DurationType, error) {
	d := DurationType(strings.ToLower(strings.TrimSpace(value)))
	if !d.Valid() {
		return "", fmt.Errorf("%w: unknown duration type %q", ErrValidation, value)
	}
	return d, nil
}

func (d DurationType) Valid() bool {
	for _, t := range durationTypes {
		if d == t {
			return true
		}
	}
	return false
}

// Span is a normalized booking period. End is the last second of the last day.
type Span struct {
	Start         time.Time `json:"start_date"`
	End           time.Time `json:"end_date"`
	MonthlyFactor float64   `json:"monthly_factor"`
}

// Range returns the half-open form of the span.
func (s Span) Range() DateRange {
	return DateRange{Start: s.Start, End: s.End.Add(time.Second)}
}

// NormalizeDuration converts a (type, count) pair starting at start into a span
// and the factor that scales a monthly price to it. Monthly spans use calendar
// month arithmetic: one month from the 10th ends at 23:59:59 on the 9th.
func NormalizeDuration(start time.Time, durationType DurationType, count int) (Span, error) {
	if count <= 0 {
		return Span{}, fmt.Errorf("%w: count must be positive, got %d", ErrInvalidDuration, count)
	}

	day := StartOfDay(start)
	var next time.Time
	var factor float64

	switch durationType {
	case DurationDaily:
		next = day.AddDate(0, 0, count)
		factor = float64(count) / 30
	case DurationWeekly:
		next = day.AddDate(0, 0, 7*count)
		factor = float64(count) / 4
	case DurationMonthly:
		next = day.AddDate(0, count, 0)
		factor = float64(count)
	default:
		return Span{}, fmt.Errorf("%w: unknown duration type %q", ErrValidation, durationType)
	}

	return Span{
		Start:         day,
		End:           next.Add(-time.Second),
		MonthlyFactor: factor,
	}, nil
}

// DurationTypes is a set of duration types stored as a comma separated column.
type DurationTypes []DurationType

func (s DurationTypes) Contains(d DurationType) bool {
	for _, t := range s {
		if t == d {
			return true
		}
	}
	return false
}
