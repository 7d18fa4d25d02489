package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateRangeOverlaps(t *testing.T) {
	booked := DateRange{Start: date(2024, 1, 1), End: date(2024, 2, 1)}

	tests := []struct {
		name  string
		other DateRange
		want  bool
	}{
		{"inside", DateRange{date(2024, 1, 15), date(2024, 1, 20)}, true},
		{"touching end boundary", DateRange{date(2024, 2, 1), date(2024, 2, 10)}, false},
		{"touching start boundary", DateRange{date(2023, 12, 20), date(2024, 1, 1)}, false},
		{"straddling start", DateRange{date(2023, 12, 20), date(2024, 1, 2)}, true},
		{"enclosing", DateRange{date(2023, 12, 1), date(2024, 3, 1)}, true},
		{"disjoint", DateRange{date(2024, 3, 1), date(2024, 3, 5)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, booked.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(booked))
		})
	}
}

func TestNewDateRangeRejectsEmpty(t *testing.T) {
	_, err := NewDateRange(date(2024, 1, 2), date(2024, 1, 2))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestParseDateRange(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	r, err := ParseDateRange("2024-02-01", "2024-02-10", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, loc), r.Start)
	assert.Equal(t, time.Date(2024, 2, 10, 0, 0, 0, 0, loc), r.End)

	_, err = ParseDateRange("2024-02-10", "2024-02-01", loc)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ParseDateRange("01/02/2024", "2024-02-01", loc)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 3, DaysBetween(time.Date(2024, 1, 28, 18, 0, 0, 0, time.UTC), time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)))
	assert.Equal(t, 0, DaysBetween(date(2024, 1, 31), time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)))
	assert.Equal(t, -1, DaysBetween(date(2024, 2, 1), date(2024, 1, 31)))
}
