package availability

import (
	"fmt"
	"time"

	"cabinbook/internal/domain"
)

// CheckAdvanceWindow rejects starts in the past and, when maxDays > 0,
// starts more than maxDays after today.
func CheckAdvanceWindow(start, today time.Time, maxDays int) error {
	startDay := domain.StartOfDay(start)
	todayDay := domain.StartOfDay(today.In(start.Location()))

	if startDay.Before(todayDay) {
		return fmt.Errorf("%w: start date %s is in the past", domain.ErrValidation, startDay.Format(domain.DateLayout))
	}
	if maxDays > 0 && domain.DaysBetween(todayDay, startDay) > maxDays {
		return fmt.Errorf("%w: %s is more than %d days ahead", domain.ErrAdvanceWindowExceeded, startDay.Format(domain.DateLayout), maxDays)
	}
	return nil
}
