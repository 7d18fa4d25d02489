package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidDuration         = errors.New("invalid duration")
	ErrResourceConflict        = errors.New("resource is not available for the requested dates")
	ErrAdvanceWindowExceeded   = errors.New("start date is beyond the advance booking window")
	ErrCouponInvalid           = errors.New("coupon is not valid")
	ErrPaymentMismatch         = errors.New("paid amount does not match the expected amount")
	ErrTransferConflict        = errors.New("target resource is not available")
	ErrHoldExpired             = errors.New("reservation hold has expired")
	ErrNotFound                = errors.New("not found")
	ErrValidation              = errors.New("validation error")
	ErrForbidden               = errors.New("forbidden")
	ErrInvalidStatusTransition = errors.New("invalid status transition")

	// ErrConcurrentUpdate marks a transaction that lost a serialization race and may be retried.
	ErrConcurrentUpdate = errors.New("concurrent update")
)

// ConflictError reports which reservations block a resource for a range.
type ConflictError struct {
	ResourceID     int64
	Blocked        bool
	ReservationIDs []int64
}

func (e *ConflictError) Error() string {
	if e.Blocked {
		return fmt.Sprintf("resource %d is blocked", e.ResourceID)
	}
	ids := make([]string, 0, len(e.ReservationIDs))
	for _, id := range e.ReservationIDs {
		ids = append(ids, strconv.FormatInt(id, 10))
	}
	return fmt.Sprintf("resource %d conflicts with reservations [%s]", e.ResourceID, strings.Join(ids, ","))
}

func (e *ConflictError) Unwrap() error { return ErrResourceConflict }
