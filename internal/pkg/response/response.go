package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cabinbook/internal/domain"
)

func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// Abort writes an error envelope and stops the handler chain.
func Abort(c *gin.Context, statusCode int, code string, message string) {
	Error(c, statusCode, code, message)
	c.Abort()
}

type mapping struct {
	target error
	status int
	code   string
}

// Ordered: ErrTransferConflict must be tested before ErrResourceConflict
// since transfer errors may wrap a conflict.
var mappings = []mapping{
	{domain.ErrInvalidDuration, http.StatusBadRequest, "INVALID_DURATION"},
	{domain.ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR"},
	{domain.ErrCouponInvalid, http.StatusUnprocessableEntity, "COUPON_INVALID"},
	{domain.ErrAdvanceWindowExceeded, http.StatusUnprocessableEntity, "ADVANCE_WINDOW_EXCEEDED"},
	{domain.ErrTransferConflict, http.StatusConflict, "TRANSFER_CONFLICT"},
	{domain.ErrResourceConflict, http.StatusConflict, "RESOURCE_CONFLICT"},
	{domain.ErrPaymentMismatch, http.StatusUnprocessableEntity, "PAYMENT_MISMATCH"},
	{domain.ErrHoldExpired, http.StatusGone, "HOLD_EXPIRED"},
	{domain.ErrInvalidStatusTransition, http.StatusConflict, "INVALID_STATUS_TRANSITION"},
	{domain.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
}

// Status returns the HTTP status and error code for err.
func Status(err error) (int, string) {
	for _, m := range mappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

// FromError writes the envelope for a service error. Internal errors get a
// generic message; conflict details are included when present.
func FromError(c *gin.Context, err error) {
	status, code := Status(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		Error(c, status, code, "Internal server error")
		return
	}

	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		ErrorWithDetails(c, status, code, err.Error(), gin.H{
			"resource_id":     conflict.ResourceID,
			"blocked":         conflict.Blocked,
			"reservation_ids": conflict.ReservationIDs,
		})
		return
	}
	Error(c, status, code, err.Error())
}
