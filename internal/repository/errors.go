package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"cabinbook/internal/domain"
)

const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
	pgExclusionViolation   = "23P01"

	overlapConstraint     = "reservations_no_overlap"
	idempotencyConstraint = "idx_reservations_user_idempotency"
)

// ClassifyError maps driver errors onto the domain taxonomy. Serialization
// failures, deadlocks, busy databases and idempotency key races become
// ErrConcurrentUpdate, which callers may retry. Overlap constraint
// violations become ErrResourceConflict.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected:
			return fmt.Errorf("%w: %v", domain.ErrConcurrentUpdate, err)
		case pgErr.Code == pgExclusionViolation:
			return fmt.Errorf("%w: %v", domain.ErrResourceConflict, err)
		case pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == overlapConstraint:
			return fmt.Errorf("%w: %v", domain.ErrResourceConflict, err)
		case pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == idempotencyConstraint:
			return fmt.Errorf("%w: %v", domain.ErrConcurrentUpdate, err)
		}
		return err
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %v", domain.ErrConcurrentUpdate, err)
		}
		if liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE && strings.Contains(liteErr.Error(), "idempotency_hash") {
			return fmt.Errorf("%w: %v", domain.ErrConcurrentUpdate, err)
		}
	}
	return err
}
