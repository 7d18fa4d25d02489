package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"cabinbook/internal/domain"
)

const blockingCondition = "(status = ? OR (status = ? AND hold_expires_at > ?))"

type ReservationRepository struct {
	db *gorm.DB
}

func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// utc stores every instant in UTC so text-backed time columns compare in order.
func utc(t time.Time) time.Time { return t.UTC() }

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func normalizeTimes(m *domain.Reservation) {
	m.StartDate = utc(m.StartDate)
	m.EndDate = utc(m.EndDate)
	m.DueDate = utcPtr(m.DueDate)
	m.HoldExpiresAt = utcPtr(m.HoldExpiresAt)
	m.ConfirmedAt = utcPtr(m.ConfirmedAt)
	m.CancelledAt = utcPtr(m.CancelledAt)
}

func (r *ReservationRepository) Create(ctx context.Context, m *domain.Reservation) error {
	normalizeTimes(m)
	return dbFrom(ctx, r.db).Create(m).Error
}

func (r *ReservationRepository) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	var m domain.Reservation
	if err := dbFrom(ctx, r.db).First(&m, id).Error; err != nil {
		return nil, notFound(err, "reservation", id)
	}
	return &m, nil
}

func (r *ReservationRepository) GetByOrderRef(ctx context.Context, orderRef string) (*domain.Reservation, error) {
	var m domain.Reservation
	if err := dbFrom(ctx, r.db).Where("order_ref = ?", orderRef).First(&m).Error; err != nil {
		return nil, notFound(err, "order", orderRef)
	}
	return &m, nil
}

func (r *ReservationRepository) FindByIdempotencyHash(ctx context.Context, userID int64, hash string) (*domain.Reservation, error) {
	var m domain.Reservation
	err := dbFrom(ctx, r.db).
		Where("user_id = ? AND idempotency_hash = ?", userID, hash).
		First(&m).Error
	if err != nil {
		return nil, notFound(err, "idempotency key for user", userID)
	}
	return &m, nil
}

// ListBlocking returns reservations on resourceIDs overlapping rng that block at
// now, ordered by resource and start date.
func (r *ReservationRepository) ListBlocking(ctx context.Context, resourceIDs []int64, rng domain.DateRange, now time.Time) ([]domain.Reservation, error) {
	if len(resourceIDs) == 0 {
		return nil, nil
	}
	var out []domain.Reservation
	err := dbFrom(ctx, r.db).
		Where("resource_id IN ?", resourceIDs).
		Where("start_date < ? AND end_date >= ?", utc(rng.End), utc(rng.Start)).
		Where(blockingCondition, domain.ReservationConfirmed, domain.ReservationPending, utc(now)).
		Order("resource_id, start_date").
		Find(&out).Error
	return out, err
}

// LatestEndForUser returns the latest end date among the user's blocking
// reservations on resourceID that end at or after since, or nil.
func (r *ReservationRepository) LatestEndForUser(ctx context.Context, resourceID, userID int64, since, now time.Time) (*time.Time, error) {
	var m domain.Reservation
	err := dbFrom(ctx, r.db).
		Where("resource_id = ? AND user_id = ? AND end_date >= ?", resourceID, userID, utc(since)).
		Where(blockingCondition, domain.ReservationConfirmed, domain.ReservationPending, utc(now)).
		Order("end_date DESC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m.EndDate, nil
}

func (r *ReservationRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Reservation, error) {
	var out []domain.Reservation
	err := dbFrom(ctx, r.db).
		Where("user_id = ?", userID).
		Order("start_date DESC, id DESC").
		Find(&out).Error
	return out, err
}

// UpdateGuarded applies changes only while the row still matches guard. It
// reports whether the row was updated; false means another writer moved it first.
func (r *ReservationRepository) UpdateGuarded(ctx context.Context, id int64, guard domain.TransitionGuard, changes map[string]any) (bool, error) {
	if len(changes) == 0 {
		return false, fmt.Errorf("%w: no changes", domain.ErrValidation)
	}
	for k, v := range changes {
		switch t := v.(type) {
		case time.Time:
			changes[k] = utc(t)
		case *time.Time:
			changes[k] = utcPtr(t)
		}
	}

	q := dbFrom(ctx, r.db).Model(&domain.Reservation{}).Where("id = ?", id)
	if guard.Status != "" {
		q = q.Where("status = ?", guard.Status)
	}
	if guard.PaymentStatus != "" {
		q = q.Where("payment_status = ?", guard.PaymentStatus)
	}
	if guard.ResourceID != 0 {
		q = q.Where("resource_id = ?", guard.ResourceID)
	}

	res := q.Updates(changes)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListExpiredHolds returns pending reservations whose hold ended at or before now.
func (r *ReservationRepository) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error) {
	var out []domain.Reservation
	err := dbFrom(ctx, r.db).
		Where("status = ? AND hold_expires_at <= ?", domain.ReservationPending, utc(now)).
		Order("hold_expires_at").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListOverdueDues returns partially paid reservations configured to auto-cancel
// whose due date has passed.
func (r *ReservationRepository) ListOverdueDues(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error) {
	var out []domain.Reservation
	err := dbFrom(ctx, r.db).
		Where("status = ? AND payment_status = ?", domain.ReservationConfirmed, domain.PaymentPartial).
		Where("auto_cancel_on_miss = ? AND due_date <= ?", true, utc(now)).
		Order("due_date").
		Limit(limit).
		Find(&out).Error
	return out, err
}
