package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cabinbook/internal/domain"
)

// CatalogRepository reads containers, resources and coupons. Catalog data is
// maintained elsewhere; the only write is coupon usage.
type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func notFound(err error, what string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %v", domain.ErrNotFound, what, id)
	}
	return err
}

func (r *CatalogRepository) GetContainer(ctx context.Context, id int64) (*domain.Container, error) {
	var c domain.Container
	if err := dbFrom(ctx, r.db).First(&c, id).Error; err != nil {
		return nil, notFound(err, "container", id)
	}
	return &c, nil
}

func (r *CatalogRepository) withDetails(ctx context.Context) *gorm.DB {
	return dbFrom(ctx, r.db).
		Preload("Category").
		Preload("Slots", func(db *gorm.DB) *gorm.DB { return db.Order("id") })
}

func (r *CatalogRepository) GetResource(ctx context.Context, id int64) (*domain.Resource, error) {
	var res domain.Resource
	if err := r.withDetails(ctx).First(&res, id).Error; err != nil {
		return nil, notFound(err, "resource", id)
	}
	return &res, nil
}

func (r *CatalogRepository) ListResources(ctx context.Context, containerID int64) ([]domain.Resource, error) {
	var out []domain.Resource
	err := r.withDetails(ctx).
		Where("container_id = ?", containerID).
		Order("id").
		Find(&out).Error
	return out, err
}

// GetResources returns the resources with the given ids in the order requested.
// Unknown ids are skipped.
func (r *CatalogRepository) GetResources(ctx context.Context, ids []int64) ([]domain.Resource, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []domain.Resource
	if err := r.withDetails(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[int64]domain.Resource, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	out := make([]domain.Resource, 0, len(rows))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			out = append(out, row)
			delete(byID, id)
		}
	}
	return out, nil
}

// LockResources row-locks the given resources in ascending id order, so two
// transactions locking overlapping sets cannot deadlock. Must run inside a
// transaction.
func (r *CatalogRepository) LockResources(ctx context.Context, ids ...int64) ([]domain.Resource, error) {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var out []domain.Resource
	err := dbFrom(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", sorted).
		Order("id").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: resources %v", domain.ErrNotFound, ids)
	}
	return out, nil
}

func (r *CatalogRepository) GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	var c domain.Coupon
	err := dbFrom(ctx, r.db).
		Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: unknown coupon %q", domain.ErrCouponInvalid, code)
		}
		return nil, err
	}
	return &c, nil
}

// ConsumeCoupon records one use. It reports false when the usage limit was
// reached by a concurrent booking.
func (r *CatalogRepository) ConsumeCoupon(ctx context.Context, id int64) (bool, error) {
	res := dbFrom(ctx, r.db).
		Model(&domain.Coupon{}).
		Where("id = ? AND (usage_limit = 0 OR used_count < usage_limit)", id).
		Update("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ReleaseCoupon gives back one use of code. The count never drops below zero.
func (r *CatalogRepository) ReleaseCoupon(ctx context.Context, code string) error {
	return dbFrom(ctx, r.db).
		Model(&domain.Coupon{}).
		Where("code = ? AND used_count > 0", strings.ToUpper(strings.TrimSpace(code))).
		Update("used_count", gorm.Expr("used_count - 1")).Error
}
