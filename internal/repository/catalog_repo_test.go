package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cabinbook/internal/domain"
)

func TestCatalogRepository_Reads(t *testing.T) {
	db := newTestDB(t)
	c, resources := seedCatalog(t, db)
	repo := NewCatalogRepository(db)
	ctx := context.Background()

	got, err := repo.GetContainer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "North Hall", got.Name)

	_, err = repo.GetContainer(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	seat, err := repo.GetResource(ctx, resources[0].ID)
	require.NoError(t, err)
	require.NotNil(t, seat.Category)
	assert.Equal(t, 200.0, seat.Category.Amount)
	require.Len(t, seat.Slots, 1)
	assert.Equal(t, "morning", seat.Slots[0].Name)

	list, err := repo.ListResources(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	picked, err := repo.GetResources(ctx, []int64{resources[2].ID, resources[0].ID, 999})
	require.NoError(t, err)
	require.Len(t, picked, 2)
	assert.Equal(t, resources[2].ID, picked[0].ID)
	assert.Equal(t, resources[0].ID, picked[1].ID)
}

func TestCatalogRepository_LockResources(t *testing.T) {
	db := newTestDB(t)
	_, resources := seedCatalog(t, db)
	repo := NewCatalogRepository(db)
	tx := NewTxManager(db)

	err := tx.ExecuteTransaction(context.Background(), func(ctx context.Context) error {
		locked, err := repo.LockResources(ctx, resources[1].ID, resources[0].ID)
		require.NoError(t, err)
		require.Len(t, locked, 2)
		assert.Less(t, locked[0].ID, locked[1].ID)
		return nil
	})
	require.NoError(t, err)

	err = tx.ExecuteTransaction(context.Background(), func(ctx context.Context) error {
		_, err := repo.LockResources(ctx, 12345)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCatalogRepository_Coupons(t *testing.T) {
	db := newTestDB(t)
	repo := NewCatalogRepository(db)
	ctx := context.Background()

	coupon := domain.Coupon{
		Code:       "SPRING",
		Type:       domain.CouponFixed,
		Value:      100,
		ValidFrom:  time.Now().Add(-time.Hour),
		ValidTo:    time.Now().Add(time.Hour),
		UsageLimit: 2,
		IsActive:   true,
	}
	require.NoError(t, db.Create(&coupon).Error)

	got, err := repo.GetCouponByCode(ctx, " spring ")
	require.NoError(t, err)
	assert.Equal(t, coupon.ID, got.ID)

	_, err = repo.GetCouponByCode(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrCouponInvalid)

	for i := 0; i < 2; i++ {
		ok, err := repo.ConsumeCoupon(ctx, coupon.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := repo.ConsumeCoupon(ctx, coupon.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err = repo.GetCouponByCode(ctx, "SPRING")
	require.NoError(t, err)
	assert.Equal(t, 2, got.UsedCount)
	assert.True(t, got.Exhausted())

	require.NoError(t, repo.ReleaseCoupon(ctx, "spring"))
	got, err = repo.GetCouponByCode(ctx, "SPRING")
	require.NoError(t, err)
	assert.Equal(t, 1, got.UsedCount)

	require.NoError(t, repo.ReleaseCoupon(ctx, "SPRING"))
	require.NoError(t, repo.ReleaseCoupon(ctx, "SPRING"))
	got, err = repo.GetCouponByCode(ctx, "SPRING")
	require.NoError(t, err)
	assert.Zero(t, got.UsedCount)
}
