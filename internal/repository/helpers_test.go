package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"cabinbook/internal/database"
	"cabinbook/internal/domain"
	"cabinbook/internal/pkg/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Connect("file:"+name+"?mode=memory&cache=shared", database.Options{MaxOpenConns: 1}, logger.Discard())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedCatalog(t *testing.T, db *gorm.DB) (domain.Container, []domain.Resource) {
	t.Helper()
	c := domain.Container{Name: "North Hall", Kind: domain.ContainerReadingRoom, MaxAdvanceBookingDays: 60, IsActive: true}
	require.NoError(t, db.Create(&c).Error)

	cat := domain.Category{ContainerID: c.ID, Name: "window", AdjustmentType: domain.AdjustmentFlat, Amount: 200}
	require.NoError(t, db.Create(&cat).Error)

	resources := []domain.Resource{
		{ContainerID: c.ID, Kind: domain.ResourceSeat, Label: "S1", BasePrice: 3000, CategoryID: &cat.ID, IsActive: true},
		{ContainerID: c.ID, Kind: domain.ResourceSeat, Label: "S2", BasePrice: 2500, IsActive: true},
		{ContainerID: c.ID, Kind: domain.ResourceSeat, Label: "S3", BasePrice: 2500, IsActive: true, IsBlocked: true, BlockReason: "repair"},
	}
	require.NoError(t, db.Create(&resources).Error)

	require.NoError(t, db.Create(&domain.Slot{ResourceID: resources[0].ID, Name: "morning", StartTime: "06:00", EndTime: "12:00", Price: 1500}).Error)
	return c, resources
}

func reservation(resourceID, userID int64, start time.Time, days int, status domain.ReservationStatus, ref string) *domain.Reservation {
	return &domain.Reservation{
		ResourceID:    resourceID,
		ContainerID:   1,
		UserID:        userID,
		StartDate:     start,
		EndDate:       start.AddDate(0, 0, days).Add(-time.Second),
		DurationType:  domain.DurationDaily,
		DurationCount: days,
		Status:        status,
		PaymentStatus: domain.PaymentPending,
		TotalPrice:    100,
		AdvanceAmount: 100,
		OrderRef:      ref,
	}
}
