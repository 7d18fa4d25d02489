package main

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cabinbook/internal/config"
	"cabinbook/internal/database"
	"cabinbook/internal/domain"
	jwtsvc "cabinbook/internal/pkg/jwt"
	"cabinbook/internal/pkg/logger"
)

const (
	demoCustomerID = 1001
	demoAdminID    = 1
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{Format: logger.JSON}).Fatal("config", "error", err)
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: logger.TEXT, Service: "cabinbook-seed"})

	db, err := database.Connect(cfg.DatabaseURL, database.Options{}, log)
	if err != nil {
		log.Fatal("db connection failed", "error", err)
	}

	log.Info("running migrations")
	if err := database.Migrate(db); err != nil {
		log.Fatal("migration failed", "error", err)
	}

	// Cleanup old data (children first)
	log.Info("cleaning old data")
	for _, table := range []string{"reservations", "coupons", "slots", "resources", "categories", "containers"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			log.Fatal("cleanup failed", "table", table, "error", err)
		}
	}

	var seats, beds int
	err = db.Transaction(func(tx *gorm.DB) error {
		room, err := seedReadingRoom(tx)
		if err != nil {
			return err
		}
		seats = len(room)

		hostel, err := seedHostel(tx)
		if err != nil {
			return err
		}
		beds = len(hostel)

		return seedCoupons(tx)
	})
	if err != nil {
		log.Fatal("seed failed", "error", err)
	}
	log.Info("catalog seeded", "seats", seats, "beds", beds)

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL, cfg.JWTIssuer)
	customer, err := j.GenerateToken(demoCustomerID, jwtsvc.RoleCustomer)
	if err != nil {
		log.Fatal("token", "error", err)
	}
	admin, err := j.GenerateToken(demoAdminID, jwtsvc.RoleAdmin)
	if err != nil {
		log.Fatal("token", "error", err)
	}
	fmt.Printf("customer token (user %d):\n%s\n\nadmin token (user %d):\n%s\n", demoCustomerID, customer, demoAdminID, admin)
}

func seedReadingRoom(tx *gorm.DB) ([]domain.Resource, error) {
	room := domain.Container{
		Name:                  "Central Reading Room",
		Kind:                  domain.ContainerReadingRoom,
		MaxAdvanceBookingDays: 60,
		LockerFee:             300,
		AdvancePolicy: domain.AdvancePolicy{
			Enabled:                 true,
			Percentage:              30,
			ApplicableDurationTypes: domain.DurationTypes{domain.DurationMonthly},
			ValidityDays:            7,
			AutoCancelOnMiss:        true,
		},
		IsActive: true,
	}
	if err := tx.Create(&room).Error; err != nil {
		return nil, fmt.Errorf("reading room: %w", err)
	}

	window := domain.Category{ContainerID: room.ID, Name: "Window", AdjustmentType: domain.AdjustmentFlat, Amount: 500}
	cabin := domain.Category{ContainerID: room.ID, Name: "Private cabin", AdjustmentType: domain.AdjustmentOverride, Amount: 6000}
	if err := tx.Create(&[]*domain.Category{&window, &cabin}).Error; err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}

	var seats []domain.Resource
	for i := 1; i <= 20; i++ {
		seat := domain.Resource{
			ContainerID: room.ID,
			Kind:        domain.ResourceSeat,
			Label:       fmt.Sprintf("A-%02d", i),
			BasePrice:   3500,
			IsActive:    true,
		}
		switch {
		case i <= 4:
			seat.CategoryID = &window.ID
		case i > 18:
			seat.CategoryID = &cabin.ID
		}
		if i == 10 {
			seat.IsBlocked = true
			seat.BlockReason = "broken lamp"
		}
		seats = append(seats, seat)
	}
	if err := tx.Create(&seats).Error; err != nil {
		return nil, fmt.Errorf("seats: %w", err)
	}

	var slots []domain.Slot
	for _, seat := range seats {
		slots = append(slots,
			domain.Slot{ResourceID: seat.ID, Name: "morning", StartTime: "08:00", EndTime: "14:00", Price: 2000},
			domain.Slot{ResourceID: seat.ID, Name: "evening", StartTime: "14:00", EndTime: "22:00", Price: 2200},
		)
	}
	if err := tx.Create(&slots).Error; err != nil {
		return nil, fmt.Errorf("slots: %w", err)
	}
	return seats, nil
}

func seedHostel(tx *gorm.DB) ([]domain.Resource, error) {
	hostel := domain.Container{
		Name:                  "Riverside Hostel",
		Kind:                  domain.ContainerHostel,
		MaxAdvanceBookingDays: 90,
		SecurityDeposit:       5000,
		AdvancePolicy: domain.AdvancePolicy{
			Enabled:                 true,
			UseFlatAmount:           true,
			FlatAmount:              10000,
			ApplicableDurationTypes: domain.DurationTypes{domain.DurationMonthly},
			ValidityDays:            10,
		},
		IsActive: true,
	}
	if err := tx.Create(&hostel).Error; err != nil {
		return nil, fmt.Errorf("hostel: %w", err)
	}

	var beds []domain.Resource
	for room := 1; room <= 3; room++ {
		for bed := 1; bed <= 4; bed++ {
			beds = append(beds, domain.Resource{
				ContainerID: hostel.ID,
				Kind:        domain.ResourceBed,
				Label:       fmt.Sprintf("R%d-B%d", room, bed),
				BasePrice:   45000,
				IsActive:    true,
			})
		}
	}
	if err := tx.Create(&beds).Error; err != nil {
		return nil, fmt.Errorf("beds: %w", err)
	}
	return beds, nil
}

func seedCoupons(tx *gorm.DB) error {
	now := time.Now().UTC()
	maxDiscount := 1000.0
	coupons := []domain.Coupon{
		{
			Code:              "WELCOME10",
			Type:              domain.CouponPercentage,
			Value:             10,
			MaxDiscountAmount: &maxDiscount,
			ValidFrom:         now.AddDate(0, 0, -1),
			ValidTo:           now.AddDate(0, 6, 0),
			IsActive:          true,
		},
		{
			Code:           "STUDENT500",
			Type:           domain.CouponFixed,
			Value:          500,
			MinOrderAmount: 3000,
			ValidFrom:      now.AddDate(0, 0, -1),
			ValidTo:        now.AddDate(1, 0, 0),
			UsageLimit:     100,
			IsActive:       true,
		},
	}
	return tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}).Create(&coupons).Error
}
