package database

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"cabinbook/internal/domain"
	"cabinbook/internal/pkg/logger"
)

type Options struct {
	// LogQueries enables gorm's SQL logger at warn level.
	LogQueries   bool
	MaxOpenConns int
	MaxIdleConns int
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Connect opens postgres for postgres:// URLs and SQLite (modernc, no cgo) for
// anything else.
func Connect(dsn string, opts Options, log *logger.Logger) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	if opts.LogQueries {
		cfg.Logger = gormlogger.Default.LogMode(gormlogger.Warn)
	}

	var dialector gorm.Dialector
	if isPostgres(dsn) {
		log.Info("connecting to postgres")
		dialector = postgres.Open(dsn)
	} else {
		log.Info("using sqlite", "dsn", dsn)
		dialector = gormsqlite.New(gormsqlite.Config{
			DriverName: "sqlite",
			DSN:        dsn,
		})
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// Models lists every table owned by the service.
func Models() []any {
	return []any{
		&domain.Container{},
		&domain.Category{},
		&domain.Resource{},
		&domain.Slot{},
		&domain.Coupon{},
		&domain.Reservation{},
	}
}

// noOverlapDDL makes postgres itself reject two confirmed reservations that
// overlap on one resource.
const noOverlapDDL = `
DO $$
BEGIN
	IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'reservations_no_overlap') THEN
		ALTER TABLE reservations ADD CONSTRAINT reservations_no_overlap
			EXCLUDE USING gist (resource_id WITH =, tstzrange(start_date, end_date, '[]') WITH &&)
			WHERE (status = 'confirmed');
	END IF;
END
$$;`

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS btree_gist`).Error; err != nil {
		return fmt.Errorf("enable btree_gist: %w", err)
	}
	if err := db.Exec(noOverlapDDL).Error; err != nil {
		return fmt.Errorf("create overlap constraint: %w", err)
	}
	return nil
}
