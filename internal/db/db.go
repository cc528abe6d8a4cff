package db

import (
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"parking-share-backend/config"
	"parking-share-backend/internal/model"
)

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.Default.LogMode(logLevel(cfg.LogLevel)),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if cfg.Driver == "postgres" && cfg.EnableExclusion {
		log.Println("Exclusion constraint is enabled, applying PostgreSQL-specific DDL...")
		if err := applyPostgresDDL(db); err != nil {
			log.Printf("Warning: failed to apply some PostgreSQL DDL: %v. Continuing without them.", err)
		}
	}

	log.Println("Database initialization complete.")
	return db, nil
}

// Migrate creates the schema and the partial unique indexes backing the
// claim invariants. Both postgres and sqlite understand the index syntax.
func Migrate(db *gorm.DB) error {
	log.Println("Running database migrations...")
	if err := db.AutoMigrate(
		&model.User{},
		&model.Building{},
		&model.ParkingSpot{},
		&model.ParkingClaim{},
		&model.Booking{},
		&model.PointTransaction{},
		&model.PushSubscription{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}

	ddls := []string{
		// 每个用户最多一个待审核申请
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_claims_one_pending_per_user " +
			"ON parking_claims (user_id) WHERE status = 'PENDING';",
		// 同一车位只允许一个未被驳回的申请
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_claims_spot_key " +
			"ON parking_claims (floor, spot_number) WHERE status <> 'REJECTED';",
	}
	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}

func applyPostgresDDL(db *gorm.DB) error {
	ddls := []string{
		"CREATE EXTENSION IF NOT EXISTS btree_gist;",

		"DO $$ BEGIN " +
			"IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'bookings_range_valid') THEN " +
			"ALTER TABLE bookings ADD CONSTRAINT bookings_range_valid CHECK (start_time < end_time); " +
			"END IF; END $$;",

		// 已确认/进行中的预订在同一车位上不得重叠（下界闭、上界开）
		"DO $$ BEGIN " +
			"IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'bookings_no_overlap') THEN " +
			"ALTER TABLE bookings ADD CONSTRAINT bookings_no_overlap EXCLUDE USING GIST " +
			"(spot_id WITH =, tstzrange(start_time, end_time, '[)') WITH &&) " +
			"WHERE (status IN ('CONFIRMED', 'ACTIVE')); " +
			"END IF; END $$;",

		"DO $$ BEGIN " +
			"IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'parking_spots_rates_positive') THEN " +
			"ALTER TABLE parking_spots ADD CONSTRAINT parking_spots_rates_positive CHECK (hourly_rate > 0 AND daily_rate > 0); " +
			"END IF; END $$;",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}

func logLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
