// Package repositories provides the data access layer. Each aggregate gets
// an interface plus a gorm-backed implementation; unique indexes double as
// the serialization points for cross-command invariants, surfaced through
// gorm's duplicated-key translation.
package repositories

import (
	"log"
	"os"
	"time"

	"domus/internal/config"
	"domus/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the postgres connection and configures pooling. The returned
// handle is injected into repositories at startup; nothing holds it as a
// package global.
func Connect() (*gorm.DB, error) {
	dsn := "host=" + config.GetEnv("DB_HOST", "localhost") +
		" user=" + config.GetEnv("DB_USER", "postgres") +
		" password=" + config.GetEnv("DB_PASSWORD", "postgres") +
		" dbname=" + config.GetEnv("DB_NAME", "domus") +
		" port=" + config.GetEnv("DB_PORT", "5432") +
		" sslmode=" + config.GetEnv("DB_SSLMODE", "disable")

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		// Unique-key violations must come back as gorm.ErrDuplicatedKey so
		// the check-and-insert invariants work without a read-then-write.
		TranslateError: true,
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(config.GetIntEnv("DB_MAX_IDLE_CONNS", 10))
	sqlDB.SetMaxOpenConns(config.GetIntEnv("DB_MAX_OPEN_CONNS", 100))
	sqlDB.SetConnMaxLifetime(config.GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour))
	sqlDB.SetConnMaxIdleTime(config.GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute))

	return db, nil
}

// Migrate applies the schema for every aggregate.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.PropertyUserAssociation{},
		&models.Property{},
		&models.Unit{},
		&models.Lease{},
		&models.RentSchedule{},
		&models.RentRecord{},
		&models.MaintenanceRequest{},
		&models.ScheduledMaintenance{},
		&models.Vendor{},
		&models.Invite{},
		&models.Comment{},
		&models.AuditEntry{},
	)
}
