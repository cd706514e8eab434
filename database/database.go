package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/jenkinph/procedure-passport/config"
	"github.com/jenkinph/procedure-passport/logger"
	"github.com/jenkinph/procedure-passport/models"
)

// Connect opens the relational database selected by cfg.StoreDriver and
// migrates the schema.
func Connect(cfg config.Config, log *logger.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.PostgresDSN())
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("driver %q is not relational", cfg.StoreDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.StoreDriver, err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Info("database connected and migrated", "driver", cfg.StoreDriver)
	return db, nil
}

// Migrate creates or updates every table the store uses.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Specialty{},
		&models.Procedure{},
		&models.Step{},
		&models.Evaluator{},
		&models.Resident{},
		&models.Case{},
		&models.Score{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

func Close(db *gorm.DB, log *logger.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("get sql db", "error", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("close database", "error", err)
		return
	}
	log.Info("database closed")
}
