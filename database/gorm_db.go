package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tombaby2015-max/family-photo-album-google/models"
)

// sqliteParams are go-sqlite3 DSN options, applied to every pooled connection.
const sqliteParams = "_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"

// InitGormDB opens the sqlite file holding the record store. SQL logging goes
// through the standard logger so it ends up wherever the process log does.
func InitGormDB(path string) (*gorm.DB, error) {
	gormLogger := logger.New(
		log.New(log.Writer(), "gorm: ", log.LstdFlags),
		logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(path+"?"+sqliteParams), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open record store '%s': %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB from GORM: %w", err)
	}
	// one writer at a time; busy_timeout covers the parallel sync writes
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetMaxIdleConns(4)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	log.Printf("Record store opened at %s", path)
	return db, nil
}

// AutoMigrateModels creates or updates the kv_entries table.
func AutoMigrateModels(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.KVEntry{}); err != nil {
		return fmt.Errorf("kv_entries migration failed: %w", err)
	}
	return nil
}
