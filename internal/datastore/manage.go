package datastore

import (
	"log"
	"os"
	"time"

	"github.com/mveikko/daybook-go/internal/errors"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowQueryThreshold defines the duration after which a query is
// considered slow and logged by the GORM logger.
const DefaultSlowQueryThreshold = 1 * time.Second

// createGormLogger configures and returns a new GORM logger instance.
func createGormLogger() gormlogger.Interface {
	return gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold: DefaultSlowQueryThreshold,
			LogLevel:      gormlogger.Warn,
			Colorful:      true,
		},
	)
}

// performAutoMigration automates database migrations with error handling.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	migrationStart := time.Now()

	tableMappings := []struct {
		model any
		name  string
	}{
		{&DailyRecord{}, "daily_records"},
		{&TranscriptionSegment{}, "transcription_segments"},
		{&LocationVisit{}, "location_visits"},
	}

	for _, table := range tableMappings {
		tableStart := time.Now()
		tableExists := db.Migrator().HasTable(table.model)

		if err := db.AutoMigrate(table.model); err != nil {
			enhancedErr := errors.New(err).
				Component("datastore").
				Category(errors.CategoryDatabase).
				Priority(errors.PriorityCritical).
				Context("operation", "auto_migrate_table").
				Context("db_type", dbType).
				Context("table", table.name).
				Build()

			GetLogger().Error("table migration failed",
				"table", table.name,
				"error", enhancedErr)
			return enhancedErr
		}

		action := "updated"
		if !tableExists {
			action = "created"
		}
		GetLogger().Debug("table migration completed",
			"table", table.name,
			"action", action,
			"duration", time.Since(tableStart))
	}

	if debug {
		GetLogger().Debug("database migration completed",
			"db_type", dbType,
			"connection", connectionInfo,
			"tables_migrated", len(tableMappings),
			"total_duration", time.Since(migrationStart))
	}

	return nil
}
