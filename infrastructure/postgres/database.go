package postgres

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"photovault/domain/models"
	"photovault/pkg/config"
	"photovault/pkg/logger"
)

// NewDatabase opens the PostgreSQL connection and runs migrations.
func NewDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Startup("database", "database connected and migrated", map[string]interface{}{
		"host": cfg.Host,
		"db":   cfg.DBName,
	})
	return db, nil
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.PhotoRecord{},
		&models.Version{},
		&models.SearchEntry{},
		&models.SyncCursor{},
		&models.SyncRun{},
	); err != nil {
		return err
	}

	// indexes GORM tags cannot express
	manual := []string{
		`CREATE INDEX IF NOT EXISTS idx_records_sources ON photo_records USING GIN (sources)`,
		`CREATE INDEX IF NOT EXISTS idx_records_extra ON photo_records USING GIN (extra)`,
	}
	for _, stmt := range manual {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
