package persistence

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/spec-kit/store-management/internal/config"
)

// NewSQLite opens the embedded database through gorm.
func NewSQLite(cfg config.SQLiteConfig, logger *zap.Logger) (*gorm.DB, error) {
	level := gormlogger.Silent
	if cfg.LogQueries {
		level = gormlogger.Info
	}

	dsn := cfg.Path
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// each ":memory:" connection is its own database
	sqlDB.SetMaxOpenConns(1)
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	logger.Info("opened sqlite database", zap.String("path", dsn))
	return db, nil
}
