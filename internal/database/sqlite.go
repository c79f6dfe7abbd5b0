package database

import (
	"fmt"

	"github.com/SolidevApps/store/backend/internal/catalog"
	"github.com/SolidevApps/store/backend/internal/users"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OpenSQLite establishes a SQLite connection and performs schema migrations.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db, logger); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates the schema and applies the named repair migrations. Split from
// OpenSQLite so tests opening their own in-memory handles can reuse it.
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	if err := db.AutoMigrate(&catalog.App{}, &catalog.Category{}, &catalog.Review{}, &users.Profile{}, &migrationRecord{}); err != nil {
		return err
	}
	// The app-scoped review location shares the Review shape under its own table.
	if err := db.Table("app_reviews").AutoMigrate(&catalog.Review{}); err != nil {
		return err
	}

	return applyMigrations(db, logger)
}
