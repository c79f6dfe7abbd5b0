package database

import (
	"path/filepath"
	"testing"

	"github.com/SolidevApps/store/backend/internal/catalog"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestApplyMigrationsBackfillsAppFieldDefaults(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	if err := database.AutoMigrate(&catalog.App{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	// A legacy row written before the defaulting boundary existed.
	err = database.Exec(
		"INSERT INTO apps (id, name, version, size, tags) VALUES (?, ?, '', '', '')",
		"legacy-1", "Retro Blast",
	).Error
	if err != nil {
		testContext.Fatalf("failed to insert legacy app: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var stored catalog.App
	if err := database.Where("id = ?", "legacy-1").Take(&stored).Error; err != nil {
		testContext.Fatalf("failed to reload app: %v", err)
	}
	if stored.Version != "1.0.0" {
		testContext.Fatalf("expected default version, got %q", stored.Version)
	}
	if stored.Size != "Unknown" {
		testContext.Fatalf("expected default size, got %q", stored.Size)
	}
	if stored.Tags == nil || len(stored.Tags) != 0 {
		testContext.Fatalf("expected empty tag list, got %v", stored.Tags)
	}

	var record migrationRecord
	if err := database.Where("name = ?", migrationBackfillAppFieldDefaults).Take(&record).Error; err != nil {
		testContext.Fatalf("expected migration record to be created: %v", err)
	}
	if record.AppliedAtSeconds == 0 {
		testContext.Fatalf("expected migration timestamp to be set")
	}
}

func TestApplyMigrationsRunsOnlyOnce(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}
	if err := database.AutoMigrate(&catalog.App{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}
	var first migrationRecord
	if err := database.Where("name = ?", migrationBackfillAppFieldDefaults).Take(&first).Error; err != nil {
		testContext.Fatalf("expected migration record: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to reapply migrations: %v", err)
	}
	var count int64
	if err := database.Model(&migrationRecord{}).Count(&count).Error; err != nil {
		testContext.Fatalf("failed to count records: %v", err)
	}
	if count != 1 {
		testContext.Fatalf("expected a single migration record, got %d", count)
	}
}
