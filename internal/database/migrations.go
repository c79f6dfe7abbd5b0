package database

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationBackfillAppFieldDefaults = "2026-06-12_backfill_app_field_defaults"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationBackfillAppFieldDefaults, apply: backfillAppFieldDefaults},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// backfillAppFieldDefaults repairs legacy app rows written before the defaulting
// boundary existed: missing numeric fields become zero, missing text fields take
// their documented defaults. The sweep is a one-shot equivalent of the repair the
// original client performed on every startup.
func backfillAppFieldDefaults(db *gorm.DB) error {
	numericDefaults := map[string]any{
		"rating":        0,
		"reviews_count": 0,
		"downloads":     0,
	}
	for column, value := range numericDefaults {
		if err := db.Exec("UPDATE apps SET "+column+" = ? WHERE "+column+" IS NULL", value).Error; err != nil {
			return err
		}
	}

	textDefaults := map[string]string{
		"version":          "1.0.0",
		"size":             "Unknown",
		"requires_android": "5.0+",
		"age_rating":       "Everyone",
		"content_rating":   "E",
	}
	for column, value := range textDefaults {
		err := db.Exec("UPDATE apps SET "+column+" = ? WHERE "+column+" IS NULL OR "+column+" = ''", value).Error
		if err != nil {
			return err
		}
	}

	jsonDefaults := []string{"screenshot_urls", "tags", "permissions"}
	for _, column := range jsonDefaults {
		err := db.Exec("UPDATE apps SET "+column+" = ? WHERE "+column+" IS NULL OR "+column+" = ''", "[]").Error
		if err != nil {
			return err
		}
	}
	return nil
}
