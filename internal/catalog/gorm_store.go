package catalog

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

const appReviewsTable = "app_reviews"

// queryableAppFields whitelists the columns a filter or sort key may reference.
var queryableAppFields = map[string]bool{
	"category_id":      true,
	"category":         true,
	"is_featured":      true,
	"is_top_rated":     true,
	"is_new":           true,
	"is_editor_choice": true,
	"rating":           true,
	"downloads":        true,
	"release_date":     true,
}

// GormStore implements Store over a relational database. Any whitelisted
// filter+sort shape is served directly; only unknown fields are rejected.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore constructs a store over the provided database handle.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("catalog: database handle is required")
	}
	return &GormStore{db: db}, nil
}

// ListApps returns every app record.
func (s *GormStore) ListApps(ctx context.Context) ([]App, error) {
	var apps []App
	if err := s.db.WithContext(ctx).Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

// QueryApps serves a filtered, sorted, limited read.
func (s *GormStore) QueryApps(ctx context.Context, query AppQuery) ([]App, error) {
	tx := s.db.WithContext(ctx).Model(&App{})
	if query.Filter != nil {
		if !queryableAppFields[query.Filter.Field] {
			return nil, fmt.Errorf("%w: filter on %s", ErrUnsupportedQuery, query.Filter.Field)
		}
		tx = tx.Where(fmt.Sprintf("%s = ?", query.Filter.Field), query.Filter.Value)
	}
	for _, key := range query.Sort {
		if !queryableAppFields[key.Field] {
			return nil, fmt.Errorf("%w: sort on %s", ErrUnsupportedQuery, key.Field)
		}
		direction := "ASC"
		if key.Descending {
			direction = "DESC"
		}
		tx = tx.Order(fmt.Sprintf("%s %s", key.Field, direction))
	}
	if query.Limit > 0 {
		tx = tx.Limit(query.Limit)
	}
	var apps []App
	if err := tx.Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

// GetApp performs a point read by id.
func (s *GormStore) GetApp(ctx context.Context, appID string) (App, error) {
	var app App
	err := s.db.WithContext(ctx).Where("id = ?", appID).Take(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return App{}, fmt.Errorf("%w: %s", ErrAppNotFound, appID)
	}
	if err != nil {
		return App{}, err
	}
	return app, nil
}

// CreateApp inserts a new app record.
func (s *GormStore) CreateApp(ctx context.Context, app App) error {
	return s.db.WithContext(ctx).Create(&app).Error
}

// UpdateApp overwrites the named fields on an app record unconditionally.
func (s *GormStore) UpdateApp(ctx context.Context, appID string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	result := s.db.WithContext(ctx).Model(&App{}).Where("id = ?", appID).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrAppNotFound, appID)
	}
	return nil
}

// IncrementDownloads bumps the download counter by one.
func (s *GormStore) IncrementDownloads(ctx context.Context, appID string) error {
	result := s.db.WithContext(ctx).Model(&App{}).Where("id = ?", appID).
		Update("downloads", gorm.Expr("downloads + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrAppNotFound, appID)
	}
	return nil
}

// ListCategories returns every category record.
func (s *GormStore) ListCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := s.db.WithContext(ctx).Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// GetCategory performs a point read by id.
func (s *GormStore) GetCategory(ctx context.Context, categoryID string) (Category, error) {
	var category Category
	err := s.db.WithContext(ctx).Where("id = ?", categoryID).Take(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Category{}, fmt.Errorf("%w: %s", ErrCategoryNotFound, categoryID)
	}
	if err != nil {
		return Category{}, err
	}
	return category, nil
}

// PutCategory inserts or overwrites a category by id, making seeding idempotent.
func (s *GormStore) PutCategory(ctx context.Context, category Category) error {
	var existing Category
	err := s.db.WithContext(ctx).Where("id = ?", category.ID).Take(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.db.WithContext(ctx).Create(&category).Error
	}
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&Category{}).Where("id = ?", category.ID).
		Updates(map[string]any{
			"name":        category.Name,
			"icon":        category.Icon,
			"color":       category.Color,
			"description": category.Description,
		}).Error
}

// AppReviews reads the app-scoped review location.
func (s *GormStore) AppReviews(ctx context.Context, appID string) ([]Review, error) {
	var reviews []Review
	err := s.db.WithContext(ctx).Table(appReviewsTable).Where("app_id = ?", appID).Find(&reviews).Error
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

// GlobalReviews reads the flat review location filtered by app id.
func (s *GormStore) GlobalReviews(ctx context.Context, appID string) ([]Review, error) {
	var reviews []Review
	err := s.db.WithContext(ctx).Where("app_id = ?", appID).Find(&reviews).Error
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

// CreateAppReview writes a review copy into the app-scoped location.
func (s *GormStore) CreateAppReview(ctx context.Context, review Review) error {
	return s.db.WithContext(ctx).Table(appReviewsTable).Create(&review).Error
}

// CreateGlobalReview writes a review into the flat location.
func (s *GormStore) CreateGlobalReview(ctx context.Context, review Review) error {
	return s.db.WithContext(ctx).Create(&review).Error
}
