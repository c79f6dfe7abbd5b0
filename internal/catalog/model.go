package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const maxIdentifierLength = 190

var (
	// ErrInvalidAppID indicates that an app identifier is empty or exceeds storage bounds.
	ErrInvalidAppID = errors.New("catalog: invalid app id")
	// ErrInvalidCategoryID indicates that a category identifier is empty or exceeds storage bounds.
	ErrInvalidCategoryID = errors.New("catalog: invalid category id")
)

// AppID represents a validated app identifier.
type AppID string

// NewAppID validates raw input and returns an AppID.
func NewAppID(rawInput string) (AppID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidAppID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidAppID, maxIdentifierLength)
	}
	return AppID(trimmed), nil
}

// String returns the underlying string identifier.
func (id AppID) String() string {
	return string(id)
}

// CategoryID represents a validated category identifier.
type CategoryID string

// NewCategoryID validates raw input and returns a CategoryID.
func NewCategoryID(rawInput string) (CategoryID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidCategoryID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidCategoryID, maxIdentifierLength)
	}
	return CategoryID(trimmed), nil
}

// String returns the underlying string identifier.
func (id CategoryID) String() string {
	return string(id)
}

// App is a published catalog entry. Rating and ReviewsCount are derived from the
// app's reviews and kept consistent by the ratings reconciler.
type App struct {
	ID               string    `gorm:"column:id;primaryKey;size:190" json:"id"`
	Name             string    `gorm:"column:name;not null" json:"name"`
	Publisher        string    `gorm:"column:publisher" json:"publisher"`
	Category         string    `gorm:"column:category" json:"category"`
	CategoryID       string    `gorm:"column:category_id;index" json:"categoryId"`
	Description      string    `gorm:"column:description" json:"description"`
	Version          string    `gorm:"column:version" json:"version"`
	Rating           float64   `gorm:"column:rating" json:"rating"`
	ReviewsCount     int64     `gorm:"column:reviews_count" json:"reviewsCount"`
	Downloads        int64     `gorm:"column:downloads" json:"downloads"`
	IconURL          string    `gorm:"column:icon_url" json:"iconUrl"`
	IconThumbURL     string    `gorm:"column:icon_thumb_url" json:"iconThumbUrl"`
	ScreenshotURLs   []string  `gorm:"column:screenshot_urls;serializer:json" json:"screenshotUrls"`
	APKURL           string    `gorm:"column:apk_url" json:"apkUrl"`
	APKFileName      string    `gorm:"column:apk_file_name" json:"apkFileName"`
	PackageName      string    `gorm:"column:package_name" json:"packageName"`
	WhatsNew         string    `gorm:"column:whats_new" json:"whatsNew"`
	ReleaseDate      time.Time `gorm:"column:release_date" json:"releaseDate"`
	LastUpdated      time.Time `gorm:"column:last_updated" json:"lastUpdated"`
	LastRatingUpdate time.Time `gorm:"column:last_rating_update" json:"lastRatingUpdate"`
	Size             string    `gorm:"column:size" json:"size"`
	RequiresAndroid  string    `gorm:"column:requires_android" json:"requiresAndroid"`
	InAppPurchases   bool      `gorm:"column:in_app_purchases" json:"inAppPurchases"`
	ContainsAds      bool      `gorm:"column:contains_ads" json:"containsAds"`
	AgeRating        string    `gorm:"column:age_rating" json:"ageRating"`
	ContentRating    string    `gorm:"column:content_rating" json:"contentRating"`
	IsFeatured       bool      `gorm:"column:is_featured" json:"isFeatured"`
	IsTopRated       bool      `gorm:"column:is_top_rated" json:"isTopRated"`
	IsNew            bool      `gorm:"column:is_new" json:"isNew"`
	IsEditorChoice   bool      `gorm:"column:is_editor_choice" json:"isEditorChoice"`
	Tags             []string  `gorm:"column:tags;serializer:json" json:"tags"`
	Permissions      []string  `gorm:"column:permissions;serializer:json" json:"permissions"`
}

// TableName maps App to the apps table.
func (App) TableName() string {
	return "apps"
}

// Category is a canonical taxonomy entry. AppCount is derived and refreshed on demand.
type Category struct {
	ID          string `gorm:"column:id;primaryKey;size:190" json:"id"`
	Name        string `gorm:"column:name;not null" json:"name"`
	Icon        string `gorm:"column:icon" json:"icon"`
	Color       string `gorm:"column:color" json:"color"`
	Description string `gorm:"column:description" json:"description"`
	AppCount    int64  `gorm:"column:app_count" json:"appCount"`
}

// TableName maps Category to the categories table.
func (Category) TableName() string {
	return "categories"
}

// Review is a user-submitted rating tied to one app. Reviews live in two physical
// locations: the flat reviews table and a per-app app_reviews table. A copy in the
// app-scoped location carries SourceReviewID pointing at its flat-table original.
type Review struct {
	ID             string    `gorm:"column:id;primaryKey;size:190" json:"id"`
	AppID          string    `gorm:"column:app_id;index;not null" json:"appId"`
	UserID         string    `gorm:"column:user_id" json:"userId"`
	UserName       string    `gorm:"column:user_name" json:"userName"`
	Rating         int64     `gorm:"column:rating" json:"rating"`
	Title          string    `gorm:"column:title" json:"title"`
	Comment        string    `gorm:"column:comment" json:"comment"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"createdAt"`
	HelpfulCount   int64     `gorm:"column:helpful_count" json:"helpfulCount"`
	AppVersion     string    `gorm:"column:app_version" json:"appVersion"`
	DeviceInfo     string    `gorm:"column:device_info" json:"deviceInfo"`
	SourceReviewID string    `gorm:"column:source_review_id" json:"sourceReviewId,omitempty"`
}

// ValidRating reports whether the review carries an aggregatable rating value.
func (r Review) ValidRating() bool {
	return r.Rating >= 1 && r.Rating <= 5
}
