package catalog

import (
	"strings"
	"time"
)

// Field defaults applied once at the ingestion boundary. Legacy records written by
// earlier clients may omit any of these.
const (
	defaultVersion         = "1.0.0"
	defaultSize            = "Unknown"
	defaultRequiresAndroid = "5.0+"
	defaultAgeRating       = "Everyone"
	defaultContentRating   = "E"
)

// ParseApp normalizes an untyped document bag into an App, filling every missing
// field with its documented default. Submissions and repair sweeps both go through
// this single defaulting table.
func ParseApp(id string, raw map[string]any) App {
	app := App{
		ID:              strings.TrimSpace(id),
		Name:            stringField(raw, "name", ""),
		Publisher:       stringField(raw, "publisher", ""),
		Category:        stringField(raw, "category", ""),
		CategoryID:      stringField(raw, "categoryId", ""),
		Description:     stringField(raw, "description", ""),
		Version:         stringField(raw, "version", defaultVersion),
		Rating:          floatField(raw, "rating", 0),
		ReviewsCount:    intField(raw, "reviewsCount", 0),
		Downloads:       intField(raw, "downloads", 0),
		IconURL:         stringField(raw, "iconUrl", ""),
		APKURL:          stringField(raw, "apkUrl", ""),
		APKFileName:     stringField(raw, "apkFileName", ""),
		PackageName:     stringField(raw, "packageName", ""),
		WhatsNew:        stringField(raw, "whatsNew", ""),
		ReleaseDate:     timeField(raw, "releaseDate"),
		LastUpdated:     timeField(raw, "lastUpdated"),
		Size:            stringField(raw, "size", defaultSize),
		RequiresAndroid: stringField(raw, "requiresAndroid", defaultRequiresAndroid),
		InAppPurchases:  boolField(raw, "inAppPurchases"),
		ContainsAds:     boolField(raw, "containsAds"),
		AgeRating:       stringField(raw, "ageRating", defaultAgeRating),
		ContentRating:   stringField(raw, "contentRating", defaultContentRating),
		IsFeatured:      boolField(raw, "isFeatured"),
		IsTopRated:      boolField(raw, "isTopRated"),
		IsNew:           boolField(raw, "isNew"),
		IsEditorChoice:  boolField(raw, "isEditorChoice"),
		ScreenshotURLs:  stringSliceField(raw, "screenshotUrls"),
		Tags:            stringSliceField(raw, "tags"),
		Permissions:     stringSliceField(raw, "permissions"),
	}
	app.IconThumbURL = stringField(raw, "iconThumbUrl", app.IconURL)
	if app.Rating < 0 {
		app.Rating = 0
	}
	if app.ReviewsCount < 0 {
		app.ReviewsCount = 0
	}
	if app.Downloads < 0 {
		app.Downloads = 0
	}
	return app
}

func stringField(raw map[string]any, key, fallback string) string {
	value, ok := raw[key].(string)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func boolField(raw map[string]any, key string) bool {
	value, ok := raw[key].(bool)
	return ok && value
}

func floatField(raw map[string]any, key string, fallback float64) float64 {
	switch value := raw[key].(type) {
	case float64:
		return value
	case float32:
		return float64(value)
	case int:
		return float64(value)
	case int64:
		return float64(value)
	default:
		return fallback
	}
}

func intField(raw map[string]any, key string, fallback int64) int64 {
	switch value := raw[key].(type) {
	case int64:
		return value
	case int:
		return int64(value)
	case float64:
		return int64(value)
	default:
		return fallback
	}
}

func timeField(raw map[string]any, key string) time.Time {
	switch value := raw[key].(type) {
	case time.Time:
		return value
	case string:
		parsed, err := time.Parse(time.RFC3339, value)
		if err == nil {
			return parsed
		}
	}
	return time.Time{}
}

func stringSliceField(raw map[string]any, key string) []string {
	switch value := raw[key].(type) {
	case []string:
		return value
	case []any:
		items := make([]string, 0, len(value))
		for _, entry := range value {
			item, ok := entry.(string)
			if ok {
				items = append(items, item)
			}
		}
		return items
	default:
		return []string{}
	}
}
