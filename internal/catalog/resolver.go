package catalog

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// categoryNameSynonyms maps normalized free-text category labels to canonical
// category ids. Apps submitted before the taxonomy existed carry only the label;
// the resolver patches the canonical id back onto them when they are observed.
var categoryNameSynonyms = map[string]string{
	"games":            "games",
	"game":             "games",
	"gaming":           "games",
	"productivity":     "productivity",
	"entertainment":    "entertainment",
	"education":        "education",
	"educational":      "education",
	"health & fitness": "health",
	"health":           "health",
	"fitness":          "health",
	"social":           "social",
	"photography":      "photography",
	"photo":            "photography",
	"travel":           "travel",
	"shopping":         "shopping",
	"business":         "business",
	"lifestyle":        "lifestyle",
	"news":             "news",
}

// Resolver reconciles apps that carry a free-text category name but no canonical
// category id. Resolution is pure; the backfill write is best-effort and idempotent,
// so a failed patch simply repeats on the next scan.
type Resolver struct {
	store  Store
	tasks  *TaskRunner
	logger *zap.Logger
}

// NewResolver constructs a resolver. Nil logger defaults to a no-op logger.
func NewResolver(store Store, tasks *TaskRunner, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{store: store, tasks: tasks, logger: logger}
}

// Resolve maps a free-text category name to its canonical id. Unrecognized names
// report false; they are never auto-created as new categories.
func (r *Resolver) Resolve(categoryName string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(categoryName))
	if normalized == "" {
		return "", false
	}
	id, ok := categoryNameSynonyms[normalized]
	return id, ok
}

// ClassifyApp returns the category id an app counts under: its canonical id when
// present, otherwise the resolved id of its free-text name. When resolution by name
// succeeds the canonical id is backfilled onto the record in the background.
func (r *Resolver) ClassifyApp(app App) (string, bool) {
	if app.CategoryID != "" {
		return app.CategoryID, true
	}
	categoryID, ok := r.Resolve(app.Category)
	if !ok {
		if app.Category != "" {
			r.logger.Debug("app category name unmatched",
				zap.String("app_id", app.ID),
				zap.String("category", app.Category))
		}
		return "", false
	}
	r.BackfillCategoryID(app.ID, categoryID)
	return categoryID, true
}

// BackfillCategoryID patches the resolved category id onto the app record without
// blocking the caller. Failure is logged and self-heals on the next scan.
func (r *Resolver) BackfillCategoryID(appID, categoryID string) {
	if appID == "" || categoryID == "" || r.tasks == nil {
		return
	}
	r.tasks.Go("backfill-category-id", func(ctx context.Context) error {
		return r.store.UpdateApp(ctx, appID, map[string]any{"category_id": categoryID})
	})
}
