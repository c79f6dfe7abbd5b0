package catalog

import (
	"context"

	"go.uber.org/zap"
)

// seedCategories is the canonical taxonomy. Seeding is an idempotent bulk upsert:
// rerunning it refreshes display fields and never duplicates entries.
var seedCategories = []Category{
	{ID: "games", Name: "Games", Icon: "fas fa-gamepad", Color: "#FF6B6B", Description: "Discover exciting games and entertainment apps"},
	{ID: "productivity", Name: "Productivity", Icon: "fas fa-briefcase", Color: "#4ECDC4", Description: "Get more done with powerful productivity tools"},
	{ID: "entertainment", Name: "Entertainment", Icon: "fas fa-play-circle", Color: "#45B7D1", Description: "Movies, music, streaming and entertainment apps"},
	{ID: "education", Name: "Education", Icon: "fas fa-graduation-cap", Color: "#FFA07A", Description: "Learn new skills with educational apps and courses"},
	{ID: "health", Name: "Health & Fitness", Icon: "fas fa-heart", Color: "#98D8C8", Description: "Stay healthy and fit with wellness apps"},
	{ID: "social", Name: "Social", Icon: "fas fa-users", Color: "#F7DC6F", Description: "Connect with friends and social networking apps"},
	{ID: "photography", Name: "Photography", Icon: "fas fa-camera", Color: "#BB8FCE", Description: "Capture and edit photos with creative tools"},
	{ID: "travel", Name: "Travel", Icon: "fas fa-plane", Color: "#85C1E9", Description: "Plan trips and explore the world"},
	{ID: "shopping", Name: "Shopping", Icon: "fas fa-shopping-cart", Color: "#F8C471", Description: "Shop online with the best shopping apps"},
	{ID: "business", Name: "Business", Icon: "fas fa-chart-line", Color: "#82E0AA", Description: "Manage your business and professional tasks"},
	{ID: "lifestyle", Name: "Lifestyle", Icon: "fas fa-home", Color: "#F1948A", Description: "Improve your daily life with lifestyle apps"},
	{ID: "news", Name: "News", Icon: "fas fa-newspaper", Color: "#AED6F1", Description: "Stay informed with news and current events"},
}

// SeedCategories upserts the canonical taxonomy into the store.
func SeedCategories(ctx context.Context, store Store, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, category := range seedCategories {
		if err := store.PutCategory(ctx, category); err != nil {
			return err
		}
		logger.Info("category seeded", zap.String("category_id", category.ID))
	}
	return nil
}
