package ratings

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/SolidevApps/store/backend/internal/catalog"
	"go.uber.org/zap"
)

// ratingTolerance is the drift allowed between a stored rating and the value
// recomputed from reviews before an app is reported for correction. Review counts
// must match exactly.
const ratingTolerance = 0.1

// Summary is the aggregate recomputed from an app's reviews.
type Summary struct {
	AppID        string  `json:"appId"`
	Rating       float64 `json:"rating"`
	ReviewsCount int64   `json:"reviewsCount"`
}

// DriftReport describes one app whose stored rating or review count diverges from
// the values recomputed from its reviews.
type DriftReport struct {
	AppID            string  `json:"appId"`
	AppName          string  `json:"appName"`
	StoredRating     float64 `json:"storedRating"`
	ComputedRating   float64 `json:"computedRating"`
	StoredCount      int64   `json:"storedCount"`
	ComputedCount    int64   `json:"computedCount"`
	RatingConsistent bool    `json:"ratingConsistent"`
	CountConsistent  bool    `json:"countConsistent"`
}

// ReconcilerConfig describes the dependencies of a Reconciler.
type ReconcilerConfig struct {
	Store  catalog.Store
	Cache  *catalog.TTLCache
	Logger *zap.Logger
	Clock  func() time.Time
}

// Reconciler keeps each app's stored rating and review count consistent with the
// true distribution of its review records. Recomputation is stateless and
// idempotent; it runs on review submission, on the administrative recalculate
// action, and as a best-effort startup and scheduled self-check.
type Reconciler struct {
	store  catalog.Store
	cache  *catalog.TTLCache
	logger *zap.Logger
	clock  func() time.Time
}

// NewReconciler constructs a Reconciler. Store is required; cache invalidation is
// skipped when no cache is supplied.
func NewReconciler(cfg ReconcilerConfig) (*Reconciler, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("ratings: store is required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		store:  cfg.Store,
		cache:  cfg.Cache,
		logger: logger,
		clock:  clock,
	}, nil
}

// Recalculate recomputes an app's rating and review count from both review
// locations and writes the result onto the app record. Listings that may embed the
// stale values are invalidated.
func (r *Reconciler) Recalculate(ctx context.Context, appID string) (Summary, error) {
	summary := r.computeSummary(ctx, appID)

	err := r.store.UpdateApp(ctx, appID, map[string]any{
		"rating":             summary.Rating,
		"reviews_count":      summary.ReviewsCount,
		"last_rating_update": r.clock(),
	})
	if err != nil {
		return Summary{}, err
	}

	if r.cache != nil {
		r.cache.InvalidateMatching("app-" + appID)
		r.cache.InvalidateMatching("apps")
	}
	return summary, nil
}

// RecalculateAll applies Recalculate to every app sequentially. A failure for one
// app is logged and does not abort processing of the rest. The returned count is
// the number of apps successfully updated.
func (r *Reconciler) RecalculateAll(ctx context.Context) (int, error) {
	apps, err := r.store.ListApps(ctx)
	if err != nil {
		return 0, err
	}
	updated := 0
	for _, app := range apps {
		if _, err := r.Recalculate(ctx, app.ID); err != nil {
			r.logger.Warn("rating recalculation failed",
				zap.String("app_id", app.ID), zap.Error(err))
			continue
		}
		updated++
	}
	return updated, nil
}

// ValidateAll recomputes every app's rating and count and reports the apps whose
// stored values drift beyond tolerance. It is a pure audit pass: nothing is mutated.
func (r *Reconciler) ValidateAll(ctx context.Context) ([]DriftReport, error) {
	apps, err := r.store.ListApps(ctx)
	if err != nil {
		return nil, err
	}
	reports := make([]DriftReport, 0)
	for _, app := range apps {
		summary := r.computeSummary(ctx, app.ID)
		ratingConsistent := math.Abs(app.Rating-summary.Rating) < ratingTolerance
		countConsistent := app.ReviewsCount == summary.ReviewsCount
		if ratingConsistent && countConsistent {
			continue
		}
		reports = append(reports, DriftReport{
			AppID:            app.ID,
			AppName:          app.Name,
			StoredRating:     app.Rating,
			ComputedRating:   summary.Rating,
			StoredCount:      app.ReviewsCount,
			ComputedCount:    summary.ReviewsCount,
			RatingConsistent: ratingConsistent,
			CountConsistent:  countConsistent,
		})
	}
	return reports, nil
}

// computeSummary reads both review locations, de-duplicates, discards out-of-range
// ratings, and aggregates. A failed read from either location degrades to zero
// reviews from that source with a warning rather than failing the recomputation.
func (r *Reconciler) computeSummary(ctx context.Context, appID string) Summary {
	appScoped, err := r.store.AppReviews(ctx, appID)
	if err != nil {
		r.logger.Warn("app-scoped review read failed",
			zap.String("app_id", appID), zap.Error(err))
		appScoped = nil
	}
	global, err := r.store.GlobalReviews(ctx, appID)
	if err != nil {
		r.logger.Warn("global review read failed",
			zap.String("app_id", appID), zap.Error(err))
		global = nil
	}

	var total int64
	var count int64
	for _, review := range mergeReviews(appScoped, global) {
		if !review.ValidRating() {
			continue
		}
		total += review.Rating
		count++
	}

	rating := 0.0
	if count > 0 {
		rating = math.Round(float64(total)/float64(count)*10) / 10
	}
	return Summary{AppID: appID, Rating: rating, ReviewsCount: count}
}

// mergeReviews combines both physical locations into one logical set. An
// app-scoped record is a copy of a flat-collection review when it carries a
// SourceReviewID; such copies are dropped in favor of their original so a review
// mirrored between locations is never double-counted.
func mergeReviews(appScoped, global []catalog.Review) []catalog.Review {
	seen := make(map[string]bool, len(appScoped)+len(global))
	merged := make([]catalog.Review, 0, len(appScoped)+len(global))
	for _, review := range global {
		if review.ID == "" || seen[review.ID] {
			continue
		}
		seen[review.ID] = true
		merged = append(merged, review)
	}
	for _, review := range appScoped {
		key := review.SourceReviewID
		if key == "" {
			key = review.ID
		}
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, review)
	}
	return merged
}

// MergeReviews exposes the de-duplication rule for callers assembling review
// listings from both locations.
func MergeReviews(appScoped, global []catalog.Review) []catalog.Review {
	return mergeReviews(appScoped, global)
}
