package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Per-domain cache lifetimes. Counts are the most volatile, any submission changes
// them, so they expire fastest; the taxonomy itself is near-static.
const (
	defaultCategoriesTTL   = 5 * time.Minute
	defaultCategoryAppsTTL = 3 * time.Minute
	defaultAppCountsTTL    = 2 * time.Minute
	defaultAppsTTL         = 5 * time.Minute
)

const defaultFeaturedLimit = 5

// TTLConfig sets per-domain cache lifetimes. Zero values take the defaults above.
type TTLConfig struct {
	Categories   time.Duration
	CategoryApps time.Duration
	AppCounts    time.Duration
	Apps         time.Duration
}

func (c TTLConfig) withDefaults() TTLConfig {
	if c.Categories <= 0 {
		c.Categories = defaultCategoriesTTL
	}
	if c.CategoryApps <= 0 {
		c.CategoryApps = defaultCategoryAppsTTL
	}
	if c.AppCounts <= 0 {
		c.AppCounts = defaultAppCountsTTL
	}
	if c.Apps <= 0 {
		c.Apps = defaultAppsTTL
	}
	return c
}

// ReaderConfig describes the dependencies of a Reader.
type ReaderConfig struct {
	Store      Store
	Cache      *TTLCache
	Resolver   *Resolver
	Dispatcher *Dispatcher
	Logger     *zap.Logger
	TTL        TTLConfig
	Clock      func() time.Time
}

// Reader produces app and category listings while minimizing backend round-trips
// and tolerating backend query limitations. Compound queries degrade through
// progressively cheaper tiers; the result set never depends on which tier ran,
// only the number of backend calls does.
type Reader struct {
	store      Store
	cache      *TTLCache
	resolver   *Resolver
	dispatcher *Dispatcher
	logger     *zap.Logger
	ttl        TTLConfig
	clock      func() time.Time
}

// NewReader constructs a Reader. Store and Resolver are required; a nil cache gets
// a fresh one, a nil logger a no-op logger, a nil dispatcher a private instance.
func NewReader(cfg ReaderConfig) (*Reader, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("catalog: store is required")
	}
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("catalog: resolver is required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	cache := cfg.Cache
	if cache == nil {
		cache = NewTTLCache(clock)
	}
	dispatcher := cfg.Dispatcher
	if dispatcher == nil {
		dispatcher = NewDispatcher()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		store:      cfg.Store,
		cache:      cache,
		resolver:   cfg.Resolver,
		dispatcher: dispatcher,
		logger:     logger,
		ttl:        cfg.TTL.withDefaults(),
		clock:      clock,
	}, nil
}

// Cache exposes the reader's cache so collaborating services can invalidate
// listings they made stale.
func (r *Reader) Cache() *TTLCache {
	return r.cache
}

// Dispatcher exposes the update stream the reader publishes to.
func (r *Reader) Dispatcher() *Dispatcher {
	return r.dispatcher
}

// LoadCategories returns all categories, cache-first.
func (r *Reader) LoadCategories(ctx context.Context) ([]Category, error) {
	if cached, ok := cacheLookup[[]Category](r.cache, cacheKeyCategories); ok {
		return cached, nil
	}
	categories, err := r.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	r.cache.Set(cacheKeyCategories, categories, r.ttl.Categories)
	r.dispatcher.Publish(Update{
		Kind:       UpdateKindCategories,
		Categories: categories,
		Timestamp:  r.clock(),
	})
	return categories, nil
}

// AppByID performs a point read, cache-first. The reconciler and the download
// handler invalidate the entry when they change the underlying record.
func (r *Reader) AppByID(ctx context.Context, appID string) (App, error) {
	cacheKey := appCacheKey(appID)
	if cached, ok := cacheLookup[App](r.cache, cacheKey); ok {
		return cached, nil
	}
	app, err := r.store.GetApp(ctx, appID)
	if err != nil {
		return App{}, err
	}
	r.cache.Set(cacheKey, app, r.ttl.Apps)
	return app, nil
}

// LoadApps returns every app sorted by downloads descending, degrading to a full
// scan sorted in memory when the ordered query fails. A successful load republishes
// the featured listing.
func (r *Reader) LoadApps(ctx context.Context) ([]App, error) {
	apps, err := r.store.QueryApps(ctx, AppQuery{
		Sort: []SortKey{{Field: "downloads", Descending: true}},
	})
	if err != nil {
		r.logger.Warn("ordered app scan failed, falling back to unordered scan", zap.Error(err))
		apps, err = r.store.ListApps(ctx)
		if err != nil {
			return nil, err
		}
	}
	sortByDownloads(apps)
	r.publishFeatured(apps)
	return apps, nil
}

// AppsByCategory returns the apps in a category sorted by downloads descending,
// cache-first per category. A category with no canonical matches falls back to a
// free-text name lookup, and matched apps get their category id backfilled.
func (r *Reader) AppsByCategory(ctx context.Context, categoryID string) ([]App, error) {
	cacheKey := categoryAppsCacheKey(categoryID)
	if cached, ok := cacheLookup[[]App](r.cache, cacheKey); ok {
		return cached, nil
	}

	apps, err := r.store.QueryApps(ctx, AppQuery{
		Filter: &AppFilter{Field: "category_id", Value: categoryID},
		Sort:   []SortKey{{Field: "downloads", Descending: true}},
	})
	if err != nil {
		r.logger.Warn("indexed category query failed, retrying without ordering",
			zap.String("category_id", categoryID), zap.Error(err))
		apps, err = r.store.QueryApps(ctx, AppQuery{
			Filter: &AppFilter{Field: "category_id", Value: categoryID},
		})
		if err != nil {
			return nil, err
		}
	}

	if len(apps) == 0 {
		apps, err = r.appsByCategoryName(ctx, categoryID)
		if err != nil {
			return nil, err
		}
	}

	sortByDownloads(apps)
	r.cache.Set(cacheKey, apps, r.ttl.CategoryApps)
	return apps, nil
}

// appsByCategoryName matches the category's display name against the app free-text
// category field and backfills the canonical id onto the matches.
func (r *Reader) appsByCategoryName(ctx context.Context, categoryID string) ([]App, error) {
	category, err := r.store.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	apps, err := r.store.QueryApps(ctx, AppQuery{
		Filter: &AppFilter{Field: "category", Value: category.Name},
	})
	if err != nil {
		r.logger.Warn("category name lookup failed",
			zap.String("category_id", categoryID), zap.Error(err))
		return []App{}, nil
	}
	for _, app := range apps {
		r.resolver.BackfillCategoryID(app.ID, categoryID)
	}
	return apps, nil
}

// CategoryAppCounts returns the number of apps per category id, cache-first. An app
// without a canonical id is classified by its free-text name and opportunistically
// patched; unresolvable apps count under no category.
func (r *Reader) CategoryAppCounts(ctx context.Context) (map[string]int64, error) {
	if cached, ok := cacheLookup[map[string]int64](r.cache, cacheKeyAppCounts); ok {
		r.publishAppCounts(cached)
		return cached, nil
	}

	apps, err := r.store.ListApps(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64)
	for _, app := range apps {
		categoryID, ok := r.resolver.ClassifyApp(app)
		if !ok {
			continue
		}
		counts[categoryID]++
	}

	r.cache.Set(cacheKeyAppCounts, counts, r.ttl.AppCounts)
	r.publishAppCounts(counts)
	return counts, nil
}

// FeaturedApps returns up to limit featured apps ordered by downloads descending.
func (r *Reader) FeaturedApps(ctx context.Context, limit int) ([]App, error) {
	if limit <= 0 {
		limit = defaultFeaturedLimit
	}
	return r.flaggedApps(ctx, flaggedQuery{
		cacheKey:    fmt.Sprintf("apps-featured-%d", limit),
		filterField: "is_featured",
		sort:        []SortKey{{Field: "downloads", Descending: true}},
		limit:       limit,
		matches:     func(app App) bool { return app.IsFeatured },
		less:        downloadsLess,
	})
}

// TopApps returns up to limit apps ordered by rating then downloads descending.
// There is no filter, so the fallback is a single full scan.
func (r *Reader) TopApps(ctx context.Context, limit int) ([]App, error) {
	if limit <= 0 {
		limit = 10
	}
	cacheKey := fmt.Sprintf("apps-top-%d", limit)
	if cached, ok := cacheLookup[[]App](r.cache, cacheKey); ok {
		return cached, nil
	}
	apps, err := r.store.QueryApps(ctx, AppQuery{
		Sort: []SortKey{
			{Field: "rating", Descending: true},
			{Field: "downloads", Descending: true},
		},
		Limit: limit,
	})
	if err != nil {
		r.logger.Warn("top apps query failed, falling back to full scan", zap.Error(err))
		apps, err = r.store.ListApps(ctx)
		if err != nil {
			return nil, err
		}
		sort.SliceStable(apps, func(i, j int) bool { return ratingThenDownloadsLess(apps[j], apps[i]) })
		apps = truncate(apps, limit)
	}
	r.cache.Set(cacheKey, apps, r.ttl.Apps)
	return apps, nil
}

// TopRatedApps returns up to limit apps flagged top-rated, ordered by rating then
// downloads descending.
func (r *Reader) TopRatedApps(ctx context.Context, limit int) ([]App, error) {
	if limit <= 0 {
		limit = 10
	}
	return r.flaggedApps(ctx, flaggedQuery{
		cacheKey:    fmt.Sprintf("apps-top-rated-%d", limit),
		filterField: "is_top_rated",
		sort: []SortKey{
			{Field: "rating", Descending: true},
			{Field: "downloads", Descending: true},
		},
		limit:   limit,
		matches: func(app App) bool { return app.IsTopRated },
		less:    ratingThenDownloadsLess,
	})
}

// NewApps returns up to limit apps flagged new, ordered by release date descending.
func (r *Reader) NewApps(ctx context.Context, limit int) ([]App, error) {
	if limit <= 0 {
		limit = 10
	}
	return r.flaggedApps(ctx, flaggedQuery{
		cacheKey:    fmt.Sprintf("apps-new-%d", limit),
		filterField: "is_new",
		sort:        []SortKey{{Field: "release_date", Descending: true}},
		limit:       limit,
		matches:     func(app App) bool { return app.IsNew },
		less:        releaseDateLess,
	})
}

type flaggedQuery struct {
	cacheKey    string
	filterField string
	sort        []SortKey
	limit       int
	matches     func(App) bool
	less        func(a, b App) bool
}

// flaggedApps runs the three-tier degradation shared by the flag listings:
// indexed compound query, then filtered query sorted in memory, then full scan
// filtered and sorted in memory. Each tier yields the same result set.
func (r *Reader) flaggedApps(ctx context.Context, q flaggedQuery) ([]App, error) {
	if cached, ok := cacheLookup[[]App](r.cache, q.cacheKey); ok {
		return cached, nil
	}

	apps, err := r.store.QueryApps(ctx, AppQuery{
		Filter: &AppFilter{Field: q.filterField, Value: true},
		Sort:   q.sort,
		Limit:  q.limit,
	})
	if err != nil {
		r.logger.Warn("indexed flag query failed, retrying without ordering",
			zap.String("filter", q.filterField), zap.Error(err))
		apps, err = r.store.QueryApps(ctx, AppQuery{
			Filter: &AppFilter{Field: q.filterField, Value: true},
		})
		if err != nil {
			r.logger.Warn("filtered flag query failed, falling back to full scan",
				zap.String("filter", q.filterField), zap.Error(err))
			all, scanErr := r.store.ListApps(ctx)
			if scanErr != nil {
				return nil, scanErr
			}
			apps = apps[:0]
			for _, app := range all {
				if q.matches(app) {
					apps = append(apps, app)
				}
			}
		}
		sort.SliceStable(apps, func(i, j int) bool { return q.less(apps[j], apps[i]) })
		apps = truncate(apps, q.limit)
	}

	r.cache.Set(q.cacheKey, apps, r.ttl.Apps)
	return apps, nil
}

// SearchApps scans the catalog and filters client-side across name, description,
// publisher, category and tags with a case-insensitive substring match. Acceptable
// only because the catalog is assumed modest.
func (r *Reader) SearchApps(ctx context.Context, term string) ([]App, error) {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return []App{}, nil
	}
	apps, err := r.store.ListApps(ctx)
	if err != nil {
		return nil, err
	}
	matched := make([]App, 0)
	for _, app := range apps {
		if appMatchesTerm(app, needle) {
			matched = append(matched, app)
		}
	}
	return matched, nil
}

// RefreshCategoryAppCounts drops the cached counts and recomputes them.
func (r *Reader) RefreshCategoryAppCounts(ctx context.Context) (map[string]int64, error) {
	r.cache.Delete(cacheKeyAppCounts)
	return r.CategoryAppCounts(ctx)
}

// RefreshCategoryApps drops one category's cached listing and reloads it.
func (r *Reader) RefreshCategoryApps(ctx context.Context, categoryID string) ([]App, error) {
	r.cache.Delete(categoryAppsCacheKey(categoryID))
	return r.AppsByCategory(ctx, categoryID)
}

// ClearCache drops every cached listing.
func (r *Reader) ClearCache() {
	r.cache.Clear()
}

func (r *Reader) publishFeatured(apps []App) {
	featured := make([]App, 0, defaultFeaturedLimit)
	for _, app := range apps {
		if app.IsFeatured {
			featured = append(featured, app)
		}
		if len(featured) == defaultFeaturedLimit {
			break
		}
	}
	r.dispatcher.Publish(Update{
		Kind:      UpdateKindFeaturedApps,
		Apps:      featured,
		Timestamp: r.clock(),
	})
}

func (r *Reader) publishAppCounts(counts map[string]int64) {
	r.dispatcher.Publish(Update{
		Kind:      UpdateKindAppCounts,
		AppCounts: counts,
		Timestamp: r.clock(),
	})
}

func appMatchesTerm(app App, needle string) bool {
	if strings.Contains(strings.ToLower(app.Name), needle) ||
		strings.Contains(strings.ToLower(app.Description), needle) ||
		strings.Contains(strings.ToLower(app.Publisher), needle) ||
		strings.Contains(strings.ToLower(app.Category), needle) {
		return true
	}
	for _, tag := range app.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

func sortByDownloads(apps []App) {
	sort.SliceStable(apps, func(i, j int) bool { return apps[i].Downloads > apps[j].Downloads })
}

func downloadsLess(a, b App) bool {
	return a.Downloads < b.Downloads
}

func ratingThenDownloadsLess(a, b App) bool {
	if a.Rating != b.Rating {
		return a.Rating < b.Rating
	}
	return a.Downloads < b.Downloads
}

func releaseDateLess(a, b App) bool {
	return a.ReleaseDate.Before(b.ReleaseDate)
}

func truncate(apps []App, limit int) []App {
	if limit > 0 && len(apps) > limit {
		return apps[:limit]
	}
	return apps
}
