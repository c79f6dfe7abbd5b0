package catalog

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"
)

func mustAppID(t *testing.T, value string) AppID {
	t.Helper()
	id, err := NewAppID(value)
	if err != nil {
		t.Fatalf("unexpected app id error: %v", err)
	}
	return id
}

func mustCategoryID(t *testing.T, value string) CategoryID {
	t.Helper()
	id, err := NewCategoryID(value)
	if err != nil {
		t.Fatalf("unexpected category id error: %v", err)
	}
	return id
}

func mustReader(t *testing.T, cfg ReaderConfig) *Reader {
	t.Helper()
	reader, err := NewReader(cfg)
	if err != nil {
		t.Fatalf("unexpected reader error: %v", err)
	}
	return reader
}

// fakeClock advances only when told to, so cache expiry is deterministic.
type fakeClock struct {
	current time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Unix(1750000000, 0).UTC()}
}

func (c *fakeClock) Now() time.Time {
	return c.current
}

func (c *fakeClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}

// fakeStore is an in-memory Store whose query support degrades on demand:
// rejectCompound refuses filter+sort shapes, rejectSorted refuses any sorted
// query, rejectFiltered additionally refuses filtered ones. Call counters let
// tests assert which tier served a read.
type fakeStore struct {
	apps          []App
	categories    []Category
	appReviews    map[string][]Review
	globalReviews map[string][]Review

	rejectCompound bool
	rejectSorted   bool
	rejectFiltered bool

	listAppCalls  int
	queryAppCalls int
	updates       map[string][]map[string]any

	failListApps error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		appReviews:    make(map[string][]Review),
		globalReviews: make(map[string][]Review),
		updates:       make(map[string][]map[string]any),
	}
}

func (s *fakeStore) ListApps(ctx context.Context) ([]App, error) {
	s.listAppCalls++
	if s.failListApps != nil {
		return nil, s.failListApps
	}
	return append([]App(nil), s.apps...), nil
}

func (s *fakeStore) QueryApps(ctx context.Context, query AppQuery) ([]App, error) {
	s.queryAppCalls++
	if s.rejectCompound && query.Filter != nil && len(query.Sort) > 0 {
		return nil, fmt.Errorf("%w: compound shape", ErrUnsupportedQuery)
	}
	if s.rejectSorted && len(query.Sort) > 0 {
		return nil, fmt.Errorf("%w: sorted shape", ErrUnsupportedQuery)
	}
	if s.rejectFiltered && query.Filter != nil {
		return nil, fmt.Errorf("%w: filtered shape", ErrUnsupportedQuery)
	}

	matched := make([]App, 0, len(s.apps))
	for _, app := range s.apps {
		if query.Filter == nil || appFieldMatches(app, query.Filter.Field, query.Filter.Value) {
			matched = append(matched, app)
		}
	}
	for i := len(query.Sort) - 1; i >= 0; i-- {
		key := query.Sort[i]
		sort.SliceStable(matched, func(a, b int) bool {
			less := appFieldLess(matched[a], matched[b], key.Field)
			if key.Descending {
				return appFieldLess(matched[b], matched[a], key.Field)
			}
			return less
		})
	}
	if query.Limit > 0 && len(matched) > query.Limit {
		matched = matched[:query.Limit]
	}
	return matched, nil
}

func appFieldMatches(app App, field string, value any) bool {
	switch field {
	case "category_id":
		return app.CategoryID == value
	case "category":
		return app.Category == value
	case "is_featured":
		return app.IsFeatured == value
	case "is_top_rated":
		return app.IsTopRated == value
	case "is_new":
		return app.IsNew == value
	case "is_editor_choice":
		return app.IsEditorChoice == value
	default:
		return false
	}
}

func appFieldLess(a, b App, field string) bool {
	switch field {
	case "downloads":
		return a.Downloads < b.Downloads
	case "rating":
		return a.Rating < b.Rating
	case "release_date":
		return a.ReleaseDate.Before(b.ReleaseDate)
	default:
		return false
	}
}

func (s *fakeStore) GetApp(ctx context.Context, appID string) (App, error) {
	for _, app := range s.apps {
		if app.ID == appID {
			return app, nil
		}
	}
	return App{}, fmt.Errorf("%w: %s", ErrAppNotFound, appID)
}

func (s *fakeStore) CreateApp(ctx context.Context, app App) error {
	s.apps = append(s.apps, app)
	return nil
}

func (s *fakeStore) UpdateApp(ctx context.Context, appID string, fields map[string]any) error {
	for i, app := range s.apps {
		if app.ID != appID {
			continue
		}
		s.updates[appID] = append(s.updates[appID], fields)
		if value, ok := fields["category_id"].(string); ok {
			s.apps[i].CategoryID = value
		}
		if value, ok := fields["rating"].(float64); ok {
			s.apps[i].Rating = value
		}
		if value, ok := fields["reviews_count"].(int64); ok {
			s.apps[i].ReviewsCount = value
		}
		if value, ok := fields["last_rating_update"].(time.Time); ok {
			s.apps[i].LastRatingUpdate = value
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrAppNotFound, appID)
}

func (s *fakeStore) IncrementDownloads(ctx context.Context, appID string) error {
	for i, app := range s.apps {
		if app.ID == appID {
			s.apps[i].Downloads++
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrAppNotFound, appID)
}

func (s *fakeStore) ListCategories(ctx context.Context) ([]Category, error) {
	return append([]Category(nil), s.categories...), nil
}

func (s *fakeStore) GetCategory(ctx context.Context, categoryID string) (Category, error) {
	for _, category := range s.categories {
		if category.ID == categoryID {
			return category, nil
		}
	}
	return Category{}, fmt.Errorf("%w: %s", ErrCategoryNotFound, categoryID)
}

func (s *fakeStore) PutCategory(ctx context.Context, category Category) error {
	for i, existing := range s.categories {
		if existing.ID == category.ID {
			s.categories[i] = category
			return nil
		}
	}
	s.categories = append(s.categories, category)
	return nil
}

func (s *fakeStore) AppReviews(ctx context.Context, appID string) ([]Review, error) {
	return append([]Review(nil), s.appReviews[appID]...), nil
}

func (s *fakeStore) GlobalReviews(ctx context.Context, appID string) ([]Review, error) {
	return append([]Review(nil), s.globalReviews[appID]...), nil
}

func (s *fakeStore) CreateAppReview(ctx context.Context, review Review) error {
	s.appReviews[review.AppID] = append(s.appReviews[review.AppID], review)
	return nil
}

func (s *fakeStore) CreateGlobalReview(ctx context.Context, review Review) error {
	s.globalReviews[review.AppID] = append(s.globalReviews[review.AppID], review)
	return nil
}
