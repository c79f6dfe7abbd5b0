package catalog

import (
	"context"
	"errors"
)

var (
	// ErrAppNotFound indicates that no app exists for the requested id.
	ErrAppNotFound = errors.New("catalog: app not found")
	// ErrCategoryNotFound indicates that no category exists for the requested id.
	ErrCategoryNotFound = errors.New("catalog: category not found")
	// ErrUnsupportedQuery indicates the backend cannot serve a compound
	// filter+sort shape, the composite-index limitation of the document store.
	// Callers degrade to a cheaper query tier.
	ErrUnsupportedQuery = errors.New("catalog: unsupported query shape")
)

// SortKey orders a query result by one field.
type SortKey struct {
	Field      string
	Descending bool
}

// AppFilter restricts a query to rows whose field equals the given value.
type AppFilter struct {
	Field string
	Value any
}

// AppQuery describes a filtered, sorted, limited app read. Zero values mean
// unfiltered, unsorted, unlimited respectively.
type AppQuery struct {
	Filter *AppFilter
	Sort   []SortKey
	Limit  int
}

// Store is the document-store CRUD surface the catalog consumes. Implementations
// may reject compound AppQuery shapes with ErrUnsupportedQuery; every other failure
// is a transient backend error. Rating updates are unconditional field overwrites
// with last-writer-wins semantics, there are no transactions at this boundary.
type Store interface {
	ListApps(ctx context.Context) ([]App, error)
	QueryApps(ctx context.Context, query AppQuery) ([]App, error)
	GetApp(ctx context.Context, appID string) (App, error)
	CreateApp(ctx context.Context, app App) error
	UpdateApp(ctx context.Context, appID string, fields map[string]any) error
	IncrementDownloads(ctx context.Context, appID string) error

	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, categoryID string) (Category, error)
	PutCategory(ctx context.Context, category Category) error

	// Reviews live in two physical locations. AppReviews reads the app-scoped
	// location, GlobalReviews reads the flat location filtered by app id.
	AppReviews(ctx context.Context, appID string) ([]Review, error)
	GlobalReviews(ctx context.Context, appID string) ([]Review, error)
	CreateAppReview(ctx context.Context, review Review) error
	CreateGlobalReview(ctx context.Context, review Review) error
}
