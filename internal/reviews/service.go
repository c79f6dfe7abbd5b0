package reviews

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/SolidevApps/store/backend/internal/catalog"
	"github.com/SolidevApps/store/backend/internal/ratings"
	"go.uber.org/zap"
)

const defaultListLimit = 20

var (
	// ErrInvalidRating indicates a submitted rating outside [1,5].
	ErrInvalidRating = errors.New("reviews: rating must be an integer between 1 and 5")
	// ErrMissingUser indicates submission without an authenticated user.
	ErrMissingUser = errors.New("reviews: user identifier is required")
)

// ServiceConfig describes the dependencies of the review service.
type ServiceConfig struct {
	Store      catalog.Store
	Reconciler *ratings.Reconciler
	IDProvider catalog.IDProvider
	Clock      func() time.Time
	Logger     *zap.Logger
}

// Service accepts review submissions and assembles per-app review listings from
// both physical locations.
type Service struct {
	store      catalog.Store
	reconciler *ratings.Reconciler
	ids        catalog.IDProvider
	clock      func() time.Time
	logger     *zap.Logger
}

// NewService constructs the review service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("reviews: store is required")
	}
	if cfg.Reconciler == nil {
		return nil, fmt.Errorf("reviews: reconciler is required")
	}
	if cfg.IDProvider == nil {
		return nil, fmt.Errorf("reviews: id provider is required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:      cfg.Store,
		reconciler: cfg.Reconciler,
		ids:        cfg.IDProvider,
		clock:      clock,
		logger:     logger,
	}, nil
}

// SubmitRequest carries one authenticated review submission.
type SubmitRequest struct {
	AppID      string
	UserID     string
	UserName   string
	Rating     int64
	Title      string
	Comment    string
	AppVersion string
	DeviceInfo string
}

// Submit stores a review in the flat location, mirrors it best-effort into the
// app-scoped location with a back-reference, then triggers rating reconciliation.
// A failed mirror or reconciliation is logged; the submission still succeeds.
func (s *Service) Submit(ctx context.Context, request SubmitRequest) (catalog.Review, error) {
	if strings.TrimSpace(request.UserID) == "" {
		return catalog.Review{}, ErrMissingUser
	}
	if request.Rating < 1 || request.Rating > 5 {
		return catalog.Review{}, ErrInvalidRating
	}
	appID, err := catalog.NewAppID(request.AppID)
	if err != nil {
		return catalog.Review{}, err
	}
	if _, err := s.store.GetApp(ctx, appID.String()); err != nil {
		return catalog.Review{}, err
	}

	reviewID, err := s.ids.NewID()
	if err != nil {
		return catalog.Review{}, err
	}
	userName := strings.TrimSpace(request.UserName)
	if userName == "" {
		userName = "Anonymous"
	}
	review := catalog.Review{
		ID:         reviewID,
		AppID:      appID.String(),
		UserID:     request.UserID,
		UserName:   userName,
		Rating:     request.Rating,
		Title:      strings.TrimSpace(request.Title),
		Comment:    strings.TrimSpace(request.Comment),
		CreatedAt:  s.clock(),
		AppVersion: strings.TrimSpace(request.AppVersion),
		DeviceInfo: strings.TrimSpace(request.DeviceInfo),
	}
	if err := s.store.CreateGlobalReview(ctx, review); err != nil {
		return catalog.Review{}, err
	}

	copyID, err := s.ids.NewID()
	if err == nil {
		mirrored := review
		mirrored.ID = copyID
		mirrored.SourceReviewID = review.ID
		if err := s.store.CreateAppReview(ctx, mirrored); err != nil {
			s.logger.Warn("app-scoped review mirror failed",
				zap.String("app_id", review.AppID), zap.Error(err))
		}
	}

	if _, err := s.reconciler.Recalculate(ctx, review.AppID); err != nil {
		s.logger.Warn("post-review rating reconciliation failed",
			zap.String("app_id", review.AppID), zap.Error(err))
	}
	return review, nil
}

// ListForApp returns an app's reviews merged from both locations, de-duplicated,
// newest first, truncated to limit. A failed read from one location degrades to
// the other location's reviews.
func (s *Service) ListForApp(ctx context.Context, appID string, limit int) ([]catalog.Review, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	appScoped, err := s.store.AppReviews(ctx, appID)
	if err != nil {
		s.logger.Warn("app-scoped review read failed", zap.String("app_id", appID), zap.Error(err))
		appScoped = nil
	}
	global, err := s.store.GlobalReviews(ctx, appID)
	if err != nil {
		s.logger.Warn("global review read failed", zap.String("app_id", appID), zap.Error(err))
		global = nil
	}
	merged := ratings.MergeReviews(appScoped, global)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}
