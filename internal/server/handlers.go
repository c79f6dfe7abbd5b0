package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/SolidevApps/store/backend/internal/catalog"
	"github.com/SolidevApps/store/backend/internal/reviews"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Catalog reads follow a degrade-to-empty policy: a failed backend read is logged
// and served as an empty listing with 200, never as an error banner. The service
// layer still distinguishes failure from genuine emptiness; the policy is applied
// only here, at the UI boundary.
func (h *httpHandler) degradeToEmpty(c *gin.Context, operation string, err error, empty any) {
	h.logger.Error("catalog read failed, serving empty result",
		zap.String("operation", operation), zap.Error(err))
	c.JSON(http.StatusOK, empty)
}

func (h *httpHandler) handleListCategories(c *gin.Context) {
	categories, err := h.reader.LoadCategories(c.Request.Context())
	if err != nil {
		h.degradeToEmpty(c, "list_categories", err, []catalog.Category{})
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (h *httpHandler) handleCategoryAppCounts(c *gin.Context) {
	counts, err := h.reader.CategoryAppCounts(c.Request.Context())
	if err != nil {
		h.degradeToEmpty(c, "category_app_counts", err, map[string]int64{})
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (h *httpHandler) handleAppsByCategory(c *gin.Context) {
	categoryID, err := catalog.NewCategoryID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_category_id"})
		return
	}
	apps, err := h.reader.AppsByCategory(c.Request.Context(), categoryID.String())
	if err != nil {
		h.degradeToEmpty(c, "apps_by_category", err, []catalog.App{})
		return
	}
	c.JSON(http.StatusOK, apps)
}

func (h *httpHandler) handleListApps(c *gin.Context) {
	apps, err := h.reader.LoadApps(c.Request.Context())
	if err != nil {
		h.degradeToEmpty(c, "list_apps", err, []catalog.App{})
		return
	}
	c.JSON(http.StatusOK, apps)
}

func (h *httpHandler) handleFeaturedApps(c *gin.Context) {
	apps, err := h.reader.FeaturedApps(c.Request.Context(), limitParam(c))
	if err != nil {
		h.degradeToEmpty(c, "featured_apps", err, []catalog.App{})
		return
	}
	c.JSON(http.StatusOK, apps)
}

func (h *httpHandler) handleTopApps(c *gin.Context) {
	apps, err := h.reader.TopApps(c.Request.Context(), limitParam(c))
	if err != nil {
		h.degradeToEmpty(c, "top_apps", err, []catalog.App{})
		return
	}
	c.JSON(http.StatusOK, apps)
}

func (h *httpHandler) handleTopRatedApps(c *gin.Context) {
	apps, err := h.reader.TopRatedApps(c.Request.Context(), limitParam(c))
	if err != nil {
		h.degradeToEmpty(c, "top_rated_apps", err, []catalog.App{})
		return
	}
	c.JSON(http.StatusOK, apps)
}

func (h *httpHandler) handleNewApps(c *gin.Context) {
	apps, err := h.reader.NewApps(c.Request.Context(), limitParam(c))
	if err != nil {
		h.degradeToEmpty(c, "new_apps", err, []catalog.App{})
		return
	}
	c.JSON(http.StatusOK, apps)
}

func (h *httpHandler) handleSearchApps(c *gin.Context) {
	apps, err := h.reader.SearchApps(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.degradeToEmpty(c, "search_apps", err, []catalog.App{})
		return
	}
	c.JSON(http.StatusOK, apps)
}

func (h *httpHandler) handleAppByID(c *gin.Context) {
	appID, err := catalog.NewAppID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_app_id"})
		return
	}
	app, err := h.reader.AppByID(c.Request.Context(), appID.String())
	if errors.Is(err, catalog.ErrAppNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "app_not_found"})
		return
	}
	if err != nil {
		h.logger.Error("app point read failed", zap.String("app_id", appID.String()), zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{"error": "app_not_found"})
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *httpHandler) handleListReviews(c *gin.Context) {
	appID, err := catalog.NewAppID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_app_id"})
		return
	}
	listing, err := h.reviews.ListForApp(c.Request.Context(), appID.String(), limitParam(c))
	if err != nil {
		h.degradeToEmpty(c, "list_reviews", err, []catalog.Review{})
		return
	}
	c.JSON(http.StatusOK, listing)
}

type reviewRequestPayload struct {
	Rating     int64  `json:"rating"`
	Title      string `json:"title"`
	Comment    string `json:"comment"`
	AppVersion string `json:"appVersion"`
	DeviceInfo string `json:"deviceInfo"`
}

func (h *httpHandler) handleSubmitReview(c *gin.Context) {
	claims, ok := sessionClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var request reviewRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	review, err := h.reviews.Submit(c.Request.Context(), reviews.SubmitRequest{
		AppID:      c.Param("id"),
		UserID:     claims.UserID,
		UserName:   claims.UserDisplayName,
		Rating:     request.Rating,
		Title:      request.Title,
		Comment:    request.Comment,
		AppVersion: request.AppVersion,
		DeviceInfo: request.DeviceInfo,
	})
	if errors.Is(err, reviews.ErrInvalidRating) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_rating"})
		return
	}
	if errors.Is(err, catalog.ErrAppNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "app_not_found"})
		return
	}
	if err != nil {
		h.logger.Error("review submission failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "review_submission_failed"})
		return
	}
	c.JSON(http.StatusCreated, review)
}

func (h *httpHandler) handleDownload(c *gin.Context) {
	appID, err := catalog.NewAppID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_app_id"})
		return
	}
	if err := h.store.IncrementDownloads(c.Request.Context(), appID.String()); err != nil {
		if errors.Is(err, catalog.ErrAppNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "app_not_found"})
			return
		}
		h.logger.Error("download increment failed", zap.String("app_id", appID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "download_failed"})
		return
	}
	h.reader.Cache().InvalidateMatching("app-" + appID.String())
	if claims, ok := sessionClaims(c); ok && h.users != nil {
		if _, err := h.users.EnsureProfile(claims.UserID, claims.UserEmail, claims.UserDisplayName); err != nil {
			h.logger.Warn("profile ensure failed", zap.String("user_id", claims.UserID), zap.Error(err))
		} else if err := h.users.RecordDownload(claims.UserID, appID.String()); err != nil {
			h.logger.Warn("download history update failed",
				zap.String("user_id", claims.UserID), zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) handleSubmitApp(c *gin.Context) {
	claims, ok := sessionClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	appID, err := h.ids.NewID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "submission_failed"})
		return
	}
	app := catalog.ParseApp(appID, raw)
	if strings.TrimSpace(app.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name_required"})
		return
	}
	if app.Publisher == "" {
		app.Publisher = claims.UserDisplayName
	}
	now := h.clock()
	if app.ReleaseDate.IsZero() {
		app.ReleaseDate = now
	}
	if app.LastUpdated.IsZero() {
		app.LastUpdated = now
	}
	if err := h.store.CreateApp(c.Request.Context(), app); err != nil {
		h.logger.Error("app submission failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "submission_failed"})
		return
	}
	// New submissions change listings and counts immediately.
	h.reader.Cache().InvalidateMatching("apps")
	h.reader.Cache().Delete("category-app-counts")
	c.JSON(http.StatusCreated, app)
}

func (h *httpHandler) handleProfile(c *gin.Context) {
	claims, ok := sessionClaims(c)
	if !ok || h.users == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	profile, err := h.users.EnsureProfile(claims.UserID, claims.UserEmail, claims.UserDisplayName)
	if err != nil {
		h.logger.Error("profile lookup failed", zap.String("user_id", claims.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile_failed"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *httpHandler) handleAddFavorite(c *gin.Context) {
	h.mutateFavorite(c, func(userID, appID string) error {
		return h.users.AddFavorite(userID, appID)
	})
}

func (h *httpHandler) handleRemoveFavorite(c *gin.Context) {
	h.mutateFavorite(c, func(userID, appID string) error {
		return h.users.RemoveFavorite(userID, appID)
	})
}

func (h *httpHandler) mutateFavorite(c *gin.Context, mutate func(userID, appID string) error) {
	claims, ok := sessionClaims(c)
	if !ok || h.users == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	appID, err := catalog.NewAppID(c.Param("appId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_app_id"})
		return
	}
	if _, err := h.users.EnsureProfile(claims.UserID, claims.UserEmail, claims.UserDisplayName); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile_failed"})
		return
	}
	if err := mutate(claims.UserID, appID.String()); err != nil {
		h.logger.Error("favorite update failed", zap.String("user_id", claims.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "favorite_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) handleRecalculateRatings(c *gin.Context) {
	updated, err := h.reconciler.RecalculateAll(c.Request.Context())
	if err != nil {
		h.logger.Error("rating recalculation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "recalculation_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

func (h *httpHandler) handleRatingDrift(c *gin.Context) {
	reports, err := h.reconciler.ValidateAll(c.Request.Context())
	if err != nil {
		h.logger.Error("rating drift audit failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "audit_failed"})
		return
	}
	c.JSON(http.StatusOK, reports)
}

func limitParam(c *gin.Context) int {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
