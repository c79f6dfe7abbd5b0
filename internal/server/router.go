package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/SolidevApps/store/backend/internal/auth"
	"github.com/SolidevApps/store/backend/internal/catalog"
	"github.com/SolidevApps/store/backend/internal/ratings"
	"github.com/SolidevApps/store/backend/internal/reviews"
	"github.com/SolidevApps/store/backend/internal/users"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const sessionContextKey = "solidev_session"

const adminRole = "admin"

var (
	errMissingSessionValidator = errors.New("session validator dependency required")
	errMissingReader           = errors.New("catalog reader dependency required")
	errMissingReviewService    = errors.New("review service dependency required")
	errMissingReconciler       = errors.New("rating reconciler dependency required")
	errInvalidAuthorization    = errors.New("authorization header missing or invalid")
)

// SessionValidator validates bearer sessions on protected routes.
type SessionValidator interface {
	ValidateRequest(r *http.Request) (auth.SessionClaims, error)
}

// Dependencies wires the HTTP layer to the catalog services.
type Dependencies struct {
	Validator  SessionValidator
	Reader     *catalog.Reader
	Store      catalog.Store
	IDProvider catalog.IDProvider
	Reviews    *reviews.Service
	Reconciler *ratings.Reconciler
	Users      *users.Service
	Logger     *zap.Logger
	Clock      func() time.Time
}

// NewHTTPHandler assembles the gin router for the catalog API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Validator == nil {
		return nil, errMissingSessionValidator
	}
	if deps.Reader == nil {
		return nil, errMissingReader
	}
	if deps.Reviews == nil {
		return nil, errMissingReviewService
	}
	if deps.Reconciler == nil {
		return nil, errMissingReconciler
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	ids := deps.IDProvider
	if ids == nil {
		ids = catalog.NewUUIDProvider()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		validator:  deps.Validator,
		reader:     deps.Reader,
		store:      deps.Store,
		ids:        ids,
		reviews:    deps.Reviews,
		reconciler: deps.Reconciler,
		users:      deps.Users,
		logger:     logger,
		clock:      clock,
	}

	v1 := router.Group("/v1")
	v1.GET("/categories", handler.handleListCategories)
	v1.GET("/categories/counts", handler.handleCategoryAppCounts)
	v1.GET("/categories/:id/apps", handler.handleAppsByCategory)
	v1.GET("/apps", handler.handleListApps)
	v1.GET("/apps/featured", handler.handleFeaturedApps)
	v1.GET("/apps/top", handler.handleTopApps)
	v1.GET("/apps/top-rated", handler.handleTopRatedApps)
	v1.GET("/apps/new", handler.handleNewApps)
	v1.GET("/apps/search", handler.handleSearchApps)
	v1.GET("/apps/:id", handler.handleAppByID)
	v1.GET("/apps/:id/reviews", handler.handleListReviews)
	v1.POST("/apps/:id/download", handler.withOptionalSession, handler.handleDownload)
	v1.GET("/catalog/events", handler.handleCatalogEvents)

	protected := v1.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.POST("/apps", handler.handleSubmitApp)
	protected.POST("/apps/:id/reviews", handler.handleSubmitReview)
	protected.GET("/me", handler.handleProfile)
	protected.POST("/me/favorites/:appId", handler.handleAddFavorite)
	protected.DELETE("/me/favorites/:appId", handler.handleRemoveFavorite)

	admin := v1.Group("/admin")
	admin.Use(handler.authorizeRequest, handler.requireAdmin)
	admin.POST("/ratings/recalculate", handler.handleRecalculateRatings)
	admin.GET("/ratings/drift", handler.handleRatingDrift)

	return router, nil
}

type httpHandler struct {
	validator  SessionValidator
	reader     *catalog.Reader
	store      catalog.Store
	ids        catalog.IDProvider
	reviews    *reviews.Service
	reconciler *ratings.Reconciler
	users      *users.Service
	logger     *zap.Logger
	clock      func() time.Time
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	claims, err := h.validator.ValidateRequest(c.Request)
	if err != nil {
		h.logger.Warn("session validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	c.Set(sessionContextKey, claims)
	c.Next()
}

// withOptionalSession attaches session claims when a valid bearer token is
// present but lets anonymous requests through.
func (h *httpHandler) withOptionalSession(c *gin.Context) {
	claims, err := h.validator.ValidateRequest(c.Request)
	if err == nil {
		c.Set(sessionContextKey, claims)
	}
	c.Next()
}

func (h *httpHandler) requireAdmin(c *gin.Context) {
	claims, ok := sessionClaims(c)
	if !ok || !claims.HasRole(adminRole) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	c.Next()
}

func sessionClaims(c *gin.Context) (auth.SessionClaims, bool) {
	raw, ok := c.Get(sessionContextKey)
	if !ok {
		return auth.SessionClaims{}, false
	}
	claims, ok := raw.(auth.SessionClaims)
	return claims, ok
}
