package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/SolidevApps/store/backend/internal/auth"
	"github.com/SolidevApps/store/backend/internal/catalog"
	"github.com/SolidevApps/store/backend/internal/ratings"
	"github.com/SolidevApps/store/backend/internal/reviews"
	"github.com/SolidevApps/store/backend/internal/users"
	sqlite "github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	testSigningSecret = []byte("router-test-secret")
	testIssuer        = "solidev-auth"
	testNow           = time.Unix(1750000000, 0).UTC()
)

type testServer struct {
	handler http.Handler
	store   *catalog.GormStore
	reader  *catalog.Reader
	tasks   *catalog.TaskRunner
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&catalog.App{}, &catalog.Category{}, &catalog.Review{}, &users.Profile{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	if err := db.Table("app_reviews").AutoMigrate(&catalog.Review{}); err != nil {
		t.Fatalf("failed to migrate app review table: %v", err)
	}

	store, err := catalog.NewGormStore(db)
	if err != nil {
		t.Fatalf("unexpected store error: %v", err)
	}
	return newTestServerOverStore(t, db, store)
}

func newTestServerOverStore(t *testing.T, db *gorm.DB, store catalog.Store) *testServer {
	t.Helper()
	tasks := catalog.NewTaskRunner(zap.NewNop())
	reader, err := catalog.NewReader(catalog.ReaderConfig{
		Store:    store,
		Resolver: catalog.NewResolver(store, tasks, zap.NewNop()),
		Logger:   zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("unexpected reader error: %v", err)
	}

	reconciler, err := ratings.NewReconciler(ratings.ReconcilerConfig{Store: store})
	if err != nil {
		t.Fatalf("unexpected reconciler error: %v", err)
	}
	reviewService, err := reviews.NewService(reviews.ServiceConfig{
		Store:      store,
		Reconciler: reconciler,
		IDProvider: catalog.NewUUIDProvider(),
	})
	if err != nil {
		t.Fatalf("unexpected review service error: %v", err)
	}

	var userService *users.Service
	if db != nil {
		userService, err = users.NewService(users.ServiceConfig{Database: db})
		if err != nil {
			t.Fatalf("unexpected user service error: %v", err)
		}
	}

	validator, err := auth.NewSessionValidator(auth.SessionValidatorConfig{
		SigningSecret: testSigningSecret,
		Issuer:        testIssuer,
	})
	if err != nil {
		t.Fatalf("unexpected validator error: %v", err)
	}

	handler, err := NewHTTPHandler(Dependencies{
		Validator:  validator,
		Reader:     reader,
		Store:      store,
		Reviews:    reviewService,
		Reconciler: reconciler,
		Users:      userService,
		Logger:     zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("unexpected handler error: %v", err)
	}

	var gormStore *catalog.GormStore
	if concrete, ok := store.(*catalog.GormStore); ok {
		gormStore = concrete
	}
	return &testServer{handler: handler, store: gormStore, reader: reader, tasks: tasks}
}

func sessionToken(t *testing.T, userID string, roles ...string) string {
	t.Helper()
	claims := auth.SessionClaims{
		UserID:          userID,
		UserEmail:       userID + "@example.com",
		UserDisplayName: "Test User",
		UserRoles:       roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(testNow),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSigningSecret)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

// stubDriftingApp carries stored aggregates that no review backs up, so the
// audit must flag it.
func stubDriftingApp() catalog.App {
	return catalog.App{ID: "app-drift", Name: "Ghost Ratings", Rating: 4.5, ReviewsCount: 3}
}

// unavailableStore fails every read, standing in for a backend outage.
type unavailableStore struct{}

var errBackendDown = errors.New("backend unavailable")

func (unavailableStore) ListApps(ctx context.Context) ([]catalog.App, error) {
	return nil, errBackendDown
}

func (unavailableStore) QueryApps(ctx context.Context, query catalog.AppQuery) ([]catalog.App, error) {
	return nil, errBackendDown
}

func (unavailableStore) GetApp(ctx context.Context, appID string) (catalog.App, error) {
	return catalog.App{}, errBackendDown
}

func (unavailableStore) CreateApp(ctx context.Context, app catalog.App) error {
	return errBackendDown
}

func (unavailableStore) UpdateApp(ctx context.Context, appID string, fields map[string]any) error {
	return errBackendDown
}

func (unavailableStore) IncrementDownloads(ctx context.Context, appID string) error {
	return errBackendDown
}

func (unavailableStore) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	return nil, errBackendDown
}

func (unavailableStore) GetCategory(ctx context.Context, categoryID string) (catalog.Category, error) {
	return catalog.Category{}, errBackendDown
}

func (unavailableStore) PutCategory(ctx context.Context, category catalog.Category) error {
	return errBackendDown
}

func (unavailableStore) AppReviews(ctx context.Context, appID string) ([]catalog.Review, error) {
	return nil, errBackendDown
}

func (unavailableStore) GlobalReviews(ctx context.Context, appID string) ([]catalog.Review, error) {
	return nil, errBackendDown
}

func (unavailableStore) CreateAppReview(ctx context.Context, review catalog.Review) error {
	return errBackendDown
}

func (unavailableStore) CreateGlobalReview(ctx context.Context, review catalog.Review) error {
	return errBackendDown
}
