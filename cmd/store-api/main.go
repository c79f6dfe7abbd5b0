package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SolidevApps/store/backend/internal/auth"
	"github.com/SolidevApps/store/backend/internal/catalog"
	"github.com/SolidevApps/store/backend/internal/config"
	"github.com/SolidevApps/store/backend/internal/database"
	"github.com/SolidevApps/store/backend/internal/logging"
	"github.com/SolidevApps/store/backend/internal/ratings"
	"github.com/SolidevApps/store/backend/internal/reviews"
	"github.com/SolidevApps/store/backend/internal/server"
	"github.com/SolidevApps/store/backend/internal/users"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "store-api",
		Short: "SolidevApps catalog backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the canonical category taxonomy",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context())
		},
	}

	rootCmd.AddCommand(seedCmd)
	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("session-issuer", defaults.GetString("session.issuer"), "Expected issuer of session tokens")
	cmd.PersistentFlags().String("signing-secret", "", "Session signing secret (overrides env)")
	cmd.PersistentFlags().String("audit-schedule", defaults.GetString("ratings.audit_schedule"), "Cron schedule for the rating drift audit")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "session.issuer", "session-issuer")
	bindFlag(cmd, "session.signing_secret", "signing-secret")
	bindFlag(cmd, "ratings.audit_schedule", "audit-schedule")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runSeed(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	store, err := catalog.NewGormStore(db)
	if err != nil {
		return err
	}
	return catalog.SeedCategories(ctx, store, logger)
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	store, err := catalog.NewGormStore(db)
	if err != nil {
		return err
	}
	cache := catalog.NewTTLCache(time.Now)
	tasks := catalog.NewTaskRunner(logger)
	resolver := catalog.NewResolver(store, tasks, logger)
	dispatcher := catalog.NewDispatcher()

	reader, err := catalog.NewReader(catalog.ReaderConfig{
		Store:      store,
		Cache:      cache,
		Resolver:   resolver,
		Dispatcher: dispatcher,
		Logger:     logger,
		TTL: catalog.TTLConfig{
			Categories:   appConfig.CategoriesTTL,
			CategoryApps: appConfig.CategoryAppsTTL,
			AppCounts:    appConfig.AppCountsTTL,
			Apps:         appConfig.AppsTTL,
		},
		Clock: time.Now,
	})
	if err != nil {
		return err
	}

	reconciler, err := ratings.NewReconciler(ratings.ReconcilerConfig{
		Store:  store,
		Cache:  cache,
		Logger: logger,
		Clock:  time.Now,
	})
	if err != nil {
		return err
	}

	reviewService, err := reviews.NewService(reviews.ServiceConfig{
		Store:      store,
		Reconciler: reconciler,
		IDProvider: catalog.NewUUIDProvider(),
		Clock:      time.Now,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	userService, err := users.NewService(users.ServiceConfig{
		Database: db,
		Clock:    time.Now,
	})
	if err != nil {
		return err
	}

	validator, err := auth.NewSessionValidator(auth.SessionValidatorConfig{
		SigningSecret: []byte(appConfig.SessionSigningSecret),
		Issuer:        appConfig.SessionIssuer,
		Clock:         time.Now,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Validator:  validator,
		Reader:     reader,
		Store:      store,
		IDProvider: catalog.NewUUIDProvider(),
		Reviews:    reviewService,
		Reconciler: reconciler,
		Users:      userService,
		Logger:     logger,
		Clock:      time.Now,
	})
	if err != nil {
		return err
	}

	if err := catalog.SeedCategories(ctx, store, logger); err != nil {
		return err
	}

	scheduler := cron.New()
	_, err = scheduler.AddFunc(appConfig.AuditSchedule, func() {
		auditCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		reports, err := reconciler.ValidateAll(auditCtx)
		if err != nil {
			logger.Warn("scheduled rating audit failed", zap.Error(err))
			return
		}
		for _, report := range reports {
			if report.RatingConsistent && report.CountConsistent {
				continue
			}
			logger.Warn("rating drift detected",
				zap.String("app_id", report.AppID),
				zap.Float64("stored_rating", report.StoredRating),
				zap.Float64("computed_rating", report.ComputedRating),
				zap.Int64("stored_count", report.StoredCount),
				zap.Int64("computed_count", report.ComputedCount))
			if _, err := reconciler.Recalculate(auditCtx, report.AppID); err != nil {
				logger.Warn("drift repair failed", zap.String("app_id", report.AppID), zap.Error(err))
			}
		}
	})
	if err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Warm the listing caches shortly after startup so the first client request
	// does not pay for the initial scans.
	go func() {
		time.Sleep(2 * time.Second)
		warmCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := reader.LoadCategories(warmCtx); err != nil {
			logger.Warn("category cache warmup failed", zap.Error(err))
		}
		if _, err := reader.CategoryAppCounts(warmCtx); err != nil {
			logger.Warn("app count cache warmup failed", zap.Error(err))
		}
	}()

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
