package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix            = "SOLIDEV"
	defaultHTTPAddress   = "0.0.0.0:8080"
	defaultDatabasePath  = "solidev-store.db"
	defaultLogLevel      = "info"
	defaultSessionIssuer = "solidev-auth"
	defaultAuditSchedule = "@every 1h"

	defaultCategoriesTTL   = 5 * time.Minute
	defaultCategoryAppsTTL = 3 * time.Minute
	defaultAppCountsTTL    = 2 * time.Minute
	defaultAppsTTL         = 5 * time.Minute
)

// AppConfig captures runtime configuration for the catalog API server.
type AppConfig struct {
	HTTPAddress          string
	DatabasePath         string
	LogLevel             string
	SessionSigningSecret string
	SessionIssuer        string
	AuditSchedule        string
	CategoriesTTL        time.Duration
	CategoryAppsTTL      time.Duration
	AppCountsTTL         time.Duration
	AppsTTL              time.Duration
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("session.issuer", defaultSessionIssuer)
	configViper.SetDefault("ratings.audit_schedule", defaultAuditSchedule)
	configViper.SetDefault("cache.categories_ttl", defaultCategoriesTTL)
	configViper.SetDefault("cache.category_apps_ttl", defaultCategoryAppsTTL)
	configViper.SetDefault("cache.app_counts_ttl", defaultAppCountsTTL)
	configViper.SetDefault("cache.apps_ttl", defaultAppsTTL)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:          configViper.GetString("http.address"),
		DatabasePath:         configViper.GetString("database.path"),
		LogLevel:             configViper.GetString("log.level"),
		SessionSigningSecret: configViper.GetString("session.signing_secret"),
		SessionIssuer:        configViper.GetString("session.issuer"),
		AuditSchedule:        configViper.GetString("ratings.audit_schedule"),
		CategoriesTTL:        configViper.GetDuration("cache.categories_ttl"),
		CategoryAppsTTL:      configViper.GetDuration("cache.category_apps_ttl"),
		AppCountsTTL:         configViper.GetDuration("cache.app_counts_ttl"),
		AppsTTL:              configViper.GetDuration("cache.apps_ttl"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.HTTPAddress) == "" {
		return fmt.Errorf("config: http address is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("config: database path is required")
	}
	if strings.TrimSpace(c.SessionSigningSecret) == "" {
		return fmt.Errorf("config: session signing secret is required")
	}
	return nil
}
