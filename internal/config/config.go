// Package config reads the catalog service settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"PartsStore/internal/catalog"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// Config holds every knob of the catalog service and the migration tool.
type Config struct {
	Env  string `env:"APP_ENV" envDefault:"development"`
	Port string `env:"PORT" envDefault:"8082"`

	RemoteURL     string        `env:"CATALOG_REMOTE_URL"`
	RemoteKey     string        `env:"CATALOG_REMOTE_KEY"`
	RemoteTimeout time.Duration `env:"CATALOG_REMOTE_TIMEOUT" envDefault:"3s"`

	// CacheTTL overrides the deployment default freshness window when set.
	CacheTTL time.Duration `env:"CATALOG_CACHE_TTL"`
	// Verbose is tri-state so the deployment default applies when unset.
	Verbose *bool `env:"CATALOG_VERBOSE"`

	JWTSecret         string `env:"JWT_SECRET"`
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`

	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	MetricsToken   string `env:"METRICS_TOKEN"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	return cfg, nil
}

// IsServer reports whether the process runs as the shared production
// server rather than a local development instance.
func (c Config) IsServer() bool {
	return c.Env == EnvProduction || c.Env == "prod"
}

// Catalog derives the catalog service settings.
func (c Config) Catalog() catalog.Config {
	cc := catalog.DefaultConfig(c.IsServer())
	if c.CacheTTL > 0 {
		cc.FreshnessWindow = c.CacheTTL
	}
	if c.Verbose != nil {
		cc.Verbose = *c.Verbose
	}
	return cc
}

func (c Config) Remote() catalog.RemoteConfig {
	return catalog.RemoteConfig{
		Endpoint:  c.RemoteURL,
		AccessKey: c.RemoteKey,
		Timeout:   c.RemoteTimeout,
	}
}

// WritesEnabled reports whether admin login can be offered.
func (c Config) WritesEnabled() bool {
	return c.JWTSecret != "" && c.AdminPasswordHash != ""
}
