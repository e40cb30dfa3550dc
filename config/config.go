// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Modules  ModulesConfig  `yaml:"modules"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig configures the database.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres" (future)
	DSN    string `yaml:"dsn"`
}

// ModulesConfig configures module discovery and lifecycle behavior.
type ModulesConfig struct {
	// Dir is the directory scanned for module manifests.
	Dir string `yaml:"dir"`

	// ImportPrefix is the import path prefix module source lives under;
	// the dependency scanner extracts cross-module references from it.
	ImportPrefix string `yaml:"import_prefix"`

	// RouteManifest is the path of the generated route-name manifest.
	RouteManifest string `yaml:"route_manifest"`

	// AutoInstallProtected installs protected modules at boot.
	AutoInstallProtected bool `yaml:"auto_install_protected"`

	// SeedOnInstall runs module seeders as part of install.
	SeedOnInstall bool `yaml:"seed_on_install"`

	// WatchManifests re-runs discovery when module manifests change.
	WatchManifests bool `yaml:"watch_manifests"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(&cfg)

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
// This is useful for Docker deployments where no config file is needed.
//
// Environment variables:
//
//	TOOLDOCK_MODULES_DIR       - Modules directory (default: modules)
//	TOOLDOCK_IMPORT_PREFIX     - Module import path prefix (required)
//	TOOLDOCK_DATABASE_DSN      - Database path (default: tooldock.db)
//	TOOLDOCK_SERVER_HOST       - Server host (default: 0.0.0.0)
//	TOOLDOCK_SERVER_PORT       - Server port (default: 8080)
//	TOOLDOCK_ROUTE_MANIFEST    - Route manifest path (default: routes.json)
//	TOOLDOCK_LOG_LEVEL         - Log level: debug, info, warn, error (default: info)
//	TOOLDOCK_LOG_FORMAT        - Log format: json or console (default: json)
//	TOOLDOCK_METRICS_ENABLED   - Enable /metrics endpoint (default: true)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback tries to load from file, falls back to environment variables.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	if os.Getenv("TOOLDOCK_IMPORT_PREFIX") != "" {
		return LoadFromEnv()
	}

	return nil, fmt.Errorf("no configuration found: provide config file or set TOOLDOCK_IMPORT_PREFIX")
}

// HasEnvConfig returns true if essential environment variables are set.
func HasEnvConfig() bool {
	return os.Getenv("TOOLDOCK_IMPORT_PREFIX") != ""
}

// applyEnvOverrides applies TOOLDOCK_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Server configuration
	if v := os.Getenv("TOOLDOCK_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("TOOLDOCK_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("TOOLDOCK_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("TOOLDOCK_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	// Database configuration
	if v := os.Getenv("TOOLDOCK_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("TOOLDOCK_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}

	// Modules configuration
	if v := os.Getenv("TOOLDOCK_MODULES_DIR"); v != "" {
		cfg.Modules.Dir = v
	}
	if v := os.Getenv("TOOLDOCK_IMPORT_PREFIX"); v != "" {
		cfg.Modules.ImportPrefix = v
	}
	if v := os.Getenv("TOOLDOCK_ROUTE_MANIFEST"); v != "" {
		cfg.Modules.RouteManifest = v
	}
	if v := os.Getenv("TOOLDOCK_AUTO_INSTALL_PROTECTED"); v != "" {
		cfg.Modules.AutoInstallProtected = parseBool(v)
	}
	if v := os.Getenv("TOOLDOCK_SEED_ON_INSTALL"); v != "" {
		cfg.Modules.SeedOnInstall = parseBool(v)
	}
	if v := os.Getenv("TOOLDOCK_WATCH_MANIFESTS"); v != "" {
		cfg.Modules.WatchManifests = parseBool(v)
	}

	// Logging configuration
	if v := os.Getenv("TOOLDOCK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TOOLDOCK_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("TOOLDOCK_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("TOOLDOCK_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "tooldock.db"
	}

	if cfg.Modules.Dir == "" {
		cfg.Modules.Dir = "modules"
	}
	if cfg.Modules.RouteManifest == "" {
		cfg.Modules.RouteManifest = "routes.json"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validate(cfg *Config) error {
	if cfg.Modules.ImportPrefix == "" {
		return fmt.Errorf("modules.import_prefix is required")
	}

	validDrivers := map[string]bool{"sqlite": true}
	if !validDrivers[cfg.Database.Driver] {
		return fmt.Errorf("database.driver must be 'sqlite', got %q", cfg.Database.Driver)
	}

	validLevels := map[string]bool{"": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"": true, "json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	return nil
}
