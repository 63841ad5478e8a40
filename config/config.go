package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Registry drivers supported for the tenant directory.
const (
	RegistryDriverPostgres = "postgres"
	RegistryDriverSQLite   = "sqlite"
)

// Config struct to hold the configuration settings
type Config struct {
	Registry      RegistryConfig      `yaml:"registry"`
	Tenants       TenantsConfig       `yaml:"tenants"`
	HTTP          HTTPConfig          `yaml:"http"`
	Announcements AnnouncementsConfig `yaml:"announcements"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// RegistryConfig holds the tenant directory (control database) configuration.
type RegistryConfig struct {
	Driver string `yaml:"driver"` // postgres|sqlite
	DSN    string `yaml:"dsn"`
}

// TenantsConfig holds configuration for the per-tenant stores.
type TenantsConfig struct {
	BaseDir     string        `yaml:"base_dir"`
	BusyTimeout time.Duration `yaml:"busy_timeout"`
	OpenTimeout time.Duration `yaml:"open_timeout"`
}

// HTTPConfig holds the JSON adapter listen address.
type HTTPConfig struct {
	Address string `yaml:"address"`
}

// AnnouncementsConfig holds configuration for post-commit award announcements.
type AnnouncementsConfig struct {
	Enabled       bool              `yaml:"enabled"`
	RatePerMinute float64           `yaml:"rate_per_minute"`
	Burst         int               `yaml:"burst"`
	Timeout       time.Duration     `yaml:"timeout"`
	Webhooks      map[string]string `yaml:"webhooks"` // tenant id -> webhook URL
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level"`
	LogFormat      string `yaml:"log_format"` // json|text
	MetricsAddress string `yaml:"metrics_address"`
	Environment    string `yaml:"environment"`
}

// LoadConfig loads the configuration from a YAML file.
func LoadConfig(filename string) (*Config, error) {
	// Try reading configuration from the file first
	data, err := os.ReadFile(filename)
	if err != nil {
		// If the file is not found, try loading from environment variables
		return loadConfigFromEnv()
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// --- OVERRIDE WITH ENV VARS IF PRESENT ---
	if v := os.Getenv("REGISTRY_DRIVER"); v != "" {
		cfg.Registry.Driver = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Registry.DSN = v
	}
	if v := os.Getenv("TENANTS_BASE_DIR"); v != "" {
		cfg.Tenants.BaseDir = v
	}
	if v := os.Getenv("TENANTS_BUSY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Tenants.BusyTimeout = d
		}
	}
	if v := os.Getenv("TENANTS_OPEN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Tenants.OpenTimeout = d
		}
	}
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("ANNOUNCEMENTS_ENABLED"); v != "" {
		cfg.Announcements.Enabled = v == "true"
	}
	if v := os.Getenv("ANNOUNCEMENTS_RATE_PER_MINUTE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Announcements.RatePerMinute = f
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		cfg.Observability.MetricsAddress = v
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadConfigFromEnv loads the configuration from environment variables.
func loadConfigFromEnv() (*Config, error) {
	var cfg Config

	cfg.Registry.Driver = os.Getenv("REGISTRY_DRIVER")
	cfg.Registry.DSN = os.Getenv("DATABASE_URL")
	if cfg.Registry.DSN == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	cfg.Tenants.BaseDir = os.Getenv("TENANTS_BASE_DIR")
	if v := os.Getenv("TENANTS_BUSY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TENANTS_BUSY_TIMEOUT value: %v", err)
		}
		cfg.Tenants.BusyTimeout = d
	}
	if v := os.Getenv("TENANTS_OPEN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TENANTS_OPEN_TIMEOUT value: %v", err)
		}
		cfg.Tenants.OpenTimeout = d
	}

	cfg.HTTP.Address = os.Getenv("HTTP_ADDRESS")

	cfg.Announcements.Enabled = os.Getenv("ANNOUNCEMENTS_ENABLED") == "true"
	if v := os.Getenv("ANNOUNCEMENTS_RATE_PER_MINUTE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ANNOUNCEMENTS_RATE_PER_MINUTE value: %v", err)
		}
		cfg.Announcements.RatePerMinute = f
	}
	// ANNOUNCEMENT_WEBHOOKS=tenant-a=https://...,tenant-b=https://...
	if v := os.Getenv("ANNOUNCEMENT_WEBHOOKS"); v != "" {
		cfg.Announcements.Webhooks = parseWebhookList(v)
	}

	cfg.Observability.LogLevel = os.Getenv("LOG_LEVEL")
	cfg.Observability.LogFormat = os.Getenv("LOG_FORMAT")
	cfg.Observability.MetricsAddress = os.Getenv("METRICS_ADDRESS") // optional; empty disables metrics
	cfg.Observability.Environment = os.Getenv("ENV")

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Registry.Driver == "" {
		c.Registry.Driver = RegistryDriverPostgres
	}
	if c.Tenants.BaseDir == "" {
		c.Tenants.BaseDir = "data/tenants"
	}
	if c.Tenants.BusyTimeout <= 0 {
		c.Tenants.BusyTimeout = 5 * time.Second
	}
	if c.Tenants.OpenTimeout <= 0 {
		c.Tenants.OpenTimeout = 3 * time.Second
	}
	if c.HTTP.Address == "" {
		c.HTTP.Address = "127.0.0.1:8080"
	}
	if c.Announcements.RatePerMinute <= 0 {
		c.Announcements.RatePerMinute = 20
	}
	if c.Announcements.Burst <= 0 {
		c.Announcements.Burst = 5
	}
	if c.Announcements.Timeout <= 0 {
		c.Announcements.Timeout = 10 * time.Second
	}
	if c.Observability.LogLevel == "" {
		c.Observability.LogLevel = "info"
	}
	if c.Observability.LogFormat == "" {
		c.Observability.LogFormat = "json"
	}
}

// Validate reports configuration that cannot work at all.
func (c *Config) Validate() error {
	switch c.Registry.Driver {
	case RegistryDriverPostgres, RegistryDriverSQLite:
	default:
		return fmt.Errorf("unsupported registry driver %q", c.Registry.Driver)
	}
	if strings.TrimSpace(c.Registry.DSN) == "" {
		return fmt.Errorf("registry dsn is required")
	}
	return nil
}

func parseWebhookList(raw string) map[string]string {
	hooks := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		tenantID, url, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || tenantID == "" || url == "" {
			continue
		}
		hooks[strings.TrimSpace(tenantID)] = strings.TrimSpace(url)
	}
	return hooks
}
