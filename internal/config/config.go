// Package config holds the YAML-backed application configuration: tenant
// identity, data paths, SLA thresholds, and enrichment settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"opsdeck/internal/model"
	"opsdeck/internal/normalize"
	"opsdeck/internal/triage"
)

// Config holds all opsdeck configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Tenant identity stamped onto every normalized row
	Tenant TenantConfig `yaml:"tenant"`

	// Normalization defaults for columns the exports omit
	Defaults DefaultsConfig `yaml:"defaults"`

	// SLA thresholds for escalation bucketing
	SLA SLAConfig `yaml:"sla"`

	// Filesystem layout
	Paths PathsConfig `yaml:"paths"`

	// LLM explanation rewriting
	Enrichment EnrichmentConfig `yaml:"enrichment"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// TenantConfig identifies whose exports are being processed.
type TenantConfig struct {
	AccountID string `yaml:"account_id"`
	StoreID   string `yaml:"store_id"`
	Platform  string `yaml:"platform"` // "" or "shopify"
}

// DefaultsConfig fills columns missing from the raw exports.
type DefaultsConfig struct {
	Currency         string `yaml:"currency"`
	PromisedShipDays int    `yaml:"promised_ship_days"`
}

// SLAConfig configures escalation bucketing.
type SLAConfig struct {
	GraceDays   int `yaml:"grace_days"`
	AtRiskHours int `yaml:"at_risk_hours"`
}

// PathsConfig is the on-disk layout. Blank SuppliersDir/WorkspacesDir
// resolve under DataDir.
type PathsConfig struct {
	DataDir       string `yaml:"data_dir"`
	SuppliersDir  string `yaml:"suppliers_dir"`
	WorkspacesDir string `yaml:"workspaces_dir"`
	WorkspaceName string `yaml:"workspace_name"`
}

// EnrichmentConfig configures the LLM explanation pass.
type EnrichmentConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	MaxRows int    `yaml:"max_rows"`
	Timeout string `yaml:"timeout"`
}

// LoggingConfig configures the console logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
	File   string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "opsdeck",
		Version: "1.0.0",

		Tenant: TenantConfig{
			AccountID: "default",
			StoreID:   "default",
		},

		Defaults: DefaultsConfig{
			Currency:         "USD",
			PromisedShipDays: 3,
		},

		SLA: SLAConfig{
			GraceDays:   0,
			AtRiskHours: 72,
		},

		Paths: PathsConfig{
			DataDir:       "data",
			WorkspaceName: "default",
		},

		Enrichment: EnrichmentConfig{
			Enabled: false,
			Model:   "gemini-2.5-flash",
			MaxRows: 40,
			Timeout: "30s",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file, starting from defaults. A
// missing file is not an error; environment overrides always apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("OPSDECK_GENAI_API_KEY"); key != "" {
		c.Enrichment.APIKey = key
	} else if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Enrichment.APIKey = key
	}
	if dir := os.Getenv("OPSDECK_DATA_DIR"); dir != "" {
		c.Paths.DataDir = dir
	}
	if acct := os.Getenv("OPSDECK_ACCOUNT_ID"); acct != "" {
		c.Tenant.AccountID = acct
	}
	if store := os.Getenv("OPSDECK_STORE_ID"); store != "" {
		c.Tenant.StoreID = store
	}
}

// SuppliersDir returns the supplier directory root, defaulting under
// DataDir.
func (c *Config) SuppliersDir() string {
	if c.Paths.SuppliersDir != "" {
		return c.Paths.SuppliersDir
	}
	return filepath.Join(c.Paths.DataDir, "suppliers")
}

// WorkspacesDir returns the workspaces root, defaulting under DataDir.
func (c *Config) WorkspacesDir() string {
	if c.Paths.WorkspacesDir != "" {
		return c.Paths.WorkspacesDir
	}
	return filepath.Join(c.Paths.DataDir, "workspaces")
}

// TenantModel projects the tenant section onto the domain type.
func (c *Config) TenantModel() model.Tenant {
	return model.Tenant{
		AccountID: c.Tenant.AccountID,
		StoreID:   c.Tenant.StoreID,
		Platform:  c.Tenant.Platform,
	}
}

// NormalizeOptions projects the config onto the normalization layer.
func (c *Config) NormalizeOptions() normalize.Options {
	return normalize.Options{
		DefaultCurrency:         c.Defaults.Currency,
		DefaultPromisedShipDays: c.Defaults.PromisedShipDays,
		PlatformHint:            c.Tenant.Platform,
	}
}

// TriageConfig projects the config onto the SLA escalation layer.
func (c *Config) TriageConfig() triage.Config {
	cfg := triage.DefaultConfig()
	cfg.PromisedShipDays = c.Defaults.PromisedShipDays
	cfg.GraceDays = c.SLA.GraceDays
	if c.SLA.AtRiskHours > 0 {
		cfg.AtRiskHours = c.SLA.AtRiskHours
	}
	return cfg
}

// GetEnrichTimeout returns the per-call LLM timeout as a duration.
func (c *Config) GetEnrichTimeout() time.Duration {
	d, err := time.ParseDuration(c.Enrichment.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Tenant.AccountID == "" || c.Tenant.StoreID == "" {
		return fmt.Errorf("tenant account_id and store_id must be set")
	}
	if c.Defaults.PromisedShipDays <= 0 {
		return fmt.Errorf("defaults.promised_ship_days must be positive, got %d", c.Defaults.PromisedShipDays)
	}
	if c.Enrichment.Enabled && c.Enrichment.APIKey == "" {
		return fmt.Errorf("enrichment enabled but no API key configured (set OPSDECK_GENAI_API_KEY or GEMINI_API_KEY)")
	}
	return nil
}
