package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
// It is read-only after Load() returns.
type Config struct {
	Source   SourceConfig   `yaml:"source"`
	Output   OutputConfig   `yaml:"output"`
	Defaults DefaultsConfig `yaml:"defaults"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Publish  PublishConfig  `yaml:"publish"`
	Log      LogConfig      `yaml:"log"`
}

// SourceConfig describes the campaign sheet.
type SourceConfig struct {
	Path        string `yaml:"path"`
	ImageColumn string `yaml:"image_column"`
}

// OutputConfig describes where bucket directories live.
type OutputConfig struct {
	Root         string `yaml:"root"`
	ManifestName string `yaml:"manifest_name"`
}

// DefaultsConfig holds values assigned to newly published campaigns.
type DefaultsConfig struct {
	Currency string `yaml:"currency"`
	Category string `yaml:"category"`
}

// CatalogConfig contains the optional SQLite catalog settings.
// An empty path disables the catalog.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// PublishConfig contains S3-compatible publishing settings.
// When Bucket is empty, publishing is disabled.
type PublishConfig struct {
	Bucket    string `yaml:"bucket"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	UseSSL    *bool  `yaml:"use_ssl"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"-"` // env-only, never in YAML
	SecretKey string `yaml:"-"` // env-only, never in YAML
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load loads configuration with precedence: defaults → YAML file → env vars.
func Load() (*Config, error) {
	cfg := newDefaults()

	configPath := getEnv("CAMPAIGNSYNC_CONFIG_PATH", "config/campaignsync.yaml")

	// Load YAML file if it exists (missing file is not an error)
	if err := loadYAMLFile(cfg, configPath); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific path.
// Used for testing and explicit path specification.
func LoadFromFile(path string) (*Config, error) {
	cfg := newDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newDefaults returns a Config with all default values.
func newDefaults() *Config {
	return &Config{
		Source: SourceConfig{
			Path:        "master_campaign_details.csv",
			ImageColumn: "image (link to images if any)",
		},
		Output: OutputConfig{
			Root:         "campaigns",
			ManifestName: "manifest.json",
		},
		Defaults: DefaultsConfig{
			Currency: "INR",
			Category: "medical",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// loadYAMLFile loads configuration from a YAML file if it exists.
func loadYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Only non-empty env vars override config values.
func applyEnvOverrides(cfg *Config) {
	// Source and output
	if v := os.Getenv("CAMPAIGNSYNC_SOURCE"); v != "" {
		cfg.Source.Path = v
	}
	if v := os.Getenv("CAMPAIGNSYNC_OUTPUT_ROOT"); v != "" {
		cfg.Output.Root = v
	}

	// Catalog
	if v := os.Getenv("CAMPAIGNSYNC_CATALOG_PATH"); v != "" {
		cfg.Catalog.Path = v
	}

	// Publish
	if v := os.Getenv("CAMPAIGNSYNC_PUBLISH_BUCKET"); v != "" {
		cfg.Publish.Bucket = v
	}
	if v := os.Getenv("CAMPAIGNSYNC_PUBLISH_PREFIX"); v != "" {
		cfg.Publish.Prefix = v
	}
	if v := os.Getenv("CAMPAIGNSYNC_S3_ENDPOINT"); v != "" {
		cfg.Publish.Endpoint = v
	}
	if v := os.Getenv("CAMPAIGNSYNC_S3_REGION"); v != "" {
		cfg.Publish.Region = v
	}
	if v := os.Getenv("CAMPAIGNSYNC_S3_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Publish.UseSSL = &b
		}
	}
	if v := os.Getenv("CAMPAIGNSYNC_S3_ACCESS_KEY"); v != "" {
		cfg.Publish.AccessKey = v
	}
	if v := os.Getenv("CAMPAIGNSYNC_S3_SECRET_KEY"); v != "" {
		cfg.Publish.SecretKey = v
	}

	// Log
	if v := os.Getenv("CAMPAIGNSYNC_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("CAMPAIGNSYNC_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.Source.Path == "" {
		return errors.New("source path is required")
	}
	if c.Output.Root == "" {
		return errors.New("output root is required")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q (want text or json)", c.Log.Format)
	}

	if c.Publish.Bucket != "" {
		if c.Publish.Endpoint == "" {
			return errors.New("CAMPAIGNSYNC_S3_ENDPOINT is required when a publish bucket is set")
		}
		if c.Publish.AccessKey == "" || c.Publish.SecretKey == "" {
			return errors.New("CAMPAIGNSYNC_S3_ACCESS_KEY and CAMPAIGNSYNC_S3_SECRET_KEY are required when a publish bucket is set")
		}
	}
	return nil
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
