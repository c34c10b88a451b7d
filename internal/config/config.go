package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all reqdesk configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Backend connection
	API APIConfig `yaml:"api"`

	// Durable storage engine for persisted slices
	Storage StorageConfig `yaml:"storage"`

	// Which slices survive between sessions, and how
	Persist PersistConfig `yaml:"persist"`

	// File re-encoding limits
	Upload UploadConfig `yaml:"upload"`

	// Terminal dashboard
	UI UIConfig `yaml:"ui"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig configures the REST backend client.
type APIConfig struct {
	BaseURL   string `yaml:"base_url"`
	Prefix    string `yaml:"prefix"`
	Token     string `yaml:"token"`
	Timeout   string `yaml:"timeout"`
	UserAgent string `yaml:"user_agent"`

	MaxResponseBytes int64 `yaml:"max_response_bytes"`
}

// StorageConfig selects the storage engine.
type StorageConfig struct {
	Driver string `yaml:"driver"` // sqlite3 (cgo), sqlite (pure Go), memory
	Path   string `yaml:"path"`
}

// PersistConfig configures slice persistence.
type PersistConfig struct {
	Enabled   bool     `yaml:"enabled"`
	KeyPrefix string   `yaml:"key_prefix"`
	Debounce  string   `yaml:"debounce"`
	Slices    []string `yaml:"slices"`
}

// UploadConfig bounds file uploads.
type UploadConfig struct {
	MaxBytes int64 `yaml:"max_bytes"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "reqdesk",
		Version: "0.4.0",

		API: APIConfig{
			BaseURL:   "http://localhost:8000",
			Prefix:    "/api/v1",
			Timeout:   "30s",
			UserAgent: "reqdesk/0.4.0",

			MaxResponseBytes: 64 << 20,
		},

		Storage: StorageConfig{
			Driver: "sqlite3",
			Path:   ".reqdesk/state.db",
		},

		Persist: PersistConfig{
			Enabled:   true,
			KeyPrefix: "root",
			Debounce:  "250ms",
			Slices:    []string{"auth", "users", "category", "request", "requestAnalytics"},
		},

		Upload: UploadConfig{
			MaxBytes: 10 << 20,
		},

		UI: *DefaultUIConfig(),

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Dir:    ".reqdesk/logs",
		},
	}
}

// Load loads configuration from a YAML file. A .env file next to the config
// is read first so its values can feed the environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	envPath := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", envPath, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
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
	if v := os.Getenv("REQDESK_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("REQDESK_TOKEN"); v != "" {
		c.API.Token = v
	}
	if v := os.Getenv("REQDESK_DB"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("REQDESK_DB_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("REQDESK_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("REQDESK_DEBUG"); v == "1" || strings.EqualFold(v, "true") {
		c.Logging.DebugMode = true
	}
}

// GetRequestTimeout returns the per-request timeout as a duration.
func (c *Config) GetRequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetPersistDebounce returns how long slice writes are coalesced.
func (c *Config) GetPersistDebounce() time.Duration {
	d, err := time.ParseDuration(c.Persist.Debounce)
	if err != nil {
		return 250 * time.Millisecond
	}
	return d
}

// ValidDrivers lists the supported storage drivers.
var ValidDrivers = []string{"sqlite3", "sqlite", "memory"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("API base URL not configured (set api.base_url or REQDESK_API_URL)")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid API base URL: %q", c.API.BaseURL)
	}

	validDriver := false
	for _, d := range ValidDrivers {
		if c.Storage.Driver == d {
			validDriver = true
			break
		}
	}
	if !validDriver {
		return fmt.Errorf("invalid storage driver: %s (valid: %v)", c.Storage.Driver, ValidDrivers)
	}
	if c.Storage.Driver != "memory" && c.Storage.Path == "" {
		return fmt.Errorf("storage path required for driver %s", c.Storage.Driver)
	}

	if c.API.MaxResponseBytes < c.Upload.MaxBytes {
		return fmt.Errorf("api.max_response_bytes (%d) must be at least upload.max_bytes (%d)", c.API.MaxResponseBytes, c.Upload.MaxBytes)
	}

	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload.max_bytes must be positive")
	}

	return nil
}

// IsPersisted reports whether the named slice is written to storage.
func (c *Config) IsPersisted(slice string) bool {
	if !c.Persist.Enabled {
		return false
	}
	for _, s := range c.Persist.Slices {
		if s == slice {
			return true
		}
	}
	return false
}
