package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// =============================================================================
// UNIFIED CONFIG TESTS
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "reqdesk" {
		t.Errorf("expected Name=reqdesk, got %s", cfg.Name)
	}
	if cfg.API.Prefix != "/api/v1" {
		t.Errorf("expected Prefix=/api/v1, got %s", cfg.API.Prefix)
	}
	if cfg.Persist.KeyPrefix != "root" {
		t.Errorf("expected KeyPrefix=root, got %s", cfg.Persist.KeyPrefix)
	}
	if len(cfg.Persist.Slices) != 5 {
		t.Errorf("expected 5 persisted slices, got %d", len(cfg.Persist.Slices))
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	// Ensure no env vars interfere
	t.Setenv("REQDESK_API_URL", "")
	t.Setenv("REQDESK_TOKEN", "")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	cfg := DefaultConfig()
	cfg.API.BaseURL = "https://analytics.example.com"
	cfg.Storage.Driver = "sqlite"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.API.BaseURL != "https://analytics.example.com" {
		t.Errorf("expected BaseURL to round-trip, got %s", loaded.API.BaseURL)
	}
	if loaded.Storage.Driver != "sqlite" {
		t.Errorf("expected Driver=sqlite, got %s", loaded.Storage.Driver)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("REQDESK_API_URL", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.API.BaseURL != DefaultConfig().API.BaseURL {
		t.Errorf("expected default BaseURL, got %s", cfg.API.BaseURL)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid default config, got error: %v", err)
	}

	cfg.API.BaseURL = "not a url"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for bad base URL")
	}

	cfg = DefaultConfig()
	cfg.Storage.Driver = "postgres"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for invalid driver")
	}

	cfg = DefaultConfig()
	cfg.API.MaxResponseBytes = cfg.Upload.MaxBytes - 1
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error when responses cannot carry an upload")
	}

	cfg = DefaultConfig()
	cfg.Storage.Driver = "memory"
	cfg.Storage.Path = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("memory driver needs no path, got: %v", err)
	}
}

func TestConfig_Helpers(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.GetRequestTimeout() != 30*time.Second {
		t.Errorf("unexpected request timeout %v", cfg.GetRequestTimeout())
	}
	cfg.API.Timeout = "garbage"
	if cfg.GetRequestTimeout() != 30*time.Second {
		t.Error("GetRequestTimeout should fall back on parse errors")
	}
	if cfg.GetPersistDebounce() != 250*time.Millisecond {
		t.Errorf("unexpected debounce %v", cfg.GetPersistDebounce())
	}

	if !cfg.IsPersisted("auth") {
		t.Error("auth should be persisted by default")
	}
	cfg.Persist.Enabled = false
	if cfg.IsPersisted("auth") {
		t.Error("nothing is persisted when persistence is disabled")
	}
}

func TestUIConfig_RefreshInterval(t *testing.T) {
	ui := *DefaultUIConfig()
	if ui.GetRefreshInterval() != 0 {
		t.Error("polling should be disabled by default")
	}
	ui.RefreshInterval = "10s"
	if ui.GetRefreshInterval() != 10*time.Second {
		t.Errorf("expected 10s, got %v", ui.GetRefreshInterval())
	}
	ui.RefreshInterval = "10ms"
	if ui.GetRefreshInterval() != 0 {
		t.Error("sub-second intervals are ignored")
	}
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	c := LoggingConfig{}
	if c.IsCategoryEnabled("api") {
		t.Error("categories are off outside debug mode")
	}
	c.DebugMode = true
	if !c.IsCategoryEnabled("api") {
		t.Error("all categories are on in debug mode without a filter")
	}
	c.Categories = map[string]bool{"api": false}
	if c.IsCategoryEnabled("api") {
		t.Error("explicitly disabled category should be off")
	}
	if !c.IsCategoryEnabled("store") {
		t.Error("unlisted category should default to on")
	}
}
