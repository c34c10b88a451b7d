package config

import "time"

// UIConfig holds terminal dashboard configuration.
type UIConfig struct {
	// Theme is "dark", "light" or "auto"
	Theme string `json:"theme" yaml:"theme"`

	// RefreshInterval re-fetches the dashboard lists; empty disables polling
	RefreshInterval string `json:"refresh_interval,omitempty" yaml:"refresh_interval,omitempty"`

	// MaxRows caps the request table height
	MaxRows int `json:"max_rows,omitempty" yaml:"max_rows,omitempty"`
}

// DefaultUIConfig returns sensible UI defaults.
func DefaultUIConfig() *UIConfig {
	return &UIConfig{
		Theme:   "auto",
		MaxRows: 20,
	}
}

// GetRefreshInterval returns the polling interval, or zero when disabled.
func (c UIConfig) GetRefreshInterval() time.Duration {
	if c.RefreshInterval == "" {
		return 0
	}
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil || d < time.Second {
		return 0
	}
	return d
}
