// ABOUTME: Backup target settings and push history for Charm KV
// ABOUTME: Persisted as JSON next to the charm database in the XDG data directory

package charm

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/charm/kv"
)

const (
	// DefaultCharmHost is the self-hosted 2389 research server.
	DefaultCharmHost = "charm.2389.dev"

	// AppName names the Charm KV database.
	AppName = "agencycrm"

	ConfigFileName = "charm-config.json"
)

// Config describes where backups go and when each collection was last pushed.
type Config struct {
	Host     string `json:"host,omitempty"`
	AutoSync bool   `json:"auto_sync"`

	// StaleThreshold is how old a push may get before status flags it.
	StaleThreshold time.Duration `json:"stale_threshold,omitempty"`

	// LastPush maps collection name to the time of its last successful push.
	LastPush map[string]time.Time `json:"last_push,omitempty"`
}

func DefaultConfig() *Config {
	cfg := &Config{AutoSync: true}
	cfg.fillDefaults()
	return cfg
}

func (c *Config) fillDefaults() {
	if c.Host == "" {
		c.Host = DefaultCharmHost
	}
	if c.StaleThreshold <= 0 {
		c.StaleThreshold = kv.DefaultStaleThreshold
	}
	if c.LastPush == nil {
		c.LastPush = map[string]time.Time{}
	}
}

// ConfigPath returns the config file location, creating its directory.
func ConfigPath() (string, error) {
	dir := filepath.Join(xdg.DataHome, AppName)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

// LoadConfig reads the saved config. A missing or unreadable file and an
// unusable data directory all yield defaults.
func LoadConfig() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil //nolint:nilerr // defaults when the data dir is unusable
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return DefaultConfig(), nil //nolint:nilerr // a corrupt file falls back to defaults
	}
	cfg.fillDefaults()
	return cfg, nil
}

// Save writes the config with owner-only permissions.
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func (c *Config) SetHost(host string) error {
	c.Host = host
	return c.Save()
}

func (c *Config) SetAutoSync(enabled bool) error {
	c.AutoSync = enabled
	return c.Save()
}

// RecordPush remembers a successful push of collection and saves.
func (c *Config) RecordPush(collection string, at time.Time) error {
	if c.LastPush == nil {
		c.LastPush = map[string]time.Time{}
	}
	c.LastPush[collection] = at.UTC()
	return c.Save()
}

// Stale reports whether collection was never pushed or was pushed longer
// than StaleThreshold before now.
func (c *Config) Stale(collection string, now time.Time) bool {
	last, ok := c.LastPush[collection]
	if !ok {
		return true
	}
	return now.Sub(last) > c.StaleThreshold
}
