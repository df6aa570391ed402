// ABOUTME: Application configuration loaded from the XDG config file, .env and environment
// ABOUTME: Environment variables prefixed AGENCYCRM_ override values from the file

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
)

const (
	// AppName names the XDG config and data directories.
	AppName = "agencycrm"

	// ConfigFileName is where we store local config.
	ConfigFileName = "config.json"

	// EnvPrefix prefixes every override variable.
	EnvPrefix = "AGENCYCRM_"

	DefaultDriver          = "sqlite"
	DefaultAnalysisTimeout = 30 * time.Second
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "console"
)

// Duration marshals as a Go duration string such as "30s".
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
		return nil
	}

	// Bare numbers are seconds.
	var secs float64
	if err := json.Unmarshal(data, &secs); err != nil {
		return fmt.Errorf("invalid duration %s", string(data))
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}

type StoreConfig struct {
	// Driver is a registered docstore backend: sqlite or badger.
	Driver string `json:"driver"`
	// Path is the sqlite file or badger directory; ":memory:" keeps data in memory.
	Path       string `json:"path"`
	Collection string `json:"collection,omitempty"`
}

type AnalysisConfig struct {
	// Endpoint is the inference service base URL. Empty selects the
	// built-in heuristic analyzer.
	Endpoint string `json:"endpoint,omitempty"`
	APIKey   string `json:"api_key,omitempty"`

	// OAuth2 client credentials; used instead of APIKey when ClientID is set.
	ClientID     string   `json:"client_id,omitempty"`
	ClientSecret string   `json:"client_secret,omitempty"`
	TokenURL     string   `json:"token_url,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`

	Timeout Duration `json:"timeout"`

	// Deferred stores new clients even when analysis fails.
	Deferred bool `json:"deferred"`
}

type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

type MetricsConfig struct {
	// Addr serves /metrics when set, e.g. ":9090".
	Addr string `json:"addr,omitempty"`
}

// Config is the full application configuration.
type Config struct {
	Store    StoreConfig    `json:"store"`
	Analysis AnalysisConfig `json:"analysis"`
	Log      LogConfig      `json:"log"`
	Metrics  MetricsConfig  `json:"metrics"`
}

// DefaultConfig returns a new config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Driver: DefaultDriver,
			Path:   DefaultStorePath(DefaultDriver),
		},
		Analysis: AnalysisConfig{
			Timeout: Duration(DefaultAnalysisTimeout),
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// DefaultStorePath returns the XDG data location for a backend.
func DefaultStorePath(driver string) string {
	if driver == "badger" {
		return filepath.Join(xdg.DataHome, AppName, "badger")
	}
	return filepath.Join(xdg.DataHome, AppName, AppName+".db")
}

// Path returns the path to the config file.
func Path() string {
	return filepath.Join(xdg.ConfigHome, AppName, ConfigFileName)
}

// Load reads the config file (defaults when missing), loads .env from the
// working directory if present and applies environment overrides.
func Load() (*Config, error) {
	cfg, err := LoadFile(Path())
	if err != nil {
		return nil, err
	}

	// A missing .env is normal
	_ = godotenv.Load()

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads one config file over the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.fillDefaults()
	return cfg, nil
}

func (c *Config) fillDefaults() {
	if c.Store.Driver == "" {
		c.Store.Driver = DefaultDriver
	}
	if c.Store.Path == "" {
		c.Store.Path = DefaultStorePath(c.Store.Driver)
	}
	if c.Analysis.Timeout <= 0 {
		c.Analysis.Timeout = Duration(DefaultAnalysisTimeout)
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

// ApplyEnv overrides fields from AGENCYCRM_* variables.
func (c *Config) ApplyEnv() error {
	driverSet := false
	pathSet := false

	strs := []struct {
		key string
		dst *string
		set *bool
	}{
		{"STORE_DRIVER", &c.Store.Driver, &driverSet},
		{"STORE_PATH", &c.Store.Path, &pathSet},
		{"STORE_COLLECTION", &c.Store.Collection, nil},
		{"ANALYSIS_ENDPOINT", &c.Analysis.Endpoint, nil},
		{"ANALYSIS_API_KEY", &c.Analysis.APIKey, nil},
		{"ANALYSIS_CLIENT_ID", &c.Analysis.ClientID, nil},
		{"ANALYSIS_CLIENT_SECRET", &c.Analysis.ClientSecret, nil},
		{"ANALYSIS_TOKEN_URL", &c.Analysis.TokenURL, nil},
		{"LOG_LEVEL", &c.Log.Level, nil},
		{"LOG_FORMAT", &c.Log.Format, nil},
		{"METRICS_ADDR", &c.Metrics.Addr, nil},
	}
	for _, s := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + s.key); ok {
			*s.dst = v
			if s.set != nil {
				*s.set = true
			}
		}
	}

	// Switching backend without a path moves to that backend's default location.
	if driverSet && !pathSet {
		c.Store.Path = DefaultStorePath(c.Store.Driver)
	}

	if v, ok := os.LookupEnv(EnvPrefix + "ANALYSIS_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sANALYSIS_TIMEOUT: %w", EnvPrefix, err)
		}
		c.Analysis.Timeout = Duration(d)
	}

	if v, ok := os.LookupEnv(EnvPrefix + "DEFERRED_ANALYSIS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sDEFERRED_ANALYSIS: %w", EnvPrefix, err)
		}
		c.Analysis.Deferred = b
	}

	c.fillDefaults()
	return nil
}

// Save persists the config to the XDG config file.
func (c *Config) Save() error {
	return c.SaveTo(Path())
}

// SaveTo writes the config to path with owner-only permissions.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}
