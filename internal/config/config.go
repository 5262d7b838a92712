package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const appName = "postlens"

// Supported backends
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	PlatformAPI     = "api"
	PlatformBrowser = "browser"

	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"

	CacheFile  = "file"
	CacheRedis = "redis"
)

// Config holds all application configuration
type Config struct {
	Version  int            `toml:"version"`
	Database DatabaseConfig `toml:"database"`
	Platform PlatformConfig `toml:"platform"`
	Analysis AnalysisConfig `toml:"analysis"`
	Cache    CacheConfig    `toml:"cache"`
	Timeouts TimeoutsConfig `toml:"timeouts"`
	Server   ServerConfig   `toml:"server"`
	Watch    WatchConfig    `toml:"watch"`
	Log      LogConfig      `toml:"log"`
	Debug    DebugConfig    `toml:"debug"`
}

type DatabaseConfig struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

type PlatformConfig struct {
	Backend           string `toml:"backend"`
	BaseURL           string `toml:"base_url"`
	BearerToken       string `toml:"bearer_token"`
	MaxResults        int    `toml:"max_results"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
	Headless          bool   `toml:"headless"`
}

type AnalysisConfig struct {
	Provider    string  `toml:"provider"`
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
}

type CacheConfig struct {
	Backend       string   `toml:"backend"`
	Dir           string   `toml:"dir"`
	TTL           Duration `toml:"ttl"`
	RedisAddr     string   `toml:"redis_addr"`
	RedisPassword string   `toml:"redis_password"`
	RedisPrefix   string   `toml:"redis_prefix"`
}

// TimeoutsConfig bounds every external call made by a pipeline run
type TimeoutsConfig struct {
	Platform Duration `toml:"platform"`
	Store    Duration `toml:"store"`
	Finance  Duration `toml:"finance"`
	Analysis Duration `toml:"analysis"`
	Cache    Duration `toml:"cache"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type WatchConfig struct {
	Schedule string   `toml:"schedule"`
	Timezone string   `toml:"timezone"`
	Entities []string `toml:"entities"`
}

type LogConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

type DebugConfig struct {
	DumpSteps bool `toml:"dump_steps"`
}

// Duration is a time.Duration written as a string ("90s", "1h") in TOML
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version: 1,
		Database: DatabaseConfig{
			Driver: DriverSQLite,
		},
		Platform: PlatformConfig{
			Backend:           PlatformAPI,
			BaseURL:           "https://api.x.com",
			MaxResults:        5,
			RequestsPerMinute: 60,
			Headless:          true,
		},
		Analysis: AnalysisConfig{
			Provider:    ProviderGemini,
			Model:       "gemini-2.5-flash",
			MaxTokens:   4096,
			Temperature: 0.4,
		},
		Cache: CacheConfig{
			Backend:     CacheFile,
			TTL:         Duration{time.Hour},
			RedisPrefix: appName + ":analysis",
		},
		Timeouts: TimeoutsConfig{
			Platform: Duration{20 * time.Second},
			Store:    Duration{5 * time.Second},
			Finance:  Duration{10 * time.Second},
			Analysis: Duration{120 * time.Second}, // LLM calls can be slow
			Cache:    Duration{2 * time.Second},
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
		Watch: WatchConfig{
			Schedule: "0 */6 * * *",
			Timezone: "America/New_York",
			Entities: []string{},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks that backends are known and limits are usable
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unknown database driver: %s", c.Database.Driver)
	}
	switch c.Platform.Backend {
	case PlatformAPI, PlatformBrowser:
	default:
		return fmt.Errorf("unknown platform backend: %s", c.Platform.Backend)
	}
	switch c.Analysis.Provider {
	case ProviderGemini, ProviderAnthropic:
	default:
		return fmt.Errorf("unknown LLM provider: %s", c.Analysis.Provider)
	}
	switch c.Cache.Backend {
	case CacheFile, CacheRedis:
	default:
		return fmt.Errorf("unknown cache backend: %s", c.Cache.Backend)
	}
	if c.Platform.MaxResults < 1 {
		return fmt.Errorf("platform.max_results must be at least 1, got %d", c.Platform.MaxResults)
	}
	if c.Cache.TTL.Duration <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}

	// Every external call is bounded; a zero timeout would disable the deadline.
	timeouts := []struct {
		name string
		d    Duration
	}{
		{"platform", c.Timeouts.Platform},
		{"store", c.Timeouts.Store},
		{"finance", c.Timeouts.Finance},
		{"analysis", c.Timeouts.Analysis},
		{"cache", c.Timeouts.Cache},
	}
	for _, t := range timeouts {
		if t.d.Duration <= 0 {
			return fmt.Errorf("timeouts.%s must be positive, got %s", t.name, t.d.Duration)
		}
	}
	return nil
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, appName), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// CacheDir returns the platform-appropriate cache directory.
// On macOS this is ~/Library/Caches/postlens/
func CacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, appName), nil
}

// DefaultDatabasePath returns where the sqlite database lives when no DSN is set
func DefaultDatabasePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName+".db"), nil
}

// Load reads config from path, or from ConfigPath when path is empty.
// Values from .env and the environment override the file.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	loadDotEnv()
	cfg.applyEnvOverrides()

	return cfg, nil
}

// LoadOrCreate is Load, except a missing file is first created with the
// defaults. created reports whether that happened.
func LoadOrCreate(path string) (cfg *Config, created bool, err error) {
	cfg, err = Load(path)
	if !errors.Is(err, os.ErrNotExist) {
		return cfg, false, err
	}

	if path == "" {
		err = Default().Save()
	} else {
		err = Default().SaveTo(path)
	}
	if err != nil {
		return nil, false, err
	}

	cfg, err = Load(path)
	return cfg, err == nil, err
}

// Save writes config to the default config path
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes config to path, creating its directory
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}
