package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// FileEnv names the environment variable pointing at an optional TOML file
const FileEnv = "LAUNCHER_CONFIG"

// Config holds all application configuration.
//
// Defaults come from Default(), an optional TOML file is layered on top,
// and environment variables are applied last.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Storage   StorageConfig   `toml:"storage"`
	Catalog   CatalogConfig   `toml:"catalog"`
	Transfer  TransferConfig  `toml:"transfer"`
	Install   InstallConfig   `toml:"install"`
	Uninstall UninstallConfig `toml:"uninstall"`
	Logging   LogConfig       `toml:"logging"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" toml:"port"`
	Host string `envconfig:"HOST" toml:"host"`
}

// StorageConfig holds on-disk locations. Empty values resolve to per-user defaults.
type StorageConfig struct {
	DataDir     string `envconfig:"LAUNCHER_DATA_DIR" toml:"data_dir"`
	DownloadDir string `envconfig:"LAUNCHER_DOWNLOAD_DIR" toml:"download_dir"`
}

// CatalogConfig holds catalog and release lookup settings.
type CatalogConfig struct {
	URL             string  `envconfig:"CATALOG_URL" toml:"url"`
	GitHubAPI       string  `envconfig:"GITHUB_API_URL" toml:"github_api"`
	GitHubToken     string  `envconfig:"GITHUB_TOKEN" toml:"github_token"`
	RequestsPerSec  float64 `envconfig:"GITHUB_RPS" toml:"github_rps"`
	LauncherRepo    string  `envconfig:"LAUNCHER_REPO" toml:"launcher_repo"`
	LauncherVersion string  `envconfig:"LAUNCHER_VERSION" toml:"launcher_version"`
}

// TransferConfig holds download settings.
type TransferConfig struct {
	HeaderTimeout Duration `envconfig:"TRANSFER_HEADER_TIMEOUT" toml:"header_timeout"`
	MaxRedirects  int      `envconfig:"TRANSFER_MAX_REDIRECTS" toml:"max_redirects"`
	UserAgent     string   `envconfig:"TRANSFER_USER_AGENT" toml:"user_agent"`
}

// InstallConfig holds archive install settings.
type InstallConfig struct {
	ExecutableExt  string   `envconfig:"INSTALL_EXECUTABLE_EXT" toml:"executable_ext"`
	DiscoveryDepth int      `envconfig:"INSTALL_DISCOVERY_DEPTH" toml:"discovery_depth"`
	TickInterval   Duration `envconfig:"INSTALL_TICK" toml:"tick"`
}

// UninstallConfig holds removal settings.
type UninstallConfig struct {
	SettleDelay Duration `envconfig:"UNINSTALL_SETTLE" toml:"settle"`
	Retries     int      `envconfig:"UNINSTALL_RETRIES" toml:"retries"`
	RetryDelay  Duration `envconfig:"UNINSTALL_RETRY_DELAY" toml:"retry_delay"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" toml:"development"`
	File        string `envconfig:"LOG_FILE" toml:"file"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" toml:"rps"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" toml:"enabled"`
}

// Duration is a time.Duration that decodes from strings like "500ms"
type Duration struct {
	time.Duration
}

// D constructs a Duration
func D(d time.Duration) Duration {
	return Duration{Duration: d}
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Load loads configuration from defaults, the optional TOML file, and the environment.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(FileEnv); path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// LoadFile overlays a TOML file onto cfg. Keys missing from the file keep their current values.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8765",
			Host: "127.0.0.1",
		},
		Catalog: CatalogConfig{
			URL:             "https://raw.githubusercontent.com/Smallzoamz/bonchon-launcher-catalog/main/app-catalog.json",
			GitHubAPI:       "https://api.github.com",
			RequestsPerSec:  1,
			LauncherRepo:    "Smallzoamz/Bonchon-Studio",
			LauncherVersion: "1.0.0",
		},
		Transfer: TransferConfig{
			HeaderTimeout: D(30 * time.Second),
			MaxRedirects:  10,
			UserAgent:     "Bonchon-Launcher",
		},
		Install: InstallConfig{
			ExecutableExt:  ".exe",
			DiscoveryDepth: 5,
			TickInterval:   D(200 * time.Millisecond),
		},
		Uninstall: UninstallConfig{
			SettleDelay: D(1500 * time.Millisecond),
			Retries:     2,
			RetryDelay:  D(time.Second),
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 50,
			Burst:             100,
			Enabled:           true,
		},
	}
}
