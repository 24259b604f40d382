package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const appName = "wavelet"

// Environment overrides, applied after config files.
const (
	EnvLogLevel = "WAVELET_LOG_LEVEL"
	EnvListen   = "WAVELET_LISTEN"
)

type Config struct {
	Log     LogConfig     `koanf:"log"`
	Server  ServerConfig  `koanf:"server"`
	Session SessionConfig `koanf:"session"`
	MPRIS   ToggleConfig  `koanf:"mpris"`
	Notify  ToggleConfig  `koanf:"notify"`
	Catalog CatalogConfig `koanf:"catalog"`
}

// LogConfig controls the zap logger and its rotated file.
type LogConfig struct {
	Level      string `koanf:"level"` // debug, info, warn, error (default: info)
	File       string `koanf:"file"`  // default: $XDG_STATE_HOME/wavelet/wavelet.log
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
	Compress   bool   `koanf:"compress"`
}

// ServerConfig controls the HTTP/WebSocket control surface.
type ServerConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Listen     string `koanf:"listen"`      // default: 127.0.0.1:7878
	SendBuffer int    `koanf:"send_buffer"` // per-socket outbound messages (default: 16)
}

// SessionConfig controls the playback session.
type SessionConfig struct {
	TickInterval time.Duration `koanf:"tick_interval"` // default: 1s
}

// ToggleConfig is a section that only switches a feature on or off.
type ToggleConfig struct {
	Enabled *bool `koanf:"enabled"` // default: true
}

// CatalogConfig locates the track database.
type CatalogConfig struct {
	Path string `koanf:"path"` // default: $XDG_DATA_HOME/wavelet/catalog.db
}

// Load reads .env, the config files and environment overrides.
// explicit, when set, replaces the local ./config.toml and must exist.
func Load(explicit string) (*Config, error) {
	// .env never overrides variables already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	k := koanf.New(".")
	for _, path := range getConfigPaths(explicit) {
		if _, err := os.Stat(path); err != nil {
			if path == explicit {
				return nil, err
			}
			continue
		}
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		cfg.Log.Level = v
	}
	if v, ok := os.LookupEnv(EnvListen); ok {
		cfg.Server.Listen = v
		cfg.Server.Enabled = true
	}

	cfg.Log.File = expandPath(cfg.Log.File)
	cfg.Catalog.Path = expandPath(cfg.Catalog.Path)
	return cfg, nil
}

func getConfigPaths(explicit string) []string {
	paths := []string{
		// 1. $XDG_CONFIG_HOME/wavelet/config.toml
		filepath.Join(xdg.ConfigHome, appName, "config.toml"),
	}
	// 2. --config, or ./config.toml (highest priority)
	if explicit != "" {
		return append(paths, explicit)
	}
	return append(paths, "config.toml")
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// GetLogConfig returns the log configuration with defaults applied.
func (c *Config) GetLogConfig() LogConfig {
	cfg := c.Log
	cfg.Level = strings.ToLower(strings.TrimSpace(cfg.Level))
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.File == "" {
		cfg.File = filepath.Join(xdg.StateHome, appName, appName+".log")
	}
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 3
	}
	if cfg.MaxAgeDays <= 0 {
		cfg.MaxAgeDays = 28
	}
	return cfg
}

// GetServerConfig returns the server configuration with defaults applied.
func (c *Config) GetServerConfig() ServerConfig {
	cfg := c.Server
	if cfg.Listen == "" {
		cfg.Listen = "127.0.0.1:7878"
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 16
	}
	return cfg
}

// TickInterval returns the session tick interval (default 1s).
func (c *Config) TickInterval() time.Duration {
	if c.Session.TickInterval <= 0 {
		return time.Second
	}
	return c.Session.TickInterval
}

// MPRISEnabled reports whether the MPRIS bridge should start.
func (c *Config) MPRISEnabled() bool {
	return c.MPRIS.enabled()
}

// NotifyEnabled reports whether desktop notifications are shown.
func (c *Config) NotifyEnabled() bool {
	return c.Notify.enabled()
}

func (t ToggleConfig) enabled() bool {
	return t.Enabled == nil || *t.Enabled
}

// CatalogPath returns the catalog database path, defaulting to the XDG data dir.
func (c *Config) CatalogPath() (string, error) {
	if c.Catalog.Path != "" {
		return c.Catalog.Path, nil
	}
	return xdg.DataFile(filepath.Join(appName, "catalog.db"))
}
