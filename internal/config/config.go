// Package config resolves devc's configuration and installation directories.
//
// All components receive an explicit *Config built once at startup; nothing
// outside this package reads environment variables for paths. Overrides:
//
//	DEVC_HOME         root for all three dirs (runtime/, cache/, config/)
//	DEVC_RUNTIME_DIR  currently active executable and support files
//	DEVC_CACHE_DIR    transient artifacts, always safely deletable
//	DEVC_CONFIG_DIR   user configuration, untouched by updates
//
// With no overrides the XDG base directory conventions apply.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// SettingsFileName is the optional user settings file under the config dir.
const SettingsFileName = "config.toml"

// UpdateSettings controls the self-update subsystem.
type UpdateSettings struct {
	Owner           string `toml:"owner"`
	Repo            string `toml:"repo"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	Retries         int    `toml:"retries"`
	LockWaitSeconds int    `toml:"lock_wait_seconds"`
}

// ScaffoldSettings controls project scaffolding defaults.
type ScaffoldSettings struct {
	DefaultProfile string `toml:"default_profile"`
	ImageRegistry  string `toml:"image_registry"`
}

// Settings is the parsed contents of config.toml.
type Settings struct {
	Update   UpdateSettings   `toml:"update"`
	Scaffold ScaffoldSettings `toml:"scaffold"`
}

// Config carries the resolved directories and user settings for one
// invocation. Construct with Load and pass it down explicitly.
type Config struct {
	RuntimeDir string
	CacheDir   string
	ConfigDir  string
	Settings   Settings
}

// defaultSettings returns the built-in settings used when config.toml is
// absent or leaves fields unset.
func defaultSettings() Settings {
	return Settings{
		Update: UpdateSettings{
			Owner:           "devcforge",
			Repo:            "devc",
			TimeoutSeconds:  30,
			Retries:         3,
			LockWaitSeconds: 30,
		},
		Scaffold: ScaffoldSettings{
			DefaultProfile: "base",
			ImageRegistry:  "mcr.microsoft.com/devcontainers",
		},
	}
}

// Load resolves directories from the environment and reads config.toml if
// present. It creates the cache and config directories, which is idempotent
// and safe to do on every invocation. The runtime directory is never created
// here; its lifecycle belongs to the update and migration subsystems.
func Load() (*Config, error) {
	cfg, err := resolveDirs()
	if err != nil {
		return nil, err
	}

	for _, dir := range []string{cfg.CacheDir, cfg.ConfigDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	cfg.Settings = defaultSettings()
	settingsPath := filepath.Join(cfg.ConfigDir, SettingsFileName)
	data, err := os.ReadFile(settingsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", settingsPath, err)
	}
	if err := toml.Unmarshal(data, &cfg.Settings); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", settingsPath, err)
	}
	applyDefaults(&cfg.Settings)

	return cfg, nil
}

// resolveDirs determines the three installation directories from environment
// overrides and platform conventions.
func resolveDirs() (*Config, error) {
	if root := os.Getenv("DEVC_HOME"); root != "" {
		return &Config{
			RuntimeDir: filepath.Join(root, "runtime"),
			CacheDir:   filepath.Join(root, "cache"),
			ConfigDir:  filepath.Join(root, "config"),
		}, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to determine home directory: %w", err)
	}

	cfg := &Config{}

	if cfg.RuntimeDir = os.Getenv("DEVC_RUNTIME_DIR"); cfg.RuntimeDir == "" {
		dataDir := os.Getenv("XDG_DATA_HOME")
		if dataDir == "" {
			dataDir = filepath.Join(home, ".local", "share")
		}
		cfg.RuntimeDir = filepath.Join(dataDir, "devc")
	}

	if cfg.CacheDir = os.Getenv("DEVC_CACHE_DIR"); cfg.CacheDir == "" {
		cacheDir := os.Getenv("XDG_CACHE_HOME")
		if cacheDir == "" {
			cacheDir = filepath.Join(home, ".cache")
		}
		cfg.CacheDir = filepath.Join(cacheDir, "devc")
	}

	if cfg.ConfigDir = os.Getenv("DEVC_CONFIG_DIR"); cfg.ConfigDir == "" {
		configDir := os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			configDir = filepath.Join(home, ".config")
		}
		cfg.ConfigDir = filepath.Join(configDir, "devc")
	}

	return cfg, nil
}

// applyDefaults fills unset settings fields with built-in values so a
// partial config.toml does not zero out timeouts or repository coordinates.
func applyDefaults(s *Settings) {
	def := defaultSettings()
	if s.Update.Owner == "" {
		s.Update.Owner = def.Update.Owner
	}
	if s.Update.Repo == "" {
		s.Update.Repo = def.Update.Repo
	}
	if s.Update.TimeoutSeconds <= 0 {
		s.Update.TimeoutSeconds = def.Update.TimeoutSeconds
	}
	if s.Update.Retries <= 0 {
		s.Update.Retries = def.Update.Retries
	}
	if s.Update.LockWaitSeconds <= 0 {
		s.Update.LockWaitSeconds = def.Update.LockWaitSeconds
	}
	if s.Scaffold.DefaultProfile == "" {
		s.Scaffold.DefaultProfile = def.Scaffold.DefaultProfile
	}
	if s.Scaffold.ImageRegistry == "" {
		s.Scaffold.ImageRegistry = def.Scaffold.ImageRegistry
	}
}

// LockWait returns the configured lock acquisition timeout.
func (c *Config) LockWait() time.Duration {
	return time.Duration(c.Settings.Update.LockWaitSeconds) * time.Second
}

// DownloadTimeout returns the configured network timeout for downloads.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Settings.Update.TimeoutSeconds) * time.Second
}
