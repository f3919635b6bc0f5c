package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds CLI defaults loaded from the config file.
// Command-line flags override config values.
type Config struct {
	// TopTypes is the default number of type records shown by analyze.
	TopTypes int `toml:"top_types"`

	// MaxPaths is the default reference-path cap.
	MaxPaths int `toml:"max_paths"`

	Cache  CacheConfig  `toml:"cache"`
	Server ServerConfig `toml:"server"`
}

// CacheConfig controls the analysis cache.
type CacheConfig struct {
	// Dir overrides the XDG cache directory.
	Dir string `toml:"dir"`

	// Disabled turns off caching entirely.
	Disabled bool `toml:"disabled"`

	// RedisAddr selects the redis backend for the serve command
	// (host:port). Empty means the file cache.
	RedisAddr string `toml:"redis_addr"`

	// RedisDB is the redis database number.
	RedisDB int `toml:"redis_db"`
}

// ServerConfig controls the serve command.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `toml:"addr"`

	// MaxSnapshots bounds the in-memory snapshot registry.
	MaxSnapshots int `toml:"max_snapshots"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		TopTypes: 20,
		MaxPaths: 5,
		Server: ServerConfig{
			Addr:         ":8372",
			MaxSnapshots: 32,
		},
	}
}

// defaultConfigPath returns ~/.config/heapscope/config.toml, honoring
// XDG_CONFIG_HOME.
func defaultConfigPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// LoadConfig reads the config file at path, or the default location if
// path is empty. A missing default file yields the built-in defaults; a
// missing explicit file is an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		var err error
		path, err = defaultConfigPath()
		if err != nil {
			return cfg, nil
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if explicit {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
