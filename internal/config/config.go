// Package config loads and saves the strategraph configuration file.
//
// Configuration lives at ~/.config/strategraph/config.toml (honoring
// XDG_CONFIG_HOME) and covers the editor surface, document storage, the
// HTTP server, and the artifact cache. A missing file yields defaults;
// present keys override defaults section by section.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/robfig/cron/v3"

	"github.com/fbecker/strategraph/pkg/errors"
)

// appName is the application name used for directories and display.
const appName = "strategraph"

// Backend names accepted by [StoreConfig].
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendSQLite = "sqlite"
)

// Duration wraps time.Duration so TOML can carry values like "30s" or
// "168h".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the full configuration tree.
type Config struct {
	Canvas    CanvasConfig    `toml:"canvas"`
	Placement PlacementConfig `toml:"placement"`
	Input     InputConfig     `toml:"input"`
	Store     StoreConfig     `toml:"store"`
	Server    ServerConfig    `toml:"server"`
	Cache     CacheConfig     `toml:"cache"`
}

// CanvasConfig seeds the editor viewport before the host reports a real
// size.
type CanvasConfig struct {
	ViewportWidth  float64 `toml:"viewport_width"`
	ViewportHeight float64 `toml:"viewport_height"`
}

// PlacementConfig tunes automatic node placement.
type PlacementConfig struct {
	Margin      float64 `toml:"margin"`
	NodeSpacing float64 `toml:"node_spacing"`
	GridSize    float64 `toml:"grid_size"`
	MaxAttempts int     `toml:"max_attempts"`
}

// InputConfig tunes pointer handling.
type InputConfig struct {
	// DragThreshold is the travel in pixels separating a click from a
	// drag.
	DragThreshold float64 `toml:"drag_threshold"`
}

// StoreConfig selects and parameterizes the document store backend.
type StoreConfig struct {
	Backend string `toml:"backend"`

	// Path is the document directory for the file backend or the
	// database file for sqlite. Empty uses the backend's default under
	// the config directory.
	Path string `toml:"path"`

	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`

	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`

	// DraftRetention is how long unnamed autosaves are kept before
	// cleanup prunes them.
	DraftRetention Duration `toml:"draft_retention"`
}

// ServerConfig parameterizes `strategraph serve`.
type ServerConfig struct {
	Address string `toml:"address"`

	// CleanupSchedule is a standard 5-field cron expression for the
	// maintenance job (draft pruning and cache sweeping).
	CleanupSchedule string `toml:"cleanup_schedule"`
}

// CacheConfig parameterizes the rendered-artifact cache.
type CacheConfig struct {
	Enabled bool `toml:"enabled"`

	// Dir is the cache root. Empty uses the XDG cache directory.
	Dir string `toml:"dir"`

	// TTL bounds the lifetime of cached artifacts.
	TTL Duration `toml:"ttl"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Canvas: CanvasConfig{
			ViewportWidth:  1280,
			ViewportHeight: 800,
		},
		Placement: PlacementConfig{
			Margin:      20,
			NodeSpacing: 40,
			GridSize:    20,
			MaxAttempts: 50,
		},
		Input: InputConfig{
			DragThreshold: 5,
		},
		Store: StoreConfig{
			Backend:        BackendFile,
			DraftRetention: Duration{7 * 24 * time.Hour},
		},
		Server: ServerConfig{
			Address:         ":8787",
			CleanupSchedule: "0 * * * *",
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     Duration{24 * time.Hour},
		},
	}
}

// Load reads the configuration at path, or the default location when
// path is empty. A missing file is not an error; defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return cfg, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the configuration to path, or the default location when
// path is empty, creating parent directories as needed.
func Save(cfg Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "create config directory")
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "encode config")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "write config %s", path)
	}
	return nil
}

// Validate checks every section for values the rest of the system would
// reject later.
func (c Config) Validate() error {
	if c.Canvas.ViewportWidth <= 0 || c.Canvas.ViewportHeight <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig,
			"canvas viewport must be positive, got %gx%g",
			c.Canvas.ViewportWidth, c.Canvas.ViewportHeight)
	}
	if c.Placement.Margin < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "placement margin must not be negative")
	}
	if c.Placement.NodeSpacing <= 0 || c.Placement.GridSize <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig,
			"placement spacing and grid size must be positive")
	}
	if c.Placement.MaxAttempts <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "placement max attempts must be positive")
	}
	if c.Input.DragThreshold <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "drag threshold must be positive")
	}

	switch c.Store.Backend {
	case BackendMemory, BackendFile, BackendRedis, BackendMongo, BackendSQLite:
	default:
		return errors.New(errors.ErrCodeInvalidConfig,
			"unknown store backend %q (memory, file, redis, mongo, sqlite)", c.Store.Backend)
	}
	if c.Store.DraftRetention.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "draft retention must not be negative")
	}

	if c.Server.Address == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "server address must not be empty")
	}
	if c.Server.CleanupSchedule != "" {
		if _, err := cron.ParseStandard(c.Server.CleanupSchedule); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err,
				"invalid cleanup schedule %q", c.Server.CleanupSchedule)
		}
	}

	if c.Cache.TTL.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "cache TTL must not be negative")
	}
	return nil
}

// ConfigDir returns the configuration directory, honoring
// XDG_CONFIG_HOME.
func ConfigDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

// CacheDir returns the cache directory, honoring XDG_CACHE_HOME.
func CacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}
