// Package config loads runtime settings from defaults, an optional
// moodmap.yaml file, a .env file and MOODMAP_* environment variables, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/sakif/moodmap/internal/apperror"
)

// Storage backends.
const (
	BackendSQLite   = "sqlite"
	BackendDiskv    = "diskv"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

const (
	DefaultTileURL     = "https://{s}.tile.openstreetmap.fr/hot/{z}/{x}/{y}.png"
	DefaultAttribution = `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`
	DefaultZoom        = 13
	MaxZoom            = 19
)

// Config is the full application configuration.
type Config struct {
	Port        int
	LogLevel    string
	TemplateDir string
	StaticDir   string
	Storage     Storage
	Map         Map
	Position    Position
}

// Storage selects and configures the key-value backend.
type Storage struct {
	Backend     string
	Key         string
	Path        string // sqlite file or diskv directory
	RedisAddr   string
	PostgresDSN string
}

// Map configures the map view.
type Map struct {
	Zoom        int
	TileURL     string
	Attribution string
}

// Position is a fixed device position for headless use (the CLI). Set is
// false when neither coordinate was configured.
type Position struct {
	Latitude  float64
	Longitude float64
	Set       bool
}

// Load reads the configuration. configFile may be empty, in which case
// moodmap.yaml is looked up in the working directory and in ~/.moodmap.
func Load(configFile string) (*Config, error) {
	// A missing .env is normal; everything else about it is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: loading .env: %w", err)
	}

	home, err := dataDir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("template_dir", "web/templates")
	v.SetDefault("static_dir", "web/static")
	v.SetDefault("storage.backend", BackendSQLite)
	v.SetDefault("storage.key", "emotions")
	v.SetDefault("storage.path", "")
	v.SetDefault("storage.redis_addr", "localhost:6379")
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("map.zoom", DefaultZoom)
	v.SetDefault("map.tile_url", DefaultTileURL)
	v.SetDefault("map.attribution", DefaultAttribution)

	v.SetEnvPrefix("MOODMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only covers keys viper already knows about.
	for _, key := range []string{"position.latitude", "position.longitude"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("config: binding %s: %w", key, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("moodmap") // .yaml is implicit
		v.AddConfigPath(".")
		v.AddConfigPath(home)
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	cfg := &Config{
		Port:        v.GetInt("port"),
		LogLevel:    v.GetString("log_level"),
		TemplateDir: v.GetString("template_dir"),
		StaticDir:   v.GetString("static_dir"),
		Storage: Storage{
			Backend:     strings.ToLower(v.GetString("storage.backend")),
			Key:         v.GetString("storage.key"),
			Path:        v.GetString("storage.path"),
			RedisAddr:   v.GetString("storage.redis_addr"),
			PostgresDSN: v.GetString("storage.postgres_dsn"),
		},
		Map: Map{
			Zoom:        v.GetInt("map.zoom"),
			TileURL:     v.GetString("map.tile_url"),
			Attribution: v.GetString("map.attribution"),
		},
		Position: Position{
			Latitude:  v.GetFloat64("position.latitude"),
			Longitude: v.GetFloat64("position.longitude"),
			Set:       v.IsSet("position.latitude") || v.IsSet("position.longitude"),
		},
	}

	if cfg.Storage.Path == "" {
		cfg.Storage.Path = defaultStoragePath(home, cfg.Storage.Backend)
	}
	if cfg.Storage.Path, err = homedir.Expand(cfg.Storage.Path); err != nil {
		return nil, fmt.Errorf("config: expanding storage path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail much later.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return apperror.ValidationFailed("port", fmt.Sprintf("port %d out of range", c.Port))
	}
	switch c.Storage.Backend {
	case BackendSQLite, BackendDiskv, BackendRedis:
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return apperror.ValidationFailed("storage.postgres_dsn", "postgres backend needs storage.postgres_dsn")
		}
	default:
		return apperror.ValidationFailed("storage.backend",
			fmt.Sprintf("unknown storage backend %q", c.Storage.Backend))
	}
	if strings.TrimSpace(c.Storage.Key) == "" {
		return apperror.ValidationFailed("storage.key", "storage key is required")
	}
	if c.Map.Zoom < 0 || c.Map.Zoom > MaxZoom {
		return apperror.ValidationFailed("map.zoom", fmt.Sprintf("zoom must be between 0 and %d", MaxZoom))
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level, defaulting to Info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// dataDir is ~/.moodmap.
func dataDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("config: finding home directory: %w", err)
	}
	return filepath.Join(home, ".moodmap"), nil
}

func defaultStoragePath(dir, backend string) string {
	if backend == BackendDiskv {
		return filepath.Join(dir, "store")
	}
	return filepath.Join(dir, "moodmap.db")
}
