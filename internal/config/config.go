// Package config loads runtime settings from an optional YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"kanban/internal/util"
)

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverJSON   = "json"
)

// Config keeps runtime settings for the server.
type Config struct {
	Addr      string  `yaml:"addr"`
	StaticDir string  `yaml:"static_dir"`
	Storage   Storage `yaml:"storage"`
	Log       Log     `yaml:"log"`
}

// Storage selects the persistence backend.
type Storage struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// Log configures the process logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Addr:      ":8080",
		StaticDir: "web/dist",
		Storage:   Storage{Driver: DriverSQLite, Path: "data/kanban.db"},
		Log:       Log{Level: "info", Format: "text"},
	}
}

// Load starts from Default, overlays the YAML file at path when path is not
// empty, then overlays KANBAN_* environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.Addr = util.EnvOrDefault("KANBAN_ADDR", cfg.Addr)
	cfg.StaticDir = util.EnvOrDefault("KANBAN_STATIC_DIR", cfg.StaticDir)
	cfg.Storage.Driver = util.EnvOrDefault("KANBAN_STORAGE", cfg.Storage.Driver)
	cfg.Storage.Path = util.EnvOrDefault("KANBAN_DB_PATH", cfg.Storage.Path)
	cfg.Log.Level = util.EnvOrDefault("KANBAN_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = util.EnvOrDefault("KANBAN_LOG_FORMAT", cfg.Log.Format)

	return cfg, cfg.Validate()
}

// Validate checks that the settings can be used to start the server.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite, DriverJSON:
		if strings.TrimSpace(c.Storage.Path) == "" {
			errs = append(errs, fmt.Errorf("storage path is required for driver %q", c.Storage.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// ParseLevel parses a log level string into slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger writing to w.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(c.Log.Level)}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
