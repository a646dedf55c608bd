package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config captures environment driven configuration values for the scheduler service.
type Config struct {
	HTTPPort   int    `env:"SCHEDULER_HTTP_PORT" envDefault:"8080"`
	SQLitePath string `env:"SCHEDULER_SQLITE_PATH" envDefault:"scheduler.db"`
	Timezone   string `env:"SCHEDULER_TIMEZONE" envDefault:"Asia/Tokyo"`
	// ExpansionCeiling bounds how many days a recurrence rule may walk.
	ExpansionCeiling int           `env:"SCHEDULER_EXPANSION_CEILING" envDefault:"365"`
	HolidayCacheSize int           `env:"SCHEDULER_HOLIDAY_CACHE_SIZE" envDefault:"16"`
	LogLevel         string        `env:"SCHEDULER_LOG_LEVEL" envDefault:"info"`
	LogFormat        string        `env:"SCHEDULER_LOG_FORMAT" envDefault:"json"`
	ShutdownTimeout  time.Duration `env:"SCHEDULER_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	location *time.Location
}

// Location returns the loaded scheduling time zone.
func (c Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// Load reads an optional .env file from the working directory and then parses
// the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to read .env: %w", err)
	}
	return FromEnvironment()
}

// FromEnvironment parses configuration values from the current process
// environment.
//
// Defaults apply to unset variables. Values that fail to parse or fall outside
// their range are reported together with a localized message.
func FromEnvironment() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %w", err)
	}

	invalid := make([]string, 0, 2)

	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		invalid = append(invalid, "SCHEDULER_HTTP_PORT")
	}

	cfg.SQLitePath = strings.TrimSpace(cfg.SQLitePath)
	if cfg.SQLitePath == "" {
		invalid = append(invalid, "SCHEDULER_SQLITE_PATH")
	}

	loc, err := time.LoadLocation(strings.TrimSpace(cfg.Timezone))
	if err != nil {
		invalid = append(invalid, "SCHEDULER_TIMEZONE")
	} else {
		cfg.location = loc
	}

	if cfg.ExpansionCeiling <= 0 {
		invalid = append(invalid, "SCHEDULER_EXPANSION_CEILING")
	}
	if cfg.HolidayCacheSize <= 0 {
		invalid = append(invalid, "SCHEDULER_HOLIDAY_CACHE_SIZE")
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		invalid = append(invalid, "SCHEDULER_LOG_LEVEL")
	}

	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		invalid = append(invalid, "SCHEDULER_LOG_FORMAT")
	}

	if cfg.ShutdownTimeout <= 0 {
		invalid = append(invalid, "SCHEDULER_SHUTDOWN_TIMEOUT")
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
