package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port        string     `env:"PORT" envDefault:"8080"`
	Environment string     `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelRaw string     `env:"LOG_LEVEL" envDefault:"info"`
	LogLevel    slog.Level `env:"-"`

	RedisURL          string        `env:"REDIS_URL" envDefault:"localhost:6379"`
	WorldTTL          time.Duration `env:"WORLD_TTL" envDefault:"0s"` // 0 keeps worlds forever
	CompressSnapshots bool          `env:"COMPRESS_SNAPSHOTS" envDefault:"true"`

	ActivityLogCapacity int    `env:"ACTIVITY_LOG_CAPACITY" envDefault:"100"`
	FeatureFlagsFile    string `env:"FEATURE_FLAGS_FILE"`
	AuditDBPath         string `env:"AUDIT_DB_PATH" envDefault:"audit.db"`
	DefaultLocale       string `env:"DEFAULT_LOCALE" envDefault:"en-US"`
	WorkerID            string `env:"WORKER_ID"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)
	return &cfg, nil
}

// RedisAddr returns the URL in the redis:// form that redis.ParseURL expects.
func (c *Config) RedisAddr() string {
	if strings.Contains(c.RedisURL, "://") {
		return c.RedisURL
	}
	return "redis://" + c.RedisURL
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
