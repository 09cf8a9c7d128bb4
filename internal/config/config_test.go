package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENVIRONMENT", "LOG_LEVEL", "REDIS_URL", "WORLD_TTL",
		"COMPRESS_SNAPSHOTS", "ACTIVITY_LOG_CAPACITY", "FEATURE_FLAGS_FILE", "AUDIT_DB_PATH",
		"DEFAULT_LOCALE", "WORKER_ID"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("Expected info level, got %v", cfg.LogLevel)
	}
	if !cfg.CompressSnapshots {
		t.Error("Expected snapshots to be compressed by default")
	}
	if cfg.ActivityLogCapacity != 100 {
		t.Errorf("Expected capacity 100, got %d", cfg.ActivityLogCapacity)
	}
	if cfg.WorldTTL != 0 {
		t.Errorf("Expected no TTL, got %v", cfg.WorldTTL)
	}
	if cfg.RedisAddr() != "redis://localhost:6379" {
		t.Errorf("Unexpected redis addr %s", cfg.RedisAddr())
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("WORLD_TTL", "2h")
	t.Setenv("COMPRESS_SNAPSHOTS", "false")
	t.Setenv("ACTIVITY_LOG_CAPACITY", "5")
	t.Setenv("REDIS_URL", "redis://cache:6380/1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("Expected debug level, got %v", cfg.LogLevel)
	}
	if cfg.WorldTTL != 2*time.Hour {
		t.Errorf("Expected 2h TTL, got %v", cfg.WorldTTL)
	}
	if cfg.CompressSnapshots {
		t.Error("Expected compression to be disabled")
	}
	if cfg.ActivityLogCapacity != 5 {
		t.Errorf("Expected capacity 5, got %d", cfg.ActivityLogCapacity)
	}
	if cfg.RedisAddr() != "redis://cache:6380/1" {
		t.Errorf("Unexpected redis addr %s", cfg.RedisAddr())
	}
}

func TestLoad_InvalidCapacity(t *testing.T) {
	t.Setenv("ACTIVITY_LOG_CAPACITY", "lots")
	if _, err := Load(); err == nil {
		t.Fatal("Expected an error for a non-numeric capacity")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"nonsense", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.expected {
			t.Errorf("parseLogLevel(%q) = %v, expected %v", tt.in, got, tt.expected)
		}
	}
}
