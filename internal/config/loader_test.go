package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

var variables = []string{
	"SCHEDULER_HTTP_PORT",
	"SCHEDULER_SQLITE_PATH",
	"SCHEDULER_TIMEZONE",
	"SCHEDULER_EXPANSION_CEILING",
	"SCHEDULER_HOLIDAY_CACHE_SIZE",
	"SCHEDULER_LOG_LEVEL",
	"SCHEDULER_LOG_FORMAT",
	"SCHEDULER_SHUTDOWN_TIMEOUT",
}

// unsetAll clears every scheduler variable and restores them after the test.
func unsetAll(t *testing.T) {
	t.Helper()
	for _, key := range variables {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("failed to unset %s: %v", key, err)
		}
	}
}

func TestLoader_ParseEnvironment(t *testing.T) {

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		unsetAll(t)

		cfg, err := FromEnvironment()
		if err != nil {
			t.Fatalf("FromEnvironment returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.SQLitePath != "scheduler.db" {
			t.Fatalf("unexpected default path: %q", cfg.SQLitePath)
		}
		if cfg.ExpansionCeiling != 365 || cfg.HolidayCacheSize != 16 {
			t.Fatalf("unexpected defaults: %+v", cfg)
		}
		if cfg.LogLevel != "info" || cfg.LogFormat != "json" || cfg.ShutdownTimeout != 10*time.Second {
			t.Fatalf("unexpected logging defaults: %+v", cfg)
		}
		if cfg.Location().String() != "Asia/Tokyo" {
			t.Fatalf("expected Asia/Tokyo, got %s", cfg.Location())
		}
	})

	t.Run("parses duration and numeric fields", func(t *testing.T) {
		unsetAll(t)
		t.Setenv("SCHEDULER_HTTP_PORT", "9090")
		t.Setenv("SCHEDULER_SQLITE_PATH", " /tmp/scheduler.db ")
		t.Setenv("SCHEDULER_TIMEZONE", "UTC")
		t.Setenv("SCHEDULER_EXPANSION_CEILING", "730")
		t.Setenv("SCHEDULER_LOG_LEVEL", "DEBUG")
		t.Setenv("SCHEDULER_LOG_FORMAT", "text")
		t.Setenv("SCHEDULER_SHUTDOWN_TIMEOUT", "30s")

		cfg, err := FromEnvironment()
		if err != nil {
			t.Fatalf("FromEnvironment returned error: %v", err)
		}

		if cfg.HTTPPort != 9090 {
			t.Fatalf("expected HTTP port 9090, got %d", cfg.HTTPPort)
		}
		if cfg.SQLitePath != "/tmp/scheduler.db" {
			t.Fatalf("unexpected path: %q", cfg.SQLitePath)
		}
		if cfg.ExpansionCeiling != 730 {
			t.Fatalf("expected ceiling 730, got %d", cfg.ExpansionCeiling)
		}
		if cfg.LogLevel != "debug" || cfg.LogFormat != "text" {
			t.Fatalf("expected normalized logging settings, got %q %q", cfg.LogLevel, cfg.LogFormat)
		}
		if cfg.ShutdownTimeout != 30*time.Second {
			t.Fatalf("expected shutdown timeout 30s, got %s", cfg.ShutdownTimeout)
		}
		if cfg.Location() != time.UTC {
			t.Fatalf("expected UTC location, got %s", cfg.Location())
		}
	})

	t.Run("reports every out of range value", func(t *testing.T) {
		unsetAll(t)
		t.Setenv("SCHEDULER_HTTP_PORT", "0")
		t.Setenv("SCHEDULER_TIMEZONE", "Mars/Olympus")
		t.Setenv("SCHEDULER_LOG_FORMAT", "xml")

		_, err := FromEnvironment()
		if err == nil {
			t.Fatalf("expected error for invalid values")
		}
		expected := "環境変数の値が不正です: SCHEDULER_HTTP_PORT, SCHEDULER_TIMEZONE, SCHEDULER_LOG_FORMAT"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("reports unparsable values", func(t *testing.T) {
		unsetAll(t)
		t.Setenv("SCHEDULER_SHUTDOWN_TIMEOUT", "soon")

		_, err := FromEnvironment()
		if err == nil || !strings.HasPrefix(err.Error(), "環境変数の値が不正です") {
			t.Fatalf("expected localized parse error, got %v", err)
		}
	})

	t.Run("zero location falls back to UTC", func(t *testing.T) {
		if (Config{}).Location() != time.UTC {
			t.Fatalf("expected UTC fallback")
		}
	})
}
