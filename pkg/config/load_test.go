package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "uidthrottle.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
throttle:
  window: 500ms
  max_entries: 64
  limits:
    - uid: 1000
      rate: 1048576
    - uid: 1001
      rate: -1

control:
  file:
    path: /var/run/uidthrottle/ctl
  http:
    enabled: false

server:
  listen_address: "0.0.0.0:9292"

store:
  backend: sqlite
  sqlite:
    path: /var/lib/uidthrottle/limits.db

audit:
  enabled: false

telemetry:
  logging:
    level: debug
    format: text
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Throttle.Window != 500*time.Millisecond {
		t.Errorf("Throttle.Window = %v, want 500ms", cfg.Throttle.Window)
	}
	if cfg.Throttle.MaxEntries != 64 {
		t.Errorf("Throttle.MaxEntries = %d, want 64", cfg.Throttle.MaxEntries)
	}
	if len(cfg.Throttle.Limits) != 2 || cfg.Throttle.Limits[0] != (LimitConfig{UID: 1000, Rate: 1048576}) {
		t.Errorf("Throttle.Limits = %+v", cfg.Throttle.Limits)
	}
	if cfg.Control.File.Path != "/var/run/uidthrottle/ctl" {
		t.Errorf("Control.File.Path = %q", cfg.Control.File.Path)
	}
	if !cfg.Control.File.Enabled {
		t.Error("Control.File.Enabled = false, want default true")
	}
	if cfg.Control.HTTP.Enabled {
		t.Error("Control.HTTP.Enabled = true, want explicit false")
	}
	if cfg.Audit.Enabled {
		t.Error("Audit.Enabled = true, want explicit false")
	}
	if cfg.Server.ListenAddress != "0.0.0.0:9292" {
		t.Errorf("Server.ListenAddress = %q", cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout != DefaultReadTimeout {
		t.Errorf("Server.ReadTimeout = %v, want default", cfg.Server.ReadTimeout)
	}
	if cfg.Store.Backend != "sqlite" || cfg.Store.SQLite.BusyTimeout != DefaultSQLiteBusyTimeout {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Telemetry.Logging.Level != "debug" || cfg.Telemetry.Logging.Format != "text" {
		t.Errorf("Logging = %+v", cfg.Telemetry.Logging)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "invalid yaml", content: "throttle: [", want: "failed to parse"},
		{name: "unknown field", content: "throttle:\n  burst: 10\n", want: "failed to parse"},
		{name: "invalid value", content: "throttle:\n  window: -1s\n", want: "throttle.window"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("LoadConfig() error = nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want mention of %q", err, tt.want)
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadConfig(missing) error = %v, want ErrNotExist", err)
	}
}

func TestLoadConfig_EmptyFile(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Throttle.Window != DefaultWindow || cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("empty file did not produce defaults: %+v", cfg)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())

	path := writeConfig(t, `
throttle:
  window: 2s
server:
  listen_address: "127.0.0.1:9000"
`)

	t.Setenv("UIDTHROTTLE_THROTTLE_WINDOW", "250ms")
	t.Setenv("UIDTHROTTLE_THROTTLE_MAX_ENTRIES", "32")
	t.Setenv("UIDTHROTTLE_CONTROL_FILE_ENABLED", "false")
	t.Setenv("UIDTHROTTLE_STORE_BACKEND", "redis")
	t.Setenv("UIDTHROTTLE_STORE_REDIS_PASSWORD", "secret")
	t.Setenv("UIDTHROTTLE_TELEMETRY_LOGGING_LEVEL", "warn")
	t.Setenv("UIDTHROTTLE_AUDIT_BUFFER", "not-a-number")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}

	if cfg.Throttle.Window != 250*time.Millisecond {
		t.Errorf("Throttle.Window = %v, want 250ms", cfg.Throttle.Window)
	}
	if cfg.Throttle.MaxEntries != 32 {
		t.Errorf("Throttle.MaxEntries = %d, want 32", cfg.Throttle.MaxEntries)
	}
	if cfg.Control.File.Enabled {
		t.Error("Control.File.Enabled = true, want false")
	}
	if cfg.Store.Backend != "redis" || cfg.Store.Redis.Password != "secret" {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Telemetry.Logging.Level)
	}
	if cfg.Server.ListenAddress != "127.0.0.1:9000" {
		t.Errorf("Server.ListenAddress = %q, want file value", cfg.Server.ListenAddress)
	}
	if cfg.Audit.Buffer != DefaultAuditBuffer {
		t.Errorf("Audit.Buffer = %d, want default after unparsable override", cfg.Audit.Buffer)
	}
}

func TestLoadConfigWithEnvOverrides_InvalidOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("UIDTHROTTLE_STORE_BACKEND", "etcd")

	_, err := LoadConfigWithEnvOverrides("")
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
}

func TestLoadConfigWithEnvOverrides_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	dotenv := "UIDTHROTTLE_SERVER_LISTEN_ADDRESS=127.0.0.1:7777\nUIDTHROTTLE_THROTTLE_MAX_ENTRIES=16\n"
	if err := os.WriteFile(filepath.Join(dir, DotEnvFile), []byte(dotenv), 0644); err != nil {
		t.Fatal(err)
	}
	// Real environment wins over .env.
	t.Setenv("UIDTHROTTLE_THROTTLE_MAX_ENTRIES", "8")
	// Registers cleanup for a variable the .env file sets.
	t.Setenv("UIDTHROTTLE_SERVER_LISTEN_ADDRESS", "")
	os.Unsetenv("UIDTHROTTLE_SERVER_LISTEN_ADDRESS")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}
	if cfg.Server.ListenAddress != "127.0.0.1:7777" {
		t.Errorf("Server.ListenAddress = %q, want value from .env", cfg.Server.ListenAddress)
	}
	if cfg.Throttle.MaxEntries != 8 {
		t.Errorf("Throttle.MaxEntries = %d, want environment value", cfg.Throttle.MaxEntries)
	}
}
