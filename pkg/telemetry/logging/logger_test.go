package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "valid JSON config",
			config: Config{Level: "info", Format: "json"},
		},
		{
			name:   "valid text config",
			config: Config{Level: "debug", Format: "text"},
		},
		{
			name:   "valid console config",
			config: Config{Level: "warn", Format: "console"},
		},
		{
			name:   "defaults",
			config: Config{},
		},
		{
			name:    "invalid log level",
			config:  Config{Level: "invalid", Format: "json"},
			wantErr: true,
		},
		{
			name:    "invalid format",
			config:  Config{Level: "info", Format: "invalid"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tt.config.Writer = buf

			logger, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if logger != nil {
				defer logger.Shutdown()
			}
		})
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		name      string
		logLevel  string
		logMethod func(*Logger, string)
		wantLog   bool
	}{
		{
			name:      "debug level logs debug",
			logLevel:  "debug",
			logMethod: func(l *Logger, msg string) { l.Debug(msg) },
			wantLog:   true,
		},
		{
			name:      "info level filters debug",
			logLevel:  "info",
			logMethod: func(l *Logger, msg string) { l.Debug(msg) },
			wantLog:   false,
		},
		{
			name:      "info level logs warn",
			logLevel:  "info",
			logMethod: func(l *Logger, msg string) { l.Warn(msg) },
			wantLog:   true,
		},
		{
			name:      "error level filters warn",
			logLevel:  "error",
			logMethod: func(l *Logger, msg string) { l.Warn(msg) },
			wantLog:   false,
		},
		{
			name:      "error level logs error",
			logLevel:  "error",
			logMethod: func(l *Logger, msg string) { l.Error(msg) },
			wantLog:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger, err := New(Config{Level: tt.logLevel, Format: "json", Writer: buf})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			defer logger.Shutdown()

			tt.logMethod(logger, "test message")

			gotLog := strings.Contains(buf.String(), "test message")
			if gotLog != tt.wantLog {
				t.Errorf("logged = %v, want %v (output %q)", gotLog, tt.wantLog, buf.String())
			}
		})
	}
}

func TestLogger_ContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "info", Format: "json", Writer: buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := WithRequestID(context.Background(), "req-123")
	ctx = WithUID(ctx, 1000)
	ctx = WithSource(ctx, "http")

	logger.InfoContext(ctx, "rate limit updated", "rate", 4096)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}

	want := map[string]any{
		"msg":        "rate limit updated",
		"request_id": "req-123",
		"uid":        float64(1000),
		"source":     "http",
		"rate":       float64(4096),
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("field %s = %v, want %v", k, entry[k], v)
		}
	}
}

func TestLogger_With(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, _ := New(Config{Level: "info", Format: "text", Writer: buf})

	logger.With("component", "throttle").Info("started")
	if !strings.Contains(buf.String(), "component=throttle") {
		t.Errorf("output %q missing component field", buf.String())
	}

	buf.Reset()
	same := logger.WithContext(context.Background())
	if same != logger {
		t.Error("WithContext() without fields should return the same logger")
	}
}

func TestLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "throttle.log")
	buf := &bytes.Buffer{}

	logger, err := New(Config{
		Level:  "info",
		Format: "json",
		Writer: buf,
		File:   FileConfig{Path: path, MaxSizeMB: 1, MaxBackups: 1},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("written twice")
	if err := logger.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "written twice") {
		t.Errorf("log file %q missing message", data)
	}
	if !strings.Contains(buf.String(), "written twice") {
		t.Errorf("writer %q missing message", buf.String())
	}
}

func TestLogger_Slog(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, _ := New(Config{Level: "warn", Format: "json", Writer: buf})

	logger.Slog().Warn("via slog")
	if !strings.Contains(buf.String(), "via slog") {
		t.Errorf("Slog() output %q missing message", buf.String())
	}
}
