package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantField string
	}{
		{name: "defaults are valid", modify: func(*Config) {}},
		{
			name:      "zero window",
			modify:    func(c *Config) { c.Throttle.Window = 0 },
			wantField: "throttle.window",
		},
		{
			name:      "max entries too large",
			modify:    func(c *Config) { c.Throttle.MaxEntries = 1<<20 + 1 },
			wantField: "throttle.max_entries",
		},
		{
			name:      "negative uid",
			modify:    func(c *Config) { c.Throttle.Limits = []LimitConfig{{UID: -1, Rate: 10}} },
			wantField: "throttle.limits[0].uid",
		},
		{
			name: "duplicate uid",
			modify: func(c *Config) {
				c.Throttle.Limits = []LimitConfig{{UID: 5, Rate: 10}, {UID: 5, Rate: 20}}
			},
			wantField: "throttle.limits[1].uid",
		},
		{
			name: "more limits than entries",
			modify: func(c *Config) {
				c.Throttle.MaxEntries = 1
				c.Throttle.Limits = []LimitConfig{{UID: 1}, {UID: 2}}
			},
			wantField: "throttle.limits",
		},
		{
			name:      "negative rate allowed",
			modify:    func(c *Config) { c.Throttle.Limits = []LimitConfig{{UID: 1, Rate: -1}} },
			wantField: "",
		},
		{
			name:      "status path equals control path",
			modify:    func(c *Config) { c.Control.File.StatusPath = c.Control.File.Path },
			wantField: "control.file.status_path",
		},
		{
			name:      "control http path",
			modify:    func(c *Config) { c.Control.HTTP.Path = "ratelimit" },
			wantField: "control.http.path",
		},
		{
			name:      "disabled http path ignored",
			modify:    func(c *Config) { c.Control.HTTP.Enabled = false; c.Control.HTTP.Path = "x" },
			wantField: "",
		},
		{
			name:      "bad listen address",
			modify:    func(c *Config) { c.Server.ListenAddress = "localhost" },
			wantField: "server.listen_address",
		},
		{
			name:      "negative timeout",
			modify:    func(c *Config) { c.Server.IdleTimeout = -time.Second },
			wantField: "server.idle_timeout",
		},
		{
			name:      "tls without cert",
			modify:    func(c *Config) { c.Server.TLS = TLSConfig{Enabled: true, KeyFile: "k.pem", MinVersion: "1.3", ReloadInterval: time.Minute} },
			wantField: "server.tls.cert_file",
		},
		{
			name: "tls version",
			modify: func(c *Config) {
				c.Server.TLS = TLSConfig{Enabled: true, CertFile: "c.pem", KeyFile: "k.pem", MinVersion: "1.1", ReloadInterval: time.Minute}
			},
			wantField: "server.tls.min_version",
		},
		{
			name:      "unknown backend",
			modify:    func(c *Config) { c.Store.Backend = "etcd" },
			wantField: "store.backend",
		},
		{
			name:      "redis without address",
			modify:    func(c *Config) { c.Store.Backend = "redis"; c.Store.Redis.Address = "" },
			wantField: "store.redis.address",
		},
		{
			name:      "bad cron",
			modify:    func(c *Config) { c.Audit.PruneSchedule = "every day" },
			wantField: "audit.prune_schedule",
		},
		{
			name:      "bad cron ignored without retention",
			modify:    func(c *Config) { c.Audit.RetentionDays = 0; c.Audit.PruneSchedule = "every day" },
			wantField: "",
		},
		{
			name:      "zero audit buffer",
			modify:    func(c *Config) { c.Audit.Buffer = 0 },
			wantField: "audit.buffer",
		},
		{
			name:      "bad log level",
			modify:    func(c *Config) { c.Telemetry.Logging.Level = "trace" },
			wantField: "telemetry.logging.level",
		},
		{
			name:      "bad log format",
			modify:    func(c *Config) { c.Telemetry.Logging.Format = "xml" },
			wantField: "telemetry.logging.format",
		},
		{
			name:      "metrics path",
			modify:    func(c *Config) { c.Telemetry.Metrics.Path = "metrics" },
			wantField: "telemetry.metrics.path",
		},
		{
			name:      "health timeout",
			modify:    func(c *Config) { c.Telemetry.Health.CheckTimeout = 0 },
			wantField: "telemetry.health.check_timeout",
		},
		{
			name: "tracing sampler",
			modify: func(c *Config) {
				c.Telemetry.Tracing.Enabled = true
				c.Telemetry.Tracing.Sampler = "sometimes"
			},
			wantField: "telemetry.tracing.sampler",
		},
		{
			name: "tracing sample ratio",
			modify: func(c *Config) {
				c.Telemetry.Tracing.Enabled = true
				c.Telemetry.Tracing.SampleRatio = 1.5
			},
			wantField: "telemetry.tracing.sample_ratio",
		},
		{
			name:      "tracing ignored when disabled",
			modify:    func(c *Config) { c.Telemetry.Tracing.Sampler = "sometimes" },
			wantField: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := Validate(cfg)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}

			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want ValidationError", err)
			}
			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("Validate() errors = %v, want field %q", verr.Errors, tt.wantField)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	single := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}}}
	if got := single.Error(); got != "configuration validation failed: a: bad" {
		t.Errorf("Error() = %q", got)
	}

	multi := ValidationError{Errors: []FieldError{{Field: "a", Message: "x"}, {Field: "b", Message: "y"}}}
	got := multi.Error()
	if !strings.Contains(got, "2 errors") || !strings.Contains(got, "  - b: y") {
		t.Errorf("Error() = %q", got)
	}

	if got := (ValidationError{}).Error(); got != "configuration validation failed" {
		t.Errorf("empty Error() = %q", got)
	}
}
