package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/robfig/cron/v3"

	"mercator-hq/uidthrottle/pkg/throttle"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

// Validate checks the whole configuration and returns a ValidationError
// listing every problem, or nil.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateThrottle(&cfg.Throttle)...)
	errs = append(errs, validateControl(&cfg.Control)...)
	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateStore(&cfg.Store)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateThrottle(cfg *ThrottleConfig) []FieldError {
	var errs []FieldError

	if cfg.Window <= 0 {
		errs = append(errs, FieldError{
			Field:   "throttle.window",
			Message: "window must be positive",
		})
	}

	// A table that cannot be allocated disables throttling at runtime, but a
	// configured size outside the allowed range is always a mistake.
	if cfg.MaxEntries < 1 || cfg.MaxEntries > throttle.MaxCapacity {
		errs = append(errs, FieldError{
			Field:   "throttle.max_entries",
			Message: fmt.Sprintf("must be between 1 and %d", throttle.MaxCapacity),
		})
	}

	seen := make(map[int64]bool, len(cfg.Limits))
	for i, l := range cfg.Limits {
		field := fmt.Sprintf("throttle.limits[%d]", i)
		if l.UID < 0 {
			errs = append(errs, FieldError{
				Field:   field + ".uid",
				Message: "uid must be non-negative",
			})
			continue
		}
		if seen[l.UID] {
			errs = append(errs, FieldError{
				Field:   field + ".uid",
				Message: fmt.Sprintf("uid %d listed more than once", l.UID),
			})
		}
		seen[l.UID] = true
	}
	if len(seen) > cfg.MaxEntries && cfg.MaxEntries > 0 {
		errs = append(errs, FieldError{
			Field:   "throttle.limits",
			Message: fmt.Sprintf("%d limits exceed max_entries %d", len(seen), cfg.MaxEntries),
		})
	}

	return errs
}

func validateControl(cfg *ControlConfig) []FieldError {
	var errs []FieldError

	if cfg.File.Enabled {
		if cfg.File.Path == "" {
			errs = append(errs, FieldError{
				Field:   "control.file.path",
				Message: "path is required when the control file is enabled",
			})
		}
		if cfg.File.StatusPath != "" && cfg.File.StatusPath == cfg.File.Path {
			errs = append(errs, FieldError{
				Field:   "control.file.status_path",
				Message: "status path must differ from the control file path",
			})
		}
		if cfg.File.Debounce < 0 {
			errs = append(errs, FieldError{
				Field:   "control.file.debounce",
				Message: "debounce must be non-negative",
			})
		}
	}

	if cfg.HTTP.Enabled {
		errs = append(errs, validatePath("control.http.path", cfg.HTTP.Path)...)
	}

	return errs
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	} else if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid host:port %q", cfg.ListenAddress),
		})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "read timeout must be non-negative"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "write timeout must be non-negative"})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.idle_timeout", Message: "idle timeout must be non-negative"})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.shutdown_timeout", Message: "shutdown timeout must be non-negative"})
	}

	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" {
			errs = append(errs, FieldError{Field: "server.tls.cert_file", Message: "cert file is required when TLS is enabled"})
		}
		if cfg.TLS.KeyFile == "" {
			errs = append(errs, FieldError{Field: "server.tls.key_file", Message: "key file is required when TLS is enabled"})
		}
		if cfg.TLS.MinVersion != "1.2" && cfg.TLS.MinVersion != "1.3" {
			errs = append(errs, FieldError{
				Field:   "server.tls.min_version",
				Message: fmt.Sprintf("unsupported TLS version %q (use 1.2 or 1.3)", cfg.TLS.MinVersion),
			})
		}
		if cfg.TLS.ReloadInterval <= 0 {
			errs = append(errs, FieldError{Field: "server.tls.reload_interval", Message: "reload interval must be positive"})
		}
	}

	return errs
}

func validateStore(cfg *StoreConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "store.sqlite.path",
				Message: "path is required for the sqlite backend",
			})
		}
		if cfg.SQLite.BusyTimeout < 0 {
			errs = append(errs, FieldError{
				Field:   "store.sqlite.busy_timeout",
				Message: "busy timeout must be non-negative",
			})
		}
	case "redis":
		if cfg.Redis.Address == "" {
			errs = append(errs, FieldError{
				Field:   "store.redis.address",
				Message: "address is required for the redis backend",
			})
		}
		if cfg.Redis.DB < 0 {
			errs = append(errs, FieldError{
				Field:   "store.redis.db",
				Message: "db must be non-negative",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "store.backend",
			Message: fmt.Sprintf("unknown backend %q (valid: memory, sqlite, redis)", cfg.Backend),
		})
	}

	return errs
}

func validateAudit(cfg *AuditConfig) []FieldError {
	if !cfg.Enabled {
		return nil
	}

	var errs []FieldError

	if cfg.RetentionDays < 0 {
		errs = append(errs, FieldError{
			Field:   "audit.retention_days",
			Message: "retention days must be non-negative",
		})
	}
	if cfg.Buffer < 1 {
		errs = append(errs, FieldError{
			Field:   "audit.buffer",
			Message: "buffer must be at least 1",
		})
	}
	if cfg.RetentionDays > 0 {
		if _, err := cron.ParseStandard(cfg.PruneSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "audit.prune_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid level %q (valid: debug, info, warn, error)", cfg.Logging.Level),
		})
	}

	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid format %q (valid: json, text)", cfg.Logging.Format),
		})
	}

	if cfg.Logging.File.Path != "" {
		if cfg.Logging.File.MaxSizeMB < 1 {
			errs = append(errs, FieldError{
				Field:   "telemetry.logging.file.max_size_mb",
				Message: "max size must be at least 1",
			})
		}
		if cfg.Logging.File.MaxBackups < 0 || cfg.Logging.File.MaxAgeDays < 0 {
			errs = append(errs, FieldError{
				Field:   "telemetry.logging.file",
				Message: "max backups and max age must be non-negative",
			})
		}
	}

	if cfg.Metrics.Enabled {
		errs = append(errs, validatePath("telemetry.metrics.path", cfg.Metrics.Path)...)
		if cfg.Metrics.Namespace == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.namespace",
				Message: "namespace is required",
			})
		}
	}

	if cfg.Health.Enabled {
		errs = append(errs, validatePath("telemetry.health.liveness_path", cfg.Health.LivenessPath)...)
		errs = append(errs, validatePath("telemetry.health.readiness_path", cfg.Health.ReadinessPath)...)
		if cfg.Health.CheckTimeout <= 0 {
			errs = append(errs, FieldError{
				Field:   "telemetry.health.check_timeout",
				Message: "check timeout must be positive",
			})
		}
	}

	if cfg.Tracing.Enabled {
		if cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.endpoint",
				Message: "endpoint is required when tracing is enabled",
			})
		}
		switch cfg.Tracing.Sampler {
		case "always", "never", "ratio":
		default:
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sampler",
				Message: fmt.Sprintf("invalid sampler %q (valid: always, never, ratio)", cfg.Tracing.Sampler),
			})
		}
		if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sample_ratio",
				Message: "sample ratio must be between 0.0 and 1.0",
			})
		}
	}

	return errs
}

func validatePath(field, path string) []FieldError {
	if !strings.HasPrefix(path, "/") {
		return []FieldError{{Field: field, Message: fmt.Sprintf("path %q must start with /", path)}}
	}
	return nil
}
