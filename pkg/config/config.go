package config

import "time"

// Config is the root configuration structure for uidthrottle.
type Config struct {
	// Throttle contains the rate limit table and engine settings, plus the
	// limits applied at startup.
	Throttle ThrottleConfig `yaml:"throttle"`

	// Control contains the administrative channels: the control file and
	// the HTTP endpoint.
	Control ControlConfig `yaml:"control"`

	// Server contains the admin HTTP server configuration.
	Server ServerConfig `yaml:"server"`

	// Store selects where configured limits are persisted.
	Store StoreConfig `yaml:"store"`

	// Audit contains the command audit trail configuration.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry contains logging, metrics and health check configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ThrottleConfig contains configuration for the throttle engine.
type ThrottleConfig struct {
	// Window is the quota refill period. Rates are bytes per window.
	// Default: 1s
	Window time.Duration `yaml:"window"`

	// MaxEntries is the number of uid slots in the rate limit table.
	// Default: 1024
	MaxEntries int `yaml:"max_entries"`

	// DebugMetrics enables the per-call engine counters.
	// Default: false
	DebugMetrics bool `yaml:"debug_metrics"`

	// Limits are applied at startup after persisted limits are replayed.
	Limits []LimitConfig `yaml:"limits"`
}

// LimitConfig is one initial uid rate limit.
type LimitConfig struct {
	// UID is the user id. Must be non-negative.
	UID int64 `yaml:"uid"`

	// Rate is bytes per window. Negative disables the uid.
	Rate int64 `yaml:"rate"`
}

// ControlConfig contains configuration for the administrative channels.
type ControlConfig struct {
	// File configures the watched control file.
	File ControlFileConfig `yaml:"file"`

	// HTTP configures the control endpoint on the admin server.
	HTTP ControlHTTPConfig `yaml:"http"`
}

// ControlFileConfig contains configuration for the control file.
type ControlFileConfig struct {
	// Enabled turns the file watcher on.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the control file. Commands written to it are consumed.
	// Default: "./run/ratelimit_uid"
	Path string `yaml:"path"`

	// StatusPath receives the list output after every change.
	// Default: "./run/ratelimit_uid.status"
	StatusPath string `yaml:"status_path"`

	// Debounce is the quiet period before the file is processed.
	// Default: 100ms
	Debounce time.Duration `yaml:"debounce"`
}

// ControlHTTPConfig contains configuration for the control endpoint.
type ControlHTTPConfig struct {
	// Enabled mounts the endpoint on the admin server.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the URL path of the endpoint.
	// Default: "/v1/ratelimit"
	Path string `yaml:"path"`
}

// ServerConfig contains configuration for the admin HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:9191"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 10s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	// Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle limit.
	// Default: 60s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 15s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// TLS serves the admin endpoints over HTTPS when enabled.
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig contains the admin server certificate configuration.
type TLSConfig struct {
	// Enabled switches the listener to TLS.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// CertFile and KeyFile are PEM files. They are re-read when they change.
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`

	// MinVersion is "1.2" or "1.3".
	// Default: "1.3"
	MinVersion string `yaml:"min_version"`

	// ReloadInterval is how often the certificate files are checked.
	// Default: 5m
	ReloadInterval time.Duration `yaml:"reload_interval"`

	// CAFile is the bundle the command-line client uses to verify the
	// server. Empty uses the system roots.
	CAFile string `yaml:"ca_file"`
}

// StoreConfig contains configuration for limit persistence.
type StoreConfig struct {
	// Backend is the storage backend.
	// Options: "memory", "sqlite", "redis"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLite is used when Backend is "sqlite".
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Redis is used when Backend is "redis".
	Redis RedisConfig `yaml:"redis"`
}

// SQLiteConfig contains configuration for a SQLite database.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/limits.db"
	Path string `yaml:"path"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RedisConfig contains configuration for the Redis backend.
type RedisConfig struct {
	// Address is host:port of the server.
	// Default: "127.0.0.1:6379"
	Address string `yaml:"address"`

	// Password is optional. Prefer UIDTHROTTLE_STORE_REDIS_PASSWORD.
	Password string `yaml:"password"`

	// DB selects the logical database.
	DB int `yaml:"db"`

	// KeyPrefix namespaces every key.
	// Default: "uidthrottle:"
	KeyPrefix string `yaml:"key_prefix"`
}

// AuditConfig contains configuration for the command audit trail.
type AuditConfig struct {
	// Enabled turns auditing on.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the SQLite audit database. Empty keeps entries in memory.
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// RetentionDays is how long entries are kept. Zero keeps them forever.
	// Default: 30
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is the cron expression for the retention job.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`

	// Buffer is the size of the asynchronous write queue.
	// Default: 256
	Buffer int `yaml:"buffer"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`

	// Tracing contains OpenTelemetry tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in each record.
	AddSource bool `yaml:"add_source"`

	// File configures an optional rotating log file.
	File LogFileConfig `yaml:"file"`
}

// LogFileConfig contains configuration for the rotating log file.
type LogFileConfig struct {
	// Path is the log file. Empty disables file output.
	Path string `yaml:"path"`

	// MaxSizeMB is the size at which the file is rotated.
	// Default: 100
	MaxSizeMB int `yaml:"max_size_mb"`

	// MaxBackups is the number of rotated files kept.
	// Default: 5
	MaxBackups int `yaml:"max_backups"`

	// MaxAgeDays is how long rotated files are kept.
	// Default: 28
	MaxAgeDays int `yaml:"max_age_days"`

	// Compress gzips rotated files.
	// Default: true
	Compress bool `yaml:"compress"`
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	// Enabled exposes Prometheus metrics.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the scrape endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace prefixes every metric name.
	// Default: "uidthrottle"
	Namespace string `yaml:"namespace"`
}

// HealthConfig contains health check configuration.
type HealthConfig struct {
	// Enabled mounts the health endpoints.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// LivenessPath is the liveness probe path.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the readiness probe path.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout bounds each readiness check.
	// Default: 2s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}

// TracingConfig contains OpenTelemetry tracing configuration. Spans are
// exported over OTLP/gRPC.
type TracingConfig struct {
	// Enabled turns on span export.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// ServiceName is the service.name resource attribute.
	// Default: "uidthrottle"
	ServiceName string `yaml:"service_name"`

	// Endpoint is the OTLP collector host:port.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS to the collector.
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// Sampler is the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "always"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces kept by the "ratio" sampler.
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`
}
