package config

import "time"

// Default values for configuration fields.
const (
	// Throttle defaults
	DefaultWindow       = time.Second
	DefaultMaxEntries   = 1024
	DefaultDebugMetrics = false

	// Control defaults
	DefaultControlFileEnabled = true
	DefaultControlFilePath    = "./run/ratelimit_uid"
	DefaultControlStatusPath  = "./run/ratelimit_uid.status"
	DefaultControlDebounce    = 100 * time.Millisecond
	DefaultControlHTTPEnabled = true
	DefaultControlHTTPPath    = "/v1/ratelimit"

	// Server defaults
	DefaultListenAddress   = "127.0.0.1:9191"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultTLSMinVersion   = "1.3"
	DefaultTLSReload       = 5 * time.Minute

	// Store defaults
	DefaultStoreBackend      = "memory"
	DefaultStoreSQLitePath   = "data/limits.db"
	DefaultSQLiteBusyTimeout = 5 * time.Second
	DefaultRedisAddress      = "127.0.0.1:6379"
	DefaultRedisKeyPrefix    = "uidthrottle:"

	// Audit defaults
	DefaultAuditEnabled       = true
	DefaultAuditPath          = "data/audit.db"
	DefaultAuditRetentionDays = 30
	DefaultAuditSchedule      = "0 3 * * *"
	DefaultAuditBuffer        = 256

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultLogFileMaxSizeMB   = 100
	DefaultLogFileMaxBackups  = 5
	DefaultLogFileMaxAgeDays  = 28
	DefaultLogFileCompress    = true
	DefaultMetricsEnabled     = true
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "uidthrottle"
	DefaultHealthEnabled      = true
	DefaultLivenessPath       = "/health"
	DefaultReadinessPath      = "/ready"
	DefaultHealthCheckTimeout = 2 * time.Second
	DefaultTracingService     = "uidthrottle"
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingTimeout     = 10 * time.Second
	DefaultTracingSampler     = "always"
	DefaultTracingSampleRatio = 1.0
)

// Default returns a configuration with every default applied, including the
// boolean switches that are on by default. LoadConfig decodes YAML on top of
// it so an explicit "false" in the file survives.
func Default() *Config {
	cfg := &Config{
		Throttle: ThrottleConfig{DebugMetrics: DefaultDebugMetrics},
		Control: ControlConfig{
			File: ControlFileConfig{Enabled: DefaultControlFileEnabled},
			HTTP: ControlHTTPConfig{Enabled: DefaultControlHTTPEnabled},
		},
		Audit: AuditConfig{
			Enabled:       DefaultAuditEnabled,
			RetentionDays: DefaultAuditRetentionDays,
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{
				File: LogFileConfig{Compress: DefaultLogFileCompress},
			},
			Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
			Health:  HealthConfig{Enabled: DefaultHealthEnabled},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every zero-valued non-boolean field with its default.
// It is idempotent.
func ApplyDefaults(cfg *Config) {
	if cfg.Throttle.Window == 0 {
		cfg.Throttle.Window = DefaultWindow
	}
	if cfg.Throttle.MaxEntries == 0 {
		cfg.Throttle.MaxEntries = DefaultMaxEntries
	}

	if cfg.Control.File.Path == "" {
		cfg.Control.File.Path = DefaultControlFilePath
	}
	if cfg.Control.File.StatusPath == "" {
		cfg.Control.File.StatusPath = DefaultControlStatusPath
	}
	if cfg.Control.File.Debounce == 0 {
		cfg.Control.File.Debounce = DefaultControlDebounce
	}
	if cfg.Control.HTTP.Path == "" {
		cfg.Control.HTTP.Path = DefaultControlHTTPPath
	}

	applyServerDefaults(&cfg.Server)
	applyStoreDefaults(&cfg.Store)

	if cfg.Audit.Path == "" {
		cfg.Audit.Path = DefaultAuditPath
	}
	if cfg.Audit.PruneSchedule == "" {
		cfg.Audit.PruneSchedule = DefaultAuditSchedule
	}
	if cfg.Audit.Buffer == 0 {
		cfg.Audit.Buffer = DefaultAuditBuffer
	}

	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.TLS.MinVersion == "" {
		cfg.TLS.MinVersion = DefaultTLSMinVersion
	}
	if cfg.TLS.ReloadInterval == 0 {
		cfg.TLS.ReloadInterval = DefaultTLSReload
	}
}

func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Backend == "" {
		cfg.Backend = DefaultStoreBackend
	}
	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = DefaultStoreSQLitePath
	}
	if cfg.SQLite.BusyTimeout == 0 {
		cfg.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if cfg.Redis.Address == "" {
		cfg.Redis.Address = DefaultRedisAddress
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Logging.File.MaxSizeMB == 0 {
		cfg.Logging.File.MaxSizeMB = DefaultLogFileMaxSizeMB
	}
	if cfg.Logging.File.MaxBackups == 0 {
		cfg.Logging.File.MaxBackups = DefaultLogFileMaxBackups
	}
	if cfg.Logging.File.MaxAgeDays == 0 {
		cfg.Logging.File.MaxAgeDays = DefaultLogFileMaxAgeDays
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}

	if cfg.Health.LivenessPath == "" {
		cfg.Health.LivenessPath = DefaultLivenessPath
	}
	if cfg.Health.ReadinessPath == "" {
		cfg.Health.ReadinessPath = DefaultReadinessPath
	}
	if cfg.Health.CheckTimeout == 0 {
		cfg.Health.CheckTimeout = DefaultHealthCheckTimeout
	}

	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = DefaultTracingService
	}
	if cfg.Tracing.Endpoint == "" {
		cfg.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Tracing.Timeout == 0 {
		cfg.Tracing.Timeout = DefaultTracingTimeout
	}
	if cfg.Tracing.Sampler == "" {
		cfg.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
}
