// Package telemetry groups the observability packages of the uid throttle
// daemon.
//
// # Components
//
//   - logging: slog handlers with request id propagation and file rotation
//   - metrics: the Prometheus registry and admin HTTP instrumentation
//   - tracing: OpenTelemetry spans for admin requests and control commands
//   - health: liveness and readiness checks
//
// # Usage
//
//	logger, _ := logging.New(logging.Config{Level: "info", Format: "json"})
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	tracer, _ := tracing.New(&cfg.Telemetry.Tracing, version)
//	defer tracer.Shutdown(ctx)
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck("table", health.TableCheck(plane.Enabled))
package telemetry
