// Package metrics owns the Prometheus registry of the uid throttle daemon.
//
// # Metrics Categories
//
//   - HTTP Metrics: admin server request count, duration and in-flight
//     requests, labelled by route
//   - Control Metrics: administrative commands by source and outcome
//   - Runtime Metrics: Go runtime and process collectors
//
// Engine counters and per-uid table gauges live in pkg/throttle and are
// registered here through Register.
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.Register(throttle.NewTableCollector(table, cfg.Telemetry.Metrics.Namespace))
//	mux.Handle("/metrics", collector.Handler())
//	mux.Handle("/v1/ratelimit", collector.InstrumentHandler("control", handler))
//
// # Prometheus Endpoint
//
//	# HELP uidthrottle_control_commands_total Administrative commands by source and outcome.
//	# TYPE uidthrottle_control_commands_total counter
//	uidthrottle_control_commands_total{outcome="applied",source="file"} 3
package metrics
