// Package tracing provides OpenTelemetry tracing for the admin server and
// the control plane.
//
// Spans are batched to an OTLP/gRPC collector. With tracing disabled, or
// through a nil *Tracer, every span is a non-recording no-op so callers never
// need to check.
//
// # Spans
//
//   - "HTTP <method> <path>": one server span per admin request, continuing
//     any W3C traceparent sent by the client
//   - "control.apply": one span per rate limit command, with the uid, rate
//     and source as attributes
//
// # Configuration
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    endpoint: localhost:4317
//	    insecure: true
//	    sampler: ratio
//	    sample_ratio: 0.1
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//		return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	handler = tracer.HTTPMiddleware(handler)
package tracing
