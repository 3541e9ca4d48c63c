// Package server provides the admin HTTP server of the uid throttle daemon.
//
// It mounts the control endpoint, the Prometheus scrape endpoint and the
// health probes on one listener, wrapped in request id, logging and panic
// recovery middleware:
//
//	srv := server.NewServer(cfg, server.Routes{
//	    Control: control.NewHandler(plane),
//	    Health:  checker,
//	    Metrics: collector,
//	}, logger)
//	err := srv.Start(ctx) // blocks until ctx is cancelled
//
// Every request carries an X-Request-ID header. A client supplied id is
// kept; otherwise a UUID is generated. The id is stored in the request
// context where the control plane copies it into the audit trail.
//
// With server.tls enabled the listener serves HTTPS. The key pair is re-read
// when its files change, so certificates can be rotated without a restart.
package server
