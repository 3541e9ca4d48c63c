// Package health provides the liveness, readiness and version endpoints of
// the uid throttle daemon.
//
// Liveness always reports ok. Readiness runs every registered check
// concurrently, each bounded by the checker's timeout:
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("table", health.TableCheck(engine.Enabled))
//	checker.RegisterCheck("store", health.PingCheck("store", backend))
//	mux.HandleFunc("/ready", checker.ReadinessHandler())
package health
