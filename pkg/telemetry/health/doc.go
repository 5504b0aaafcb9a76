// Package health provides liveness and readiness probes for the
// redirect server.
//
// # Overview
//
// Liveness reports whether the process is running and should never
// depend on external systems. Readiness runs registered dependency
// checks (Redis connectivity, loaded redirect rules) and reports
// degraded when any of them fail, letting load balancers drain an
// instance without restarting it.
//
// Checks are simple functions registered by name:
//
//	checker := health.New(0)
//	checker.Register("redis", func(ctx context.Context) error {
//		return client.Ping(ctx).Err()
//	})
//	mux.Handle("/healthz", checker.LivenessHandler())
//	mux.Handle("/readyz", checker.ReadinessHandler())
//
// Each check runs with its own timeout so a single hung dependency
// cannot stall the probe.
package health
