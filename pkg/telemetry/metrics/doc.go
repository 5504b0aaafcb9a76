// Package metrics provides metric aggregation and Prometheus exposition
// for Mercator Mercury.
//
// # Overview
//
// The package implements a self-contained aggregator rather than a
// Prometheus client registry because Mercury instances are short-lived
// and horizontally scaled: every aggregator persists its series to the
// tiered cache and a new instance loads the latest snapshot on
// construction, so a scraper sees continuous values across restarts.
//
// # Components
//
//   - Registry: the immutable catalogue of metric definitions. All
//     metrics are declared up front; updates against undeclared names
//     are logged and dropped, which bounds series cardinality.
//   - Aggregator: accumulates counter, gauge, and histogram series
//     keyed by canonical (sorted) label sets, and persists snapshots
//     under metrics:counters, metrics:gauges, and metrics:histograms.
//   - Endpoint: the HTTP handler serving the text exposition with an
//     IP allow-list / basic-auth gate and a short-lived render cache.
//   - Scheduler: cron-driven snapshot persistence for idle instances.
//
// # Usage
//
//	registry := metrics.DefaultRegistry()
//	aggregator := metrics.NewAggregator(registry, tieredCache, ttls)
//
//	aggregator.IncrementCounter(ctx, "mercury_requests_total",
//		map[string]string{"method": "GET", "route": "/r/acme", "status": "302"}, 1)
//	aggregator.ObserveHistogram(ctx, "mercury_request_duration_seconds",
//		elapsed.Seconds(), map[string]string{"route": "/r/acme"})
//
// # Exposition
//
// Render produces Prometheus text format 0.0.4. HELP and TYPE lines are
// emitted for every registered metric even before the first
// observation:
//
//	# HELP mercury_requests_total Total HTTP requests handled.
//	# TYPE mercury_requests_total counter
//	mercury_requests_total{method="GET",route="/r/acme",status="302"} 1234
//
// # Persistence semantics
//
// Snapshots are whole-kind documents written last-persisted-wins.
// Concurrent instances can overwrite each other's interleaved updates;
// this approximation is accepted in exchange for a store-agnostic
// snapshot format. Per-kind retention TTLs let stale gauges age out
// faster than counters.
package metrics
