// Package telemetry provides observability for Mercator Mercury.
//
// # Overview
//
// The telemetry package groups the server's operational surfaces:
// structured logging, the self-contained metrics pipeline, and the
// liveness/readiness probes.
//
// # Components
//
//   - logging: slog setup from configuration (JSON or text)
//   - metrics: label-aware aggregation, Redis-backed persistence, and
//     the Prometheus text exposition endpoint
//   - health: liveness and readiness handlers with dependency checks
package telemetry
