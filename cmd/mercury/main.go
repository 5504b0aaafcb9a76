// Mercator Mercury is a rate-limited URL redirect front end.
//
// It resolves inbound request paths against a redirect rule table and
// answers with 301/302 redirects, providing:
//   - Distributed sliding-window rate limiting over Redis
//   - A tiered cache (Redis primary, filesystem fallback) with read-repair
//   - Seller lookup caching with asymmetric positive/negative TTLs
//   - A persisted metrics aggregator with Prometheus exposition
//
// Usage:
//
//	# Start server with default configuration
//	mercury run
//
//	# Start with custom configuration file
//	mercury run --config /path/to/config.yaml
//
//	# Validate configuration and redirect rules
//	mercury validate
//
//	# Show version information
//	mercury version
//
// For complete documentation, see: https://github.com/mercator-hq/mercury
package main

func main() {
	Execute()
}
