// Package config provides configuration management for Mercator Mercury.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. It provides a type-safe
// configuration system with comprehensive validation and sensible defaults.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention MERCURY_SECTION_FIELD.
// For example:
//
//   - MERCURY_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - MERCURY_REDIS_ADDRESS overrides redis.address
//   - MERCURY_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Environment variables always take precedence over file-based configuration.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides
// earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Validation
//
// All configuration is validated automatically during loading. Validation
// includes address formats, quota sanity (positive windows and request
// counts), regex compilation of pattern quotas, cron expressions, and
// allow-list entries (IP or CIDR). Validation errors include field paths
// and helpful messages:
//
//	configuration validation failed with 2 errors:
//	  - rate_limits.default.window: must be positive
//	  - telemetry.metrics.auth.allowed_ips[0]: "10.0.0" is neither an IP address nor a CIDR range
//
// # Example Configuration
//
// Here is a minimal configuration file:
//
//	server:
//	  listen_address: "0.0.0.0:8080"
//
//	redis:
//	  address: "127.0.0.1:6379"
//
//	rate_limits:
//	  routes:
//	    "/go":
//	      max_requests: 60
//	      window: 60s
//	  default:
//	    max_requests: 300
//	    window: 60s
//
//	redirects:
//	  rules_path: "./redirects.yaml"
//	  watch: true
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
//	  metrics:
//	    auth:
//	      enabled: true
//	      allowed_ips: ["10.0.0.0/8"]
package config
