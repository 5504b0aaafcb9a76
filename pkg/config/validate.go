package config

import (
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field
	// (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateRedis(&cfg.Redis)...)
	errs = append(errs, validateCache(&cfg.Cache)...)
	errs = append(errs, validateRateLimits(&cfg.RateLimits)...)
	errs = append(errs, validateRedirects(&cfg.Redirects)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid address %q: must be host:port", cfg.ListenAddress),
		})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.shutdown_timeout",
			Message: "must not be negative",
		})
	}
	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "must not be negative",
		})
	}

	return errs
}

func validateRedis(cfg *RedisConfig) []FieldError {
	var errs []FieldError

	if _, _, err := net.SplitHostPort(cfg.Address); err != nil {
		errs = append(errs, FieldError{
			Field:   "redis.address",
			Message: fmt.Sprintf("invalid address %q: must be host:port", cfg.Address),
		})
	}
	if cfg.DB < 0 {
		errs = append(errs, FieldError{
			Field:   "redis.db",
			Message: "must not be negative",
		})
	}

	return errs
}

func validateCache(cfg *CacheConfig) []FieldError {
	var errs []FieldError

	if cfg.DefaultTTL < 0 {
		errs = append(errs, FieldError{
			Field:   "cache.default_ttl",
			Message: "must not be negative",
		})
	}
	if cfg.FallbackEnabled && cfg.Directory == "" {
		errs = append(errs, FieldError{
			Field:   "cache.directory",
			Message: "required when fallback tier is enabled",
		})
	}
	if cfg.JanitorSchedule != "" {
		if _, err := cron.ParseStandard(cfg.JanitorSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "cache.janitor_schedule",
				Message: fmt.Sprintf("invalid cron expression %q", cfg.JanitorSchedule),
			})
		}
	}

	return errs
}

func validateRateLimits(cfg *RateLimitsConfig) []FieldError {
	var errs []FieldError

	checkQuota := func(field string, q QuotaConfig) {
		if q.MaxRequests <= 0 {
			errs = append(errs, FieldError{
				Field:   field + ".max_requests",
				Message: "must be positive",
			})
		}
		if q.Window <= 0 {
			errs = append(errs, FieldError{
				Field:   field + ".window",
				Message: "must be positive",
			})
		}
	}

	for route, quota := range cfg.Routes {
		checkQuota(fmt.Sprintf("rate_limits.routes[%s]", route), quota)
	}
	for i, pq := range cfg.Patterns {
		field := fmt.Sprintf("rate_limits.patterns[%d]", i)
		if _, err := regexp.Compile(pq.Pattern); err != nil {
			errs = append(errs, FieldError{
				Field:   field + ".pattern",
				Message: fmt.Sprintf("invalid regular expression %q", pq.Pattern),
			})
		}
		checkQuota(field+".quota", pq.Quota)
	}
	if cfg.Default != nil {
		checkQuota("rate_limits.default", *cfg.Default)
	}

	return errs
}

func validateRedirects(cfg *RedirectsConfig) []FieldError {
	var errs []FieldError

	switch cfg.DefaultStatus {
	case 301, 302, 307, 308:
	default:
		errs = append(errs, FieldError{
			Field:   "redirects.default_status",
			Message: fmt.Sprintf("invalid redirect status %d: must be 301, 302, 307, or 308", cfg.DefaultStatus),
		})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid level %q: must be debug, info, warn, or error", cfg.Logging.Level),
		})
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid format %q: must be json or text", cfg.Logging.Format),
		})
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: fmt.Sprintf("invalid path %q: must start with /", cfg.Metrics.Path),
		})
	}
	if cfg.Metrics.PersistSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Metrics.PersistSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.persist_schedule",
				Message: fmt.Sprintf("invalid cron expression %q", cfg.Metrics.PersistSchedule),
			})
		}
	}
	for i, entry := range cfg.Metrics.Auth.AllowedIPs {
		if net.ParseIP(entry) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(entry); err == nil {
			continue
		}
		errs = append(errs, FieldError{
			Field:   fmt.Sprintf("telemetry.metrics.auth.allowed_ips[%d]", i),
			Message: fmt.Sprintf("%q is neither an IP address nor a CIDR range", entry),
		})
	}
	if cfg.Metrics.Auth.BasicUser != "" && cfg.Metrics.Auth.BasicPassword == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.auth.basic_password",
			Message: "required when basic_user is set",
		})
	}

	return errs
}
