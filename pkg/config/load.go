package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. Use LoadConfigWithEnvOverrides to additionally honor MERCURY_*
// environment variables.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	// Boolean fields that default to true must be set before unmarshal,
	// since yaml only overwrites fields present in the file.
	cfg := Config{}
	cfg.Cache.FallbackEnabled = true
	cfg.RateLimits.Enabled = true
	cfg.Telemetry.Metrics.Enabled = true

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention MERCURY_SECTION_FIELD (e.g., MERCURY_SERVER_LISTEN_ADDRESS) and
// always take precedence over file-based configuration.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Variables use the format MERCURY_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	if val := os.Getenv("MERCURY_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("MERCURY_SERVER_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if val := os.Getenv("MERCURY_SERVER_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}
	if val := os.Getenv("MERCURY_SERVER_SHUTDOWN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ShutdownTimeout = d
		}
	}

	// Redis overrides
	if val := os.Getenv("MERCURY_REDIS_ADDRESS"); val != "" {
		cfg.Redis.Address = val
	}
	if val := os.Getenv("MERCURY_REDIS_PASSWORD"); val != "" {
		cfg.Redis.Password = val
	}
	if val := os.Getenv("MERCURY_REDIS_DB"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Redis.DB = i
		}
	}

	// Cache overrides
	if val := os.Getenv("MERCURY_CACHE_DIRECTORY"); val != "" {
		cfg.Cache.Directory = val
	}
	if val := os.Getenv("MERCURY_CACHE_DEFAULT_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Cache.DefaultTTL = d
		}
	}
	if val := os.Getenv("MERCURY_CACHE_FALLBACK_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Cache.FallbackEnabled = b
		}
	}

	// Rate limit overrides
	if val := os.Getenv("MERCURY_RATE_LIMITS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.RateLimits.Enabled = b
		}
	}

	// Redirect overrides
	if val := os.Getenv("MERCURY_REDIRECTS_RULES_PATH"); val != "" {
		cfg.Redirects.RulesPath = val
	}
	if val := os.Getenv("MERCURY_REDIRECTS_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Redirects.Watch = b
		}
	}

	// Telemetry overrides
	if val := os.Getenv("MERCURY_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("MERCURY_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("MERCURY_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("MERCURY_TELEMETRY_METRICS_PATH"); val != "" {
		cfg.Telemetry.Metrics.Path = val
	}
	if val := os.Getenv("MERCURY_TELEMETRY_METRICS_BASIC_USER"); val != "" {
		cfg.Telemetry.Metrics.Auth.BasicUser = val
	}
	if val := os.Getenv("MERCURY_TELEMETRY_METRICS_BASIC_PASSWORD"); val != "" {
		cfg.Telemetry.Metrics.Auth.BasicPassword = val
	}
}
