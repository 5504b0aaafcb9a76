package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfigFile(t, "server:\n  listen_address: \"0.0.0.0:9090\"\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9090" {
		t.Errorf("Expected listen address from file, got %q", cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout != DefaultReadTimeout {
		t.Errorf("Expected default read timeout, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Redis.Address != DefaultRedisAddress {
		t.Errorf("Expected default redis address, got %q", cfg.Redis.Address)
	}
	if cfg.Cache.DefaultTTL != DefaultCacheTTL {
		t.Errorf("Expected default cache TTL, got %v", cfg.Cache.DefaultTTL)
	}
	if !cfg.RateLimits.Enabled {
		t.Error("Expected rate limits enabled by default")
	}
	if !cfg.Cache.FallbackEnabled {
		t.Error("Expected fallback tier enabled by default")
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("Expected metrics endpoint enabled by default")
	}
	if cfg.Telemetry.Metrics.Path != DefaultMetricsPath {
		t.Errorf("Expected default metrics path, got %q", cfg.Telemetry.Metrics.Path)
	}
}

func TestLoadConfig_Quotas(t *testing.T) {
	path := writeConfigFile(t, `
rate_limits:
  routes:
    "/go":
      max_requests: 60
      window: 60s
  patterns:
    - pattern: "^/s/[a-z0-9-]+$"
      quota:
        max_requests: 30
        window: 60s
  default:
    max_requests: 300
    window: 60s
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	quota, ok := cfg.RateLimits.Routes["/go"]
	if !ok {
		t.Fatal("Expected exact quota for /go")
	}
	if quota.MaxRequests != 60 || quota.Window != time.Minute {
		t.Errorf("Unexpected quota: %+v", quota)
	}
	if len(cfg.RateLimits.Patterns) != 1 {
		t.Fatalf("Expected 1 pattern quota, got %d", len(cfg.RateLimits.Patterns))
	}
	if cfg.RateLimits.Default == nil || cfg.RateLimits.Default.MaxRequests != 300 {
		t.Errorf("Unexpected default quota: %+v", cfg.RateLimits.Default)
	}
}

func TestLoadConfig_DisableBooleans(t *testing.T) {
	path := writeConfigFile(t, `
rate_limits:
  enabled: false
cache:
  fallback_enabled: false
telemetry:
  metrics:
    enabled: false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.RateLimits.Enabled {
		t.Error("Expected rate limits disabled")
	}
	if cfg.Cache.FallbackEnabled {
		t.Error("Expected fallback tier disabled")
	}
	if cfg.Telemetry.Metrics.Enabled {
		t.Error("Expected metrics endpoint disabled")
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, "server:\n  listen_address: \"127.0.0.1:8080\"\n")

	t.Setenv("MERCURY_SERVER_LISTEN_ADDRESS", "0.0.0.0:8888")
	t.Setenv("MERCURY_TELEMETRY_LOGGING_LEVEL", "debug")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides failed: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:8888" {
		t.Errorf("Expected env override for listen address, got %q", cfg.Server.ListenAddress)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("Expected env override for log level, got %q", cfg.Telemetry.Logging.Level)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantSub string
	}{
		{
			name:    "bad listen address",
			mutate:  func(cfg *Config) { cfg.Server.ListenAddress = "not-an-address" },
			wantSub: "server.listen_address",
		},
		{
			name: "zero quota window",
			mutate: func(cfg *Config) {
				cfg.RateLimits.Routes = map[string]QuotaConfig{
					"/go": {MaxRequests: 10, Window: 0},
				}
			},
			wantSub: "rate_limits.routes[/go].window",
		},
		{
			name: "bad quota pattern",
			mutate: func(cfg *Config) {
				cfg.RateLimits.Patterns = []PatternQuota{
					{Pattern: "([", Quota: QuotaConfig{MaxRequests: 1, Window: time.Second}},
				}
			},
			wantSub: "rate_limits.patterns[0].pattern",
		},
		{
			name:    "bad redirect status",
			mutate:  func(cfg *Config) { cfg.Redirects.DefaultStatus = 200 },
			wantSub: "redirects.default_status",
		},
		{
			name: "bad allow list entry",
			mutate: func(cfg *Config) {
				cfg.Telemetry.Metrics.Auth.AllowedIPs = []string{"10.0.0"}
			},
			wantSub: "telemetry.metrics.auth.allowed_ips[0]",
		},
		{
			name:    "bad cron schedule",
			mutate:  func(cfg *Config) { cfg.Cache.JanitorSchedule = "not a cron" },
			wantSub: "cache.janitor_schedule",
		},
		{
			name:    "basic user without password",
			mutate:  func(cfg *Config) { cfg.Telemetry.Metrics.Auth.BasicUser = "ops" },
			wantSub: "telemetry.metrics.auth.basic_password",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			ApplyDefaults(cfg)
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("Expected error mentioning %q, got: %v", tt.wantSub, err)
			}
		})
	}
}

func TestValidate_ValidDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		t.Errorf("Default configuration should be valid, got: %v", err)
	}
}
