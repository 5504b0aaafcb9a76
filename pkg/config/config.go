package config

import "time"

// Config is the root configuration structure for Mercator Mercury.
// It contains all configuration sections for the redirect server, the
// Redis-backed governance store, the tiered cache, rate limiting,
// redirect rules, and telemetry.
type Config struct {
	// Server contains HTTP server configuration including listen address,
	// timeouts, and header limits.
	Server ServerConfig `yaml:"server"`

	// Redis contains connection settings for the shared store used by the
	// rate limiter and the primary cache tier.
	Redis RedisConfig `yaml:"redis"`

	// Cache contains configuration for the tiered cache, including the
	// filesystem fallback tier and seller-lookup TTL policy.
	Cache CacheConfig `yaml:"cache"`

	// RateLimits contains per-route request quotas enforced by the
	// distributed sliding-window rate limiter.
	RateLimits RateLimitsConfig `yaml:"rate_limits"`

	// Redirects contains the redirect rule source and reload settings.
	Redirects RedirectsConfig `yaml:"redirects"`

	// Telemetry contains observability configuration: logging and the
	// metrics aggregator/endpoint.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP redirect server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8080", "0.0.0.0:8080").
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 10s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response.
	// Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum time to wait for the next request when
	// keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes controls the maximum number of bytes the server will
	// read parsing request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`
}

// RedisConfig contains connection settings for the shared Redis store.
// Redis is a soft dependency: every consumer degrades (fail-open limiter,
// fallback-only cache) when it is unreachable.
type RedisConfig struct {
	// Address is the Redis server address in "host:port" form.
	// Default: "127.0.0.1:6379"
	Address string `yaml:"address"`

	// Password is the Redis AUTH password. Empty means no authentication.
	Password string `yaml:"password"`

	// DB is the Redis logical database number.
	// Default: 0
	DB int `yaml:"db"`

	// DialTimeout bounds connection establishment. After this the caller
	// treats the store as unavailable rather than blocking.
	// Default: 2s
	DialTimeout time.Duration `yaml:"dial_timeout"`

	// ReadTimeout bounds individual read operations.
	// Default: 1s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds individual write operations.
	// Default: 1s
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// CacheConfig contains configuration for the tiered cache.
type CacheConfig struct {
	// DefaultTTL applies to Set calls that do not specify a TTL.
	// Default: 1h
	DefaultTTL time.Duration `yaml:"default_ttl"`

	// KeyPrefix is prepended to every primary-tier key to namespace
	// entries in a shared Redis instance.
	// Default: "mercury:"
	KeyPrefix string `yaml:"key_prefix"`

	// FallbackEnabled controls whether the filesystem fallback tier is
	// configured. The fallback tier is private per instance.
	// Default: true
	FallbackEnabled bool `yaml:"fallback_enabled"`

	// Directory is the root directory for the filesystem fallback tier.
	// Default: "data/cache"
	Directory string `yaml:"directory"`

	// JanitorSchedule is a cron expression for sweeping expired fallback
	// files. Empty disables the sweep.
	// Default: "*/10 * * * *"
	JanitorSchedule string `yaml:"janitor_schedule"`

	// SellerPositiveTTL is the TTL for successful seller lookups.
	// Default: 24h
	SellerPositiveTTL time.Duration `yaml:"seller_positive_ttl"`

	// SellerNegativeTTL is the TTL for failed seller lookups. Kept short
	// so that newly valid identifiers recover quickly.
	// Default: 5m
	SellerNegativeTTL time.Duration `yaml:"seller_negative_ttl"`
}

// QuotaConfig defines a request quota over a rolling time window.
type QuotaConfig struct {
	// MaxRequests is the number of requests permitted within Window.
	MaxRequests int `yaml:"max_requests"`

	// Window is the rolling window duration.
	Window time.Duration `yaml:"window"`
}

// PatternQuota binds a quota to a route regular expression.
type PatternQuota struct {
	// Pattern is a regular expression matched against the route.
	Pattern string `yaml:"pattern"`

	// Quota is the quota applied to routes matching Pattern.
	Quota QuotaConfig `yaml:"quota"`
}

// RateLimitsConfig contains per-route rate limit quotas.
//
// Quota resolution for a route: exact match in Routes, else the first
// matching entry in Patterns, else Default, else unlimited.
type RateLimitsConfig struct {
	// Enabled controls whether rate limiting is applied at all.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Routes maps exact route strings to quotas.
	Routes map[string]QuotaConfig `yaml:"routes"`

	// Patterns holds regex-matched quotas, evaluated in order.
	Patterns []PatternQuota `yaml:"patterns"`

	// Default applies to routes with no exact or pattern match.
	// A nil Default means unmatched routes are unlimited.
	Default *QuotaConfig `yaml:"default"`
}

// RedirectsConfig contains the redirect rule source configuration.
type RedirectsConfig struct {
	// RulesPath is the YAML file holding redirect rules.
	// Default: "./redirects.yaml"
	RulesPath string `yaml:"rules_path"`

	// Watch enables fsnotify-based hot reloading of the rules file.
	// Default: false
	Watch bool `yaml:"watch"`

	// DefaultStatus is the HTTP status used for rules that do not specify
	// one. Must be 301, 302, 307, or 308.
	// Default: 302
	DefaultStatus int `yaml:"default_status"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics aggregator and endpoint configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format: "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`
}

// MetricsConfig contains metrics aggregator and endpoint configuration.
type MetricsConfig struct {
	// Enabled controls the metrics endpoint. When false the endpoint
	// returns 404; the aggregator still records.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path of the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// CacheTTL is how long a rendered exposition is served from cache
	// before being regenerated.
	// Default: 10s
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// RenderTimeout bounds worst-case rendering latency under very high
	// series cardinality.
	// Default: 5s
	RenderTimeout time.Duration `yaml:"render_timeout"`

	// PersistSchedule is a cron expression for periodic snapshot
	// persistence in addition to write-through persistence.
	// Default: "* * * * *"
	PersistSchedule string `yaml:"persist_schedule"`

	// CounterTTL is the cache retention for persisted counter snapshots.
	// Counters are the longest lived kind.
	// Default: 24h
	CounterTTL time.Duration `yaml:"counter_ttl"`

	// HistogramTTL is the cache retention for persisted histogram
	// snapshots.
	// Default: 12h
	HistogramTTL time.Duration `yaml:"histogram_ttl"`

	// GaugeTTL is the cache retention for persisted gauge snapshots.
	// Gauges go stale fastest.
	// Default: 1h
	GaugeTTL time.Duration `yaml:"gauge_ttl"`

	// Auth contains endpoint access-control configuration.
	Auth MetricsAuthConfig `yaml:"auth"`
}

// MetricsAuthConfig contains access control for the metrics endpoint.
// A request is authorized when it matches the allow-list OR presents
// valid basic credentials; either alone is sufficient.
type MetricsAuthConfig struct {
	// Enabled controls whether access control is applied.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// AllowedIPs holds exact IPs or CIDR ranges permitted to scrape.
	AllowedIPs []string `yaml:"allowed_ips"`

	// BasicUser is the HTTP Basic username. Empty disables basic auth.
	BasicUser string `yaml:"basic_user"`

	// BasicPassword is the HTTP Basic password.
	BasicPassword string `yaml:"basic_password"`
}
