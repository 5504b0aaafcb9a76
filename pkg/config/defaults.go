package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// Redis defaults
	DefaultRedisAddress      = "127.0.0.1:6379"
	DefaultRedisDialTimeout  = 2 * time.Second
	DefaultRedisReadTimeout  = 1 * time.Second
	DefaultRedisWriteTimeout = 1 * time.Second

	// Cache defaults
	DefaultCacheTTL          = 1 * time.Hour
	DefaultCacheKeyPrefix    = "mercury:"
	DefaultCacheDirectory    = "data/cache"
	DefaultJanitorSchedule   = "*/10 * * * *"
	DefaultSellerPositiveTTL = 24 * time.Hour
	DefaultSellerNegativeTTL = 5 * time.Minute

	// Redirect defaults
	DefaultRulesPath      = "./redirects.yaml"
	DefaultRedirectStatus = 302

	// Telemetry defaults
	DefaultLoggingLevel   = "info"
	DefaultLoggingFormat  = "json"
	DefaultMetricsPath    = "/metrics"
	DefaultMetricsCacheTTL       = 10 * time.Second
	DefaultMetricsRenderTimeout  = 5 * time.Second
	DefaultMetricsPersistCron    = "* * * * *"
	DefaultMetricsCounterTTL     = 24 * time.Hour
	DefaultMetricsHistogramTTL   = 12 * time.Hour
	DefaultMetricsGaugeTTL       = 1 * time.Hour
)

// ApplyDefaults fills in default values for any unset configuration fields.
// It is called automatically by LoadConfig before validation.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	// Redis defaults
	if cfg.Redis.Address == "" {
		cfg.Redis.Address = DefaultRedisAddress
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = DefaultRedisDialTimeout
	}
	if cfg.Redis.ReadTimeout == 0 {
		cfg.Redis.ReadTimeout = DefaultRedisReadTimeout
	}
	if cfg.Redis.WriteTimeout == 0 {
		cfg.Redis.WriteTimeout = DefaultRedisWriteTimeout
	}

	// Cache defaults
	if cfg.Cache.DefaultTTL == 0 {
		cfg.Cache.DefaultTTL = DefaultCacheTTL
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = DefaultCacheKeyPrefix
	}
	if cfg.Cache.Directory == "" {
		cfg.Cache.Directory = DefaultCacheDirectory
	}
	if cfg.Cache.JanitorSchedule == "" {
		cfg.Cache.JanitorSchedule = DefaultJanitorSchedule
	}
	if cfg.Cache.SellerPositiveTTL == 0 {
		cfg.Cache.SellerPositiveTTL = DefaultSellerPositiveTTL
	}
	if cfg.Cache.SellerNegativeTTL == 0 {
		cfg.Cache.SellerNegativeTTL = DefaultSellerNegativeTTL
	}

	// Redirect defaults
	if cfg.Redirects.RulesPath == "" {
		cfg.Redirects.RulesPath = DefaultRulesPath
	}
	if cfg.Redirects.DefaultStatus == 0 {
		cfg.Redirects.DefaultStatus = DefaultRedirectStatus
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.CacheTTL == 0 {
		cfg.Telemetry.Metrics.CacheTTL = DefaultMetricsCacheTTL
	}
	if cfg.Telemetry.Metrics.RenderTimeout == 0 {
		cfg.Telemetry.Metrics.RenderTimeout = DefaultMetricsRenderTimeout
	}
	if cfg.Telemetry.Metrics.PersistSchedule == "" {
		cfg.Telemetry.Metrics.PersistSchedule = DefaultMetricsPersistCron
	}
	if cfg.Telemetry.Metrics.CounterTTL == 0 {
		cfg.Telemetry.Metrics.CounterTTL = DefaultMetricsCounterTTL
	}
	if cfg.Telemetry.Metrics.HistogramTTL == 0 {
		cfg.Telemetry.Metrics.HistogramTTL = DefaultMetricsHistogramTTL
	}
	if cfg.Telemetry.Metrics.GaugeTTL == 0 {
		cfg.Telemetry.Metrics.GaugeTTL = DefaultMetricsGaugeTTL
	}
}
