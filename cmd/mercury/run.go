package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"mercator-hq/mercury/pkg/cache"
	"mercator-hq/mercury/pkg/config"
	"mercator-hq/mercury/pkg/ratelimit"
	"mercator-hq/mercury/pkg/redirect"
	"mercator-hq/mercury/pkg/server"
	"mercator-hq/mercury/pkg/telemetry/health"
	"mercator-hq/mercury/pkg/telemetry/logging"
	"mercator-hq/mercury/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Mercury redirect server",
	Long: `Start the Mercury redirect server with the specified configuration.

The server resolves request paths against the redirect rule table behind
the rate limiter, and serves aggregated metrics on the configured
endpoint.

Examples:
  # Start with default config
  mercury run

  # Start with custom config
  mercury run --config /etc/mercury/config.yaml

  # Override listen address
  mercury run --listen 0.0.0.0:8080

  # Validate config without starting server
  mercury run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	if _, err := logging.Setup(cfg.Telemetry.Logging); err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Mercator Mercury v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Shared Redis client for the primary cache tier and the rate
	// limit window store.
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Address,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	defer client.Close()

	// The recorder is bound before the aggregator exists; operations
	// issued while it is still nil (snapshot loading during aggregator
	// construction) are not counted.
	var aggregator *metrics.Aggregator
	recordCacheOp := func(operation, result string) {
		if aggregator == nil {
			return
		}
		aggregator.IncrementCounter(ctx, "mercury_cache_operations_total",
			map[string]string{"operation": operation, "result": result}, 1)
	}

	tiered, janitor, err := buildCache(ctx, cfg, client, recordCacheOp)
	if err != nil {
		return err
	}
	if janitor != nil {
		defer janitor.Stop()
	}
	fmt.Println("✓ Tiered cache initialized")

	limiter, err := buildLimiter(cfg, client)
	if err != nil {
		return err
	}
	if limiter != nil {
		fmt.Println("✓ Rate limiter initialized")
	}

	resolver, err := redirect.NewResolver(cfg.Redirects.RulesPath, cfg.Redirects.DefaultStatus, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to load redirect rules: %w", err)
	}
	fmt.Printf("✓ Redirect rules loaded (%d rules)\n", resolver.RuleCount())

	aggregator = metrics.NewAggregator(metrics.DefaultRegistry(), tiered, metrics.RetentionTTLs{
		Counters:   cfg.Telemetry.Metrics.CounterTTL,
		Gauges:     cfg.Telemetry.Metrics.GaugeTTL,
		Histograms: cfg.Telemetry.Metrics.HistogramTTL,
	})
	aggregator.SetGauge(ctx, "mercury_redirect_rules", float64(resolver.RuleCount()), nil)
	resolver.OnReload(func(ruleCount int) {
		aggregator.SetGauge(ctx, "mercury_redirect_rules", float64(ruleCount), nil)
	})

	endpoint, err := metrics.NewEndpoint(aggregator, cfg.Telemetry.Metrics, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create metrics endpoint: %w", err)
	}

	persister := metrics.NewScheduler(aggregator, cfg.Telemetry.Metrics.PersistSchedule)
	if err := persister.Start(ctx); err != nil {
		slog.Warn("failed to start metrics persistence scheduler", "error", err)
	} else {
		defer persister.Stop()
	}

	if cfg.Redirects.Watch {
		watcher, err := redirect.NewWatcher(resolver, slog.Default())
		if err != nil {
			return fmt.Errorf("failed to create rules watcher: %w", err)
		}
		go func() {
			if err := watcher.Watch(ctx); err != nil {
				slog.Error("rules watcher exited", "error", err)
			}
		}()
		defer func() { _ = watcher.Stop() }()
		fmt.Println("✓ Rules hot reload enabled")
	}

	sellers := cache.NewSellerLookups(tiered, cfg.Cache.SellerPositiveTTL, cfg.Cache.SellerNegativeTTL)

	checker := health.New(0)
	checker.Register("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	checker.Register("rules", func(ctx context.Context) error {
		if resolver.RuleCount() == 0 {
			return fmt.Errorf("no redirect rules loaded")
		}
		return nil
	})

	srv := server.NewServer(cfg, server.Dependencies{
		Resolver:        resolver,
		Limiter:         limiter,
		Sellers:         sellers,
		Aggregator:      aggregator,
		Health:          checker,
		MetricsEndpoint: endpoint,
	})

	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Start blocks until a shutdown signal or a listener error.
	return srv.Start(ctx)
}

// buildCache constructs the tiered cache: Redis primary, filesystem
// fallback when enabled, plus the fallback sweep janitor.
func buildCache(ctx context.Context, cfg *config.Config, client *redis.Client, record cache.OperationRecorder) (*cache.TieredCache, *cache.Janitor, error) {
	primary := cache.NewRedisTier(client, cfg.Cache.KeyPrefix)

	opts := []cache.Option{
		cache.WithDefaultTTL(cfg.Cache.DefaultTTL),
		cache.WithLogger(slog.Default()),
		cache.WithOperationRecorder(record),
	}

	var janitor *cache.Janitor
	if cfg.Cache.FallbackEnabled {
		fallback, err := cache.NewFileTier(cfg.Cache.Directory)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create cache fallback tier: %w", err)
		}
		opts = append(opts, cache.WithFallback(fallback))

		if cfg.Cache.JanitorSchedule != "" {
			janitor = cache.NewJanitor(fallback, cfg.Cache.JanitorSchedule)
			if err := janitor.Start(ctx); err != nil {
				slog.Warn("failed to start cache janitor", "error", err)
				janitor = nil
			}
		}
	}

	return cache.NewTieredCache(primary, opts...), janitor, nil
}

// buildLimiter constructs the sliding-window rate limiter from the
// configured quota table. Returns nil when rate limiting is disabled.
func buildLimiter(cfg *config.Config, client *redis.Client) (*ratelimit.Limiter, error) {
	if !cfg.RateLimits.Enabled {
		return nil, nil
	}

	exact := make(map[string]ratelimit.Quota, len(cfg.RateLimits.Routes))
	for route, quota := range cfg.RateLimits.Routes {
		exact[route] = ratelimit.Quota{MaxRequests: quota.MaxRequests, Window: quota.Window}
	}

	var fallback *ratelimit.Quota
	if cfg.RateLimits.Default != nil {
		fallback = &ratelimit.Quota{
			MaxRequests: cfg.RateLimits.Default.MaxRequests,
			Window:      cfg.RateLimits.Default.Window,
		}
	}

	patterns := make([]ratelimit.PatternQuota, 0, len(cfg.RateLimits.Patterns))
	for _, p := range cfg.RateLimits.Patterns {
		patterns = append(patterns, ratelimit.PatternQuota{
			Pattern: p.Pattern,
			Quota:   ratelimit.Quota{MaxRequests: p.Quota.MaxRequests, Window: p.Quota.Window},
		})
	}

	quotas, err := ratelimit.NewQuotaTable(exact, patterns, fallback)
	if err != nil {
		return nil, fmt.Errorf("failed to build quota table: %w", err)
	}

	return ratelimit.NewLimiter(ratelimit.NewRedisWindowStore(client), quotas), nil
}
