package cache

import (
	"context"
	"log/slog"
	"time"
)

// TieredCache is a two-tier cache with a fast primary store and an
// optional durable fallback store.
//
// Read path: the primary is queried first; on a miss the fallback is
// queried, and a fallback hit is written back into the primary
// (read-repair) before being returned. Write, delete, and clear fan out
// to both tiers; the primary's outcome is authoritative while fallback
// failures are logged and swallowed.
//
// Tier failures never surface to callers as errors: an unavailable
// primary degrades reads to the fallback, and an unavailable fallback
// leaves the primary as the only tier. Cross-tier coherence is
// eventually consistent at best and must only be relied on for
// performance, never correctness.
type TieredCache struct {
	primary    Tier
	fallback   Tier // may be nil
	defaultTTL time.Duration
	logger     *slog.Logger
	record     OperationRecorder // may be nil
}

// OperationRecorder observes completed cache operations. It receives
// the operation name (get, set, delete) and its result (hit or miss for
// reads, ok or error for writes and deletes).
type OperationRecorder func(operation, result string)

// Option configures a TieredCache.
type Option func(*TieredCache)

// WithFallback configures a durable fallback tier.
func WithFallback(t Tier) Option {
	return func(c *TieredCache) { c.fallback = t }
}

// WithDefaultTTL sets the TTL applied when Set is called with a zero
// ttl.
func WithDefaultTTL(d time.Duration) Option {
	return func(c *TieredCache) { c.defaultTTL = d }
}

// WithLogger sets the logger used for degraded-mode warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *TieredCache) { c.logger = l }
}

// WithOperationRecorder registers a recorder called after every get,
// set, and delete.
func WithOperationRecorder(fn OperationRecorder) Option {
	return func(c *TieredCache) { c.record = fn }
}

// NewTieredCache creates a tiered cache over the given primary tier.
func NewTieredCache(primary Tier, opts ...Option) *TieredCache {
	c := &TieredCache{
		primary:    primary,
		defaultTTL: time.Hour,
		logger:     slog.Default().With("component", "cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value for key, consulting the primary tier and then
// the fallback. The second result is false when the key is absent from
// both tiers.
func (c *TieredCache) Get(ctx context.Context, key string) (Value, bool) {
	value, ok, err := c.primary.Get(ctx, key)
	if err != nil {
		c.logger.Warn("primary tier read failed",
			"tier", c.primary.Name(),
			"key", key,
			"error", err,
		)
	}
	if ok {
		c.recordOp("get", "hit")
		return value, true
	}

	if c.fallback == nil {
		c.recordOp("get", "miss")
		return Value{}, false
	}

	value, ok, err = c.fallback.Get(ctx, key)
	if err != nil {
		c.logger.Warn("fallback tier read failed",
			"tier", c.fallback.Name(),
			"key", key,
			"error", err,
		)
	}
	if !ok {
		c.recordOp("get", "miss")
		return Value{}, false
	}
	c.recordOp("get", "hit")

	// Read-repair: repopulate the primary so subsequent reads stay on
	// the fast path.
	if err := c.primary.Set(ctx, key, value, c.defaultTTL); err != nil {
		c.logger.Warn("read-repair failed",
			"tier", c.primary.Name(),
			"key", key,
			"error", err,
		)
	}

	return value, true
}

// Has reports whether key is present in either tier.
func (c *TieredCache) Has(ctx context.Context, key string) bool {
	_, ok := c.Get(ctx, key)
	return ok
}

// Set stores value under key in both tiers. A zero ttl uses the default
// TTL; a negative ttl describes an entry that has already expired, so
// any existing entry is removed instead of stored. The returned error
// reflects the primary tier only; fallback failures are logged.
func (c *TieredCache) Set(ctx context.Context, key string, value Value, ttl time.Duration) error {
	if ttl < 0 {
		return c.Delete(ctx, key)
	}
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	primaryErr := c.primary.Set(ctx, key, value, ttl)
	if primaryErr != nil {
		c.logger.Warn("primary tier write failed",
			"tier", c.primary.Name(),
			"key", key,
			"error", primaryErr,
		)
	}

	if c.fallback != nil {
		if err := c.fallback.Set(ctx, key, value, ttl); err != nil {
			c.logger.Warn("fallback tier write failed",
				"tier", c.fallback.Name(),
				"key", key,
				"error", err,
			)
		}
	}

	c.recordOp("set", opResult(primaryErr))
	return primaryErr
}

// Delete removes key from both tiers. The returned error reflects the
// primary tier only.
func (c *TieredCache) Delete(ctx context.Context, key string) error {
	primaryErr := c.primary.Delete(ctx, key)
	if c.fallback != nil {
		if err := c.fallback.Delete(ctx, key); err != nil {
			c.logger.Warn("fallback tier delete failed",
				"tier", c.fallback.Name(),
				"key", key,
				"error", err,
			)
		}
	}
	c.recordOp("delete", opResult(primaryErr))
	return primaryErr
}

func (c *TieredCache) recordOp(operation, result string) {
	if c.record != nil {
		c.record(operation, result)
	}
}

func opResult(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Clear removes all entries from both tiers. The returned error
// reflects the primary tier only.
func (c *TieredCache) Clear(ctx context.Context) error {
	primaryErr := c.primary.Clear(ctx)
	if c.fallback != nil {
		if err := c.fallback.Clear(ctx); err != nil {
			c.logger.Warn("fallback tier clear failed",
				"tier", c.fallback.Name(),
				"error", err,
			)
		}
	}
	return primaryErr
}

// GetMultiple returns the values present for the given keys. Absent
// keys are omitted from the result.
func (c *TieredCache) GetMultiple(ctx context.Context, keys []string) map[string]Value {
	result := make(map[string]Value, len(keys))
	for _, key := range keys {
		if value, ok := c.Get(ctx, key); ok {
			result[key] = value
		}
	}
	return result
}

// SetMultiple stores all entries with the given TTL. It returns the
// first primary-tier error encountered, after attempting every key.
func (c *TieredCache) SetMultiple(ctx context.Context, entries map[string]Value, ttl time.Duration) error {
	var firstErr error
	for key, value := range entries {
		if err := c.Set(ctx, key, value, ttl); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeleteMultiple removes all given keys. It returns the first
// primary-tier error encountered, after attempting every key.
func (c *TieredCache) DeleteMultiple(ctx context.Context, keys []string) error {
	var firstErr error
	for _, key := range keys {
		if err := c.Delete(ctx, key); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
