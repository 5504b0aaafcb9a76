package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// availabilityCooldown is how long a tier stays in degraded mode after a
// connection failure before operations are attempted again.
const availabilityCooldown = 30 * time.Second

// RedisTier is the primary cache tier backed by a shared Redis store.
//
// Structured values are JSON text on the wire; scalars are stored raw,
// so entries written by other processes remain readable. A connection
// failure marks the tier unavailable: until the cooldown elapses every
// operation returns ErrUnavailable immediately instead of re-dialing,
// so callers degrade to the fallback tier without paying connect
// timeouts on each request.
type RedisTier struct {
	client    *redis.Client
	keyPrefix string
	logger    *slog.Logger

	mu          sync.Mutex
	downUntil   time.Time
	unavailable bool
}

// NewRedisTier creates a Redis-backed primary tier. The client's own
// dial/read/write timeouts bound every operation.
func NewRedisTier(client *redis.Client, keyPrefix string) *RedisTier {
	return &RedisTier{
		client:    client,
		keyPrefix: keyPrefix,
		logger:    slog.Default().With("component", "cache.redis"),
	}
}

// Name identifies the tier in logs.
func (t *RedisTier) Name() string { return "redis" }

// Get returns the decoded value for key, or absent on miss.
func (t *RedisTier) Get(ctx context.Context, key string) (Value, bool, error) {
	if !t.available() {
		return Value{}, false, ErrUnavailable
	}

	stored, err := t.client.Get(ctx, t.keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return Value{}, false, nil
	}
	if err != nil {
		t.markUnavailable(err)
		return Value{}, false, ErrUnavailable
	}

	return DecodeValue(stored), true, nil
}

// Set stores the encoded value under key with the given TTL. A zero ttl
// stores the key without expiry.
func (t *RedisTier) Set(ctx context.Context, key string, value Value, ttl time.Duration) error {
	if !t.available() {
		return ErrUnavailable
	}

	encoded, err := value.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode value for %q: %w", key, err)
	}

	if err := t.client.Set(ctx, t.keyPrefix+key, encoded, ttl).Err(); err != nil {
		t.markUnavailable(err)
		return ErrUnavailable
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (t *RedisTier) Delete(ctx context.Context, key string) error {
	if !t.available() {
		return ErrUnavailable
	}

	if err := t.client.Del(ctx, t.keyPrefix+key).Err(); err != nil {
		t.markUnavailable(err)
		return ErrUnavailable
	}
	return nil
}

// Clear removes every key under the tier's prefix. Keys are discovered
// with SCAN so that a shared Redis instance is never flushed wholesale.
func (t *RedisTier) Clear(ctx context.Context) error {
	if !t.available() {
		return ErrUnavailable
	}

	iter := t.client.Scan(ctx, 0, t.keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := t.client.Del(ctx, iter.Val()).Err(); err != nil {
			t.markUnavailable(err)
			return ErrUnavailable
		}
	}
	if err := iter.Err(); err != nil {
		t.markUnavailable(err)
		return ErrUnavailable
	}
	return nil
}

// available reports whether operations should be attempted. After the
// cooldown the tier optimistically tries again.
func (t *RedisTier) available() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.unavailable {
		return true
	}
	if time.Now().After(t.downUntil) {
		t.unavailable = false
		t.logger.Info("retrying redis tier after cooldown")
		return true
	}
	return false
}

func (t *RedisTier) markUnavailable(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.unavailable {
		t.logger.Warn("redis tier unavailable, entering degraded mode",
			"cooldown", availabilityCooldown.String(),
			"error", err,
		)
	}
	t.unavailable = true
	t.downUntil = time.Now().Add(availabilityCooldown)
}
