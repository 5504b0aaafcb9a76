package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// storeKeyPrefix namespaces rate-limit keys in the shared store.
const storeKeyPrefix = "ratelimit:"

// WindowStore is the scored-set capability the sliding-window limiter
// requires from the shared store. Every method is a bounded blocking
// call; implementations return an error rather than hanging when the
// store is unreachable.
type WindowStore interface {
	// PurgeAndCount removes all members of key with score in [0, cutoff]
	// and returns the cardinality of the surviving set. Purge and count
	// execute atomically with respect to other callers of the same key.
	PurgeAndCount(ctx context.Context, key string, cutoff int64) (int64, error)

	// Add registers member with the given score and refreshes the key's
	// expiry to ttl.
	Add(ctx context.Context, key, member string, score int64, ttl time.Duration) error

	// OldestScore returns the smallest score in the set. The second
	// result is false when the set is empty.
	OldestScore(ctx context.Context, key string) (int64, bool, error)
}

// RedisWindowStore implements WindowStore on Redis sorted sets.
//
// Purge, count, and add are issued as pipelines so that concurrent
// requests against the same key cannot interleave a stale count between
// the purge and the read. A slight overshoot under extreme races is
// accepted in exchange for avoiding distributed locks.
type RedisWindowStore struct {
	client *redis.Client
}

// NewRedisWindowStore creates a Redis-backed window store. The client's
// dial/read/write timeouts bound every operation.
func NewRedisWindowStore(client *redis.Client) *RedisWindowStore {
	return &RedisWindowStore{client: client}
}

// PurgeAndCount removes expired members and counts the remainder in one
// pipeline.
func (s *RedisWindowStore) PurgeAndCount(ctx context.Context, key string, cutoff int64) (int64, error) {
	fullKey := storeKeyPrefix + key

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, fullKey, "0", strconv.FormatInt(cutoff, 10))
	card := pipe.ZCard(ctx, fullKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("window purge pipeline failed: %w", err)
	}
	return card.Val(), nil
}

// Add registers a new member and refreshes the key expiry in one
// pipeline.
func (s *RedisWindowStore) Add(ctx context.Context, key, member string, score int64, ttl time.Duration) error {
	fullKey := storeKeyPrefix + key

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, fullKey, redis.Z{Score: float64(score), Member: member})
	pipe.Expire(ctx, fullKey, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("window add pipeline failed: %w", err)
	}
	return nil
}

// OldestScore returns the score of the oldest surviving member.
func (s *RedisWindowStore) OldestScore(ctx context.Context, key string) (int64, bool, error) {
	entries, err := s.client.ZRangeWithScores(ctx, storeKeyPrefix+key, 0, 0).Result()
	if err != nil {
		return 0, false, fmt.Errorf("window oldest lookup failed: %w", err)
	}
	if len(entries) == 0 {
		return 0, false, nil
	}
	return int64(entries[0].Score), true, nil
}
