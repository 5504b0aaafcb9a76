package cache

import (
	"context"
	"sync"
	"time"
)

// memoryItem is a single in-memory cache entry.
type memoryItem struct {
	value     Value
	expiresAt time.Time // zero means never
}

// MemoryTier implements Tier with in-process storage. It backs the
// tiered cache in tests and serves as a local primary when no shared
// store is configured. All data is lost when the process exits.
//
// MemoryTier is thread-safe using sync.RWMutex.
type MemoryTier struct {
	mu    sync.RWMutex
	items map[string]memoryItem
}

// NewMemoryTier creates an empty in-memory tier.
func NewMemoryTier() *MemoryTier {
	return &MemoryTier{items: make(map[string]memoryItem)}
}

// Name identifies the tier in logs.
func (t *MemoryTier) Name() string { return "memory" }

// Get returns the value for key, evicting it if expired.
func (t *MemoryTier) Get(ctx context.Context, key string) (Value, bool, error) {
	t.mu.RLock()
	item, ok := t.items[key]
	t.mu.RUnlock()

	if !ok {
		return Value{}, false, nil
	}
	if !item.expiresAt.IsZero() && !item.expiresAt.After(time.Now()) {
		t.mu.Lock()
		delete(t.items, key)
		t.mu.Unlock()
		return Value{}, false, nil
	}
	return item.value, true, nil
}

// Set stores value under key. A zero ttl stores the entry without
// expiry; a negative ttl stores it already expired.
func (t *MemoryTier) Set(ctx context.Context, key string, value Value, ttl time.Duration) error {
	item := memoryItem{value: value}
	if ttl != 0 {
		item.expiresAt = time.Now().Add(ttl)
	}

	t.mu.Lock()
	t.items[key] = item
	t.mu.Unlock()
	return nil
}

// Delete removes key.
func (t *MemoryTier) Delete(ctx context.Context, key string) error {
	t.mu.Lock()
	delete(t.items, key)
	t.mu.Unlock()
	return nil
}

// Clear removes all entries.
func (t *MemoryTier) Clear(ctx context.Context) error {
	t.mu.Lock()
	t.items = make(map[string]memoryItem)
	t.mu.Unlock()
	return nil
}
