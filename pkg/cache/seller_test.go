package cache

import (
	"context"
	"testing"
	"time"
)

func TestSellerLookups_PositiveResult(t *testing.T) {
	ctx := context.Background()
	c := NewTieredCache(NewMemoryTier())
	lookups := NewSellerLookups(c, time.Hour, time.Minute)

	if err := lookups.Store(ctx, "42", "acme-corp", true); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	slug, found, cached := lookups.Slug(ctx, "42")
	if !cached {
		t.Fatal("Expected a cached result")
	}
	if !found || slug != "acme-corp" {
		t.Errorf("Expected found acme-corp, got %q (found=%v)", slug, found)
	}
}

func TestSellerLookups_NegativeResultCached(t *testing.T) {
	ctx := context.Background()
	c := NewTieredCache(NewMemoryTier())
	lookups := NewSellerLookups(c, time.Hour, time.Minute)

	if err := lookups.Store(ctx, "999", "", false); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	slug, found, cached := lookups.Slug(ctx, "999")
	if !cached {
		t.Fatal("Expected the miss itself to be cached")
	}
	if found || slug != "" {
		t.Errorf("Expected cached miss, got %q (found=%v)", slug, found)
	}
}

func TestSellerLookups_NegativeTTLShorterThanPositive(t *testing.T) {
	ctx := context.Background()
	c := NewTieredCache(NewMemoryTier())
	lookups := NewSellerLookups(c, time.Hour, 30*time.Millisecond)

	if err := lookups.Store(ctx, "999", "", false); err != nil {
		t.Fatal(err)
	}
	if err := lookups.Store(ctx, "42", "acme-corp", true); err != nil {
		t.Fatal(err)
	}

	time.Sleep(60 * time.Millisecond)

	if _, _, cached := lookups.Slug(ctx, "999"); cached {
		t.Error("Expected negative entry to expire after the short TTL")
	}
	if _, _, cached := lookups.Slug(ctx, "42"); !cached {
		t.Error("Expected positive entry to survive")
	}
}

func TestSellerLookups_ResolveDoesNotReinvokeLookup(t *testing.T) {
	ctx := context.Background()
	c := NewTieredCache(NewMemoryTier())
	lookups := NewSellerLookups(c, time.Hour, time.Minute)

	calls := 0
	lookup := func(id string) (string, bool) {
		calls++
		return "", false
	}

	// First call misses the cache and invokes the lookup.
	if _, found := lookups.Resolve(ctx, "bogus", lookup); found {
		t.Error("Expected lookup miss")
	}
	// Second call is served from the cached negative result.
	if _, found := lookups.Resolve(ctx, "bogus", lookup); found {
		t.Error("Expected cached miss")
	}

	if calls != 1 {
		t.Errorf("Expected exactly 1 lookup invocation, got %d", calls)
	}
}
