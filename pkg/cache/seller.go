package cache

import (
	"context"
	"time"
)

// sellerKeyPrefix namespaces seller lookup entries in the cache.
const sellerKeyPrefix = "seller:"

// SellerLookups caches seller-identifier to slug resolutions on top of
// the tiered cache.
//
// TTL policy: a failed lookup (the seller does not exist) is cached
// with a short negative TTL so that repeated misses for bogus
// identifiers do not repeatedly hit the slower lookup path, while a new
// valid seller still becomes visible quickly. A successful lookup is
// cached with a long positive TTL.
type SellerLookups struct {
	cache       *TieredCache
	positiveTTL time.Duration
	negativeTTL time.Duration
}

// sellerRecord is the structured cache payload for one lookup result.
type sellerRecord struct {
	Slug  string `json:"slug"`
	Found bool   `json:"found"`
}

// NewSellerLookups creates a seller lookup cache with the given TTL
// policy.
func NewSellerLookups(c *TieredCache, positiveTTL, negativeTTL time.Duration) *SellerLookups {
	return &SellerLookups{
		cache:       c,
		positiveTTL: positiveTTL,
		negativeTTL: negativeTTL,
	}
}

// Store caches the outcome of a seller lookup. A found result is kept
// for the positive TTL, a miss for the negative TTL.
func (s *SellerLookups) Store(ctx context.Context, id, slug string, found bool) error {
	ttl := s.positiveTTL
	if !found {
		ttl = s.negativeTTL
		slug = ""
	}
	value := Structured(map[string]any{
		"slug":  slug,
		"found": found,
	})
	return s.cache.Set(ctx, sellerKeyPrefix+id, value, ttl)
}

// Slug returns the cached lookup result for id. The second result is
// the lookup outcome (false for a cached miss); the third reports
// whether any result was cached at all.
func (s *SellerLookups) Slug(ctx context.Context, id string) (slug string, found bool, cached bool) {
	value, ok := s.cache.Get(ctx, sellerKeyPrefix+id)
	if !ok {
		return "", false, false
	}

	record, ok := decodeSellerRecord(value)
	if !ok {
		// A foreign or corrupted entry is treated as uncached; the next
		// Store overwrites it.
		return "", false, false
	}
	return record.Slug, record.Found, true
}

// Resolve returns the slug for id, consulting the cache before invoking
// lookup and caching whatever lookup returns per the TTL policy.
func (s *SellerLookups) Resolve(ctx context.Context, id string, lookup func(string) (string, bool)) (string, bool) {
	if slug, found, cached := s.Slug(ctx, id); cached {
		return slug, found
	}

	slug, found := lookup(id)
	// Best effort: a failed cache write must not fail the lookup.
	_ = s.Store(ctx, id, slug, found)
	return slug, found
}

func decodeSellerRecord(v Value) (sellerRecord, bool) {
	m, ok := v.Interface().(map[string]any)
	if !ok {
		return sellerRecord{}, false
	}
	found, ok := m["found"].(bool)
	if !ok {
		return sellerRecord{}, false
	}
	slug, _ := m["slug"].(string)
	return sellerRecord{Slug: slug, Found: found}, true
}
