// Package cache provides the tiered cache used by the governance layer.
//
// A TieredCache combines a fast primary tier (Redis, shared across
// instances) with an optional durable fallback tier (local filesystem,
// private per instance). Reads consult the primary first and repair it
// from the fallback on a hit there; writes fan out to both tiers with
// the primary's outcome authoritative.
//
// # Tiers
//
//   - RedisTier: shared primary store. Marks itself unavailable on
//     connection failures and short-circuits operations during a
//     cooldown, so callers degrade to the fallback without paying
//     connect timeouts per request.
//   - FileTier: sharded one-file-per-key fallback at
//     <dir>/<sha256(key)[0:2]>/<sha256(key)>.cache. Expired and
//     malformed entries are deleted on read; a cron Janitor sweeps
//     expired files between reads.
//   - MemoryTier: in-process tier for tests and storeless deployments.
//
// # Values
//
// Whether a value is a raw scalar or a structured record is decided at
// the call site with the Scalar and Structured constructors. Structured
// values travel as JSON text; stored text that fails JSON decoding is
// returned as a scalar, keeping entries written by non-encoding-aware
// writers readable.
//
// # Seller lookups
//
// SellerLookups layers the redirect front end's seller-id to slug
// resolution on top of the cache with an asymmetric TTL policy: misses
// are cached briefly, hits for a long time.
package cache
