package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Limiter is a distributed sliding-window rate limiter. Instances are
// stateless: all coordination happens through the shared WindowStore,
// so any number of horizontally scaled processes enforce one combined
// quota per (route, identifier) pair.
//
// The limiter fails open: if the store is unreachable or errors, every
// check reports not-exceeded. Correctness of rate limiting is secondary
// to availability of the redirect service.
type Limiter struct {
	store  WindowStore
	quotas *QuotaTable
	logger *slog.Logger

	// storeWarn throttles store-failure warnings so an outage cannot
	// flood the logs at request rate.
	storeWarn *rate.Limiter

	// now is injectable for tests.
	now func() time.Time
}

// NewLimiter creates a limiter over the given store and quota table.
func NewLimiter(store WindowStore, quotas *QuotaTable) *Limiter {
	return &Limiter{
		store:     store,
		quotas:    quotas,
		logger:    slog.Default().With("component", "ratelimit"),
		storeWarn: rate.NewLimiter(rate.Every(10*time.Second), 1),
		now:       time.Now,
	}
}

// windowKey builds the shared-store key for a (route, identifier) pair.
func windowKey(route, identifier string) string {
	return fmt.Sprintf("%s:%s", route, identifier)
}

// IsLimitExceeded reports whether another request from identifier on
// route would exceed the configured quota. When the quota is exceeded
// the request is NOT registered: a rejected request does not count
// against its own quota. Store failures fail open.
func (l *Limiter) IsLimitExceeded(ctx context.Context, route, identifier string) bool {
	quota, ok := l.quotas.Resolve(route)
	if !ok {
		return false
	}

	key := windowKey(route, identifier)
	now := l.now().Unix()
	windowSecs := int64(quota.Window.Seconds())

	count, err := l.store.PurgeAndCount(ctx, key, now-windowSecs)
	if err != nil {
		l.warnStoreFailure("rate limit check failed, failing open", key, err)
		return false
	}

	if count >= int64(quota.MaxRequests) {
		l.logger.Info("rate limit exceeded",
			"route", route,
			"identifier", identifier,
			"count", count,
			"limit", quota.MaxRequests,
			"window", quota.Window.String(),
		)
		return true
	}

	// The nonce keeps two requests that land on the same second from
	// overwriting each other's member.
	member := fmt.Sprintf("%d:%s", now, uuid.NewString())
	if err := l.store.Add(ctx, key, member, now, 2*quota.Window); err != nil {
		l.warnStoreFailure("rate limit registration failed", key, err)
	}
	return false
}

// Info returns the current quota state for the pair. The second result
// is false when the route is unlimited. Reset derives from the oldest
// surviving member plus the window, or now + window for an empty set.
// Store failures report a full quota (fail-open view).
func (l *Limiter) Info(ctx context.Context, route, identifier string) (Info, bool) {
	quota, ok := l.quotas.Resolve(route)
	if !ok {
		return Info{}, false
	}

	key := windowKey(route, identifier)
	now := l.now()
	windowSecs := int64(quota.Window.Seconds())

	info := Info{
		Limit:     quota.MaxRequests,
		Remaining: quota.MaxRequests,
		Reset:     now.Add(quota.Window),
	}

	count, err := l.store.PurgeAndCount(ctx, key, now.Unix()-windowSecs)
	if err != nil {
		l.warnStoreFailure("rate limit info lookup failed", key, err)
		return info, true
	}

	remaining := quota.MaxRequests - int(count)
	if remaining < 0 {
		remaining = 0
	}
	info.Remaining = remaining

	if oldest, ok, err := l.store.OldestScore(ctx, key); err == nil && ok {
		info.Reset = time.Unix(oldest, 0).Add(quota.Window)
	}

	return info, true
}

func (l *Limiter) warnStoreFailure(msg, key string, err error) {
	if l.storeWarn.Allow() {
		l.logger.Warn(msg, "key", key, "error", err)
	}
}
