package ratelimit

import (
	"fmt"
	"regexp"
	"time"
)

// Quota defines a request quota over a rolling time window.
type Quota struct {
	// MaxRequests is the number of requests permitted within Window.
	MaxRequests int

	// Window is the rolling window duration.
	Window time.Duration
}

// Info describes the current quota state for a (route, identifier)
// pair. It is surfaced to clients through X-RateLimit-* headers.
type Info struct {
	// Limit is the configured maximum for the window.
	Limit int

	// Remaining is how many requests remain before rejection.
	Remaining int

	// Reset is when the oldest surviving request leaves the window.
	Reset time.Time
}

// PatternQuota pairs a route-matching regular expression with its
// quota. Slice order is evaluation order: the first matching pattern
// wins.
type PatternQuota struct {
	Pattern string
	Quota   Quota
}

// patternQuota binds a compiled route pattern to a quota.
type patternQuota struct {
	pattern *regexp.Regexp
	quota   Quota
}

// QuotaTable resolves the quota for a route.
//
// Resolution order: exact route match, then the first matching regex
// pattern, then the global default. A route that matches nothing is
// unlimited.
type QuotaTable struct {
	exact    map[string]Quota
	patterns []patternQuota
	fallback *Quota
}

// NewQuotaTable builds a quota table, compiling the pattern entries in
// the order given.
func NewQuotaTable(exact map[string]Quota, patterns []PatternQuota, fallback *Quota) (*QuotaTable, error) {
	t := &QuotaTable{
		exact:    make(map[string]Quota, len(exact)),
		fallback: fallback,
	}
	for route, quota := range exact {
		t.exact[route] = quota
	}
	for _, p := range patterns {
		if err := t.AddPattern(p.Pattern, p.Quota); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// AddPattern appends a compiled pattern quota, preserving evaluation
// order. Intended for construction from ordered configuration.
func (t *QuotaTable) AddPattern(expr string, quota Quota) error {
	re, err := regexp.Compile(expr)
	if err != nil {
		return fmt.Errorf("invalid route pattern %q: %w", expr, err)
	}
	t.patterns = append(t.patterns, patternQuota{pattern: re, quota: quota})
	return nil
}

// Resolve returns the quota for route. The second result is false when
// the route is unlimited.
func (t *QuotaTable) Resolve(route string) (Quota, bool) {
	if quota, ok := t.exact[route]; ok {
		return quota, true
	}
	for _, pq := range t.patterns {
		if pq.pattern.MatchString(route) {
			return pq.quota, true
		}
	}
	if t.fallback != nil {
		return *t.fallback, true
	}
	return Quota{}, false
}
