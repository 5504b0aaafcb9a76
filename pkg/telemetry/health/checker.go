package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// CheckFunc probes one dependency. It returns nil when the dependency
// is usable.
type CheckFunc func(ctx context.Context) error

// CheckResult is the outcome of a single dependency check.
type CheckResult struct {
	// Status is "ok" or "unhealthy".
	Status string `json:"status"`

	// Message carries the failure detail for unhealthy checks.
	Message string `json:"message,omitempty"`

	// Duration is how long the check took, in milliseconds.
	Duration float64 `json:"duration_ms"`
}

// Status is the aggregate readiness report.
type Status struct {
	// Status is "ok" when every check passed, "degraded" otherwise.
	Status string `json:"status"`

	// Checks holds per-dependency results, keyed by registered name.
	Checks map[string]CheckResult `json:"checks,omitempty"`

	// Timestamp is when the report was produced.
	Timestamp time.Time `json:"timestamp"`
}

// defaultCheckTimeout bounds each individual dependency probe.
const defaultCheckTimeout = 5 * time.Second

// Checker runs registered dependency checks for the readiness probe.
// Liveness never consults the checks: a process that can answer HTTP is
// alive regardless of its dependencies.
type Checker struct {
	mu           sync.RWMutex
	checks       map[string]CheckFunc
	checkTimeout time.Duration
}

// New creates a checker. A zero timeout uses the default of 5 seconds
// per check.
func New(checkTimeout time.Duration) *Checker {
	if checkTimeout == 0 {
		checkTimeout = defaultCheckTimeout
	}
	return &Checker{
		checks:       make(map[string]CheckFunc),
		checkTimeout: checkTimeout,
	}
}

// Register adds a named dependency check. Registering the same name
// again replaces the previous check.
func (c *Checker) Register(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// CheckReadiness runs every registered check and aggregates the
// results. Degradation is reported per dependency; the redirect path
// itself degrades gracefully, so a failing dependency marks the
// instance degraded rather than dead.
func (c *Checker) CheckReadiness(ctx context.Context) Status {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	checks := make(map[string]CheckFunc, len(names))
	for _, name := range names {
		checks[name] = c.checks[name]
	}
	c.mu.RUnlock()

	status := Status{
		Status:    "ok",
		Checks:    make(map[string]CheckResult, len(names)),
		Timestamp: time.Now().UTC(),
	}

	for _, name := range names {
		result := c.run(ctx, checks[name])
		if result.Status != "ok" {
			status.Status = "degraded"
		}
		status.Checks[name] = result
	}

	return status
}

func (c *Checker) run(ctx context.Context, check CheckFunc) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()

	start := time.Now()
	err := check(checkCtx)
	elapsed := float64(time.Since(start).Microseconds()) / 1000

	if err != nil {
		return CheckResult{Status: "unhealthy", Message: err.Error(), Duration: elapsed}
	}
	return CheckResult{Status: "ok", Duration: elapsed}
}
