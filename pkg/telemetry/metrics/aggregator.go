package metrics

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"mercator-hq/mercury/pkg/cache"
)

// Cache keys for persisted snapshots, one per metric kind.
const (
	countersKey   = "metrics:counters"
	gaugesKey     = "metrics:gauges"
	histogramsKey = "metrics:histograms"
)

// persistMinInterval bounds write-through persistence so that hot
// request paths do not hit the cache on every single update. The cron
// schedule and Persist cover the gaps.
const persistMinInterval = 2 * time.Second

// RetentionTTLs holds the cache retention per metric kind. Counters
// live longest; gauges go stale fastest.
type RetentionTTLs struct {
	Counters   time.Duration
	Gauges     time.Duration
	Histograms time.Duration
}

// counterSeries is one counter series.
type counterSeries struct {
	Labels map[string]string `json:"labels"`
	Value  int64             `json:"value"`
}

// gaugeSeries is one gauge series.
type gaugeSeries struct {
	Labels map[string]string `json:"labels"`
	Value  float64           `json:"value"`
}

// histogramSeries is one histogram series. Buckets is parallel to the
// definition's bounds and cumulative: Buckets[i] counts observations
// less than or equal to bound i. The implicit +Inf bucket equals Count.
type histogramSeries struct {
	Labels  map[string]string `json:"labels"`
	Count   uint64            `json:"count"`
	Sum     float64           `json:"sum"`
	Buckets []uint64          `json:"buckets"`
}

// Aggregator accumulates metric series in process memory and persists
// them through the tiered cache so that short-lived, horizontally
// scaled instances appear continuous to a scraper.
//
// On construction the aggregator loads the most recent snapshot and
// continues accumulating from it. Persistence is last-persisted-wins:
// concurrent instances can lose interleaved increments. That
// approximation is accepted over per-series atomic store commands for
// simplicity; see DESIGN.md.
//
// Metric updates never fail the request path: unknown metric names and
// cache failures are logged and swallowed.
type Aggregator struct {
	registry *Registry
	cache    *cache.TieredCache // nil disables persistence
	ttls     RetentionTTLs
	logger   *slog.Logger

	mu          sync.Mutex
	counters    map[string]map[string]*counterSeries
	gauges      map[string]map[string]*gaugeSeries
	histograms  map[string]map[string]*histogramSeries
	lastPersist time.Time
}

// NewAggregator creates an aggregator over the given immutable registry.
// A nil cache disables snapshot persistence (useful in tests); with a
// cache, previously persisted snapshots are loaded before the first
// update.
func NewAggregator(registry *Registry, c *cache.TieredCache, ttls RetentionTTLs) *Aggregator {
	a := &Aggregator{
		registry:   registry,
		cache:      c,
		ttls:       ttls,
		logger:     slog.Default().With("component", "metrics"),
		counters:   make(map[string]map[string]*counterSeries),
		gauges:     make(map[string]map[string]*gaugeSeries),
		histograms: make(map[string]map[string]*histogramSeries),
	}
	if c != nil {
		a.load(context.Background())
	}
	return a
}

// seriesKey canonicalizes a label set against the declared labels:
// undeclared labels are dropped, missing ones default to "unknown",
// and the key joins "name=value" pairs in sorted-name order so that
// label order at the call site never fragments a series.
func seriesKey(def Definition, labels map[string]string) (string, map[string]string) {
	canonical := make(map[string]string, len(def.Labels))
	parts := make([]string, 0, len(def.Labels))
	for _, name := range def.Labels { // def.Labels is pre-sorted
		value, ok := labels[name]
		if !ok || value == "" {
			value = "unknown"
		}
		canonical[name] = value
		parts = append(parts, name+"="+value)
	}
	return strings.Join(parts, ","), canonical
}

// IncrementCounter adds delta to the counter series identified by name
// and labels. Unknown names and non-counter metrics are logged and
// ignored. A delta <= 0 is ignored: counters are monotonic.
func (a *Aggregator) IncrementCounter(ctx context.Context, name string, labels map[string]string, delta int64) {
	def, ok := a.registry.Lookup(name)
	if !ok || def.Kind != KindCounter {
		a.logger.Warn("ignoring update for unregistered counter", "metric", name)
		return
	}
	if delta <= 0 {
		return
	}

	key, canonical := seriesKey(def, labels)

	a.mu.Lock()
	series := a.counters[name]
	if series == nil {
		series = make(map[string]*counterSeries)
		a.counters[name] = series
	}
	s := series[key]
	if s == nil {
		s = &counterSeries{Labels: canonical}
		series[key] = s
	}
	s.Value += delta
	a.mu.Unlock()

	a.persistThrottled(ctx)
}

// SetGauge sets the gauge series to value (last write wins).
func (a *Aggregator) SetGauge(ctx context.Context, name string, value float64, labels map[string]string) {
	def, ok := a.registry.Lookup(name)
	if !ok || def.Kind != KindGauge {
		a.logger.Warn("ignoring update for unregistered gauge", "metric", name)
		return
	}

	key, canonical := seriesKey(def, labels)

	a.mu.Lock()
	series := a.gauges[name]
	if series == nil {
		series = make(map[string]*gaugeSeries)
		a.gauges[name] = series
	}
	series[key] = &gaugeSeries{Labels: canonical, Value: value}
	a.mu.Unlock()

	a.persistThrottled(ctx)
}

// ObserveHistogram records value into the histogram series: count and
// sum always update, and every bucket whose bound is >= value is
// incremented (cumulative semantics).
func (a *Aggregator) ObserveHistogram(ctx context.Context, name string, value float64, labels map[string]string) {
	def, ok := a.registry.Lookup(name)
	if !ok || def.Kind != KindHistogram {
		a.logger.Warn("ignoring update for unregistered histogram", "metric", name)
		return
	}

	key, canonical := seriesKey(def, labels)

	a.mu.Lock()
	series := a.histograms[name]
	if series == nil {
		series = make(map[string]*histogramSeries)
		a.histograms[name] = series
	}
	s := series[key]
	if s == nil {
		s = &histogramSeries{
			Labels:  canonical,
			Buckets: make([]uint64, len(def.Buckets)),
		}
		series[key] = s
	}
	s.Count++
	s.Sum += value
	for i, bound := range def.Buckets {
		if value <= bound {
			s.Buckets[i]++
		}
	}
	a.mu.Unlock()

	a.persistThrottled(ctx)
}

// Reset clears all accumulated series and deletes the persisted
// snapshots.
func (a *Aggregator) Reset(ctx context.Context) {
	a.mu.Lock()
	a.counters = make(map[string]map[string]*counterSeries)
	a.gauges = make(map[string]map[string]*gaugeSeries)
	a.histograms = make(map[string]map[string]*histogramSeries)
	a.mu.Unlock()

	if a.cache != nil {
		_ = a.cache.DeleteMultiple(ctx, []string{countersKey, gaugesKey, histogramsKey})
	}
}

// Persist writes the current snapshots into the cache under the
// per-kind keys with their retention TTLs. Failures are logged, never
// surfaced: metrics must not break the request path.
func (a *Aggregator) Persist(ctx context.Context) {
	if a.cache == nil {
		return
	}

	a.mu.Lock()
	counters := copySnapshot(a.counters, func(s *counterSeries) *counterSeries {
		c := *s
		return &c
	})
	gauges := copySnapshot(a.gauges, func(s *gaugeSeries) *gaugeSeries {
		c := *s
		return &c
	})
	histograms := copySnapshot(a.histograms, func(s *histogramSeries) *histogramSeries {
		c := *s
		c.Buckets = append([]uint64(nil), s.Buckets...)
		return &c
	})
	a.lastPersist = time.Now()
	a.mu.Unlock()

	if err := a.cache.Set(ctx, countersKey, cache.Structured(counters), a.ttls.Counters); err != nil {
		a.logger.Warn("failed to persist counter snapshot", "error", err)
	}
	if err := a.cache.Set(ctx, gaugesKey, cache.Structured(gauges), a.ttls.Gauges); err != nil {
		a.logger.Warn("failed to persist gauge snapshot", "error", err)
	}
	if err := a.cache.Set(ctx, histogramsKey, cache.Structured(histograms), a.ttls.Histograms); err != nil {
		a.logger.Warn("failed to persist histogram snapshot", "error", err)
	}
}

// persistThrottled persists at most once per persistMinInterval so the
// hot path stays cheap; the scheduler covers the tail.
func (a *Aggregator) persistThrottled(ctx context.Context) {
	if a.cache == nil {
		return
	}
	a.mu.Lock()
	due := time.Since(a.lastPersist) >= persistMinInterval
	a.mu.Unlock()
	if due {
		a.Persist(ctx)
	}
}

// load restores the most recent snapshots from the cache. Entries that
// no longer match the registry (renamed metrics, changed buckets) are
// discarded.
func (a *Aggregator) load(ctx context.Context) {
	if v, ok := a.cache.Get(ctx, countersKey); ok {
		var snapshot map[string]map[string]*counterSeries
		if decodeSnapshot(v, &snapshot) {
			for name, series := range snapshot {
				if def, ok := a.registry.Lookup(name); ok && def.Kind == KindCounter {
					a.counters[name] = series
				}
			}
		}
	}
	if v, ok := a.cache.Get(ctx, gaugesKey); ok {
		var snapshot map[string]map[string]*gaugeSeries
		if decodeSnapshot(v, &snapshot) {
			for name, series := range snapshot {
				if def, ok := a.registry.Lookup(name); ok && def.Kind == KindGauge {
					a.gauges[name] = series
				}
			}
		}
	}
	if v, ok := a.cache.Get(ctx, histogramsKey); ok {
		var snapshot map[string]map[string]*histogramSeries
		if decodeSnapshot(v, &snapshot) {
			for name, series := range snapshot {
				def, ok := a.registry.Lookup(name)
				if !ok || def.Kind != KindHistogram {
					continue
				}
				kept := make(map[string]*histogramSeries)
				for key, s := range series {
					if len(s.Buckets) == len(def.Buckets) {
						kept[key] = s
					}
				}
				if len(kept) > 0 {
					a.histograms[name] = kept
				}
			}
		}
	}
}

// copySnapshot deep-copies a series map while the aggregator lock is
// held so persistence can encode it without racing later updates.
func copySnapshot[S any](series map[string]map[string]S, clone func(S) S) map[string]map[string]S {
	out := make(map[string]map[string]S, len(series))
	for name, byKey := range series {
		inner := make(map[string]S, len(byKey))
		for key, s := range byKey {
			inner[key] = clone(s)
		}
		out[name] = inner
	}
	return out
}

// decodeSnapshot converts a structured cache value back into the typed
// snapshot form.
func decodeSnapshot(v cache.Value, target any) bool {
	data, err := json.Marshal(v.Interface())
	if err != nil {
		return false
	}
	return json.Unmarshal(data, target) == nil
}

// sortedKeys returns the map's keys in sorted order for deterministic
// rendering.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
