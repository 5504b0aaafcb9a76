package metrics

import (
	"fmt"
	"sort"
)

// Kind is the type of a metric.
type Kind string

const (
	// KindCounter is a monotonically increasing integer, reset only by
	// process restart or an explicit Reset.
	KindCounter Kind = "counter"

	// KindGauge is a last-write-wins scalar.
	KindGauge Kind = "gauge"

	// KindHistogram accumulates observations into cumulative buckets
	// fixed at definition time.
	KindHistogram Kind = "histogram"
)

// Definition describes one metric in the catalogue. Definitions are
// immutable after registration: the label set and histogram buckets a
// metric is declared with are the only ones it will ever carry, which
// bounds series cardinality.
type Definition struct {
	// Name is the metric name as exposed to scrapers.
	Name string

	// Help is the one-line description emitted as the # HELP comment.
	Help string

	// Kind is the metric type.
	Kind Kind

	// Labels are the declared label names. Updates carrying labels
	// outside this list have them dropped; missing labels default to
	// "unknown".
	Labels []string

	// Buckets are the histogram upper bounds in ascending order.
	// Ignored for counters and gauges.
	Buckets []float64
}

// Registry is an immutable catalogue of metric definitions. It is
// constructed once at startup and injected into the aggregator; there
// is no global mutable registration.
type Registry struct {
	defs  map[string]Definition
	order []string
}

// NewRegistry builds a registry from the given definitions, validating
// uniqueness and histogram bucket ordering.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]Definition, len(defs))}

	for _, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("metric definition with empty name")
		}
		if _, exists := r.defs[def.Name]; exists {
			return nil, fmt.Errorf("duplicate metric definition %q", def.Name)
		}
		switch def.Kind {
		case KindCounter, KindGauge:
			if len(def.Buckets) != 0 {
				return nil, fmt.Errorf("metric %q: buckets are only valid for histograms", def.Name)
			}
		case KindHistogram:
			if len(def.Buckets) == 0 {
				return nil, fmt.Errorf("histogram %q requires at least one bucket", def.Name)
			}
			if !sort.Float64sAreSorted(def.Buckets) {
				return nil, fmt.Errorf("histogram %q: buckets must be in ascending order", def.Name)
			}
		default:
			return nil, fmt.Errorf("metric %q: unknown kind %q", def.Name, def.Kind)
		}

		// Label order at the call site must never matter, so the
		// declared labels are canonicalized to sorted order up front.
		labels := append([]string(nil), def.Labels...)
		sort.Strings(labels)
		def.Labels = labels

		r.defs[def.Name] = def
		r.order = append(r.order, def.Name)
	}

	return r, nil
}

// Lookup returns the definition for name.
func (r *Registry) Lookup(name string) (Definition, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// Definitions returns all definitions in registration order.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.defs[name])
	}
	return defs
}

// DefaultRegistry returns the Mercury metric catalogue.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(
		Definition{
			Name:   "mercury_requests_total",
			Help:   "Total HTTP requests handled, by method, route, and status.",
			Kind:   KindCounter,
			Labels: []string{"method", "route", "status"},
		},
		Definition{
			Name:   "mercury_redirects_total",
			Help:   "Total redirects issued, by route and redirect status.",
			Kind:   KindCounter,
			Labels: []string{"route", "status"},
		},
		Definition{
			Name:   "mercury_rate_limit_exceeded_total",
			Help:   "Total requests rejected by the rate limiter, by route.",
			Kind:   KindCounter,
			Labels: []string{"route"},
		},
		Definition{
			Name:   "mercury_cache_operations_total",
			Help:   "Tiered cache operations, by operation and result.",
			Kind:   KindCounter,
			Labels: []string{"operation", "result"},
		},
		Definition{
			Name:   "mercury_seller_lookups_total",
			Help:   "Seller slug lookups, by result.",
			Kind:   KindCounter,
			Labels: []string{"result"},
		},
		Definition{
			Name: "mercury_metrics_auth_failures_total",
			Help: "Rejected scrape attempts at the metrics endpoint.",
			Kind: KindCounter,
		},
		Definition{
			Name: "mercury_redirect_rules",
			Help: "Number of redirect rules currently loaded.",
			Kind: KindGauge,
		},
		Definition{
			Name:    "mercury_request_duration_seconds",
			Help:    "Request handling latency in seconds, by route.",
			Kind:    KindHistogram,
			Labels:  []string{"route"},
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)
	if err != nil {
		// The default catalogue is static; a failure here is a
		// programming error.
		panic(err)
	}
	return r
}
