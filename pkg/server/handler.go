package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mercator-hq/mercury/pkg/cache"
	"mercator-hq/mercury/pkg/redirect"
	"mercator-hq/mercury/pkg/telemetry/metrics"
)

// sellerPathPrefix routes seller-identifier lookups: /s/<id> resolves
// the id to a slug through the lookup cache and redirects to the slug's
// destination.
const sellerPathPrefix = "/s/"

// RedirectHandler resolves request paths against the rule table and
// answers with a redirect or 404. Outcomes are recorded into the
// metrics aggregator.
type RedirectHandler struct {
	resolver   *redirect.Resolver
	sellers    *cache.SellerLookups
	aggregator *metrics.Aggregator
	logger     *slog.Logger
}

// NewRedirectHandler creates the catch-all redirect handler. sellers
// and aggregator may be nil, disabling the id-lookup cache and metrics
// respectively.
func NewRedirectHandler(resolver *redirect.Resolver, sellers *cache.SellerLookups, aggregator *metrics.Aggregator, logger *slog.Logger) *RedirectHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedirectHandler{
		resolver:   resolver,
		sellers:    sellers,
		aggregator: aggregator,
		logger:     logger.With("component", "redirect_handler"),
	}
}

// ServeHTTP implements http.Handler.
func (h *RedirectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	outcome := h.resolve(r)

	status := h.respond(w, r, outcome)
	h.record(r, status, time.Since(start))
}

// resolve produces the outcome for the request path, going through the
// seller lookup cache for /s/<id> paths.
func (h *RedirectHandler) resolve(r *http.Request) redirect.Outcome {
	path := r.URL.Path

	if id, ok := strings.CutPrefix(path, sellerPathPrefix); ok && id != "" && !strings.Contains(id, "/") {
		return h.resolveSellerID(r, id)
	}

	return h.resolver.Resolve(path)
}

// resolveSellerID maps a seller identifier to its slug, consulting the
// lookup cache before the rule table, then resolves the slug like any
// other path. Negative lookups are cached too, with a shorter TTL.
func (h *RedirectHandler) resolveSellerID(r *http.Request, id string) redirect.Outcome {
	ctx := r.Context()

	var slug string
	var found bool
	if h.sellers != nil {
		var cached bool
		slug, found, cached = h.sellers.Slug(ctx, id)
		if cached {
			h.countSellerLookup(ctx, "cached")
		} else {
			slug, found = h.resolver.SlugForID(id)
			if err := h.sellers.Store(ctx, id, slug, found); err != nil {
				h.logger.Warn("failed to cache seller lookup", "id", id, "error", err)
			}
			h.countSellerLookup(ctx, lookupResult(found))
		}
	} else {
		slug, found = h.resolver.SlugForID(id)
		h.countSellerLookup(ctx, lookupResult(found))
	}

	if !found {
		return redirect.NotFound()
	}
	return h.resolver.Resolve("/" + slug)
}

func lookupResult(found bool) string {
	if found {
		return "hit"
	}
	return "miss"
}

func (h *RedirectHandler) countSellerLookup(ctx context.Context, result string) {
	if h.aggregator == nil {
		return
	}
	h.aggregator.IncrementCounter(ctx, "mercury_seller_lookups_total", map[string]string{"result": result}, 1)
}

// respond writes the outcome and returns the status actually sent.
func (h *RedirectHandler) respond(w http.ResponseWriter, r *http.Request, outcome redirect.Outcome) int {
	if url, status, ok := outcome.IsRedirect(); ok {
		http.Redirect(w, r, url, status)
		return status
	}

	// Continue outcomes reach here only when no later handler exists;
	// the mux already routes owned paths, so treat it as not found.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":  "Not Found",
		"status": http.StatusNotFound,
	})
	return http.StatusNotFound
}

// record updates the request metrics for this handler.
func (h *RedirectHandler) record(r *http.Request, status int, elapsed time.Duration) {
	if h.aggregator == nil {
		return
	}
	ctx := r.Context()
	route := routeLabel(r.URL.Path)

	h.aggregator.IncrementCounter(ctx, "mercury_requests_total", map[string]string{
		"method": r.Method,
		"route":  route,
		"status": strconv.Itoa(status),
	}, 1)
	if status >= 300 && status < 400 {
		h.aggregator.IncrementCounter(ctx, "mercury_redirects_total", map[string]string{
			"route":  route,
			"status": strconv.Itoa(status),
		}, 1)
	}
	h.aggregator.ObserveHistogram(ctx, "mercury_request_duration_seconds", elapsed.Seconds(),
		map[string]string{"route": route})
}

// routeLabel reduces a path to its first segment so metric cardinality
// stays bounded by the rule table rather than by raw request paths.
func routeLabel(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		trimmed = trimmed[:i]
	}
	if trimmed == "" {
		return "/"
	}
	return "/" + trimmed
}
