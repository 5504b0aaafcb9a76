package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"mercator-hq/mercury/pkg/ratelimit"
	"mercator-hq/mercury/pkg/telemetry/metrics"
)

// rateLimitedMetric counts requests rejected with 429.
const rateLimitedMetric = "mercury_rate_limit_exceeded_total"

// RateLimit enforces per-route quotas before the handler runs.
//
// Every request on a route with a quota receives X-RateLimit-Limit,
// X-RateLimit-Remaining, and X-RateLimit-Reset headers. Rejections get
// 429 with a Retry-After header and a JSON body. The limiter fails
// open, so a store outage never blocks traffic through here.
func RateLimit(limiter *ratelimit.Limiter, aggregator *metrics.Aggregator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			route := r.URL.Path
			identifier := ratelimit.ClientIdentifier(r)

			exceeded := limiter.IsLimitExceeded(ctx, route, identifier)

			// Info reports false only for unlimited routes, which can
			// never be exceeded.
			if info, ok := limiter.Info(ctx, route, identifier); ok {
				setRateLimitHeaders(w, info)
				if exceeded {
					rejectRateLimited(ctx, w, info, route, aggregator)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.Reset.Unix(), 10))
}

func rejectRateLimited(ctx context.Context, w http.ResponseWriter, info ratelimit.Info, route string, aggregator *metrics.Aggregator) {
	retryAfter := int64(time.Until(info.Reset).Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))

	if aggregator != nil {
		aggregator.IncrementCounter(ctx, rateLimitedMetric, map[string]string{"route": route}, 1)
	}

	writeError(w, http.StatusTooManyRequests,
		"Too Many Requests",
		fmt.Sprintf("Rate limit exceeded. Retry after %d seconds.", retryAfter))
}
