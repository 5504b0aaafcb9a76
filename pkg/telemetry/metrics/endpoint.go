package metrics

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/common/expfmt"

	"mercator-hq/mercury/pkg/config"
)

// authFailureMetric counts rejected scrape attempts.
const authFailureMetric = "mercury_metrics_auth_failures_total"

// Endpoint serves the Prometheus exposition over HTTP with optional
// access control and a short-lived render cache.
//
// Access control admits a request when its client IP matches the
// allow-list (exact address or CIDR containment) OR it carries valid
// basic credentials; either alone is sufficient. Unauthorized requests
// receive 401 with a basic challenge and are counted in
// mercury_metrics_auth_failures_total.
type Endpoint struct {
	aggregator    *Aggregator
	enabled       bool
	cacheTTL      time.Duration
	renderTimeout time.Duration
	logger        *slog.Logger

	authEnabled   bool
	allowedIPs    []net.IP
	allowedCIDRs  []*net.IPNet
	basicUser     string
	basicPassword string

	mu       sync.Mutex
	rendered string
	expires  time.Time
}

// NewEndpoint builds the handler from the metrics section of the
// configuration. Allow-list entries must be valid IPs or CIDR ranges;
// config validation has already checked them, so a parse failure here
// is a programming error and is reported.
func NewEndpoint(aggregator *Aggregator, cfg config.MetricsConfig, logger *slog.Logger) (*Endpoint, error) {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Endpoint{
		aggregator:    aggregator,
		enabled:       cfg.Enabled,
		cacheTTL:      cfg.CacheTTL,
		renderTimeout: cfg.RenderTimeout,
		logger:        logger.With("component", "metrics_endpoint"),
		authEnabled:   cfg.Auth.Enabled,
		basicUser:     cfg.Auth.BasicUser,
		basicPassword: cfg.Auth.BasicPassword,
	}
	for _, entry := range cfg.Auth.AllowedIPs {
		if strings.Contains(entry, "/") {
			_, cidr, err := net.ParseCIDR(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid allow-list entry %q: %w", entry, err)
			}
			e.allowedCIDRs = append(e.allowedCIDRs, cidr)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			return nil, fmt.Errorf("invalid allow-list entry %q", entry)
		}
		e.allowedIPs = append(e.allowedIPs, ip)
	}
	return e, nil
}

// ServeHTTP implements http.Handler.
func (e *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !e.enabled {
		http.NotFound(w, r)
		return
	}

	if e.authEnabled && !e.authorized(r) {
		e.aggregator.IncrementCounter(r.Context(), authFailureMetric, nil, 1)
		e.logger.Warn("rejected metrics scrape", "remote", r.RemoteAddr)
		w.Header().Set("WWW-Authenticate", `Basic realm="metrics"`)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	body, ok := e.render()
	if !ok {
		http.Error(w, "metrics rendering timed out", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// authorized reports whether the request passes either access check.
func (e *Endpoint) authorized(r *http.Request) bool {
	if e.ipAllowed(r) {
		return true
	}
	return e.basicAuthValid(r)
}

// ipAllowed matches the connection's remote address against the
// allow-list. Forwarding headers are deliberately ignored: a spoofable
// header must not open the scrape endpoint.
func (e *Endpoint) ipAllowed(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, allowed := range e.allowedIPs {
		if allowed.Equal(ip) {
			return true
		}
	}
	for _, cidr := range e.allowedCIDRs {
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}

// basicAuthValid checks credentials in constant time. Basic auth is
// disabled when no username is configured.
func (e *Endpoint) basicAuthValid(r *http.Request) bool {
	if e.basicUser == "" {
		return false
	}
	user, password, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(e.basicUser)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(e.basicPassword)) == 1
	return userOK && passOK
}

// render returns the cached exposition when still fresh, otherwise
// regenerates it. The timeout bounds worst-case latency under very high
// series cardinality; on timeout the caller serves 503 and the scraper
// retries.
func (e *Endpoint) render() (string, bool) {
	e.mu.Lock()
	if e.rendered != "" && time.Now().Before(e.expires) {
		body := e.rendered
		e.mu.Unlock()
		return body, true
	}
	e.mu.Unlock()

	done := make(chan string, 1)
	go func() {
		done <- e.aggregator.Render()
	}()

	var timeout <-chan time.Time
	if e.renderTimeout > 0 {
		timer := time.NewTimer(e.renderTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case body := <-done:
		e.mu.Lock()
		e.rendered = body
		e.expires = time.Now().Add(e.cacheTTL)
		e.mu.Unlock()
		return body, true
	case <-timeout:
		e.logger.Error("metrics rendering timed out", "timeout", e.renderTimeout)
		return "", false
	}
}
