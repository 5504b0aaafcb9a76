package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/mercury/pkg/config"
)

func testEndpointConfig() config.MetricsConfig {
	return config.MetricsConfig{
		Enabled:       true,
		Path:          "/metrics",
		CacheTTL:      10 * time.Second,
		RenderTimeout: 5 * time.Second,
	}
}

func scrape(t *testing.T, e *Endpoint, remoteAddr string, basic [2]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.RemoteAddr = remoteAddr
	if basic[0] != "" {
		req.SetBasicAuth(basic[0], basic[1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestEndpointDisabledReturns404(t *testing.T) {
	cfg := testEndpointConfig()
	cfg.Enabled = false
	e, err := NewEndpoint(NewAggregator(testRegistry(t), nil, RetentionTTLs{}), cfg, nil)
	if err != nil {
		t.Fatalf("NewEndpoint: %v", err)
	}

	rec := scrape(t, e, "127.0.0.1:1234", [2]string{})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestEndpointServesExposition(t *testing.T) {
	a := NewAggregator(testRegistry(t), nil, RetentionTTLs{})
	a.IncrementCounter(context.Background(), "requests_total", map[string]string{"method": "GET", "route": "/x"}, 1)

	e, err := NewEndpoint(a, testEndpointConfig(), nil)
	if err != nil {
		t.Fatalf("NewEndpoint: %v", err)
	}

	rec := scrape(t, e, "127.0.0.1:1234", [2]string{})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "version=0.0.4") {
		t.Errorf("Content-Type = %q, want text format 0.0.4", ct)
	}
	if !strings.Contains(rec.Body.String(), "requests_total") {
		t.Errorf("body missing series:\n%s", rec.Body.String())
	}
}

func TestEndpointAuthMatrix(t *testing.T) {
	cfg := testEndpointConfig()
	cfg.Auth = config.MetricsAuthConfig{
		Enabled:       true,
		AllowedIPs:    []string{"192.168.1.10", "10.1.0.0/16"},
		BasicUser:     "scraper",
		BasicPassword: "secret",
	}

	tests := []struct {
		name       string
		remoteAddr string
		basic      [2]string
		want       int
	}{
		{"exact ip allowed", "192.168.1.10:5000", [2]string{}, http.StatusOK},
		{"cidr containment allowed", "10.1.2.3:5000", [2]string{}, http.StatusOK},
		{"ip outside allowlist", "203.0.113.9:5000", [2]string{}, http.StatusUnauthorized},
		{"valid basic from outside ip", "203.0.113.9:5000", [2]string{"scraper", "secret"}, http.StatusOK},
		{"wrong password", "203.0.113.9:5000", [2]string{"scraper", "wrong"}, http.StatusUnauthorized},
		{"wrong user", "203.0.113.9:5000", [2]string{"intruder", "secret"}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAggregator(testRegistry(t), nil, RetentionTTLs{})
			e, err := NewEndpoint(a, cfg, nil)
			if err != nil {
				t.Fatalf("NewEndpoint: %v", err)
			}

			rec := scrape(t, e, tt.remoteAddr, tt.basic)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized {
				if got := rec.Header().Get("WWW-Authenticate"); !strings.HasPrefix(got, "Basic") {
					t.Errorf("WWW-Authenticate = %q, want basic challenge", got)
				}
			}
		})
	}
}

func TestEndpointRejectionRecordsAuthFailure(t *testing.T) {
	cfg := testEndpointConfig()
	cfg.Auth = config.MetricsAuthConfig{Enabled: true, AllowedIPs: []string{"192.168.1.10"}}

	a := NewAggregator(DefaultRegistry(), nil, RetentionTTLs{})
	e, err := NewEndpoint(a, cfg, nil)
	if err != nil {
		t.Fatalf("NewEndpoint: %v", err)
	}

	scrape(t, e, "203.0.113.9:5000", [2]string{})

	series := a.counters[authFailureMetric]
	if len(series) != 1 {
		t.Fatalf("auth failure counter series = %d, want 1", len(series))
	}
	for _, s := range series {
		if s.Value != 1 {
			t.Errorf("auth failure count = %d, want 1", s.Value)
		}
	}
}

func TestEndpointInvalidAllowlistEntry(t *testing.T) {
	cfg := testEndpointConfig()
	cfg.Auth = config.MetricsAuthConfig{Enabled: true, AllowedIPs: []string{"not-an-ip"}}

	if _, err := NewEndpoint(NewAggregator(testRegistry(t), nil, RetentionTTLs{}), cfg, nil); err == nil {
		t.Error("expected error for invalid allow-list entry")
	}
}

func TestEndpointServesCachedRendering(t *testing.T) {
	ctx := context.Background()
	a := NewAggregator(testRegistry(t), nil, RetentionTTLs{})
	a.IncrementCounter(ctx, "requests_total", map[string]string{"method": "GET", "route": "/x"}, 1)

	e, err := NewEndpoint(a, testEndpointConfig(), nil)
	if err != nil {
		t.Fatalf("NewEndpoint: %v", err)
	}

	first := scrape(t, e, "127.0.0.1:1234", [2]string{}).Body.String()

	a.IncrementCounter(ctx, "requests_total", map[string]string{"method": "GET", "route": "/x"}, 1)

	second := scrape(t, e, "127.0.0.1:1234", [2]string{}).Body.String()
	if first != second {
		t.Error("second scrape within cache TTL was re-rendered")
	}

	e.mu.Lock()
	e.expires = time.Now().Add(-time.Second)
	e.mu.Unlock()

	third := scrape(t, e, "127.0.0.1:1234", [2]string{}).Body.String()
	if third == first {
		t.Error("scrape after cache expiry served the stale rendering")
	}
}
