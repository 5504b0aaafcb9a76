package metrics

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/common/expfmt"
)

func TestRenderEmitsTypeLinesWithZeroObservations(t *testing.T) {
	a := NewAggregator(testRegistry(t), nil, RetentionTTLs{})

	body := a.Render()

	for _, want := range []string{
		"# HELP requests_total Total requests.",
		"# TYPE requests_total counter",
		"# TYPE active_rules gauge",
		"# TYPE duration_seconds histogram",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("output missing %q:\n%s", want, body)
		}
	}
}

func TestRenderParsesAsPrometheusText(t *testing.T) {
	ctx := context.Background()
	a := NewAggregator(testRegistry(t), nil, RetentionTTLs{})

	a.IncrementCounter(ctx, "requests_total", map[string]string{"method": "GET", "route": "/x"}, 3)
	a.SetGauge(ctx, "active_rules", 4, nil)
	a.ObserveHistogram(ctx, "duration_seconds", 7, map[string]string{"route": "/x"})
	a.ObserveHistogram(ctx, "duration_seconds", 0.5, map[string]string{"route": "/x"})

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(strings.NewReader(a.Render()))
	if err != nil {
		t.Fatalf("output is not valid exposition text: %v", err)
	}

	counter := families["requests_total"]
	if counter == nil || len(counter.Metric) != 1 {
		t.Fatalf("requests_total family = %v", counter)
	}
	if got := counter.Metric[0].Counter.GetValue(); got != 3 {
		t.Errorf("counter value = %v, want 3", got)
	}

	hist := families["duration_seconds"]
	if hist == nil || len(hist.Metric) != 1 {
		t.Fatalf("duration_seconds family = %v", hist)
	}
	h := hist.Metric[0].Histogram
	if h.GetSampleCount() != 2 || h.GetSampleSum() != 7.5 {
		t.Errorf("histogram count/sum = %d/%v, want 2/7.5", h.GetSampleCount(), h.GetSampleSum())
	}
}

func TestRenderHistogramSeries(t *testing.T) {
	ctx := context.Background()
	a := NewAggregator(testRegistry(t), nil, RetentionTTLs{})

	a.ObserveHistogram(ctx, "duration_seconds", 7, map[string]string{"route": "/x"})

	body := a.Render()
	for _, want := range []string{
		`duration_seconds_bucket{le="1",route="/x"} 0`,
		`duration_seconds_bucket{le="5",route="/x"} 0`,
		`duration_seconds_bucket{le="10",route="/x"} 1`,
		`duration_seconds_bucket{le="+Inf",route="/x"} 1`,
		`duration_seconds_sum{route="/x"} 7`,
		`duration_seconds_count{route="/x"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("output missing %q:\n%s", want, body)
		}
	}
}

func TestRenderEscapesLabelValues(t *testing.T) {
	ctx := context.Background()
	a := NewAggregator(testRegistry(t), nil, RetentionTTLs{})

	a.IncrementCounter(ctx, "requests_total", map[string]string{
		"method": `he said "hi"`,
		"route":  "line\nbreak",
	}, 1)

	body := a.Render()
	if !strings.Contains(body, `method="he said \"hi\""`) {
		t.Errorf("quotes not escaped:\n%s", body)
	}
	if !strings.Contains(body, `route="line\nbreak"`) {
		t.Errorf("newline not escaped:\n%s", body)
	}
}

func TestRenderSortsSeriesDeterministically(t *testing.T) {
	ctx := context.Background()
	a := NewAggregator(testRegistry(t), nil, RetentionTTLs{})

	a.IncrementCounter(ctx, "requests_total", map[string]string{"method": "GET", "route": "/b"}, 1)
	a.IncrementCounter(ctx, "requests_total", map[string]string{"method": "GET", "route": "/a"}, 1)

	body := a.Render()
	first := strings.Index(body, `route="/a"`)
	second := strings.Index(body, `route="/b"`)
	if first == -1 || second == -1 || first > second {
		t.Errorf("series not in sorted order:\n%s", body)
	}
}
