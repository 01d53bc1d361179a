package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func render(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Collector.Handler()(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Body.String()
}

func TestHistogramCatchAllBucket(t *testing.T) {
	h := Collector.Histogram("test_latency_seconds", "test histogram", "", []float64{0.1, 1})

	// A value above every finite bucket must still land in +Inf.
	h.Observe(42)

	body := render(t)
	if !strings.Contains(body, `test_latency_seconds_bucket{le="+Inf"} 1`) {
		t.Errorf("missing +Inf bucket observation:\n%s", body)
	}
	if !strings.Contains(body, `test_latency_seconds_bucket{le="1"} 0`) {
		t.Errorf("finite bucket must not count the large value:\n%s", body)
	}
	if !strings.Contains(body, "test_latency_seconds_count 1") {
		t.Errorf("missing histogram count:\n%s", body)
	}
}

func TestCounterLabelsRendered(t *testing.T) {
	c := Collector.Counter("test_requests_total", "test counter", `result="ok"`)
	c.Inc()
	c.Inc()

	body := render(t)
	if !strings.Contains(body, `test_requests_total{result="ok"} 2`) {
		t.Errorf("labeled counter not rendered:\n%s", body)
	}
}
