package metrics

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRenderIncludesCountersAndHistogram(t *testing.T) {
	IncGenerationStarted()
	IncPost(true)
	IncPost(false)
	IncModelCall(true)
	ObserveGenerationDurationMs(1500)
	ObserveGenerationDurationMs(-5)

	out := Render()
	for _, want := range []string{
		"# TYPE generation_started_total counter",
		"posts_succeeded_total",
		"posts_failed_total",
		"model_call_errors_total",
		"# TYPE generation_duration_ms histogram",
		`generation_duration_ms_bucket{le="+Inf"}`,
		"generation_duration_ms_count",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("render output missing %q:\n%s", want, out)
		}
	}
}

func TestHistogramBucketsAreCumulative(t *testing.T) {
	h := newHistogram([]float64{10, 100})
	h.Observe(5)
	h.Observe(50)
	h.Observe(500)

	snap := h.Snapshot()
	if snap.count != 3 {
		t.Fatalf("expected 3 observations, got %d", snap.count)
	}
	if snap.counts[0] != 1 || snap.counts[1] != 2 {
		t.Fatalf("unexpected bucket counts %v", snap.counts)
	}
	if snap.sum != 555 {
		t.Fatalf("unexpected sum %v", snap.sum)
	}

	var buf bytes.Buffer
	writeHistogram(&buf, "h", "test", snap)
	if !strings.Contains(buf.String(), `h_bucket{le="100"} 2`) {
		t.Fatalf("expected cumulative bucket of 2, got:\n%s", buf.String())
	}
}

func TestHandlerServesTextFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/metrics", Handler())

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected content type %q", ct)
	}
}
