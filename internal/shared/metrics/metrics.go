package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	generationStartedTotal   atomic.Uint64
	generationCompletedTotal atomic.Uint64
	generationFailedTotal    atomic.Uint64
	postsSucceededTotal      atomic.Uint64
	postsFailedTotal         atomic.Uint64
	modelCallsTotal          atomic.Uint64
	modelCallErrorsTotal     atomic.Uint64
	newsLookupFailedTotal    atomic.Uint64

	generationDuration = newHistogram([]float64{1000, 5000, 10000, 20000, 30000, 60000, 120000, 300000})
)

// IncGenerationStarted increments the started counter.
func IncGenerationStarted() {
	generationStartedTotal.Add(1)
}

// IncGenerationCompleted increments the completed counter.
func IncGenerationCompleted() {
	generationCompletedTotal.Add(1)
}

// IncGenerationFailed increments the failed counter.
func IncGenerationFailed() {
	generationFailedTotal.Add(1)
}

// IncPost records the outcome of one post generation.
func IncPost(ok bool) {
	if ok {
		postsSucceededTotal.Add(1)
		return
	}
	postsFailedTotal.Add(1)
}

// IncModelCall records one outbound model call and whether it failed.
func IncModelCall(failed bool) {
	modelCallsTotal.Add(1)
	if failed {
		modelCallErrorsTotal.Add(1)
	}
}

// IncNewsLookupFailed counts a news lookup that degraded to an empty list.
func IncNewsLookupFailed() {
	newsLookupFailedTotal.Add(1)
}

// ObserveGenerationDurationMs records a generation duration in milliseconds.
func ObserveGenerationDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	generationDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "generation_started_total", "Total post generations started", generationStartedTotal.Load())
	writeCounter(&buf, "generation_completed_total", "Total post generations completed", generationCompletedTotal.Load())
	writeCounter(&buf, "generation_failed_total", "Total post generations failed", generationFailedTotal.Load())
	writeCounter(&buf, "posts_succeeded_total", "Total posts generated successfully", postsSucceededTotal.Load())
	writeCounter(&buf, "posts_failed_total", "Total posts that fell back to the error variant", postsFailedTotal.Load())
	writeCounter(&buf, "model_calls_total", "Total outbound model calls", modelCallsTotal.Load())
	writeCounter(&buf, "model_call_errors_total", "Total outbound model calls that failed", modelCallErrorsTotal.Load())
	writeCounter(&buf, "news_lookup_failed_total", "Total news lookups that degraded to an empty list", newsLookupFailedTotal.Load())
	writeHistogram(&buf, "generation_duration_ms", "Post generation duration in milliseconds", generationDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	// counts are already cumulative: Observe bumps every bucket whose bound covers the value.
	for i, bound := range snap.buckets {
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), snap.counts[i])
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
