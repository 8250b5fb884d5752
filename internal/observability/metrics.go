package observability

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics is the in-process counter/histogram set for API and LLM traffic.
// It is intentionally dependency-free; the snapshot is served from a debug
// endpoint and scraped from there.
type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight int64

	llmRequests *CounterVec
	llmLatency  *HistogramVec
	llmTokens   *CounterVec
}

var (
	currentMu sync.RWMutex
	current   *Metrics
)

func NewMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("api_requests_total", []string{"method", "route", "status"}),
		apiLatency:  NewHistogramVec("api_request_seconds", []string{"route"}),
		llmRequests: NewCounterVec("llm_requests_total", []string{"model", "endpoint", "status"}),
		llmLatency:  NewHistogramVec("llm_request_seconds", []string{"model"}),
		llmTokens:   NewCounterVec("llm_tokens_total", []string{"model", "direction"}),
	}
}

// SetCurrent installs m as the process-wide metrics sink.
func SetCurrent(m *Metrics) {
	currentMu.Lock()
	current = m
	currentMu.Unlock()
}

func Current() *Metrics {
	currentMu.RLock()
	defer currentMu.RUnlock()
	return current
}

func (m *Metrics) ApiInflightInc() { atomic.AddInt64(&m.apiInflight, 1) }
func (m *Metrics) ApiInflightDec() { atomic.AddInt64(&m.apiInflight, -1) }

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), route)
}

func (m *Metrics) ObserveLLMRequest(model, endpoint, status string, dur time.Duration, inputTokens, outputTokens int) {
	m.llmRequests.Inc(model, endpoint, status)
	m.llmLatency.Observe(dur.Seconds(), model)
	if inputTokens > 0 {
		m.llmTokens.Add(float64(inputTokens), model, "input")
	}
	if outputTokens > 0 {
		m.llmTokens.Add(float64(outputTokens), model, "output")
	}
}

// Snapshot returns a stable view for the debug endpoint.
func (m *Metrics) Snapshot() map[string]any {
	return map[string]any{
		"api_inflight":        atomic.LoadInt64(&m.apiInflight),
		"api_requests_total":  m.apiRequests.snapshot(),
		"api_request_seconds": m.apiLatency.snapshot(),
		"llm_requests_total":  m.llmRequests.snapshot(),
		"llm_request_seconds": m.llmLatency.snapshot(),
		"llm_tokens_total":    m.llmTokens.snapshot(),
	}
}

type CounterVec struct {
	name   string
	labels []string
	mu     sync.Mutex
	vals   map[string]float64
}

func NewCounterVec(name string, labels []string) *CounterVec {
	return &CounterVec{name: name, labels: labels, vals: map[string]float64{}}
}

func (c *CounterVec) Inc(labelValues ...string) { c.Add(1, labelValues...) }

func (c *CounterVec) Add(v float64, labelValues ...string) {
	key := labelKey(c.labels, labelValues)
	c.mu.Lock()
	c.vals[key] += v
	c.mu.Unlock()
}

func (c *CounterVec) snapshot() map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]float64, len(c.vals))
	for k, v := range c.vals {
		out[k] = v
	}
	return out
}

type histogram struct {
	count int64
	sum   float64
	max   float64
}

type HistogramVec struct {
	name   string
	labels []string
	mu     sync.Mutex
	vals   map[string]*histogram
}

func NewHistogramVec(name string, labels []string) *HistogramVec {
	return &HistogramVec{name: name, labels: labels, vals: map[string]*histogram{}}
}

func (h *HistogramVec) Observe(v float64, labelValues ...string) {
	key := labelKey(h.labels, labelValues)
	h.mu.Lock()
	hist, ok := h.vals[key]
	if !ok {
		hist = &histogram{}
		h.vals[key] = hist
	}
	hist.count++
	hist.sum += v
	if v > hist.max {
		hist.max = v
	}
	h.mu.Unlock()
}

func (h *HistogramVec) snapshot() map[string]map[string]float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]map[string]float64, len(h.vals))
	for k, v := range h.vals {
		out[k] = map[string]float64{
			"count": float64(v.count),
			"sum":   v.sum,
			"max":   v.max,
		}
	}
	return out
}

func labelKey(labels, values []string) string {
	parts := make([]string, 0, len(labels))
	for i, l := range labels {
		val := ""
		if i < len(values) {
			val = values[i]
		}
		parts = append(parts, l+"="+val)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}
