package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gostratum/metricsx"
	"github.com/gostratum/tracingx"
)

// MockMetrics implements metricsx.Metrics in memory. Series are keyed by
// name and comma-joined label values.
type MockMetrics struct {
	mu         sync.Mutex
	counters   map[string]float64
	histograms map[string][]float64
}

var _ metricsx.Metrics = (*MockMetrics)(nil)

// NewMockMetrics creates an empty MockMetrics
func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		counters:   make(map[string]float64),
		histograms: make(map[string][]float64),
	}
}

func seriesKey(name string, labels []string) string {
	return name + ":" + strings.Join(labels, ",")
}

// CounterValue returns the value of one counter series
func (m *MockMetrics) CounterValue(name string, labels ...string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[seriesKey(name, labels)]
}

// Observations returns the values observed on one histogram series
func (m *MockMetrics) Observations(name string, labels ...string) []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.histograms[seriesKey(name, labels)]...)
}

func (m *MockMetrics) Counter(name string, opts ...metricsx.Option) metricsx.Counter {
	return &mockCounter{metrics: m, name: name}
}

func (m *MockMetrics) Gauge(name string, opts ...metricsx.Option) metricsx.Gauge {
	return mockGauge{}
}

func (m *MockMetrics) Histogram(name string, opts ...metricsx.Option) metricsx.Histogram {
	return &mockHistogram{metrics: m, name: name}
}

func (m *MockMetrics) Summary(name string, opts ...metricsx.Option) metricsx.Summary {
	return mockSummary{}
}

type mockCounter struct {
	metrics *MockMetrics
	name    string
}

func (c *mockCounter) Inc(labels ...string) { c.Add(1, labels...) }

func (c *mockCounter) Add(value float64, labels ...string) {
	c.metrics.mu.Lock()
	defer c.metrics.mu.Unlock()
	c.metrics.counters[seriesKey(c.name, labels)] += value
}

type mockHistogram struct {
	metrics *MockMetrics
	name    string
}

func (h *mockHistogram) Observe(value float64, labels ...string) {
	h.metrics.mu.Lock()
	defer h.metrics.mu.Unlock()
	key := seriesKey(h.name, labels)
	h.metrics.histograms[key] = append(h.metrics.histograms[key], value)
}

func (h *mockHistogram) Timer(labels ...string) metricsx.Timer {
	return &mockTimer{start: time.Now()}
}

type mockGauge struct{}

func (mockGauge) Set(value float64, labels ...string) {}
func (mockGauge) Inc(labels ...string)                {}
func (mockGauge) Dec(labels ...string)                {}
func (mockGauge) Add(value float64, labels ...string) {}
func (mockGauge) Sub(value float64, labels ...string) {}

type mockSummary struct{}

func (mockSummary) Observe(value float64, labels ...string) {}

type mockTimer struct{ start time.Time }

func (t *mockTimer) ObserveDuration()    {}
func (t *mockTimer) Stop() time.Duration { return time.Since(t.start) }

// MockTracer implements tracingx.Tracer and keeps every started span
type MockTracer struct {
	mu    sync.Mutex
	spans []*MockSpan
}

var _ tracingx.Tracer = (*MockTracer)(nil)

// NewMockTracer creates a tracer with no spans
func NewMockTracer() *MockTracer {
	return &MockTracer{}
}

// Spans returns the spans started so far
func (t *MockTracer) Spans() []*MockSpan {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*MockSpan(nil), t.spans...)
}

func (t *MockTracer) Start(ctx context.Context, operationName string, opts ...tracingx.SpanOption) (context.Context, tracingx.Span) {
	cfg := &tracingx.SpanConfig{Attributes: make(map[string]any)}
	for _, opt := range opts {
		opt(cfg)
	}

	span := &MockSpan{Name: operationName, Tags: make(map[string]any)}
	for k, v := range cfg.Attributes {
		span.Tags[k] = v
	}

	t.mu.Lock()
	t.spans = append(t.spans, span)
	t.mu.Unlock()
	return ctx, span
}

func (t *MockTracer) Extract(ctx context.Context, carrier any) (context.Context, error) {
	return ctx, nil
}

func (t *MockTracer) Inject(ctx context.Context, carrier any) error { return nil }

func (t *MockTracer) Shutdown(ctx context.Context) error { return nil }

// MockSpan records what a traced operation did to its span
type MockSpan struct {
	Name  string
	Tags  map[string]any
	Err   error
	Ended bool
}

func (s *MockSpan) End()                               { s.Ended = true }
func (s *MockSpan) SetTag(key string, value any)       { s.Tags[key] = value }
func (s *MockSpan) SetError(err error)                 { s.Err = err }
func (s *MockSpan) LogFields(fields ...tracingx.Field) {}
func (s *MockSpan) Context() context.Context           { return context.Background() }
func (s *MockSpan) TraceID() string                    { return "mock-trace-id" }
func (s *MockSpan) SpanID() string                     { return "mock-span-id" }
