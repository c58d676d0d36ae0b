package observability

import (
	"errors"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusFactory is a MetricFactory backed by a prometheus.Registerer.
// Dotted metric names are exported with underscores.
type PrometheusFactory struct {
	reg     prometheus.Registerer
	buckets map[string][]float64

	mu         sync.Mutex
	counters   map[string]prometheus.Counter
	histograms map[string]prometheus.Histogram
}

// PrometheusOption configures a PrometheusFactory.
type PrometheusOption func(*PrometheusFactory)

// WithBuckets sets histogram buckets for one metric name.
func WithBuckets(name string, buckets []float64) PrometheusOption {
	return func(f *PrometheusFactory) {
		f.buckets[promName(name)] = buckets
	}
}

// NewPrometheusFactory returns a factory that registers every metric on reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusFactory(reg prometheus.Registerer, opts ...PrometheusOption) *PrometheusFactory {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := &PrometheusFactory{
		reg:        reg,
		buckets:    make(map[string][]float64),
		counters:   make(map[string]prometheus.Counter),
		histograms: make(map[string]prometheus.Histogram),
	}
	f.buckets[promName("embers.run.distance")] = prometheus.ExponentialBuckets(50, 2, 12)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Counter implements MetricFactory.
func (f *PrometheusFactory) Counter(name string) Counter {
	n := promName(name)

	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.counters[n]; ok {
		return c
	}
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: n, Help: name})
	c = register(f.reg, c)
	f.counters[n] = c
	return c
}

// Histogram implements MetricFactory.
func (f *PrometheusFactory) Histogram(name string) Histogram {
	n := promName(name)

	f.mu.Lock()
	defer f.mu.Unlock()

	if h, ok := f.histograms[n]; ok {
		return h
	}
	buckets := f.buckets[n]
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}
	h := prometheus.NewHistogram(prometheus.HistogramOpts{Name: n, Help: name, Buckets: buckets})
	h = register(f.reg, h)
	f.histograms[n] = h
	return h
}

// register adds c to reg, reusing a collector that is already registered
// under the same descriptor.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func promName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}
