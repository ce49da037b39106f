// Package metered wraps an analytics sink with Prometheus counters.
package metered

import (
	"context"
	"sync"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/crimson-sun/launchpad/pkg/analytics"
)

// DefaultMaxNames bounds the distinct event names exported as labels.
const DefaultMaxNames = 100

// OtherName is the label for events past the name limit and for names that
// are not valid UTF-8.
const OtherName = "_other"

// Option configures Metrics.
type Option func(*Metrics)

// WithMaxNames sets how many distinct event names get their own label.
func WithMaxNames(n int) Option {
	return func(m *Metrics) { m.maxNames = n }
}

// Metrics are the counters a metered sink updates.
type Metrics struct {
	Events *prometheus.CounterVec // by event name, capped
	Errors prometheus.Counter

	mu       sync.Mutex
	maxNames int
	names    map[string]struct{}
}

// NewMetrics registers the analytics counters with reg.
func NewMetrics(reg prometheus.Registerer, opts ...Option) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{
		maxNames: DefaultMaxNames,
		names:    make(map[string]struct{}),
		Events: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launchpad_analytics_events_total",
				Help: "Total number of analytics events tracked",
			},
			[]string{"name"},
		),
		Errors: f.NewCounter(
			prometheus.CounterOpts{
				Name: "launchpad_analytics_sink_errors_total",
				Help: "Total number of analytics sink errors",
			},
		),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// label returns the label value for name. The first maxNames distinct
// names keep their own label; later ones share OtherName.
func (m *Metrics) label(name string) string {
	if !utf8.ValidString(name) {
		return OtherName
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.names[name]; ok {
		return name
	}
	if len(m.names) >= m.maxNames {
		return OtherName
	}
	m.names[name] = struct{}{}
	return name
}

// Sink counts events passing through to inner.
type Sink struct {
	inner   analytics.Sink
	metrics *Metrics
}

// New wraps inner, recording into m.
func New(inner analytics.Sink, m *Metrics) *Sink {
	return &Sink{inner: inner, metrics: m}
}

func (s *Sink) Track(ctx context.Context, ev analytics.Event) error {
	if ev != nil {
		s.metrics.Events.WithLabelValues(s.metrics.label(ev.Name())).Inc()
	}
	err := s.inner.Track(ctx, ev)
	if err != nil {
		s.metrics.Errors.Inc()
	}
	return err
}

func (s *Sink) Close() error { return s.inner.Close() }
