// Package metered wraps a log sink with Prometheus counters.
package metered

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/crimson-sun/launchpad/pkg/logger"
)

// Metrics are the counters a metered sink updates.
type Metrics struct {
	Records *prometheus.CounterVec // by severity
	Errors  *prometheus.CounterVec // by severity
}

// NewMetrics registers the log sink counters with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Records: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launchpad_log_records_total",
				Help: "Total number of log records written to the sink",
			},
			[]string{"severity"},
		),
		Errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launchpad_log_sink_errors_total",
				Help: "Total number of log sink write errors",
			},
			[]string{"severity"},
		),
	}
}

// Output counts every record passing through to inner.
type Output struct {
	inner   logger.Sink
	metrics *Metrics
}

// New wraps inner, recording into m.
func New(inner logger.Sink, m *Metrics) *Output {
	return &Output{inner: inner, metrics: m}
}

func (o *Output) Write(ctx context.Context, rec logger.Record) error {
	sev := rec.Severity.String()
	o.metrics.Records.WithLabelValues(sev).Inc()
	err := o.inner.Write(ctx, rec)
	if err != nil {
		o.metrics.Errors.WithLabelValues(sev).Inc()
	}
	return err
}

func (o *Output) Close() error { return o.inner.Close() }

// ArgPolicy reports the wrapped sink's policy.
func (o *Output) ArgPolicy() logger.ArgPolicy {
	p, _ := logger.PolicyOf(o.inner)
	return p
}
