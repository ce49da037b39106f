package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Sink consumes events and reports them to an analytics service.
type Sink interface {
	Track(ctx context.Context, ev Event) error
	Close() error
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithOnError sets the callback invoked when the sink fails or panics.
// Default: logs a warning via slog.
func WithOnError(f func(error)) Option {
	return func(r *Reporter) {
		if f != nil {
			r.errFunc = f
		}
	}
}

// Reporter forwards events to a Sink. Report never fails: analytics
// problems must not alter application control flow.
type Reporter struct {
	sink    Sink
	errFunc func(error)
}

// NewReporter creates a Reporter for sink. A nil sink discards events.
func NewReporter(sink Sink, opts ...Option) *Reporter {
	if sink == nil {
		sink = Multi{}
	}
	r := &Reporter{
		sink:    sink,
		errFunc: func(err error) { slog.Warn("analytics sink error", "error", err) },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Report forwards ev to the sink. Nil events are ignored.
func (r *Reporter) Report(ev Event) {
	r.ReportContext(context.Background(), ev)
}

// ReportContext is Report with a caller-supplied context for the sink.
func (r *Reporter) ReportContext(ctx context.Context, ev Event) {
	if ev == nil {
		return
	}
	defer func() {
		if v := recover(); v != nil {
			r.report(fmt.Errorf("analytics: sink panic: %v", v))
		}
	}()
	if err := r.sink.Track(ctx, ev); err != nil {
		r.report(err)
	}
}

// Close closes the underlying sink.
func (r *Reporter) Close() error {
	return r.sink.Close()
}

func (r *Reporter) report(err error) {
	defer func() { _ = recover() }()
	r.errFunc(err)
}

// Multi fans events out to several sinks. A sink that fails or panics does
// not stop delivery to the rest; errors are joined.
type Multi []Sink

func (m Multi) Track(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range m {
		if err := guard(s, func() error { return s.Track(ctx, ev) }); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := guard(s, s.Close); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// guard runs op, turning a panic into an error naming the sink type.
func guard(s Sink, op func() error) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("analytics: sink %T panicked: %v", s, v)
		}
	}()
	return op()
}
