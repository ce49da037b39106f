package logger

import (
	"context"
	"fmt"
	"log/slog"
)

// Sink is the concrete destination a Facade forwards records to.
// Implementations must be safe for concurrent use.
type Sink interface {
	Write(ctx context.Context, rec Record) error
	Close() error
}

// Logger is the logging contract calling code depends on.
type Logger interface {
	Log(sev Severity, rec Record)
	Verbose(rec Record)
	Debug(rec Record)
	Info(rec Record)
	Warn(rec Record)
	Error(rec Record)
	Fatal(rec Record)
}

// Option configures a Facade.
type Option func(*Facade)

// WithOnError sets the callback invoked when the sink returns an error or
// panics. Default: logs a warning via slog.
func WithOnError(f func(error)) Option {
	return func(l *Facade) {
		if f != nil {
			l.errFunc = f
		}
	}
}

// Facade implements Logger by forwarding to a single Sink.
// It holds no per-call state and is safe for concurrent use.
type Facade struct {
	sink    Sink
	errFunc func(error)
}

var _ Logger = (*Facade)(nil)

// New creates a Facade writing to sink. A nil sink discards everything.
func New(sink Sink, opts ...Option) *Facade {
	if sink == nil {
		sink = discard{}
	}
	l := &Facade{
		sink:    sink,
		errFunc: func(err error) { slog.Warn("log sink error", "error", err) },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Nop returns a Facade that discards every record.
func Nop() *Facade {
	return New(discard{})
}

// Sink returns the sink the facade forwards to.
func (l *Facade) Sink() Sink {
	return l.sink
}

// Log stamps rec with sev and forwards it. Empty records are dropped.
func (l *Facade) Log(sev Severity, rec Record) {
	if rec.Empty() {
		return
	}
	rec.Severity = sev
	l.forward(rec)
}

func (l *Facade) Verbose(rec Record) { l.Log(Verbose, rec) }
func (l *Facade) Debug(rec Record)   { l.Log(Debug, rec) }
func (l *Facade) Info(rec Record)    { l.Log(Info, rec) }
func (l *Facade) Warn(rec Record)    { l.Log(Warn, rec) }
func (l *Facade) Error(rec Record)   { l.Log(Error, rec) }

// Fatal forwards rec at Fatal severity. It does not exit.
func (l *Facade) Fatal(rec Record) { l.Log(Fatal, rec) }

// Close closes the underlying sink.
func (l *Facade) Close() error {
	return l.sink.Close()
}

func (l *Facade) forward(rec Record) {
	defer func() {
		if v := recover(); v != nil {
			l.report(fmt.Errorf("logger: sink panic: %v", v))
		}
	}()
	if err := l.sink.Write(context.Background(), rec); err != nil {
		l.report(err)
	}
}

// report calls errFunc, swallowing any panic from it as well.
func (l *Facade) report(err error) {
	defer func() { _ = recover() }()
	l.errFunc(err)
}

type discard struct{}

func (discard) Write(context.Context, Record) error { return nil }
func (discard) Close() error                        { return nil }
