package async

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crimson-sun/launchpad/pkg/logger"
)

const (
	defaultBufferSize   = 1024
	defaultDrainTimeout = 5 * time.Second
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("async output: closed")

// Option configures an Async wrapper.
type Option func(*Async)

// WithBufferSize sets the channel buffer capacity. Default: 1024.
// Negative sizes fall back to the default; 0 makes Write synchronous
// with the drain goroutine.
func WithBufferSize(n int) Option {
	return func(a *Async) { a.bufSize = n }
}

// WithOnError sets the callback invoked when the inner sink's Write fails.
// Default: logs a warning via slog.
func WithOnError(f func(error)) Option {
	return func(a *Async) { a.errFunc = f }
}

// WithDropOnFull makes Write return immediately (dropping the record) when
// the buffer is full, instead of blocking.
func WithDropOnFull() Option {
	return func(a *Async) { a.dropOnFull = true }
}

// WithDrainTimeout bounds how long Close waits for buffered records.
// Default: 5s.
func WithDrainTimeout(d time.Duration) Option {
	return func(a *Async) { a.drainTimeout = d }
}

// Async decouples the logging call from the sink via a buffered channel.
// A background goroutine drains it to the wrapped sink. Errors from the
// inner sink are passed to errFunc rather than returned to the caller.
type Async struct {
	inner        logger.Sink
	ch           chan logger.Record
	done         chan struct{}
	errFunc      func(error)
	bufSize      int
	dropOnFull   bool
	drainTimeout time.Duration

	mu        sync.RWMutex // guards closed against concurrent sends
	closed    bool
	closeOnce sync.Once
	dropped   atomic.Uint64
}

// New wraps a sink in an async channel-based writer.
// The background drain goroutine starts immediately.
func New(inner logger.Sink, opts ...Option) *Async {
	a := &Async{
		inner:        inner,
		bufSize:      defaultBufferSize,
		drainTimeout: defaultDrainTimeout,
		errFunc:      func(err error) { slog.Warn("async output write error", "error", err) },
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.bufSize < 0 {
		a.bufSize = defaultBufferSize
	}
	a.ch = make(chan logger.Record, a.bufSize)
	a.done = make(chan struct{})
	go a.drain()
	return a
}

// Write sends the record into the channel. By default, blocks if the
// channel is full (backpressure). With WithDropOnFull, returns nil
// immediately and the record is lost.
func (a *Async) Write(_ context.Context, rec logger.Record) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}
	if a.dropOnFull {
		select {
		case a.ch <- rec:
		default:
			a.dropped.Add(1)
			slog.Warn("async output buffer full, dropping record",
				"severity", rec.Severity.String(), "tag", rec.Tag)
		}
		return nil
	}
	a.ch <- rec
	return nil
}

// Dropped returns the number of records discarded in drop-on-full mode.
func (a *Async) Dropped() uint64 {
	return a.dropped.Load()
}

// Close closes the channel, waits for the drain goroutine to finish
// (with a timeout), then closes the inner sink.
func (a *Async) Close() error {
	var err error
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		close(a.ch)
		a.mu.Unlock()

		select {
		case <-a.done:
		case <-time.After(a.drainTimeout):
			slog.Warn("async output drain timed out")
		}
		err = a.inner.Close()
	})
	return err
}

// ArgPolicy reports the wrapped sink's policy.
func (a *Async) ArgPolicy() logger.ArgPolicy {
	p, _ := logger.PolicyOf(a.inner)
	return p
}

// drain reads records from the channel and writes them to the inner sink.
// It runs on its own goroutine, so nothing upstream can recover a panic
// raised here; each write is isolated instead.
func (a *Async) drain() {
	defer close(a.done)
	for rec := range a.ch {
		if err := a.write(rec); err != nil {
			a.report(err)
		}
	}
}

func (a *Async) write(rec logger.Record) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("async output: sink panic: %v", v)
		}
	}()
	return a.inner.Write(context.Background(), rec)
}

// report calls errFunc, swallowing any panic from it as well.
func (a *Async) report(err error) {
	defer func() {
		if v := recover(); v != nil {
			slog.Error("async output error callback panicked", "panic", v, "error", err)
		}
	}()
	a.errFunc(err)
}
