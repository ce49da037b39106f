// Package dedup wraps a log sink and collapses identical records that
// arrive within a time window.
//
// The first record of a run is forwarded immediately. Repeats are held back
// and summarized as one extra record, "<message> (xN in <span>)", when a
// different record arrives, the window expires, or the sink is flushed or
// closed.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/crimson-sun/launchpad/pkg/logger"
)

const defaultWindow = 5 * time.Second

// Option configures a Sink.
type Option func(*Sink)

// WithOnError sets the callback for failures of summaries flushed by the
// window timer, which have no caller to return to. Default: slog.Warn.
func WithOnError(f func(error)) Option {
	return func(s *Sink) { s.errFunc = f }
}

// Sink collapses repeated records before they reach inner.
type Sink struct {
	inner   logger.Sink
	window  time.Duration
	now     func() time.Time
	errFunc func(error)

	mu       sync.Mutex
	key      string
	first    logger.Record
	firstTS  time.Time
	latestTS time.Time
	count    int
	timer    *time.Timer
	gen      uint64 // bumped whenever a run ends, so stale timers do nothing
}

// New wraps inner. A non-positive window defaults to 5s.
func New(inner logger.Sink, window time.Duration, opts ...Option) *Sink {
	if window <= 0 {
		window = defaultWindow
	}
	s := &Sink{
		inner:   inner,
		window:  window,
		now:     time.Now,
		errFunc: func(err error) { slog.Warn("dedup summary write error", "error", err) },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sink) Write(ctx context.Context, rec logger.Record) error {
	key := keyOf(rec)
	ts := s.now()

	s.mu.Lock()
	if s.count > 0 && key == s.key && ts.Sub(s.firstTS) <= s.window {
		s.count++
		s.latestTS = ts
		if s.count == 2 {
			s.armLocked(s.window - ts.Sub(s.firstTS))
		}
		s.mu.Unlock()
		return nil
	}
	summary, ok := s.endRunLocked()
	s.key, s.first, s.firstTS, s.latestTS, s.count = key, rec, ts, ts, 1
	s.mu.Unlock()

	var errs []error
	if ok {
		errs = append(errs, s.inner.Write(ctx, summary))
	}
	errs = append(errs, s.inner.Write(ctx, rec))
	return errors.Join(errs...)
}

// Flush emits the pending summary, if any, and ends the current run.
func (s *Sink) Flush(ctx context.Context) error {
	s.mu.Lock()
	summary, ok := s.endRunLocked()
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return s.inner.Write(ctx, summary)
}

func (s *Sink) Close() error {
	return errors.Join(s.Flush(context.Background()), s.inner.Close())
}

// ArgPolicy reports the wrapped sink's policy.
func (s *Sink) ArgPolicy() logger.ArgPolicy {
	p, _ := logger.PolicyOf(s.inner)
	return p
}

// armLocked schedules the end of the current run after d.
func (s *Sink) armLocked(d time.Duration) {
	if d < 0 {
		d = 0
	}
	gen := s.gen
	s.timer = time.AfterFunc(d, func() { s.expire(gen) })
}

// expire flushes the run that was current when the timer was armed.
func (s *Sink) expire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	summary, ok := s.endRunLocked()
	s.mu.Unlock()
	if !ok {
		return
	}

	defer func() {
		if v := recover(); v != nil {
			s.errFunc(fmt.Errorf("dedup: sink panic: %v", v))
		}
	}()
	if err := s.inner.Write(context.Background(), summary); err != nil {
		s.errFunc(err)
	}
}

// endRunLocked stops the window timer, resets the run and returns its
// summary. It reports false when the run had no repeats.
func (s *Sink) endRunLocked() (logger.Record, bool) {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	count := s.count
	s.count = 0
	if count < 2 {
		return logger.Record{}, false
	}
	rec := s.first
	rec.Message = fmt.Sprintf("%s (x%d in %s)", rec.Message, count, formatDuration(s.latestTS.Sub(s.firstTS)))
	return rec, true
}

func keyOf(rec logger.Record) string {
	return fmt.Sprintf("%d|%s|%s|%v|%v", rec.Severity, rec.Tag, rec.Message, rec.Args, rec.Cause)
}

// formatDuration produces a human-readable short duration string.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	if secs == 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dm%ds", mins, secs)
}
