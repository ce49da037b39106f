package dedup

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/crimson-sun/launchpad/pkg/logger"
)

var t0 = time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC)

type mockSink struct {
	mu       sync.Mutex
	records  []logger.Record
	closed   bool
	writeErr error
}

func (m *mockSink) Write(_ context.Context, rec logger.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return m.writeErr
}

func (m *mockSink) snapshot() []logger.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]logger.Record(nil), m.records...)
}

func (m *mockSink) Close() error {
	m.closed = true
	return nil
}

func (m *mockSink) ArgPolicy() logger.ArgPolicy { return logger.TemplateArgs }

// clock returns a now func that advances by step on every call.
func clock(step time.Duration) func() time.Time {
	ts := t0.Add(-step)
	return func() time.Time {
		ts = ts.Add(step)
		return ts
	}
}

func rec(msg string) logger.Record {
	return logger.Record{Severity: logger.Error, Tag: "db", Message: msg}
}

func TestDistinctRecordsPassThrough(t *testing.T) {
	inner := &mockSink{}
	s := New(inner, 5*time.Second)
	s.now = clock(time.Second)

	for _, m := range []string{"a", "b", "c"} {
		if err := s.Write(context.Background(), rec(m)); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if len(inner.records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(inner.records))
	}
}

func TestRepeatsCollapseIntoSummary(t *testing.T) {
	inner := &mockSink{}
	s := New(inner, 5*time.Second)
	s.now = clock(time.Second)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		s.Write(ctx, rec("connection refused"))
	}
	if len(inner.records) != 1 {
		t.Fatalf("expected only the first record before flush, got %d", len(inner.records))
	}

	s.Write(ctx, rec("recovered"))

	if len(inner.records) != 3 {
		t.Fatalf("expected first, summary, next; got %d", len(inner.records))
	}
	if got := inner.records[1].Message; got != "connection refused (x4 in 3s)" {
		t.Errorf("unexpected summary %q", got)
	}
	if inner.records[1].Severity != logger.Error || inner.records[1].Tag != "db" {
		t.Errorf("summary should keep severity and tag: %+v", inner.records[1])
	}
	if inner.records[2].Message != "recovered" {
		t.Errorf("expected 'recovered' last, got %q", inner.records[2].Message)
	}
}

func TestWindowExpiryStartsNewRun(t *testing.T) {
	inner := &mockSink{}
	s := New(inner, 5*time.Second)
	s.now = clock(3 * time.Second)
	ctx := context.Background()

	s.Write(ctx, rec("x")) // t=0
	s.Write(ctx, rec("x")) // t=3, within window
	s.Write(ctx, rec("x")) // t=6, outside window

	if len(inner.records) != 3 {
		t.Fatalf("expected first, summary, new first; got %d", len(inner.records))
	}
	if got := inner.records[1].Message; got != "x (x2 in 3s)" {
		t.Errorf("unexpected summary %q", got)
	}
}

func TestArgsAndCauseDistinguishRecords(t *testing.T) {
	inner := &mockSink{}
	s := New(inner, time.Minute)
	s.now = clock(time.Millisecond)
	ctx := context.Background()

	s.Write(ctx, logger.Record{Message: "retry %d", Args: []any{1}})
	s.Write(ctx, logger.Record{Message: "retry %d", Args: []any{2}})
	s.Write(ctx, logger.Record{Message: "retry %d", Args: []any{2}, Cause: errors.New("boom")})

	if len(inner.records) != 3 {
		t.Fatalf("expected 3 distinct records, got %d", len(inner.records))
	}
}

func TestCloseFlushesSummary(t *testing.T) {
	inner := &mockSink{}
	s := New(inner, time.Minute)
	s.now = clock(250 * time.Millisecond)
	ctx := context.Background()

	s.Write(ctx, rec("spam"))
	s.Write(ctx, rec("spam"))

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !inner.closed {
		t.Error("expected inner sink closed")
	}
	if len(inner.records) != 2 || inner.records[1].Message != "spam (x2 in 250ms)" {
		t.Fatalf("unexpected records after close: %+v", inner.records)
	}
}

func TestFlushWithoutRepeatsIsNoop(t *testing.T) {
	inner := &mockSink{}
	s := New(inner, time.Minute)

	s.Write(context.Background(), rec("once"))
	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(inner.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(inner.records))
	}
}

func TestWriteErrorPropagates(t *testing.T) {
	inner := &mockSink{writeErr: errors.New("disk full")}
	s := New(inner, time.Minute)

	if err := s.Write(context.Background(), rec("a")); err == nil {
		t.Fatal("expected inner error")
	}
}

func TestArgPolicyDelegates(t *testing.T) {
	s := New(&mockSink{}, 0)
	if p, ok := logger.PolicyOf(s); !ok || p != logger.TemplateArgs {
		t.Fatalf("expected TemplateArgs, got %v %v", p, ok)
	}
	if s.window != 5*time.Second {
		t.Errorf("expected default window 5s, got %v", s.window)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Millisecond, "500ms"},
		{3 * time.Second, "3s"},
		{2 * time.Minute, "2m"},
		{90 * time.Second, "1m30s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

// waitFor polls until the sink holds n records or the deadline passes.
func waitFor(t *testing.T, m *mockSink, n int) []logger.Record {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if recs := m.snapshot(); len(recs) >= n {
			return recs
		}
		time.Sleep(5 * time.Millisecond)
	}
	return m.snapshot()
}

func TestSummaryEmittedWhenWindowExpires(t *testing.T) {
	inner := &mockSink{}
	s := New(inner, 50*time.Millisecond)
	defer s.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s.Write(ctx, rec("burst"))
	}

	got := waitFor(t, inner, 2)
	if len(got) != 2 {
		t.Fatalf("records after window expired: %d, want 2", len(got))
	}
	if !strings.HasPrefix(got[1].Message, "burst (x3 in ") {
		t.Errorf("unexpected summary %q", got[1].Message)
	}

	// The run is over, so the next identical record starts a new one.
	s.Write(ctx, rec("burst"))
	if got := inner.snapshot(); len(got) != 3 || got[2].Message != "burst" {
		t.Fatalf("expected a fresh first record, got %+v", got)
	}
}

func TestExpiredTimerDoesNotFlushLaterRun(t *testing.T) {
	inner := &mockSink{}
	s := New(inner, 30*time.Millisecond)
	ctx := context.Background()

	s.Write(ctx, rec("a"))
	s.Write(ctx, rec("a"))
	s.Write(ctx, rec("b")) // ends the "a" run and stops its timer
	s.Write(ctx, rec("b"))

	waitFor(t, inner, 4)
	time.Sleep(60 * time.Millisecond)
	got := inner.snapshot()

	// first a, summary a, first b, summary b from b's own timer.
	if len(got) != 4 {
		t.Fatalf("expected 4 records, got %d: %+v", len(got), got)
	}
	if !strings.HasPrefix(got[3].Message, "b (x2 in ") {
		t.Errorf("unexpected last record %q", got[3].Message)
	}
	s.Close()
	if n := len(inner.snapshot()); n != 4 {
		t.Errorf("Close emitted a duplicate summary: %d records", n)
	}
}

type panicOnSummary struct{ mockSink }

func (p *panicOnSummary) Write(ctx context.Context, r logger.Record) error {
	if strings.Contains(r.Message, "(x") {
		panic("summary rejected")
	}
	return p.mockSink.Write(ctx, r)
}

func TestTimerFlushPanicIsReported(t *testing.T) {
	inner := &panicOnSummary{}
	reported := make(chan error, 1)
	s := New(inner, 20*time.Millisecond, WithOnError(func(err error) { reported <- err }))
	ctx := context.Background()

	s.Write(ctx, rec("x"))
	s.Write(ctx, rec("x"))

	select {
	case err := <-reported:
		if !strings.Contains(err.Error(), "summary rejected") {
			t.Errorf("unexpected error %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timer flush panic was not reported")
	}
}
