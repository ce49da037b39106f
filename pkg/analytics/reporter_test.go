package analytics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

type mockSink struct {
	mu     sync.Mutex
	events []Event
	err    error
	panic  any
	closed bool
}

func (m *mockSink) Track(_ context.Context, ev Event) error {
	if m.panic != nil {
		panic(m.panic)
	}
	m.mu.Lock()
	m.events = append(m.events, ev)
	m.mu.Unlock()
	return m.err
}

func (m *mockSink) Close() error {
	m.closed = true
	return m.err
}

func TestReporterForwards(t *testing.T) {
	sink := &mockSink{}
	r := NewReporter(sink)

	ev := MustCustomEvent("screen_view", map[string]any{"screen": "home"})
	r.Report(ev)
	r.Report(nil)

	if len(sink.events) != 1 || !Equal(sink.events[0], ev) {
		t.Fatalf("sink got %v", sink.events)
	}
}

func TestReporterSwallowsErrors(t *testing.T) {
	sink := &mockSink{err: errors.New("quota exceeded")}
	var reported []error
	r := NewReporter(sink, WithOnError(func(err error) { reported = append(reported, err) }))

	r.Report(MustCustomEvent("purchase", nil))

	if len(reported) != 1 {
		t.Fatalf("reported %d errors, want 1", len(reported))
	}
}

func TestReporterRecoversPanics(t *testing.T) {
	sink := &mockSink{panic: "sdk crashed"}
	var reported error
	r := NewReporter(sink, WithOnError(func(err error) { reported = err }))

	r.Report(MustCustomEvent("purchase", nil))

	if reported == nil {
		t.Fatal("panic should be reported")
	}
}

func TestReporterNilSink(t *testing.T) {
	r := NewReporter(nil)
	r.Report(MustCustomEvent("noop", nil))
	if err := r.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
}

func TestMultiDeliversDespiteFailure(t *testing.T) {
	failing := &mockSink{err: errors.New("offline")}
	healthy := &mockSink{}
	m := Multi{failing, healthy}

	err := m.Track(context.Background(), MustCustomEvent("login", nil))
	if err == nil {
		t.Fatal("expected joined error")
	}
	if len(healthy.events) != 1 || len(failing.events) != 1 {
		t.Fatalf("delivery counts: failing=%d healthy=%d", len(failing.events), len(healthy.events))
	}

	if err := m.Close(); err == nil {
		t.Error("expected close error from failing sink")
	}
	if !failing.closed || !healthy.closed {
		t.Error("Close should reach every sink")
	}
}

func TestMultiDeliversDespitePanic(t *testing.T) {
	exploding := &mockSink{panic: "tracker crashed"}
	healthy := &mockSink{}
	var reported []error
	r := NewReporter(Multi{exploding, healthy}, WithOnError(func(err error) {
		reported = append(reported, err)
	}))

	r.Report(MustCustomEvent("purchase", map[string]any{"sku": "A1"}))

	if len(healthy.events) != 1 {
		t.Fatalf("healthy sink got %d events, want 1", len(healthy.events))
	}
	if len(reported) != 1 || !strings.Contains(reported[0].Error(), "panicked: tracker crashed") {
		t.Fatalf("expected the panic reported once, got %v", reported)
	}
}
