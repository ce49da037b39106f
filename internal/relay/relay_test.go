package relay

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/valyala/fastjson"

	"github.com/crimson-sun/launchpad/pkg/analytics"
	"github.com/crimson-sun/launchpad/pkg/logger"
)

type recordingSink struct {
	mu      sync.Mutex
	records []logger.Record
}

func (s *recordingSink) Write(_ context.Context, rec logger.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *recordingSink) Close() error { return nil }

type recordingTracker struct {
	events []analytics.Event
}

func (t *recordingTracker) ReportContext(_ context.Context, ev analytics.Event) {
	t.events = append(t.events, ev)
}

func TestRunDispatchesRecordsAndEvents(t *testing.T) {
	sink := &recordingSink{}
	tracker := &recordingTracker{}
	rl := New(logger.New(sink), tracker)

	input := strings.Join([]string{
		`{"severity":"warn","tag":"net","message":"retry %d","args":[3],"error":"timeout"}`,
		`{"event":"screen_view","params":{"screen":"home","depth":2}}`,
		``,
		`{"message":"plain info"}`,
		`{"event":"app_open"}`,
	}, "\n")

	stats, err := rl.Run(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats != (Stats{Lines: 4, Records: 2, Events: 2}) {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	if len(sink.records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(sink.records))
	}
	first := sink.records[0]
	if first.Severity != logger.Warn || first.Tag != "net" || first.Message != "retry %d" {
		t.Errorf("unexpected first record: %+v", first)
	}
	if len(first.Args) != 1 || first.Args[0] != int64(3) {
		t.Errorf("expected args [3], got %v", first.Args)
	}
	if first.Cause == nil || first.Cause.Error() != "timeout" {
		t.Errorf("expected cause 'timeout', got %v", first.Cause)
	}
	if sink.records[1].Severity != logger.Info {
		t.Errorf("expected default severity info, got %v", sink.records[1].Severity)
	}

	want := analytics.MustCustomEvent("screen_view", map[string]any{"screen": "home", "depth": int64(2)})
	if !analytics.Equal(tracker.events[0], want) {
		t.Errorf("event mismatch: got %v", tracker.events[0])
	}
	if !analytics.Equal(tracker.events[1], analytics.MustCustomEvent("app_open", nil)) {
		t.Errorf("event mismatch: got %v", tracker.events[1])
	}
}

func TestRunCountsMalformedLines(t *testing.T) {
	sink := &recordingSink{}
	tracker := &recordingTracker{}
	rl := New(logger.New(sink), tracker)

	input := strings.Join([]string{
		`not json`,
		`[1,2,3]`,
		`{"event":42}`,
		`{"event":"  "}`,
		`{"event":"x","params":[1]}`,
		`{"severity":"loud","message":"m"}`,
		`{"severity":1,"message":"m"}`,
		`{"message":"m","args":"nope"}`,
		`{"message":"survivor"}`,
	}, "\n")

	stats, err := rl.Run(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Malformed != 8 {
		t.Errorf("expected 8 malformed lines, got %d", stats.Malformed)
	}
	if stats.Records != 1 || len(sink.records) != 1 || sink.records[0].Message != "survivor" {
		t.Errorf("expected only the survivor record, got %+v", sink.records)
	}
	if len(tracker.events) != 0 {
		t.Errorf("expected no events, got %d", len(tracker.events))
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	sink := &recordingSink{}
	rl := New(logger.New(sink), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rl.Run(ctx, strings.NewReader("{\"message\":\"a\"}\n{\"message\":\"b\"}\n"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(sink.records) != 0 {
		t.Errorf("expected no records after cancel, got %d", len(sink.records))
	}
}

func TestRunLineTooLong(t *testing.T) {
	rl := New(nil, nil)
	long := `{"message":"` + strings.Repeat("x", MaxLineSize) + `"}`

	_, err := rl.Run(context.Background(), strings.NewReader(long))
	if err == nil {
		t.Fatal("expected error for oversized line")
	}
}

func TestNilTrackerStillCountsEvents(t *testing.T) {
	rl := New(nil, nil)
	stats, err := rl.Run(context.Background(), strings.NewReader(`{"event":"e"}`))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Events != 1 {
		t.Errorf("expected 1 event, got %d", stats.Events)
	}
}

func TestDecodeRecordNestedArgs(t *testing.T) {
	v := fastjson.MustParse(`{"severity":"wtf","args":[1.5,"s",true,null,{"k":[false]}]}`)

	sev, rec, err := DecodeRecord(v)
	if err != nil {
		t.Fatalf("DecodeRecord: %v", err)
	}
	if sev != logger.Fatal {
		t.Errorf("expected fatal, got %v", sev)
	}
	if rec.Args[0] != 1.5 || rec.Args[1] != "s" || rec.Args[2] != true || rec.Args[3] != nil {
		t.Errorf("unexpected scalar args: %v", rec.Args)
	}
	m, ok := rec.Args[4].(map[string]any)
	if !ok {
		t.Fatalf("expected map arg, got %T", rec.Args[4])
	}
	if arr, ok := m["k"].([]any); !ok || len(arr) != 1 || arr[0] != false {
		t.Errorf("unexpected nested arg: %v", m)
	}
}

func TestDecodeRecordUnknownSeverity(t *testing.T) {
	_, _, err := DecodeRecord(fastjson.MustParse(`{"severity":"loud"}`))
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	var unk *logger.UnknownSeverityError
	if !errors.As(err, &unk) || unk.Name != "loud" {
		t.Fatalf("expected UnknownSeverityError, got %v", err)
	}
}

func TestEmptyRecordsCountedSeparately(t *testing.T) {
	sink := &recordingSink{}
	rl := New(logger.New(sink), nil)

	input := strings.Join([]string{
		`{"severity":"info","tag":"net"}`,
		`{"message":null,"error":""}`,
		`{"error":"only a cause"}`,
	}, "\n")

	stats, err := rl.Run(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats != (Stats{Lines: 3, Records: 1, Empty: 2}) {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(sink.records) != 1 || sink.records[0].Cause == nil {
		t.Fatalf("expected only the cause-only record, got %+v", sink.records)
	}
}

func TestDecodeRecordRejectsNonStringFields(t *testing.T) {
	for _, line := range []string{
		`{"message":42}`,
		`{"message":"m","tag":["net"]}`,
		`{"message":"m","error":{"code":1}}`,
	} {
		_, _, err := DecodeRecord(fastjson.MustParse(line))
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("DecodeRecord(%s) = %v, want ErrMalformed", line, err)
		}
	}
}
