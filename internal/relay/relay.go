// Package relay feeds newline-delimited JSON from a stream into the logging
// facade and the analytics reporter.
//
// A line carrying an "event" key is an analytics event:
//
//	{"event":"screen_view","params":{"screen":"home"}}
//
// Any other object is a log record:
//
//	{"severity":"warn","tag":"net","message":"retry %d","args":[3],"error":"timeout"}
package relay

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/valyala/fastjson"

	"github.com/crimson-sun/launchpad/pkg/analytics"
	"github.com/crimson-sun/launchpad/pkg/logger"
)

// MaxLineSize is the longest line the relay accepts.
const MaxLineSize = 1 << 20

// ErrMalformed is wrapped by every per-line decoding failure.
var ErrMalformed = errors.New("malformed line")

// Tracker receives decoded analytics events.
type Tracker interface {
	ReportContext(ctx context.Context, ev analytics.Event)
}

// Stats counts what a Run call consumed.
type Stats struct {
	Lines     int
	Records   int
	Events    int
	Empty     int // records with neither message nor error; the facade drops them
	Malformed int
}

// Relay decodes lines and dispatches them.
type Relay struct {
	log     logger.Logger
	tracker Tracker
	parser  fastjson.Parser
}

// New creates a Relay. A nil log or tracker drops the corresponding lines
// after decoding them.
func New(log logger.Logger, tracker Tracker) *Relay {
	if log == nil {
		log = logger.Nop()
	}
	return &Relay{log: log, tracker: tracker}
}

// Run consumes r until EOF or until ctx is cancelled. Malformed lines are
// counted and reported through slog; they never stop the relay.
func (rl *Relay) Run(ctx context.Context, r io.Reader) (Stats, error) {
	var stats Stats
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)

	for sc.Scan() {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		line := sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		stats.Lines++

		if err := rl.dispatch(ctx, line, &stats); err != nil {
			stats.Malformed++
			slog.Warn("relay: skipping line", "line", stats.Lines, "error", err)
		}
	}
	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("relay read: %w", err)
	}
	return stats, nil
}

func (rl *Relay) dispatch(ctx context.Context, line []byte, stats *Stats) error {
	v, err := rl.parser.ParseBytes(line)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if v.Type() != fastjson.TypeObject {
		return fmt.Errorf("%w: expected object, got %s", ErrMalformed, v.Type())
	}

	if v.Exists("event") {
		ev, err := DecodeEvent(v)
		if err != nil {
			return err
		}
		if rl.tracker != nil {
			rl.tracker.ReportContext(ctx, ev)
		}
		stats.Events++
		return nil
	}

	sev, rec, err := DecodeRecord(v)
	if err != nil {
		return err
	}
	if rec.Empty() {
		stats.Empty++
		return nil
	}
	rl.log.Log(sev, rec)
	stats.Records++
	return nil
}

// DecodeEvent builds a CustomEvent from a parsed event line.
func DecodeEvent(v *fastjson.Value) (analytics.CustomEvent, error) {
	nameVal := v.Get("event")
	if nameVal.Type() != fastjson.TypeString {
		return analytics.CustomEvent{}, fmt.Errorf("%w: event name must be a string", ErrMalformed)
	}
	name := string(nameVal.GetStringBytes())

	var params map[string]any
	if p := v.Get("params"); p != nil && p.Type() != fastjson.TypeNull {
		obj, err := p.Object()
		if err != nil {
			return analytics.CustomEvent{}, fmt.Errorf("%w: params must be an object", ErrMalformed)
		}
		params = objectToMap(obj)
	}

	ev, err := analytics.NewCustomEvent(name, params)
	if err != nil {
		return analytics.CustomEvent{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return ev, nil
}

// DecodeRecord builds a logger.Record from a parsed log line. A missing
// severity means Info.
func DecodeRecord(v *fastjson.Value) (logger.Severity, logger.Record, error) {
	sev := logger.Info
	if s := v.Get("severity"); s != nil {
		name, err := s.StringBytes()
		if err != nil {
			return 0, logger.Record{}, fmt.Errorf("%w: severity must be a string", ErrMalformed)
		}
		parsed, ok := logger.ParseSeverity(string(name))
		if !ok {
			return 0, logger.Record{}, fmt.Errorf("%w: %w", ErrMalformed, &logger.UnknownSeverityError{Name: string(name)})
		}
		sev = parsed
	}

	tag, err := optionalString(v, "tag")
	if err != nil {
		return 0, logger.Record{}, err
	}
	msg, err := optionalString(v, "message")
	if err != nil {
		return 0, logger.Record{}, err
	}
	errText, err := optionalString(v, "error")
	if err != nil {
		return 0, logger.Record{}, err
	}

	rec := logger.Record{Severity: sev, Tag: tag, Message: msg}
	if a := v.Get("args"); a != nil && a.Type() != fastjson.TypeNull {
		items, err := a.Array()
		if err != nil {
			return 0, logger.Record{}, fmt.Errorf("%w: args must be an array", ErrMalformed)
		}
		rec.Args = make([]any, len(items))
		for i, item := range items {
			rec.Args[i] = toAny(item)
		}
	}
	if errText != "" {
		rec.Cause = errors.New(errText)
	}
	return sev, rec, nil
}

// optionalString reads key as a string. A missing key or null is "";
// any other non-string value is malformed.
func optionalString(v *fastjson.Value, key string) (string, error) {
	f := v.Get(key)
	if f == nil || f.Type() == fastjson.TypeNull {
		return "", nil
	}
	b, err := f.StringBytes()
	if err != nil {
		return "", fmt.Errorf("%w: %s must be a string", ErrMalformed, key)
	}
	return string(b), nil
}

// toAny converts a fastjson value into plain Go values. Integral numbers
// become int64, all other numbers float64.
func toAny(v *fastjson.Value) any {
	switch v.Type() {
	case fastjson.TypeString:
		return string(v.GetStringBytes())
	case fastjson.TypeNumber:
		if n, err := v.Int64(); err == nil {
			return n
		}
		return v.GetFloat64()
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeFalse:
		return false
	case fastjson.TypeArray:
		items := v.GetArray()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = toAny(item)
		}
		return out
	case fastjson.TypeObject:
		return objectToMap(v.GetObject())
	default:
		return nil
	}
}

func objectToMap(obj *fastjson.Object) map[string]any {
	out := make(map[string]any, obj.Len())
	obj.Visit(func(key []byte, v *fastjson.Value) {
		out[string(key)] = toAny(v)
	})
	return out
}
