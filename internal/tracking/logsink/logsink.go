// Package logsink reports analytics events as Info log records. It is the
// development sink: nothing leaves the process.
package logsink

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/crimson-sun/launchpad/internal/tracking"
	"github.com/crimson-sun/launchpad/pkg/analytics"
	"github.com/crimson-sun/launchpad/pkg/logger"
)

const defaultTag = "analytics"

// Sink writes one log record per event.
type Sink struct {
	log logger.Logger
	tag string
}

// New creates a Sink logging through l under tag ("analytics" when empty).
func New(l logger.Logger, tag string) *Sink {
	if tag == "" {
		tag = defaultTag
	}
	return &Sink{log: l, tag: tag}
}

// Track logs the event name followed by its parameters in key order,
// e.g. `screen_view screen=home`.
func (s *Sink) Track(_ context.Context, ev analytics.Event) error {
	s.log.Info(logger.Record{Tag: s.tag, Message: Describe(ev)})
	return nil
}

func (s *Sink) Close() error { return nil }

// Describe renders an event as its name and sorted key=value pairs.
func Describe(ev analytics.Event) string {
	var b strings.Builder
	b.WriteString(ev.Name())
	params := ev.Params()
	for _, k := range slices.Sorted(maps.Keys(params)) {
		fmt.Fprintf(&b, " %s=%v", k, params[k])
	}
	return b.String()
}

func init() {
	tracking.Register("log", func(cfg tracking.Config) (analytics.Sink, error) {
		if cfg.Logger == nil {
			return nil, errors.New("logsink: no logger configured")
		}
		return New(cfg.Logger, cfg.Tag), nil
	})
}
