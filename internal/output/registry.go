package output

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/crimson-sun/launchpad/pkg/logger"
)

// ErrUnknownSink is returned by Get for an unregistered sink name.
var ErrUnknownSink = errors.New("unknown log sink")

// Config carries the settings sink constructors draw from.
type Config struct {
	MinSeverity  logger.Severity
	Writer       io.Writer // stdout, console and library sinks; nil = process default
	Pretty       bool
	FilePath     string
	MaxSize      int64
	WebhookURL   string
	WebhookToken string
	Gzip         bool
	Source       string
}

// Constructor builds a sink from configuration.
type Constructor func(cfg Config) (logger.Sink, error)

var (
	mu       sync.RWMutex
	registry = map[string]Constructor{}
)

// Register adds a sink constructor under the given name.
func Register(name string, ctor Constructor) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = ctor
}

// Get returns the sink constructor for the given name.
func Get(name string) (Constructor, error) {
	mu.RLock()
	defer mu.RUnlock()
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSink, name)
	}
	return ctor, nil
}

// Names returns the registered sink names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Build constructs every named sink. If any constructor fails, the sinks
// already built are closed and the error is returned.
func Build(names []string, cfg Config) ([]logger.Sink, error) {
	sinks := make([]logger.Sink, 0, len(names))
	for _, name := range names {
		ctor, err := Get(name)
		if err == nil {
			var s logger.Sink
			if s, err = ctor(cfg); err == nil {
				sinks = append(sinks, s)
				continue
			}
			err = fmt.Errorf("log sink %s: %w", name, err)
		}
		for _, s := range sinks {
			s.Close()
		}
		return nil, err
	}
	return sinks, nil
}
