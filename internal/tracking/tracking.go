// Package tracking holds the analytics sinks a host application can wire
// behind analytics.Reporter, and a name-based registry to build them from
// configuration.
package tracking

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/crimson-sun/launchpad/pkg/analytics"
	"github.com/crimson-sun/launchpad/pkg/logger"
)

// ErrUnknownSink is returned by Get for an unregistered sink name.
var ErrUnknownSink = errors.New("unknown analytics sink")

// Config carries the settings sink constructors draw from.
type Config struct {
	Logger logger.Logger // used by the "log" sink
	Tag    string
	DBPath string
	URL    string
	Token  string
	Gzip   bool
}

// Constructor builds an analytics sink from configuration.
type Constructor func(cfg Config) (analytics.Sink, error)

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

// Build constructs every named sink and fans out to them. On failure the
// sinks already built are closed.
func Build(names []string, cfg Config) (analytics.Multi, error) {
	sinks := make(analytics.Multi, 0, len(names))
	for _, name := range names {
		ctor, err := Get(name)
		if err == nil {
			var s analytics.Sink
			if s, err = ctor(cfg); err == nil {
				sinks = append(sinks, s)
				continue
			}
			err = fmt.Errorf("analytics sink %s: %w", name, err)
		}
		sinks.Close()
		return nil, err
	}
	return sinks, nil
}
