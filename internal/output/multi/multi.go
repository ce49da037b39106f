// Package multi fans one record out to several log sinks.
package multi

import (
	"context"
	"errors"
	"fmt"

	"github.com/crimson-sun/launchpad/pkg/logger"
)

// Multi delivers every record to each wrapped sink in order. A sink that
// fails or panics does not stop delivery to the others; its error, tagged
// with the sink's position and type, is joined into the result.
type Multi struct {
	sinks []logger.Sink
}

// New creates a Multi over sinks. Nil sinks are skipped and nested Multis
// are flattened, so a record is never delivered twice through one chain.
func New(sinks ...logger.Sink) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		switch v := s.(type) {
		case nil:
		case *Multi:
			m.sinks = append(m.sinks, v.sinks...)
		default:
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

func (m *Multi) Write(ctx context.Context, rec logger.Record) error {
	var errs []error
	for i, s := range m.sinks {
		if err := guard(i, s, func() error { return s.Write(ctx, rec) }); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Close() error {
	var errs []error
	for i, s := range m.sinks {
		if err := guard(i, s, s.Close); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of wrapped sinks.
func (m *Multi) Len() int {
	return len(m.sinks)
}

// guard runs op against the i-th sink, turning a panic into an error.
func guard(i int, s logger.Sink, op func() error) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("multi: sink %d (%T) panicked: %v", i, s, v)
		}
	}()
	if err := op(); err != nil {
		return fmt.Errorf("multi: sink %d (%T): %w", i, s, err)
	}
	return nil
}
