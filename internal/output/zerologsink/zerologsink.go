// Package zerologsink writes log records through zerolog. Messages are
// logged verbatim; formatting arguments are discarded (DiscardArgs).
package zerologsink

import (
	"context"
	"os"

	"github.com/rs/zerolog"

	"github.com/crimson-sun/launchpad/internal/output"
	"github.com/crimson-sun/launchpad/pkg/logger"
)

// Output forwards records to a zerolog.Logger.
type Output struct {
	log zerolog.Logger
}

// New creates an Output.
func New(l zerolog.Logger) *Output {
	return &Output{log: l}
}

// Level maps a severity to its zerolog level.
func Level(sev logger.Severity) zerolog.Level {
	switch sev {
	case logger.Verbose:
		return zerolog.TraceLevel
	case logger.Debug:
		return zerolog.DebugLevel
	case logger.Warn:
		return zerolog.WarnLevel
	case logger.Error:
		return zerolog.ErrorLevel
	case logger.Fatal:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Write logs the record. WithLevel never exits, even at FatalLevel.
func (o *Output) Write(_ context.Context, rec logger.Record) error {
	ev := o.log.WithLevel(Level(rec.Severity))
	if ev == nil {
		return nil
	}
	if tag := output.NormalizeTag(rec.Tag); tag != "" {
		ev = ev.Str("tag", tag)
	}
	if rec.Cause != nil {
		ev = ev.Str(zerolog.ErrorFieldName, output.ErrorText(rec.Cause))
	}
	ev.Msg(rec.Message)
	return nil
}

func (o *Output) Close() error { return nil }

func (o *Output) ArgPolicy() logger.ArgPolicy { return logger.DiscardArgs }

func init() {
	output.Register("zerolog", func(cfg output.Config) (logger.Sink, error) {
		w := cfg.Writer
		if w == nil {
			w = os.Stdout
		}
		l := zerolog.New(w).Level(Level(cfg.MinSeverity)).With().Timestamp().Logger()
		return New(l), nil
	})
}
