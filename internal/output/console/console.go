// Package console writes human-readable, colourised log lines through
// charmbracelet/log. Formatting arguments are templated (TemplateArgs).
package console

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/crimson-sun/launchpad/internal/output"
	"github.com/crimson-sun/launchpad/pkg/logger"
)

// Output forwards records to a charmbracelet *log.Logger.
type Output struct {
	log *log.Logger
}

// New creates an Output around l.
func New(l *log.Logger) *Output {
	return &Output{log: l}
}

// NewWriter creates an Output writing to w (stderr when nil) with
// timestamps, at the given minimum severity.
func NewWriter(w io.Writer, min logger.Severity) *Output {
	if w == nil {
		w = os.Stderr
	}
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Level:           Level(min),
	})
	return New(l)
}

// Level maps a severity to a charmbracelet level. Verbose shares Debug.
func Level(sev logger.Severity) log.Level {
	switch sev {
	case logger.Verbose, logger.Debug:
		return log.DebugLevel
	case logger.Warn:
		return log.WarnLevel
	case logger.Error:
		return log.ErrorLevel
	case logger.Fatal:
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

// Write logs the record through Logger.Log, which never exits.
func (o *Output) Write(_ context.Context, rec logger.Record) error {
	var kv []any
	if tag := output.NormalizeTag(rec.Tag); tag != "" {
		kv = append(kv, "tag", tag)
	}
	if rec.Cause != nil {
		kv = append(kv, "err", rec.Cause)
	}
	o.log.Log(Level(rec.Severity), logger.FormatMessage(rec), kv...)
	return nil
}

func (o *Output) Close() error { return nil }

func (o *Output) ArgPolicy() logger.ArgPolicy { return logger.TemplateArgs }

func init() {
	output.Register("console", func(cfg output.Config) (logger.Sink, error) {
		return NewWriter(cfg.Writer, cfg.MinSeverity), nil
	})
}
