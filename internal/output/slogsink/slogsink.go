// Package slogsink writes log records through log/slog.
//
// It is the platform-native sink: messages are logged verbatim and
// formatting arguments are discarded (DiscardArgs).
package slogsink

import (
	"context"
	"log/slog"
	"os"

	"github.com/crimson-sun/launchpad/internal/output"
	"github.com/crimson-sun/launchpad/pkg/logger"
)

// Slog levels for the two severities slog has no name for.
const (
	LevelVerbose = slog.LevelDebug - 4
	LevelFatal   = slog.LevelError + 4
)

// Output forwards records to a *slog.Logger.
type Output struct {
	log *slog.Logger
}

// New creates an Output. A nil logger means slog.Default().
func New(l *slog.Logger) *Output {
	if l == nil {
		l = slog.Default()
	}
	return &Output{log: l}
}

// Level maps a severity to its slog level.
func Level(sev logger.Severity) slog.Level {
	switch sev {
	case logger.Verbose:
		return LevelVerbose
	case logger.Debug:
		return slog.LevelDebug
	case logger.Warn:
		return slog.LevelWarn
	case logger.Error:
		return slog.LevelError
	case logger.Fatal:
		return LevelFatal
	default:
		return slog.LevelInfo
	}
}

func (o *Output) Write(ctx context.Context, rec logger.Record) error {
	level := Level(rec.Severity)
	if !o.log.Enabled(ctx, level) {
		return nil
	}
	attrs := make([]slog.Attr, 0, 2)
	if tag := output.NormalizeTag(rec.Tag); tag != "" {
		attrs = append(attrs, slog.String("tag", tag))
	}
	if rec.Cause != nil {
		attrs = append(attrs, slog.String("error", output.ErrorText(rec.Cause)))
	}
	o.log.LogAttrs(ctx, level, rec.Message, attrs...)
	return nil
}

func (o *Output) Close() error { return nil }

func (o *Output) ArgPolicy() logger.ArgPolicy { return logger.DiscardArgs }

func init() {
	output.Register("slog", func(cfg output.Config) (logger.Sink, error) {
		w := cfg.Writer
		if w == nil {
			w = os.Stdout
		}
		opts := &slog.HandlerOptions{Level: Level(cfg.MinSeverity)}
		return New(slog.New(slog.NewJSONHandler(w, opts))), nil
	})
}
