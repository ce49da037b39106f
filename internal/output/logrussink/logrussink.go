// Package logrussink writes log records through logrus. Formatting
// arguments are substituted into the message (TemplateArgs).
package logrussink

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/crimson-sun/launchpad/internal/output"
	"github.com/crimson-sun/launchpad/pkg/logger"
)

// Output forwards records to a *logrus.Logger.
type Output struct {
	log *logrus.Logger
}

// New creates an Output. A nil logger means logrus.StandardLogger().
func New(l *logrus.Logger) *Output {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &Output{log: l}
}

// Level maps a severity to its logrus level.
func Level(sev logger.Severity) logrus.Level {
	switch sev {
	case logger.Verbose:
		return logrus.TraceLevel
	case logger.Debug:
		return logrus.DebugLevel
	case logger.Warn:
		return logrus.WarnLevel
	case logger.Error:
		return logrus.ErrorLevel
	case logger.Fatal:
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

// Write logs the record. Entry.Log is used rather than Entry.Fatal, so a
// Fatal record is written at fatal level without exiting the process.
func (o *Output) Write(_ context.Context, rec logger.Record) error {
	level := Level(rec.Severity)
	if !o.log.IsLevelEnabled(level) {
		return nil
	}
	entry := logrus.NewEntry(o.log)
	if tag := output.NormalizeTag(rec.Tag); tag != "" {
		entry = entry.WithField("tag", tag)
	}
	if rec.Cause != nil {
		entry = entry.WithField(logrus.ErrorKey, output.ErrorText(rec.Cause))
	}
	entry.Log(level, logger.FormatMessage(rec))
	return nil
}

func (o *Output) Close() error { return nil }

func (o *Output) ArgPolicy() logger.ArgPolicy { return logger.TemplateArgs }

func init() {
	output.Register("logrus", func(cfg output.Config) (logger.Sink, error) {
		l := logrus.New()
		if cfg.Writer != nil {
			l.SetOutput(cfg.Writer)
		}
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		l.SetLevel(Level(cfg.MinSeverity))
		return New(l), nil
	})
}
