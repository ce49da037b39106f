// Package logging configures the module's own diagnostics (sink failures,
// relay progress) on log/slog. It is separate from the facade in
// pkg/logger, which carries application records to the configured sinks.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LevelVerbose sits below slog.LevelDebug, matching the facade's Verbose.
const LevelVerbose = slog.LevelDebug - 4

// Init creates and sets the package-level default slog logger writing to w
// (stderr when nil). When recordsOnStdout is true, uses JSONHandler so
// diagnostics stay machine-readable next to NDJSON record output;
// otherwise uses TextHandler for human readability.
func Init(w io.Writer, recordsOnStdout bool, level slog.Level) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if recordsOnStdout {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	l := slog.New(handler).With("component", "launchpad")
	slog.SetDefault(l)
	return l
}

// ParseLevel converts a string ("verbose", "debug", "info", "warn",
// "error") to slog.Level. Unknown strings default to LevelInfo.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "verbose", "trace":
		return LevelVerbose
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "fatal":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
