package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/crimson-sun/launchpad/pkg/logger"
)

// Config holds all launchpad configuration.
type Config struct {
	Log       LogConfig
	Analytics AnalyticsConfig
	Metrics   MetricsConfig
	DiagLevel string // level of the module's own slog diagnostics
}

// LogConfig selects and configures the log sinks behind the facade.
type LogConfig struct {
	Sinks        []string
	MinSeverity  logger.Severity
	FilePath     string
	MaxSize      int64
	WebhookURL   string
	WebhookToken string
	Gzip         bool
	Async        bool
	DropOnFull   bool
	BufferSize   int
	Pretty       bool
	Source       string
	DedupWindow  time.Duration // 0 disables collapsing of repeated records
}

// AnalyticsConfig selects and configures the analytics sinks.
type AnalyticsConfig struct {
	Sinks  []string
	DBPath string
	URL    string
	Token  string
	Gzip   bool
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Addr string // empty disables the endpoint
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		Log: LogConfig{
			Sinks:        getenvList("LAUNCHPAD_LOG_SINK", "slog"),
			MinSeverity:  getenvSeverity("LAUNCHPAD_LOG_LEVEL", logger.Info),
			FilePath:     getenv("LAUNCHPAD_LOG_FILE", "launchpad.log"),
			MaxSize:      getenvSize("LAUNCHPAD_LOG_MAX_SIZE", 0),
			WebhookURL:   os.Getenv("LAUNCHPAD_WEBHOOK_URL"),
			WebhookToken: os.Getenv("LAUNCHPAD_WEBHOOK_TOKEN"),
			Gzip:         getenvBool("LAUNCHPAD_WEBHOOK_GZIP", false),
			Async:        getenvBool("LAUNCHPAD_ASYNC", false),
			DropOnFull:   getenvBool("LAUNCHPAD_ASYNC_DROP", false),
			BufferSize:   int(getenvSize("LAUNCHPAD_ASYNC_BUFFER", 1024)),
			Pretty:       getenvBool("LAUNCHPAD_PRETTY", false),
			Source:       getenv("LAUNCHPAD_SOURCE", hostname()),
			DedupWindow:  getenvDuration("LAUNCHPAD_DEDUP_WINDOW", 0),
		},
		Analytics: AnalyticsConfig{
			Sinks:  getenvList("LAUNCHPAD_ANALYTICS_SINK", "log"),
			DBPath: getenv("LAUNCHPAD_ANALYTICS_DB", "analytics.db"),
			URL:    os.Getenv("LAUNCHPAD_ANALYTICS_URL"),
			Token:  os.Getenv("LAUNCHPAD_ANALYTICS_TOKEN"),
			Gzip:   getenvBool("LAUNCHPAD_ANALYTICS_GZIP", false),
		},
		Metrics: MetricsConfig{
			Addr: os.Getenv("LAUNCHPAD_METRICS_ADDR"),
		},
		DiagLevel: getenv("LAUNCHPAD_DIAG_LEVEL", "info"),
	}
}

// RecordsOnStdout reports whether any configured log sink writes to stdout.
func (c Config) RecordsOnStdout() bool {
	for _, s := range c.Log.Sinks {
		switch s {
		case "stdout", "slog", "zerolog":
			return true
		}
	}
	return false
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getenvList splits a comma-separated value, dropping empty entries.
func getenvList(key, fallback string) []string {
	var out []string
	for _, part := range strings.Split(getenv(key, fallback), ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenvSeverity(key string, fallback logger.Severity) logger.Severity {
	if sev, ok := logger.ParseSeverity(os.Getenv(key)); ok {
		return sev
	}
	return fallback
}

func getenvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

// getenvSize is getenvInt64 for sizes and capacities: negatives fall back.
func getenvSize(key string, fallback int64) int64 {
	if n := getenvInt64(key, fallback); n >= 0 {
		return n
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func hostname() string {
	h, _ := os.Hostname()
	return h
}
