package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crimson-sun/launchpad/internal/httpclient"
	"github.com/crimson-sun/launchpad/internal/output"
	"github.com/crimson-sun/launchpad/pkg/logger"
)

const (
	defaultBatchSize     = 50
	defaultFlushInterval = 5 * time.Second
	defaultFlushTimeout  = 30 * time.Second
)

// Option configures a webhook Output.
type Option func(*Output)

// WithBatchSize sets the number of records accumulated before a flush. Default: 50.
func WithBatchSize(n int) Option {
	return func(o *Output) { o.batchSize = n }
}

// WithFlushInterval sets the maximum time between flushes. Default: 5s.
func WithFlushInterval(d time.Duration) Option {
	return func(o *Output) { o.flushInterval = d }
}

// WithOnError sets a callback invoked when a timer-triggered flush fails.
// Default: logs a warning via slog.
func WithOnError(f func(error)) Option {
	return func(o *Output) { o.errFunc = f }
}

// WithClient sets the HTTP transport (auth, gzip, retry backoff).
func WithClient(c *httpclient.Client) Option {
	return func(o *Output) { o.client = c }
}

// WithSource sets the source name sent in every batch envelope.
func WithSource(name string) Option {
	return func(o *Output) { o.source = name }
}

// Batch is the JSON envelope POSTed to the endpoint.
type Batch struct {
	InstanceID string        `json:"instance_id"`
	Source     string        `json:"source,omitempty"`
	Records    []output.Line `json:"records"`
}

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("webhook: closed")

// Output POSTs batched log lines to an HTTP endpoint. Lines accumulate in
// an internal buffer and are flushed when batchSize is reached or
// flushInterval elapses. Formatting arguments are kept raw alongside the
// message (DiscardArgs) so the receiver can index them.
//
// A size-triggered flush runs on the caller's goroutine and blocks it for
// the POST, retries included. The buffer itself is released before the
// request, so other writers only wait for their own flushes. Wrap the
// sink in async when callers must never block on the network.
type Output struct {
	client        *httpclient.Client
	url           string
	instanceID    string
	source        string
	batchSize     int
	flushInterval time.Duration
	errFunc       func(error)

	mu      sync.Mutex
	pending []output.Line
	timer   *time.Timer
	closed  bool
}

// New creates a webhook output targeting the given URL.
func New(url string, opts ...Option) *Output {
	o := &Output{
		client:        httpclient.New(),
		url:           url,
		instanceID:    uuid.NewString(),
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		errFunc:       func(err error) { slog.Warn("webhook flush error", "error", err) },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// InstanceID identifies this sink in every batch it sends.
func (o *Output) InstanceID() string { return o.instanceID }

func (o *Output) ArgPolicy() logger.ArgPolicy { return logger.DiscardArgs }

// Write appends a record to the batch. When batchSize is reached, the batch
// is sent before Write returns. A timer is started on the first record to
// ensure the batch flushes even if batchSize is never reached.
func (o *Output) Write(ctx context.Context, rec logger.Record) error {
	line := output.FormatRecord(rec, logger.DiscardArgs, time.Now())

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	o.pending = append(o.pending, line)

	var batch []output.Line
	if len(o.pending) >= o.batchSize {
		batch = o.takeLocked()
	} else if len(o.pending) == 1 {
		o.timer = time.AfterFunc(o.flushInterval, o.flushOnTimer)
	}
	o.mu.Unlock()

	return o.send(ctx, batch)
}

// Close flushes any remaining records and stops the timer. Later writes
// return ErrClosed.
func (o *Output) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	batch := o.takeLocked()
	o.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultFlushTimeout)
	defer cancel()
	return o.send(ctx, batch)
}

func (o *Output) flushOnTimer() {
	o.mu.Lock()
	batch := o.takeLocked()
	o.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultFlushTimeout)
	defer cancel()
	if err := o.send(ctx, batch); err != nil {
		o.errFunc(err)
	}
}

// takeLocked detaches the pending batch and stops the timer. Caller must
// hold o.mu.
func (o *Output) takeLocked() []output.Line {
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	batch := o.pending
	o.pending = nil
	return batch
}

func (o *Output) send(ctx context.Context, records []output.Line) error {
	if len(records) == 0 {
		return nil
	}
	batch := Batch{InstanceID: o.instanceID, Source: o.source, Records: records}
	if err := o.client.PostJSON(ctx, o.url, batch); err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	return nil
}

func init() {
	output.Register("webhook", func(cfg output.Config) (logger.Sink, error) {
		if cfg.WebhookURL == "" {
			return nil, errors.New("webhook: no URL configured")
		}
		var copts []httpclient.Option
		if cfg.WebhookToken != "" {
			copts = append(copts, httpclient.WithToken(cfg.WebhookToken))
		}
		if cfg.Gzip {
			copts = append(copts, httpclient.WithGzip())
		}
		return New(cfg.WebhookURL, WithClient(httpclient.New(copts...)), WithSource(cfg.Source)), nil
	})
}
