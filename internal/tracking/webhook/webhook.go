// Package webhook POSTs each analytics event to an HTTP collector.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/crimson-sun/launchpad/internal/httpclient"
	"github.com/crimson-sun/launchpad/internal/tracking"
	"github.com/crimson-sun/launchpad/pkg/analytics"
)

// Payload is the JSON body sent for one event.
type Payload struct {
	ID      string         `json:"id"`
	Session string         `json:"session"`
	Name    string         `json:"name"`
	Params  map[string]any `json:"params,omitempty"`
	SentAt  time.Time      `json:"sent_at"`
}

// Sink sends events synchronously; wrap the Reporter call site in a
// goroutine or queue if latency matters.
type Sink struct {
	client  *httpclient.Client
	url     string
	session string
}

// New creates a Sink posting to url through client (a default client when nil).
func New(url string, client *httpclient.Client) *Sink {
	if client == nil {
		client = httpclient.New()
	}
	return &Sink{client: client, url: url, session: uuid.NewString()}
}

// Session identifies this sink instance; every payload carries it.
func (s *Sink) Session() string { return s.session }

func (s *Sink) Track(ctx context.Context, ev analytics.Event) error {
	if ev == nil {
		return analytics.ErrEmptyName
	}
	p := Payload{
		ID:      uuid.NewString(),
		Session: s.session,
		Name:    ev.Name(),
		Params:  ev.Params(),
		SentAt:  time.Now().UTC(),
	}
	if err := s.client.PostJSON(ctx, s.url, p); err != nil {
		return fmt.Errorf("analytics webhook: %s: %w", ev.Name(), err)
	}
	return nil
}

func (s *Sink) Close() error { return nil }

func init() {
	tracking.Register("webhook", func(cfg tracking.Config) (analytics.Sink, error) {
		if cfg.URL == "" {
			return nil, errors.New("analytics webhook: no URL configured")
		}
		var opts []httpclient.Option
		if cfg.Token != "" {
			opts = append(opts, httpclient.WithToken(cfg.Token))
		}
		if cfg.Gzip {
			opts = append(opts, httpclient.WithGzip())
		}
		return New(cfg.URL, httpclient.New(opts...)), nil
	})
}
