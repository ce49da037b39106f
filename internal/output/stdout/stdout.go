package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/crimson-sun/launchpad/internal/output"
	"github.com/crimson-sun/launchpad/pkg/logger"
)

// Output writes JSON-encoded log lines to a writer (stdout by default).
// Formatting arguments are substituted into the message (TemplateArgs).
type Output struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// New creates an Output writing NDJSON to w, or pretty-printed JSON when
// pretty is set. A nil w means os.Stdout.
func New(w io.Writer, pretty bool) *Output {
	if w == nil {
		w = os.Stdout
	}
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return &Output{enc: enc}
}

func (o *Output) Write(_ context.Context, rec logger.Record) error {
	line := output.FormatRecord(rec, logger.TemplateArgs, time.Now())
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.enc.Encode(line); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}

func (o *Output) ArgPolicy() logger.ArgPolicy { return logger.TemplateArgs }

func init() {
	output.Register("stdout", func(cfg output.Config) (logger.Sink, error) {
		return New(cfg.Writer, cfg.Pretty), nil
	})
}
