// Package output holds the log sinks a host application can wire behind
// the logger facade, plus the NDJSON line shape the serializing sinks share.
package output

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/crimson-sun/launchpad/pkg/logger"
)

// Line is the serialized form of a log record used by the stdout, file,
// and webhook sinks.
type Line struct {
	Time     time.Time `json:"time"`
	Severity string    `json:"severity"`
	Tag      string    `json:"tag,omitempty"`
	Message  string    `json:"message,omitempty"`
	Args     []any     `json:"args,omitempty"`  // only under DiscardArgs
	Error    string    `json:"error,omitempty"` // Cause.Error()
}

// FormatRecord converts a record into a Line stamped with now.
// Under TemplateArgs the arguments are substituted into Message; under
// DiscardArgs the message is kept verbatim and the raw arguments are
// preserved alongside it. Tags are NFC-normalized and trimmed.
func FormatRecord(rec logger.Record, policy logger.ArgPolicy, now time.Time) Line {
	l := Line{
		Time:     now,
		Severity: rec.Severity.String(),
		Tag:      NormalizeTag(rec.Tag),
	}
	if policy == logger.TemplateArgs {
		l.Message = logger.FormatMessage(rec)
	} else {
		l.Message = rec.Message
		l.Args = rec.Args
	}
	if rec.Cause != nil {
		l.Error = ErrorText(rec.Cause)
	}
	return l
}

// ErrorText returns err.Error(), or a placeholder when the method panics,
// as it does for a typed nil pointer stored in a non-nil error.
func ErrorText(err error) (text string) {
	defer func() {
		if v := recover(); v != nil {
			text = fmt.Sprintf("%T(<error panicked: %v>)", err, v)
		}
	}()
	return err.Error()
}

// NormalizeTag returns tag in Unicode NFC with surrounding space removed.
func NormalizeTag(tag string) string {
	return norm.NFC.String(strings.TrimSpace(tag))
}
