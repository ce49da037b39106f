package logger

import "fmt"

// Record is a single log call. Every field is optional; the zero value of
// each means "absent".
type Record struct {
	Severity Severity
	Tag      string // category or source label
	Message  string // may contain printf verbs consumed by Args
	Args     []any  // positional formatting arguments, never applied by the facade
	Cause    error  // forwarded opaquely to the sink
}

// Empty reports whether the record carries neither a message nor a cause.
func (r Record) Empty() bool {
	return r.Message == "" && r.Cause == nil
}

// ArgPolicy describes what a sink does with Record.Args.
type ArgPolicy uint8

const (
	// DiscardArgs sinks log Message verbatim and ignore Args.
	DiscardArgs ArgPolicy = iota
	// TemplateArgs sinks substitute Args into Message, printf style.
	TemplateArgs
)

func (p ArgPolicy) String() string {
	if p == TemplateArgs {
		return "template"
	}
	return "discard"
}

// ArgPolicyReporter is implemented by sinks that declare their ArgPolicy.
type ArgPolicyReporter interface {
	ArgPolicy() ArgPolicy
}

// PolicyOf returns the ArgPolicy a sink declares, if any.
func PolicyOf(s Sink) (ArgPolicy, bool) {
	if r, ok := s.(ArgPolicyReporter); ok {
		return r.ArgPolicy(), true
	}
	return DiscardArgs, false
}

// FormatMessage renders the message the way TemplateArgs sinks do.
// Without Args the message is returned verbatim, so a literal '%' survives.
func FormatMessage(r Record) string {
	if len(r.Args) == 0 {
		return r.Message
	}
	return fmt.Sprintf(r.Message, r.Args...)
}
