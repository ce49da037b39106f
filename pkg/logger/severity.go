package logger

import "strings"

// Severity classifies the importance of a record.
type Severity uint8

const (
	Verbose Severity = iota
	Debug
	Info
	Warn
	Error
	Fatal
)

var severityNames = [...]string{
	Verbose: "verbose",
	Debug:   "debug",
	Info:    "info",
	Warn:    "warn",
	Error:   "error",
	Fatal:   "fatal",
}

// Severities lists every severity from Verbose to Fatal.
func Severities() []Severity {
	return []Severity{Verbose, Debug, Info, Warn, Error, Fatal}
}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return "unknown"
}

// MarshalText encodes the severity as its lower-case name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts any spelling ParseSeverity accepts.
func (s *Severity) UnmarshalText(b []byte) error {
	v, ok := ParseSeverity(string(b))
	if !ok {
		return &UnknownSeverityError{Name: string(b)}
	}
	*s = v
	return nil
}

// ParseSeverity converts a name ("verbose", "debug", ..., "fatal") or one of
// the single-letter aliases (v, d, i, w, e, wtf) to a Severity.
// "trace" maps to Verbose and "warning" to Warn.
func ParseSeverity(name string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "verbose", "v", "trace":
		return Verbose, true
	case "debug", "d":
		return Debug, true
	case "info", "i":
		return Info, true
	case "warn", "warning", "w":
		return Warn, true
	case "error", "e":
		return Error, true
	case "fatal", "wtf", "f":
		return Fatal, true
	default:
		return 0, false
	}
}

// UnknownSeverityError is returned when decoding an unrecognised severity name.
type UnknownSeverityError struct {
	Name string
}

func (e *UnknownSeverityError) Error() string {
	return "logger: unknown severity " + strings.TrimSpace(e.Name)
}
