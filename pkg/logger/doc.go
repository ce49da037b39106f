// Package logger provides a leveled logging facade that hides the concrete
// log sink behind a single interface.
//
// Quick start:
//
//	log := logger.New(sink)
//	log.Info(logger.Record{Tag: "net", Message: "connected to %s", Args: []any{host}})
//	log.Error(logger.Record{Tag: "db", Cause: err})
//
// The facade forwards every record to exactly one Sink and never formats,
// filters, or performs I/O itself. Formatting arguments are carried through
// untouched; whether they are substituted into the message is the sink's
// ArgPolicy. A record with neither a message nor a cause is dropped.
//
// Facade methods never fail and never panic: sink errors and panics are
// handed to the OnError callback. Fatal is a severity only and does not
// terminate the process.
package logger
