// Package analytics describes reportable occurrences for third-party
// analytics services.
//
// An Event is a name plus an optional parameter mapping. CustomEvent is the
// general-purpose immutable implementation; Reporter forwards events to a
// Sink without ever surfacing sink failures to the caller.
package analytics
