package rag

import "fmt"

// ErrorKind separates failures the backend reported from failures reaching
// it at all.
type ErrorKind string

const (
	// KindTransport covers network errors and timeouts.
	KindTransport ErrorKind = "transport"
	// KindBackend covers non-success statuses; Detail carries the backend's
	// error payload.
	KindBackend ErrorKind = "backend"
	// KindUnavailable means the circuit is open and the call was not attempted.
	KindUnavailable ErrorKind = "unavailable"
)

// UpstreamError is returned by every adapter operation that fails.
type UpstreamError struct {
	Route  string
	Kind   ErrorKind
	Status int
	Detail string
	Err    error
}

func (e *UpstreamError) Error() string {
	switch e.Kind {
	case KindBackend:
		return fmt.Sprintf("%s: backend status %d: %s", e.Route, e.Status, e.Detail)
	case KindUnavailable:
		return fmt.Sprintf("%s: circuit open, call not attempted", e.Route)
	default:
		return fmt.Sprintf("%s: %v", e.Route, e.Err)
	}
}

func (e *UpstreamError) Unwrap() error { return e.Err }
