package worker

import (
	"errors"
	"fmt"
)

// ErrorKind classifies expected request failures.
type ErrorKind string

const (
	// KindUnreachable covers network-level failures: the worker could not be
	// reached or the connection broke mid-request.
	KindUnreachable ErrorKind = "unreachable"
	// KindMalformed covers responses that could not be normalized.
	KindMalformed ErrorKind = "malformed"
	// KindRejected covers well-formed responses reporting a remote failure.
	KindRejected ErrorKind = "rejected"
	// KindLocked covers the transient resource-locked condition reported by
	// the remote account service during the auth handshake.
	KindLocked ErrorKind = "locked"
)

// RequestError is the typed failure for a single worker request.
type RequestError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *RequestError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("worker %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("worker %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// IsKind reports whether err is a RequestError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.Kind == kind
}

func newError(op string, kind ErrorKind, err error) *RequestError {
	return &RequestError{Kind: kind, Op: op, Err: err}
}
