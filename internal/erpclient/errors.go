package erpclient

import (
	"errors"
	"fmt"
)

// ErrNoEndpoint is returned when no candidate endpoint of a resource responds.
var ErrNoEndpoint = errors.New("no candidate endpoint responded")

// errNotFound marks a candidate endpoint that does not exist on this
// deployment; the reader advances to the next candidate instead of retrying.
var errNotFound = errors.New("endpoint not found")

// TransportError is a network or http failure that survived retries. Callers
// decide whether to skip, abort the current chunk, or abort the whole sync.
type TransportError struct {
	Resource   string
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("transport error on %s: %s", e.Resource, e.Message)
	}
	return fmt.Sprintf("transport error on %s: status %d: %s", e.Resource, e.StatusCode, e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
