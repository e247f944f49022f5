package client

import (
	"errors"
	"fmt"
)

var (
	ErrTransport  = errors.New("transport error")
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
)

// TransportError describes a failed round trip to the task store: either the
// request never completed (Err set) or the store answered with an unexpected status.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
