// Package errhandling classifies errors so that callers can decide whether an
// operation is worth repeating.
package errhandling

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

type transientError struct {
	desc string
	err  error
}

func (e *transientError) Error() string {
	return e.desc + ": " + e.err.Error()
}

func (e *transientError) Unwrap() error {
	return e.err
}

// NewTransientError creates an Error object that indicates a retry is
// appropriate. It is up to the consumer to decide whether to retry based on the
// context of that consumer.
func NewTransientError(err error) error {
	return &transientError{
		desc: "transient error",
		err:  err,
	}
}

func NewTransientErrorf(format string, a ...any) error {
	err := fmt.Errorf(format, a...)
	return NewTransientError(err)
}

// IsTransient returns true if the error was wrapped to indicate its transient.
// If this function returns true it is safe, but not required, to retry the
// operation.
func IsTransient(err error) bool {
	var target *transientError

	return errors.As(err, &target)
}

// IsConnectionError reports whether err came from the network rather than
// from the remote server rejecting a request.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}
