package bankcache

import (
	"errors"
	"fmt"

	"github.com/datatrails/go-datatrails-bankcache/errhandling"
)

var (
	ErrCache       = errors.New("bank cache error")
	ErrInvalidBank = errors.New("invalid bank")
	ErrInvalidKey  = errors.New("invalid key")
)

// Error is returned for every failure talking to redis.
type Error struct {
	msg string
	err error
}

func (e *Error) Error() string {
	return e.msg + ": " + e.err.Error()
}

func (e *Error) Unwrap() error {
	return e.err
}

func (e *Error) Is(target error) bool {
	return target == ErrCache
}

func newError(err error, format string, args ...any) error {
	e := &Error{
		msg: fmt.Sprintf(format, args...),
		err: err,
	}
	if errhandling.IsConnectionError(err) {
		return errhandling.NewTransientError(e)
	}
	return e
}

func invalidBankError(bank string, reason string) error {
	return fmt.Errorf("%w %q: %s", ErrInvalidBank, bank, reason)
}

func invalidKeyError(key string, reason string) error {
	return fmt.Errorf("%w %q: %s", ErrInvalidKey, key, reason)
}
