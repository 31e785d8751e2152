package logger

// This is the external interface to the logger package.
import (
	"context"
)

const (
	DebugLevel = "DEBUG"
	InfoLevel  = "INFO"
	NoopLevel  = "NOOP"
	TestLevel  = "TEST"
)

type Logger interface {
	Debugf(string, ...any)
	DebugR(string, ...any)

	Infof(string, ...any)
	InfoR(string, ...any)

	Errorf(string, ...any)
	ErrorR(string, ...any)

	Panicf(string, ...any)

	FromContext(context.Context) *WrappedLogger
	WithIndex(string, string) *WrappedLogger
	WithServiceName(string) *WrappedLogger
	Close()
}
