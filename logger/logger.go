package logger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	_ "github.com/KimMachineGun/automemlimit"
	opentracing "github.com/opentracing/opentracing-go"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var (
	Plain        *zap.Logger
	Sugar        *WrappedLogger
	Recorded     *observer.ObservedLogs
	undoLogger   = func() {}
	undoMaxProcs = func() {}
)

const (
	serviceNameKey = "servicename"
	// repeated here to avoid importing the tracing package
	TraceIDKey = "x-b3-traceid"
)

// Option so we dont have to import zap everywhere
type Option = zap.Option

type WrappedLogger struct {
	*zap.SugaredLogger
}

// keyVals turns positional args into arg0, arg1 ... pairs for the *R methods.
func keyVals(args []any) []any {
	kv := make([]any, 0, 2*len(args))
	for i, v := range args {
		kv = append(kv, fmt.Sprintf("arg%d", i), v)
	}
	return kv
}

func (wl *WrappedLogger) ErrorR(msg string, args ...any) {
	wl.Desugar().WithOptions(zap.AddCallerSkip(1)).Sugar().Errorw(msg, keyVals(args)...)
}

func (wl *WrappedLogger) InfoR(msg string, args ...any) {
	wl.Desugar().WithOptions(zap.AddCallerSkip(1)).Sugar().Infow(msg, keyVals(args)...)
}

func (wl *WrappedLogger) DebugR(msg string, args ...any) {
	wl.Desugar().WithOptions(zap.AddCallerSkip(1)).Sugar().Debugw(msg, keyVals(args)...)
}

// OnExit should be deferred immediately after calling New().
func OnExit() {
	if Sugar != nil {
		_ = Sugar.Sync()
	}
	if Plain != nil {
		_ = Plain.Sync()
	}
	undoMaxProcs()
	undoLogger()
	Recorded = nil
}

type Resource struct {
	console  bool
	filename string
}

type ResourceOption func(*Resource)

func WithFile(filename string) ResourceOption {
	return func(r *Resource) {
		r.filename = filename
	}
}

func WithConsole() ResourceOption {
	return func(r *Resource) {
		r.console = true
	}
}

func buildConfig(cfg zap.Config, r *Resource) zap.Config {
	if r.filename != "" {
		cfg.OutputPaths = []string{r.filename}
	}
	if r.console {
		cfg.Encoding = "console"
		cfg.EncoderConfig = zapcore.EncoderConfig{
			MessageKey: "message",
		}
	}
	return cfg
}

// New creates 2 loggers (plain and sugared) as global variables according
// to the desired loglevel ("DEBUG", "NOOP", "TEST", default is "INFO").
// Output from the standard library logger is redirected to INFO.
//
// Both ResourceOption and zap.Option are accepted; zap options are passed on
// to the zap logger.
func New(level string, opts ...any) {
	r := &Resource{}
	var zopts []zap.Option
	for _, iopt := range opts {
		switch opt := iopt.(type) {
		case ResourceOption:
			opt(r)
		case zap.Option:
			zopts = append(zopts, opt)
		}
	}

	var err error
	switch strings.ToUpper(level) {
	case DebugLevel:
		Plain, err = buildConfig(zap.NewDevelopmentConfig(), r).Build(zopts...)

	case NoopLevel:
		Plain = zap.NewNop()

	case TestLevel:
		core, recorded := observer.New(zapcore.DebugLevel)
		Plain = zap.New(core, zopts...)
		Recorded = recorded

	default:
		Plain, err = buildConfig(zap.NewProductionConfig(), r).Build(zopts...)
	}
	if err != nil {
		log.Panicf("cannot initialise zap logger: %v", err)
	}

	undoLogger = zap.RedirectStdLog(Plain)
	Sugar = &WrappedLogger{Plain.Sugar()}

	Sugar.Debugf("Go version %s", runtime.Version())

	// Match GOMAXPROCS to the container cpu quota. automemlimit does the
	// same for GOMEMLIMIT from its package init.
	Sugar.Debugf("Cores allocation GOMAXPROCS %v", runtime.GOMAXPROCS(-1))
	undoMaxProcs, err = maxprocs.Set(maxprocs.Logger(Sugar.Debugf))
	if err != nil {
		Sugar.Infof("Error for automaxprocs: %v", err)
		undoMaxProcs = func() {}
	}
	Sugar.Debugf("Cores allocation GOMAXPROCS %v", runtime.GOMAXPROCS(-1))
	Sugar.Debugf("Memory Limit GOMEMLIMIT %v", debug.SetMemoryLimit(-1))
}

// FromContext returns a child logger carrying the trace ID of the span held
// by ctx, if there is one.
//
// This will be called on entry to a method or a function that has a context.Context.
func (wl *WrappedLogger) FromContext(ctx context.Context) *WrappedLogger {
	span := opentracing.SpanFromContext(ctx)
	if span == nil {
		return wl
	}
	carrier := opentracing.TextMapCarrier{}
	err := opentracing.GlobalTracer().Inject(span.Context(), opentracing.TextMap, carrier)
	if err != nil {
		wl.Debugf("FromContext: can't inject span: %v", err)
		return wl
	}

	traceID, found := carrier[TraceIDKey]
	if !found || traceID == "" {
		return wl
	}
	return &WrappedLogger{
		SugaredLogger: wl.With(zap.String(TraceIDKey, traceID)),
	}
}

func (wl *WrappedLogger) WithServiceName(servicename string) *WrappedLogger {
	return wl.WithIndex(serviceNameKey, servicename)
}

func (wl *WrappedLogger) WithIndex(key, value string) *WrappedLogger {
	return &WrappedLogger{
		SugaredLogger: wl.With(zap.String(key, strings.ToLower(value))),
	}
}

// Close attempts to flush any buffered log entries.
func (wl *WrappedLogger) Close() {
	err := wl.Sync()

	// usually 'sync /dev/stderr invalid argument' which is pointless
	if err != nil && !errors.Is(err, syscall.EINVAL) {
		wl.Debugf("Close: Failed to flush log: %v", err)
	}
}
