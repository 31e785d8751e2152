// Package tracing sets up opentracing with a zipkin reporter and provides the
// http middleware that starts a span per request.
package tracing

import (
	"io"
	"log"
	"net/http"
	"os"

	otnethttp "github.com/opentracing-contrib/go-stdlib/nethttp"
	opentracing "github.com/opentracing/opentracing-go"
	zipkinot "github.com/openzipkin-contrib/zipkin-go-opentracing"
	zipkin "github.com/openzipkin/zipkin-go"
	zipkinhttp "github.com/openzipkin/zipkin-go/reporter/http"

	"github.com/datatrails/go-datatrails-bankcache/environment"
)

const (
	ZipkinEndpointEnv = "ZIPKIN_ENDPOINT"
	DisableZipkinEnv  = "DISABLE_ZIPKIN"

	TraceID = "x-b3-traceid"
)

// HTTPMiddleware starts a span for every request, continuing any trace
// carried in the request headers.
func HTTPMiddleware(h http.Handler) http.Handler {
	return otnethttp.Middleware(
		opentracing.GlobalTracer(),
		h,
		otnethttp.OperationNameFunc(func(r *http.Request) string {
			return "HTTP " + r.Method + ":" + r.URL.EscapedPath() + " >"
		}),
	)
}

// NewFromEnv initialises tracing if ZIPKIN_ENDPOINT is set and DISABLE_ZIPKIN
// is not truthy. The returned closer flushes the reporter. If tracing is
// disabled returns nil and the global tracer remains the noop tracer.
func NewFromEnv(log Logger, service string, host string) (io.Closer, error) {
	endpoint, ok := os.LookupEnv(ZipkinEndpointEnv)
	if !ok || endpoint == "" {
		log.Infof("zipkin disabled, '%s' not set", ZipkinEndpointEnv)
		return nil, nil
	}
	if environment.GetTruthy(DisableZipkinEnv) {
		log.Infof("'%s' set, zipkin disabled", DisableZipkinEnv)
		return nil, nil
	}
	return New(service, host, endpoint)
}

// New initialises tracing using the zipkin client tracer wrapped for
// opentracing, and installs it as the global tracer.
func New(service string, host string, zipkinEndpoint string) (io.Closer, error) {
	localEndpoint, err := zipkin.NewEndpoint(service, host)
	if err != nil {
		return nil, err
	}

	zipkinLogger := log.New(os.Stdout, "zipkin", log.Ldate|log.Ltime|log.Lmicroseconds|log.Llongfile)
	reporter := zipkinhttp.NewReporter(zipkinEndpoint, zipkinhttp.Logger(zipkinLogger))

	nativeTracer, err := zipkin.NewTracer(
		reporter,
		zipkin.WithLocalEndpoint(localEndpoint),
		zipkin.WithSharedSpans(false),
	)
	if err != nil {
		_ = reporter.Close()
		return nil, err
	}

	opentracing.SetGlobalTracer(zipkinot.Wrap(nativeTracer))
	return reporter, nil
}
