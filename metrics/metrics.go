package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/datatrails/go-datatrails-bankcache/environment"
)

const (
	namespace          = "bankcache"
	defaultMetricsPort = "9090"
)

// OperationsCounterMetric counts cache operations by result (ok or error).
func OperationsCounterMetric() *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total number of cache operations by operation and result.",
		},
		[]string{"operation", "result"},
	)
}

// OperationsLatencyMetric measures the time taken by each cache operation,
// including redis round trips. bucket limits are in seconds...
func OperationsLatencyMetric() *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Histogram of time to complete a cache operation.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		},
		[]string{"operation"},
	)
}

// FlushedBanksMetric counts banks removed by recursive flushes.
func FlushedBanksMetric() prometheus.Counter {
	return prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flushed_banks_total",
			Help:      "Total number of banks removed by recursive flushes.",
		},
	)
}

// RequestsCounterMetric counts http api requests.
func RequestsCounterMetric() *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of requests by method, service and status code.",
		},
		[]string{"method", "service", "code"},
	)
}

// RequestsLatencyMetric measures http api latency. bucket limits are in
// seconds...
func RequestsLatencyMetric() *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "requests_latency_seconds",
			Help:      "Histogram of time to reply to request.",
			Buckets:   []float64{.005, .01, .02, .04, .08, .16, .32},
		},
		[]string{"method", "service"},
	)
}

// Metrics. Only those metrics registered are returned. The GoCollector and
// ProcessCollector metrics are omitted by using our own registry.
//
// A nil *Metrics is valid and disables all observation.
type Metrics struct {
	serviceName string
	port        string
	registry    *prometheus.Registry
	log         Logger
}

type MetricsOption func(*Metrics)

func WithPort(port string) MetricsOption {
	return func(m *Metrics) {
		m.port = port
	}
}

func New(log Logger, serviceName string, opts ...MetricsOption) *Metrics {
	m := Metrics{
		log:         log,
		serviceName: strings.ToLower(serviceName),
		registry:    prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return &m
}

// NewFromEnvironment returns nil unless USE_METRICS is truthy. METRICS_PORT
// defaults to 9090.
func NewFromEnvironment(log Logger, serviceName string, opts ...MetricsOption) *Metrics {
	if !environment.GetTruthy("USE_METRICS") {
		log.Infof("metrics disabled")
		return nil
	}
	port := environment.GetWithDefault("METRICS_PORT", defaultMetricsPort)
	return New(log, serviceName, append([]MetricsOption{WithPort(port)}, opts...)...)
}

func (m *Metrics) String() string {
	return m.serviceName
}

func (m *Metrics) Register(cs ...prometheus.Collector) {
	m.registry.MustRegister(cs...)
}

func (m *Metrics) Port() string {
	if m != nil {
		return m.port
	}
	return ""
}

// Gatherer exposes the registry, mostly for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// NewPromHandler serves the metrics endpoint, which is provided on a
// different port to the service. The default InstrumentMetricHandler is
// suppressed.
func (m *Metrics) NewPromHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
