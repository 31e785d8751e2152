package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultOK    = "ok"
	resultError = "error"
)

// CacheObservers records bank cache operations. It satisfies
// bankcache.Observer. The zero value, and a nil pointer, observe nothing.
type CacheObservers struct {
	operations   *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	flushedBanks prometheus.Counter
}

// NewCacheObservers registers the cache metrics with m. If m is nil the
// observers are no-ops.
func NewCacheObservers(m *Metrics) *CacheObservers {
	if m == nil {
		return &CacheObservers{}
	}
	o := CacheObservers{
		operations:   OperationsCounterMetric(),
		latency:      OperationsLatencyMetric(),
		flushedBanks: FlushedBanksMetric(),
	}
	m.Register(o.operations, o.latency, o.flushedBanks)
	return &o
}

func (o *CacheObservers) ObserveOperation(operation string, elapsed time.Duration, err error) {
	if o == nil || o.operations == nil {
		return
	}
	result := resultOK
	if err != nil {
		result = resultError
	}
	o.operations.WithLabelValues(operation, result).Inc()
	o.latency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (o *CacheObservers) ObserveFlushedBanks(count int) {
	if o == nil || o.flushedBanks == nil {
		return
	}
	o.flushedBanks.Add(float64(count))
}

// LatencyObservers records http requests.
type LatencyObservers struct {
	requestsCounter *prometheus.CounterVec
	requestsLatency *prometheus.HistogramVec
	serviceName     string
}

// NewLatencyObservers is specific to calculating the request latency and count.
func NewLatencyObservers(m *Metrics) LatencyObservers {
	o := LatencyObservers{
		requestsCounter: RequestsCounterMetric(),
		requestsLatency: RequestsLatencyMetric(),
		serviceName:     m.serviceName,
	}
	m.Register(o.requestsCounter, o.requestsLatency)
	return o
}

func (o *LatencyObservers) ObserveRequestsCount(method string, code string) {
	o.requestsCounter.WithLabelValues(method, o.serviceName, code).Inc()
}

func (o *LatencyObservers) ObserveRequestsLatency(elapsed float64, method string) {
	o.requestsLatency.WithLabelValues(method, o.serviceName).Observe(elapsed)
}
