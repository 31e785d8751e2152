package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/datatrails/go-datatrails-bankcache/logger"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheObservers(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	m := New(logger.Sugar, "BankCache")
	o := NewCacheObservers(m)

	o.ObserveOperation("store", time.Millisecond, nil)
	o.ObserveOperation("store", time.Millisecond, errors.New("boom"))
	o.ObserveOperation("fetch", time.Millisecond, nil)
	o.ObserveFlushedBanks(3)

	assert.Equal(t, float64(1), testutil.ToFloat64(o.operations.WithLabelValues("store", resultOK)))
	assert.Equal(t, float64(1), testutil.ToFloat64(o.operations.WithLabelValues("store", resultError)))
	assert.Equal(t, float64(3), testutil.ToFloat64(o.flushedBanks))

	count, err := testutil.GatherAndCount(m.Gatherer(), "bankcache_operation_latency_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestNilObservers(t *testing.T) {
	var m *Metrics
	o := NewCacheObservers(m)
	o.ObserveOperation("store", time.Millisecond, nil)
	o.ObserveFlushedBanks(1)

	var nilObservers *CacheObservers
	nilObservers.ObserveOperation("store", time.Millisecond, nil)

	assert.Equal(t, "", m.Port())
}

func TestNewFromEnvironment(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	t.Setenv("USE_METRICS", "false")
	assert.Nil(t, NewFromEnvironment(logger.Sugar, "bankcache"))

	t.Setenv("USE_METRICS", "true")
	t.Setenv("METRICS_PORT", "9102")
	m := NewFromEnvironment(logger.Sugar, "BankCache")
	require.NotNil(t, m)
	assert.Equal(t, "9102", m.Port())
	assert.Equal(t, "bankcache", m.String())
}

func TestLatencyMetricsHandler(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	m := New(logger.Sugar, "bankcache")
	h := m.NewLatencyMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/banks/minions", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	expected := `
# HELP bankcache_requests_total Total number of requests by method, service and status code.
# TYPE bankcache_requests_total counter
bankcache_requests_total{code="404",method="GET",service="bankcache"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Gatherer(), strings.NewReader(expected), "bankcache_requests_total"))

	// the prometheus endpoint serves the same registry
	rec = httptest.NewRecorder()
	m.NewPromHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "bankcache_requests_latency_seconds")
}

func TestNilMetricsHandler(t *testing.T) {
	var m *Metrics
	h := http.NotFoundHandler()
	assert.NotNil(t, m.NewLatencyMetricsHandler(h))
}
