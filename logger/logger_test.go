package logger

import (
	"context"
	"testing"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTestLevelRecords(t *testing.T) {
	New("TEST")
	defer OnExit()

	Sugar.WithServiceName("BankCache").Infof("stored %s", "minions/alpha")

	require.NotNil(t, Recorded)
	entries := Recorded.FilterMessage("stored minions/alpha").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "bankcache", entries[0].ContextMap()[serviceNameKey])
}

func TestRecordedR(t *testing.T) {
	New("TEST")
	defer OnExit()

	Sugar.InfoR("flushed", "minions", 3)

	entries := Recorded.FilterMessage("flushed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "minions", fields["arg0"])
	assert.EqualValues(t, 3, fields["arg1"])
}

func TestFromContextWithoutSpan(t *testing.T) {
	New("NOOP")
	defer OnExit()

	log := Sugar.FromContext(context.Background())
	defer log.Close()
	assert.Same(t, Sugar, log)
}

// The global tracer is the noop tracer so no b3 trace id is injected and the
// logger is returned unchanged even though a span is present.
func TestFromContextMockSpan(t *testing.T) {
	New("NOOP")
	defer OnExit()

	tracer := mocktracer.New()
	span := tracer.StartSpan("test")
	defer span.Finish()
	ctx := opentracing.ContextWithSpan(context.Background(), span)

	log := Sugar.FromContext(ctx)
	defer log.Close()
	assert.Same(t, Sugar, log)
}

func BenchmarkWrappedLogger_FromContext(b *testing.B) {
	New("NOOP")
	defer OnExit()

	ctx := context.Background()
	for n := 0; n < b.N; n++ {
		func(inctx context.Context) {
			log := Sugar.FromContext(inctx)
			defer log.Close()
		}(ctx)
	}
}
