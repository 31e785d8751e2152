package bankcache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/datatrails/go-datatrails-bankcache/logger"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

// newTestCache sets up a fresh instance of miniredis and returns a cache
// talking to it. Retries are disabled so connection failures surface at once.
func newTestCache(t *testing.T, opts ...CacheOption) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	opts = append([]CacheOption{WithClock(func() time.Time { return testNow })}, opts...)
	c, err := New(logger.Sugar, client, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

// commandRecorder is a redis hook recording every command the cache sends,
// split into single round trips and pipelines.
type commandRecorder struct {
	mu        sync.Mutex
	singles   []string
	pipelines [][]string
}

// newRecordedTestCache is newTestCache with a commandRecorder attached to the
// client.
func newRecordedTestCache(t *testing.T, opts ...CacheOption) (*Cache, *commandRecorder) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	recorder := &commandRecorder{}
	client.AddHook(recorder)
	opts = append([]CacheOption{WithClock(func() time.Time { return testNow })}, opts...)
	c, err := New(logger.Sugar, client, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, recorder
}

func (r *commandRecorder) BeforeProcess(ctx context.Context, cmd redis.Cmder) (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.singles = append(r.singles, cmd.Name())
	return ctx, nil
}

func (r *commandRecorder) AfterProcess(context.Context, redis.Cmder) error {
	return nil
}

func (r *commandRecorder) BeforeProcessPipeline(ctx context.Context, cmds []redis.Cmder) (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(cmds))
	for _, cmd := range cmds {
		names = append(names, cmd.Name())
	}
	r.pipelines = append(r.pipelines, names)
	return ctx, nil
}

func (r *commandRecorder) AfterProcessPipeline(context.Context, []redis.Cmder) error {
	return nil
}

func (r *commandRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.singles = nil
	r.pipelines = nil
}

// all returns every command name sent, singles first.
func (r *commandRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := append([]string{}, r.singles...)
	for _, p := range r.pipelines {
		names = append(names, p...)
	}
	return names
}

type grains struct {
	OS    string   `json:"os" cbor:"os"`
	Cores int64    `json:"cores" cbor:"cores"`
	Roles []string `json:"roles" cbor:"roles"`
}

// recordingObserver counts observations per operation.
type recordingObserver struct {
	mu       sync.Mutex
	ops      map[string]int
	failures map[string]int
	flushed  int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{ops: map[string]int{}, failures: map[string]int{}}
}

func (o *recordingObserver) ObserveOperation(operation string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops[operation]++
	if err != nil {
		o.failures[operation]++
	}
}

func (o *recordingObserver) ObserveFlushedBanks(count int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.flushed += count
}

// mockClient is a mock redis Client for injecting errors into the single
// command operations.
type mockClient struct {
	mock.Mock
}

func (mc *mockClient) Pipeline() redis.Pipeliner {
	arguments := mc.Called()
	return arguments.Get(0).(redis.Pipeliner)
}

func (mc *mockClient) Get(ctx context.Context, key string) *redis.StringCmd {
	arguments := mc.Called(key)
	return arguments.Get(0).(*redis.StringCmd)
}

func (mc *mockClient) SMembers(ctx context.Context, key string) *redis.StringSliceCmd {
	arguments := mc.Called(key)
	return arguments.Get(0).(*redis.StringSliceCmd)
}

func (mc *mockClient) SIsMember(ctx context.Context, key string, member any) *redis.BoolCmd {
	arguments := mc.Called(key, member)
	return arguments.Get(0).(*redis.BoolCmd)
}

func (mc *mockClient) Close() error {
	arguments := mc.Called()
	return arguments.Error(0)
}
