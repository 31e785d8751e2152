package bankcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/datatrails/go-datatrails-bankcache/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream unavailable")

type countingLoader struct {
	calls int
	value grains
	err   error
}

func (l *countingLoader) load(_ context.Context, out any) error {
	l.calls++
	if l.err != nil {
		return l.err
	}
	*(out.(*grains)) = l.value
	return nil
}

func TestCachedMissThenHit(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	c, _ := newTestCache(t)
	ctx := context.Background()
	loader := &countingLoader{value: grains{OS: "Debian", Cores: 4}}

	var first grains
	require.NoError(t, c.Cached(ctx, "minions/alpha", "grains", 0, &first, loader.load))
	assert.Equal(t, loader.value, first)
	assert.Equal(t, 1, loader.calls)

	var second grains
	require.NoError(t, c.Cached(ctx, "minions/alpha", "grains", 0, &second, loader.load))
	assert.Equal(t, loader.value, second)
	assert.Equal(t, 1, loader.calls)
}

func TestCachedExpiry(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	now := testNow
	c, _ := newTestCache(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()
	loader := &countingLoader{value: grains{OS: "Debian"}}

	var out grains
	require.NoError(t, c.Cached(ctx, "minions/alpha", "grains", time.Minute, &out, loader.load))
	assert.Equal(t, 1, loader.calls)

	now = now.Add(30 * time.Second)
	require.NoError(t, c.Cached(ctx, "minions/alpha", "grains", time.Minute, &out, loader.load))
	assert.Equal(t, 1, loader.calls)

	now = now.Add(time.Minute)
	loader.value = grains{OS: "Ubuntu"}
	require.NoError(t, c.Cached(ctx, "minions/alpha", "grains", time.Minute, &out, loader.load))
	assert.Equal(t, 2, loader.calls)
	assert.Equal(t, "Ubuntu", out.OS)
}

func TestCachedLoaderError(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	c, mr := newTestCache(t)
	loader := &countingLoader{err: errUpstream}

	var out grains
	err := c.Cached(context.Background(), "minions/alpha", "grains", 0, &out, loader.load)
	assert.ErrorIs(t, err, errUpstream)
	assert.Equal(t, 1, loader.calls)
	assert.False(t, mr.Exists("$KEY_minions/alpha/grains"))
}

// A broken cache costs a loader call but the result is still returned.
func TestCachedRedisDown(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	c, mr := newTestCache(t)
	mr.SetError("ERR broken")
	defer mr.SetError("")

	loader := &countingLoader{value: grains{OS: "Debian"}}
	var out grains
	require.NoError(t, c.Cached(context.Background(), "minions/alpha", "grains", 0, &out, loader.load))
	assert.Equal(t, "Debian", out.OS)
	assert.Equal(t, 1, loader.calls)
}

// A corrupt value is replaced by the loader result.
func TestCachedCorruptValue(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	c, mr := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.Store(ctx, "minions/alpha", "grains", grains{}))
	require.NoError(t, mr.Set("$KEY_minions/alpha/grains", "\xff\x00"))

	loader := &countingLoader{value: grains{OS: "Debian"}}
	var out grains
	require.NoError(t, c.Cached(ctx, "minions/alpha", "grains", 0, &out, loader.load))
	assert.Equal(t, 1, loader.calls)

	var again grains
	found, err := c.Fetch(ctx, "minions/alpha", "grains", &again)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Debian", again.OS)
}

func TestCachedInvalidBank(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	c, _ := newTestCache(t)
	loader := &countingLoader{}
	err := c.Cached(context.Background(), "", "grains", 0, &grains{}, loader.load)
	assert.ErrorIs(t, err, ErrInvalidBank)
	assert.Equal(t, 0, loader.calls)
}

// A value that only partly decodes must not be mixed into the loader result.
func TestCachedMismatchedValueIsDiscarded(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	c, _ := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.Store(ctx, "minions/alpha", "grains", map[string]any{
		"os":    "Debian",
		"roles": "web",
	}))

	calls := 0
	loader := func(_ context.Context, out any) error {
		calls++
		out.(*grains).Cores = 8
		return nil
	}

	var out grains
	require.NoError(t, c.Cached(ctx, "minions/alpha", "grains", 0, &out, loader))
	assert.Equal(t, 1, calls)
	assert.Equal(t, grains{Cores: 8}, out)

	var stored grains
	found, err := c.Fetch(ctx, "minions/alpha", "grains", &stored)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, grains{Cores: 8}, stored)
}

// Expiry is measured in milliseconds, not whole seconds.
func TestCachedExpiryGranularity(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	now := testNow.Add(900 * time.Millisecond)
	c, _ := newTestCache(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()
	loader := &countingLoader{value: grains{OS: "Debian"}}

	var out grains
	require.NoError(t, c.Cached(ctx, "minions/alpha", "grains", time.Second, &out, loader.load))
	assert.Equal(t, 1, loader.calls)

	updated, found, err := c.Updated(ctx, "minions/alpha", "grains")
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, now.Equal(updated))

	// 500ms later the entry is still fresh; truncating to seconds would make
	// it look 1.4s old.
	now = now.Add(500 * time.Millisecond)
	require.NoError(t, c.Cached(ctx, "minions/alpha", "grains", time.Second, &out, loader.load))
	assert.Equal(t, 1, loader.calls)
}
