package bankcache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	otrace "github.com/opentracing/opentracing-go"

	"github.com/datatrails/go-datatrails-bankcache/codec"
)

const (
	opStore    = "store"
	opFetch    = "fetch"
	opFlush    = "flush"
	opList     = "list"
	opKeys     = "keys"
	opContains = "contains"
	opUpdated  = "updated"
	opCached   = "cached"
)

// Client is the subset of redis.UniversalClient the cache uses. Both
// *redis.Client and *redis.ClusterClient satisfy it.
type Client interface {
	Pipeline() redis.Pipeliner
	Get(ctx context.Context, key string) *redis.StringCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	SIsMember(ctx context.Context, key string, member any) *redis.BoolCmd
	Close() error
}

// Observer is told about every cache operation. metrics.CacheObservers
// implements it.
type Observer interface {
	ObserveOperation(operation string, elapsed time.Duration, err error)
	ObserveFlushedBanks(count int)
}

type noopObserver struct{}

func (noopObserver) ObserveOperation(string, time.Duration, error) {}
func (noopObserver) ObserveFlushedBanks(int)                       {}

// Cache stores values in a tree of banks held in redis.
type Cache struct {
	log        Logger
	client     Client
	layout     Layout
	serializer codec.Serializer
	observer   Observer
	now        func() time.Time
}

type CacheOption func(*Cache)

func WithLayout(layout Layout) CacheOption {
	return func(c *Cache) {
		c.layout = layout
	}
}

func WithSerializer(s codec.Serializer) CacheOption {
	return func(c *Cache) {
		c.serializer = s
	}
}

func WithObserver(o Observer) CacheOption {
	return func(c *Cache) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithClock replaces time.Now for store timestamps and Cached expiry.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// New returns a cache using client. Values are CBOR encoded and keys use
// DefaultLayout unless overridden by opts.
func New(log Logger, client Client, opts ...CacheOption) (*Cache, error) {
	c := &Cache{
		log:      log,
		client:   client,
		layout:   DefaultLayout(),
		observer: noopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.serializer == nil {
		s, err := codec.NewCBORSerializer()
		if err != nil {
			return nil, err
		}
		c.serializer = s
	}
	return c, nil
}

func (c *Cache) Layout() Layout {
	return c.layout
}

// Close closes the underlying client.
func (c *Cache) Close() error {
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

// Store serialises value and saves it as key in bank, registering every
// segment of the bank path with its parent. One round trip.
func (c *Cache) Store(ctx context.Context, bank, key string, value any) (err error) {
	start := time.Now()
	defer func() { c.observer.ObserveOperation(opStore, time.Since(start), err) }()

	log := c.log.FromContext(ctx)
	defer log.Close()

	path, segments, err := parseBank(bank)
	if err != nil {
		return err
	}
	if err = checkKey(key); err != nil {
		return err
	}

	b, err := c.serializer.Marshal(value)
	if err != nil {
		return fmt.Errorf("cannot serialise value for %s/%s: %w", path, key, err)
	}

	span, ctx := otrace.StartSpanFromContext(ctx, "bankcache.Store.Exec")
	defer span.Finish()
	span.SetTag("bank", path)

	pipe := c.client.Pipeline()
	parent := segments[0]
	for _, name := range segments[1:] {
		pipe.SAdd(ctx, c.layout.BankKey(parent), name)
		parent = parent + BankSeparator + name
	}
	valueKey := c.layout.ValueKey(path, key)
	pipe.Set(ctx, valueKey, b, 0)
	pipe.Set(ctx, c.layout.TimestampKey(path, key), c.now().UnixMilli(), 0)
	pipe.SAdd(ctx, c.layout.BankKeysKey(path), key)

	if _, err = pipe.Exec(ctx); err != nil {
		err = newError(err, "cannot set the redis cache key %s", valueKey)
		log.Infof("Store: %v", err)
		return err
	}
	log.Debugf("Store: set %s (%d bytes) in bank %s", key, len(b), path)
	return nil
}

// FetchRaw returns the serialised value of key in bank. found is false if
// there is no such key.
func (c *Cache) FetchRaw(ctx context.Context, bank, key string) (data []byte, found bool, err error) {
	start := time.Now()
	defer func() { c.observer.ObserveOperation(opFetch, time.Since(start), err) }()

	log := c.log.FromContext(ctx)
	defer log.Close()

	path, _, err := parseBank(bank)
	if err != nil {
		return nil, false, err
	}
	if err = checkKey(key); err != nil {
		return nil, false, err
	}

	span, ctx := otrace.StartSpanFromContext(ctx, "bankcache.Fetch.Get")
	defer span.Finish()

	valueKey := c.layout.ValueKey(path, key)
	data, err = c.client.Get(ctx, valueKey).Bytes()
	if errors.Is(err, redis.Nil) {
		log.Debugf("Fetch: %s not found", valueKey)
		return nil, false, nil
	}
	if err != nil {
		err = newError(err, "cannot fetch the redis cache key %s", valueKey)
		log.Infof("Fetch: %v", err)
		return nil, false, err
	}
	return data, true, nil
}

// Fetch deserialises the value of key in bank into out, which must be a
// pointer. If the key does not exist found is false and out is untouched.
func (c *Cache) Fetch(ctx context.Context, bank, key string, out any) (bool, error) {
	data, found, err := c.FetchRaw(ctx, bank, key)
	if err != nil || !found {
		return false, err
	}
	if err = c.serializer.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("cannot deserialise %s/%s: %w", bank, key, err)
	}
	return true, nil
}

// List returns the names of the direct child banks of bank, sorted.
func (c *Cache) List(ctx context.Context, bank string) (banks []string, err error) {
	start := time.Now()
	defer func() { c.observer.ObserveOperation(opList, time.Since(start), err) }()

	path, _, err := parseBank(bank)
	if err != nil {
		return nil, err
	}
	return c.members(ctx, "bankcache.List.SMembers", c.layout.BankKey(path))
}

// Keys returns the names of the keys stored directly in bank, sorted.
func (c *Cache) Keys(ctx context.Context, bank string) (keys []string, err error) {
	start := time.Now()
	defer func() { c.observer.ObserveOperation(opKeys, time.Since(start), err) }()

	path, _, err := parseBank(bank)
	if err != nil {
		return nil, err
	}
	return c.members(ctx, "bankcache.Keys.SMembers", c.layout.BankKeysKey(path))
}

func (c *Cache) members(ctx context.Context, spanName string, setKey string) ([]string, error) {
	log := c.log.FromContext(ctx)
	defer log.Close()

	span, ctx := otrace.StartSpanFromContext(ctx, spanName)
	defer span.Finish()

	members, err := c.client.SMembers(ctx, setKey).Result()
	if err != nil {
		err = newError(err, "cannot list the redis cache key %s", setKey)
		log.Infof("List: %v", err)
		return nil, err
	}
	sort.Strings(members)
	return members, nil
}

// Contains reports whether key is stored in bank. With an empty key it
// reports whether bank has any child banks or keys.
func (c *Cache) Contains(ctx context.Context, bank, key string) (found bool, err error) {
	start := time.Now()
	defer func() { c.observer.ObserveOperation(opContains, time.Since(start), err) }()

	log := c.log.FromContext(ctx)
	defer log.Close()

	path, _, err := parseBank(bank)
	if err != nil {
		return false, err
	}

	if key == "" {
		span, ctx := otrace.StartSpanFromContext(ctx, "bankcache.Contains.Exists")
		defer span.Finish()

		// one EXISTS per key, multi key commands fail across cluster slots
		pipe := c.client.Pipeline()
		banks := pipe.Exists(ctx, c.layout.BankKey(path))
		keys := pipe.Exists(ctx, c.layout.BankKeysKey(path))
		if _, err = pipe.Exec(ctx); err != nil {
			err = newError(err, "cannot check the redis cache bank %s", path)
			log.Infof("Contains: %v", err)
			return false, err
		}
		return banks.Val()+keys.Val() > 0, nil
	}

	if err = checkKey(key); err != nil {
		return false, err
	}

	span, ctx := otrace.StartSpanFromContext(ctx, "bankcache.Contains.SIsMember")
	defer span.Finish()

	bankKeys := c.layout.BankKeysKey(path)
	found, err = c.client.SIsMember(ctx, bankKeys, key).Result()
	if err != nil {
		err = newError(err, "cannot check the redis cache key %s in %s", key, bankKeys)
		log.Infof("Contains: %v", err)
		return false, err
	}
	return found, nil
}

// Updated returns when key in bank was last stored, to the millisecond.
// found is false if the key has no timestamp.
func (c *Cache) Updated(ctx context.Context, bank, key string) (updated time.Time, found bool, err error) {
	start := time.Now()
	defer func() { c.observer.ObserveOperation(opUpdated, time.Since(start), err) }()

	log := c.log.FromContext(ctx)
	defer log.Close()

	path, _, err := parseBank(bank)
	if err != nil {
		return time.Time{}, false, err
	}
	if err = checkKey(key); err != nil {
		return time.Time{}, false, err
	}

	span, ctx := otrace.StartSpanFromContext(ctx, "bankcache.Updated.Get")
	defer span.Finish()

	tsKey := c.layout.TimestampKey(path, key)
	raw, err := c.client.Get(ctx, tsKey).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		err = newError(err, "cannot fetch the redis cache key %s", tsKey)
		log.Infof("Updated: %v", err)
		return time.Time{}, false, err
	}
	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		err = newError(err, "corrupt timestamp in redis cache key %s", tsKey)
		log.Infof("Updated: %v", err)
		return time.Time{}, false, err
	}
	return time.UnixMilli(millis), true, nil
}
