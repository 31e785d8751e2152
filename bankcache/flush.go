package bankcache

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	otrace "github.com/opentracing/opentracing-go"
)

// Flush removes key from bank. With an empty key it removes bank, every
// bank below it and all of their keys, and unregisters bank from its parent.
func (c *Cache) Flush(ctx context.Context, bank, key string) (err error) {
	start := time.Now()
	defer func() { c.observer.ObserveOperation(opFlush, time.Since(start), err) }()

	path, _, err := parseBank(bank)
	if err != nil {
		return err
	}
	if key == "" {
		return c.flushBank(ctx, path)
	}
	if err = checkKey(key); err != nil {
		return err
	}
	return c.flushKey(ctx, path, key)
}

func (c *Cache) flushKey(ctx context.Context, path, key string) error {
	log := c.log.FromContext(ctx)
	defer log.Close()

	span, ctx := otrace.StartSpanFromContext(ctx, "bankcache.Flush.Key")
	defer span.Finish()

	pipe := c.client.Pipeline()
	pipe.Del(ctx, c.layout.ValueKey(path, key))
	pipe.Del(ctx, c.layout.TimestampKey(path, key))
	pipe.SRem(ctx, c.layout.BankKeysKey(path), key)
	if _, err := pipe.Exec(ctx); err != nil {
		err = newError(err, "cannot flush the redis cache key %s", c.layout.ValueKey(path, key))
		log.Infof("Flush: %v", err)
		return err
	}
	log.Debugf("Flush: removed %s from bank %s", key, path)
	return nil
}

func (c *Cache) flushBank(ctx context.Context, path string) error {
	log := c.log.FromContext(ctx)
	defer log.Close()

	span, ctx := otrace.StartSpanFromContext(ctx, "bankcache.Flush.Bank")
	defer span.Finish()

	banks, err := c.descendants(ctx, path)
	if err != nil {
		log.Infof("Flush: %v", err)
		return err
	}

	// every key set in one round trip
	pipe := c.client.Pipeline()
	keySets := make([]*redis.StringSliceCmd, len(banks))
	for i, b := range banks {
		keySets[i] = pipe.SMembers(ctx, c.layout.BankKeysKey(b))
	}
	if _, err = pipe.Exec(ctx); err != nil {
		err = newError(err, "cannot retrieve the keys under these cache banks: %s", strings.Join(banks, ", "))
		log.Infof("Flush: %v", err)
		return err
	}

	// Single key DELs only, multi key commands fail across cluster slots.
	pipe = c.client.Pipeline()
	removed := 0
	for i, b := range banks {
		for _, key := range keySets[i].Val() {
			pipe.Del(ctx, c.layout.ValueKey(b, key))
			pipe.Del(ctx, c.layout.TimestampKey(b, key))
			removed++
		}
		pipe.Del(ctx, c.layout.BankKeysKey(b))
		pipe.Del(ctx, c.layout.BankKey(b))
	}
	if parent, name, ok := parentOf(path); ok {
		pipe.SRem(ctx, c.layout.BankKey(parent), name)
	}
	if _, err = pipe.Exec(ctx); err != nil {
		err = newError(err, "cannot flush the redis cache bank %s", path)
		log.Infof("Flush: %v", err)
		return err
	}

	c.observer.ObserveFlushedBanks(len(banks))
	log.Debugf("Flush: removed %d banks and %d keys under %s", len(banks), removed, path)
	return nil
}

// descendants walks the child bank sets depth first and returns path followed
// by every bank below it, parents before children. One SMEMBERS per bank.
func (c *Cache) descendants(ctx context.Context, path string) ([]string, error) {
	banks := []string{}
	stack := []string{path}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		banks = append(banks, current)

		bankKey := c.layout.BankKey(current)
		children, err := c.client.SMembers(ctx, bankKey).Result()
		if err != nil {
			return nil, newError(err, "cannot list the redis cache key %s", bankKey)
		}
		// reverse order so the stack pops children alphabetically
		sort.Sort(sort.Reverse(sort.StringSlice(children)))
		for _, child := range children {
			if child == "" {
				continue
			}
			stack = append(stack, current+BankSeparator+child)
		}
	}
	return banks, nil
}
