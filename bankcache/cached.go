package bankcache

import (
	"context"
	"reflect"
	"time"
)

// Loader produces the value for a cache miss by filling in out.
type Loader func(ctx context.Context, out any) error

// Cached returns the value of key in bank in out if it exists and was stored
// less than maxAge ago. A maxAge of zero never expires. Otherwise loader is
// called to fill out and the result is stored. out is only written by a
// complete decode, so a value that fails to decode never leaks into what the
// loader sees.
//
// Errors from loader are always returned. Failing to read or write the cache
// is logged and otherwise ignored: a broken cache costs a call to loader, not
// the result.
func (c *Cache) Cached(ctx context.Context, bank, key string, maxAge time.Duration, out any, loader Loader) (err error) {
	start := time.Now()
	defer func() { c.observer.ObserveOperation(opCached, time.Since(start), err) }()

	log := c.log.FromContext(ctx)
	defer log.Close()

	path, _, err := parseBank(bank)
	if err != nil {
		return err
	}
	if err = checkKey(key); err != nil {
		return err
	}

	hit, err := c.fresh(ctx, path, key, maxAge)
	if err != nil {
		log.Infof("Cached: unable to check %s/%s: %v", path, key, err)
	}
	if hit {
		found, err := c.fetchInto(ctx, path, key, out)
		if err == nil && found {
			log.Debugf("Cached: hit %s/%s", path, key)
			return nil
		}
		if err != nil {
			log.Infof("Cached: unable to read %s/%s: %v", path, key, err)
		}
	}

	if err = loader(ctx, out); err != nil {
		log.Infof("Cached: loader failed for %s/%s: %v", path, key, err)
		return err
	}
	if serr := c.Store(ctx, path, key, out); serr != nil {
		log.Infof("Cached: unable to store %s/%s: %v", path, key, serr)
	}
	return nil
}

// fresh reports whether key was stored within maxAge.
func (c *Cache) fresh(ctx context.Context, path, key string, maxAge time.Duration) (bool, error) {
	if maxAge <= 0 {
		return c.Contains(ctx, path, key)
	}
	updated, found, err := c.Updated(ctx, path, key)
	if err != nil || !found {
		return false, err
	}
	return c.now().Sub(updated) < maxAge, nil
}

// fetchInto decodes into a new value of out's type and copies it to out only
// on success.
func (c *Cache) fetchInto(ctx context.Context, path, key string, out any) (bool, error) {
	v := reflect.ValueOf(out)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return c.Fetch(ctx, path, key, out)
	}
	decoded := reflect.New(v.Elem().Type())
	found, err := c.Fetch(ctx, path, key, decoded.Interface())
	if err != nil || !found {
		return found, err
	}
	v.Elem().Set(decoded.Elem())
	return true, nil
}
