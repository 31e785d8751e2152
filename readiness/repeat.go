// Package readiness has utilities that check other things are ready, or
// repeat things until they are.
package readiness

import (
	"context"
	"errors"
	"time"

	"github.com/datatrails/go-datatrails-bankcache/logger"
)

// Repeat calls f until it returns without a recoverable error, attempts are
// exhausted or ctx is done. attempts = -1 to try forever. interval is the
// delay between attempts. The last error from f is returned.
func Repeat(ctx context.Context, attempts int, interval time.Duration, f func(context.Context) error) error {
	var err error

	for i := 0; ; i++ {
		err = f(ctx)
		if err == nil {
			return nil
		}

		var e *UnrecoverableError
		if errors.As(err, &e) {
			return err
		}

		if attempts > -1 && i >= (attempts-1) {
			break
		}
		logger.Sugar.Debugw(
			"retrying ...",
			"count", i, "interval", interval, "err", err)

		select {
		case <-ctx.Done():
			return err
		case <-time.After(interval):
		}
	}

	return err
}
