// Package startup runs a service's listeners until one fails or the process
// is asked to stop.
package startup

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

// based on gist found at https://gist.github.com/pteich/c0bb58b0b7c8af7cc6a689dd0d3d26ef?permalink_comment_id=4053701

const (
	shutdownTimeout = 5 * time.Second
)

// Listener is an interface that describes any kind of listener - the http
// api or the metrics endpoint.
type Listener interface {
	Listen() error
	Shutdown(context.Context) error
}

// Listeners contains all servers that comply with the service.
type Listeners struct {
	name      string
	log       Logger
	listeners []Listener
}

type ListenersOption func(*Listeners)

// WithListener adds h. nil listeners are ignored so optional servers can be
// passed unconditionally.
func WithListener(h Listener) ListenersOption {
	return func(l *Listeners) {
		if h != nil {
			l.listeners = append(l.listeners, h)
		}
	}
}

func NewListeners(log Logger, name string, opts ...ListenersOption) Listeners {
	l := Listeners{log: log, name: strings.ToLower(name)}
	for _, opt := range opts {
		opt(&l)
	}
	return l
}

func (l *Listeners) String() string {
	return l.name
}

// Listen runs every listener until ctx is cancelled, SIGINT or SIGTERM is
// received, or a listener fails. All listeners are then shut down.
func (l *Listeners) Listen(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, errCtx := errgroup.WithContext(ctx)

	for _, h := range l.listeners {
		h := h
		g.Go(func() error {
			return h.Listen()
		})
	}

	g.Go(func() error {
		<-errCtx.Done()
		l.log.Infof("%s: shutting down listeners", l)
		return l.Shutdown()
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (l *Listeners) Shutdown() error {
	var errs []error
	for _, h := range l.listeners {
		func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := h.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("cannot shutdown %s: %w", h, err))
			}
		}()
	}
	return errors.Join(errs...)
}
