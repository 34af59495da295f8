// Package reaper watches a dedicated probe pipe for the peer's exit.
// Neither side writes to the probe pipe after the handshake; its only
// purpose is that the OS closes it when the owning process dies, which a
// blocking read on the other end detects as io.EOF.
package reaper

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is the polling interval used when no WithInterval option
// is given.
const DefaultInterval = 5 * time.Second

// Options configures a Watcher.
type Options struct {
	interval time.Duration
	logger   *zap.SugaredLogger
}

// Option configures a Watcher.
type Option func(*Options)

// WithInterval overrides DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(o *Options) { o.interval = d }
}

// WithLogger attaches a logger; defaults to zap.NewNop().Sugar().
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *Options) { o.logger = l }
}

// Watcher blocks reading a probe pipe and reports when it observes the peer
// going away. The interval is the pause between reads after a read that
// unexpectedly returned data.
type Watcher struct {
	probe    io.Reader
	interval time.Duration
	logger   *zap.SugaredLogger
}

// New creates a Watcher over the given probe pipe end.
func New(probe io.Reader, opts ...Option) *Watcher {
	o := Options{interval: DefaultInterval, logger: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Watcher{probe: probe, interval: o.interval, logger: o.logger}
}

// Watch blocks until the probe pipe reports EOF (the peer process exited),
// the context is cancelled, or a read error other than EOF occurs. It
// fires exactly once: callers that want repeated notification should loop
// on calling Watch again, though in practice a closed pipe stays closed.
func (w *Watcher) Watch(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		buf := make([]byte, 1)
		for {
			_, err := w.probe.Read(buf)
			if err != nil {
				done <- err
				return
			}
			// The probe pipe is never written to; any successful read is
			// unexpected but not fatal, keep polling at the configured cadence.
			time.Sleep(w.interval)
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err == io.EOF {
			w.logger.Debugw("reaper observed peer exit")
			return io.EOF
		}
		return err
	}
}

// Run starts Watch in a goroutine and invokes onExit when the peer goes
// away. It returns a cancel function that stops the watcher.
func (w *Watcher) Run(onExit func()) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := w.Watch(ctx); err == io.EOF {
			onExit()
		}
	}()
	return cancel
}
