package duct

import (
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// options collects the functional-options configuration for an Endpoint:
// none of it crosses the wire, all of it is ambient configuration a
// production channel needs (logger, outbound throttle).
type options struct {
	logger       *zap.SugaredLogger
	sendLimiter  *rate.Limiter
	skipHandshake bool
}

// Option configures an Endpoint at construction time.
type Option func(*options)

func newOptions(opts []Option) *options {
	o := &options{logger: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger attaches a structured logger; defaults to a no-op logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) { o.logger = l }
}

// WithSendLimiter throttles every outbound SendRPC/Request with a
// token-bucket limiter, guarding a peer that would otherwise be flooded by a
// hot local loop.
func WithSendLimiter(l *rate.Limiter) Option {
	return func(o *options) { o.sendLimiter = l }
}

// withoutHandshake skips the handshake exchange; unexported, for in-package
// tests whose pipe wiring cannot carry a handshake in both directions (a
// one-way pipe paired with a reader that never yields data).
func withoutHandshake() Option {
	return func(o *options) { o.skipHandshake = true }
}
