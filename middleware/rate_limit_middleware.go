package middleware

import (
	"context"
	"errors"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned by RateLimit when the bucket has no tokens left.
var ErrRateLimited = errors.New("middleware: inbound rate limit exceeded")

// RateLimit throttles inbound dispatch with a token-bucket limiter: tokens
// refill at r per second up to burst, and each dispatched frame consumes
// one. This guards the receiving side against a misbehaving peer that
// free-runs a hot RPC loop; it is independent of (and composes with) the
// outbound throttle a Tx can be configured with via WithSendLimiter.
//
// The limiter is built once, in the outer closure — building it per
// dispatch would hand every event a fresh full bucket and defeat the
// entire point of rate limiting.
func RateLimit(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, ev Event) error {
			if !limiter.Allow() {
				return ErrRateLimited
			}
			return next(ctx, ev)
		}
	}
}
