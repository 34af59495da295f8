package middleware

import (
	"context"
	"errors"
	"time"
)

// ErrDispatchTimeout is returned by Timeout when the wrapped handler doesn't
// complete within the configured duration.
var ErrDispatchTimeout = errors.New("middleware: dispatch timed out")

// Timeout enforces a maximum duration for dispatching a single event.
//
// The handler goroutine is NOT cancelled if the timeout fires — it keeps
// running in the background. The timeout only controls when the caller
// gives up waiting; handlers that need true cancellation must watch ctx.Done
// themselves. This matters most for a Request handler that also calls
// Respond: if Timeout fires first, the Rx event loop finalizes the Responder
// with RESPONSE_NONE as soon as dispatch returns, so the late Respond call
// reports ErrAlreadyResponded and its payload never reaches the peer.
func Timeout(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, ev Event) error {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- next(ctx, ev)
			}()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				return ErrDispatchTimeout
			}
		}
	}
}
