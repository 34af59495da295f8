// Package middleware implements the onion-model middleware chain wrapping
// the Rx-side dispatch of inbound frames.
//
// Middleware wraps the business handler to add cross-cutting concerns
// (logging, timing, inbound throttling) without the handler knowing they
// exist.
//
// Onion model execution order:
//
//	Chain(A, B, C)(handler)  →  A(B(C(handler)))
//
//	Request:   A.before → B.before → C.before → handler
//	Response:  handler → C.after → B.after → A.after
//
// Each middleware can:
//   - Do pre-processing (before calling next)
//   - Call next(ctx, ev) to pass to the next layer
//   - Do post-processing (after next returns)
//   - Short-circuit by returning early without calling next (e.g., rate limiting)
package middleware

import "context"

// Event describes one dispatched frame to middleware without exposing its
// decoded payload type — the duct package's Rx is generic over two distinct
// payload types (RpcRx, RequestRx) per Endpoint, and a single middleware
// chain wraps dispatch of both uniformly, so Event carries only what every
// middleware needs regardless of payload shape.
type Event struct {
	// Kind is "RPC" or "REQUEST".
	Kind string
	// CorrelationID is the hex-encoded correlation id, empty for RPC frames.
	CorrelationID string
}

// HandlerFunc is the function signature for dispatch handlers. Both the
// business handler and middleware-wrapped handlers share this signature.
type HandlerFunc func(ctx context.Context, ev Event) error

// Middleware takes a handler and returns a new handler that wraps it.
type Middleware func(next HandlerFunc) HandlerFunc

// Chain composes multiple middlewares into a single middleware, built from
// right to left so the first middleware in the list is the outermost layer
// (executed first on request, last on response).
//
// Example:
//
//	chain := Chain(Logging(logger), RateLimit(50, 10))
//	handler := chain(businessHandler)
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
