package duct

import (
	"sync/atomic"

	"github.com/google/uuid"

	"duct/codec"
)

// Responder is the one-shot handle an inbound Request event carries. Exactly
// one response frame is obliged in its lifetime: Respond emits
// RESPONSE_SOME, or finalize (invoked by the Rx event loop once the user's
// handler returns without calling Respond) emits RESPONSE_NONE. Go has no
// destructors, so the event loop plays the role the original's Drop impl
// would: it always calls finalize after the handler returns, and finalize is
// a no-op if Respond already fired.
type Responder struct {
	core     *core
	corr     uuid.UUID
	consumed atomic.Bool
}

func newResponder(c *core, corr uuid.UUID) *Responder {
	return &Responder{core: c, corr: corr}
}

// finalize emits RESPONSE_NONE if nothing has consumed this Responder yet.
// The write is best-effort: a failure here is not surfaced to the handler,
// the peer will observe BrokenPipe on its own pending wait instead.
func (r *Responder) finalize() {
	if !r.consumed.CompareAndSwap(false, true) {
		return
	}
	if err := r.core.writeResponseNone(r.corr); err != nil {
		r.core.logger.Debugw("responder drop write failed", "error", err)
	}
}

// Respond consumes the Responder, encoding msg with c and emitting a
// RESPONSE_SOME frame. Calling Respond more than once (including after the
// handler already returned and the event loop finalized it) reports
// ErrAlreadyResponded.
//
// Respond is a package-level function, not a method, because its Response
// type parameter isn't known to Responder itself — it's fixed per call site
// by whichever handler decides what to send back, mirroring Tx.Request's
// generic Response parameter.
func Respond[Response any](r *Responder, c codec.Codec[Response], msg Response) error {
	if !r.consumed.CompareAndSwap(false, true) {
		return newError("Respond", KindProtocol, ErrAlreadyResponded)
	}
	data, err := c.Encode(msg)
	if err != nil {
		return newError("Respond", KindEncode, err)
	}
	return r.core.writeResponseSome(r.corr, data)
}
