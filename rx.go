package duct

import (
	"context"

	"duct/codec"
	"duct/frame"
	"duct/middleware"

	"go.uber.org/zap"
)

// Handler is the pair of callbacks Rx.Run dispatches decoded frames to: one
// for fire-and-forget RPC frames, one for Request frames paired with a
// Responder. Either field may be left nil to ignore that frame kind (an RPC
// channel with RPC set and Request left as the zero value, say).
type Handler[RpcRx, RequestRx any] struct {
	RPC     func(msg RpcRx)
	Request func(msg RequestRx, r *Responder)
}

// Rx is the single-owner inbound handle of an Endpoint: it is not
// duplicable and Run drives its event loop to completion on whichever
// goroutine calls it — the library never spawns that goroutine itself.
type Rx[RpcRx, RequestRx any] struct {
	core     *core
	fr       *frame.Reader
	rpcCodec codec.Codec[RpcRx]
	reqCodec codec.Codec[RequestRx]
	mw       []middleware.Middleware
	logger   *zap.SugaredLogger
}

func newRx[RpcRx, RequestRx any](c *core, fr *frame.Reader, rpcCodec codec.Codec[RpcRx], reqCodec codec.Codec[RequestRx], logger *zap.SugaredLogger) *Rx[RpcRx, RequestRx] {
	return &Rx[RpcRx, RequestRx]{core: c, fr: fr, rpcCodec: rpcCodec, reqCodec: reqCodec, logger: logger}
}

// Use registers middleware wrapping every dispatched frame, outermost-first
// in call order (the first registered middleware is the outermost layer, the
// last is closest to the handler). Must be called before Run.
func (rx *Rx[RpcRx, RequestRx]) Use(mw ...middleware.Middleware) {
	rx.mw = append(rx.mw, mw...)
}

// Run reads frames until a pipe read fails, dispatching RPC and Request
// frames to h and routing RESPONSE_SOME/RESPONSE_NONE into the shared
// response table. It returns the terminal I/O or protocol error; callers
// that want to stop the loop deliberately should close the underlying pipe,
// which unblocks Run with a read error and, through the shared core, wakes
// any requests still parked waiting on a response.
//
// Handlers must not issue a blocking Request through the Tx sharing this
// Rx's core: Run is the only goroutine that can ever deliver that request's
// response, so doing so deadlocks. This is a documented contract, not one
// the library can detect.
func (rx *Rx[RpcRx, RequestRx]) Run(h Handler[RpcRx, RequestRx]) error {
	chain := middleware.Chain(rx.mw...)

	for {
		tag, err := rx.fr.ReadTag()
		if err != nil {
			return rx.fail(KindBrokenPipe, err)
		}

		switch tag {
		case frame.RPC:
			payload, err := rx.fr.ReadPayload()
			if err != nil {
				return rx.fail(KindBrokenPipe, err)
			}
			msg, err := rx.rpcCodec.Decode(payload)
			if err != nil {
				return rx.fail(KindDecode, err)
			}
			dispatch := chain(func(context.Context, middleware.Event) error {
				if h.RPC != nil {
					h.RPC(msg)
				}
				return nil
			})
			if err := dispatch(context.Background(), middleware.Event{Kind: "RPC"}); err != nil {
				rx.logger.Debugw("rpc dispatch rejected", "error", err)
			}

		case frame.REQUEST:
			corr, err := rx.fr.ReadCorrelation()
			if err != nil {
				return rx.fail(KindBrokenPipe, err)
			}
			payload, err := rx.fr.ReadPayload()
			if err != nil {
				return rx.fail(KindBrokenPipe, err)
			}
			msg, err := rx.reqCodec.Decode(payload)
			if err != nil {
				return rx.fail(KindDecode, err)
			}
			responder := newResponder(rx.core, corr)
			dispatch := chain(func(context.Context, middleware.Event) error {
				if h.Request != nil {
					h.Request(msg, responder)
				}
				return nil
			})
			if err := dispatch(context.Background(), middleware.Event{Kind: "REQUEST", CorrelationID: corr.String()}); err != nil {
				rx.logger.Debugw("request dispatch rejected", "error", err)
			}
			responder.finalize()

		case frame.ResponseSome:
			corr, err := rx.fr.ReadCorrelation()
			if err != nil {
				return rx.fail(KindBrokenPipe, err)
			}
			payload, err := rx.fr.ReadPayload()
			if err != nil {
				return rx.fail(KindBrokenPipe, err)
			}
			rx.core.table.deposit(corr, true, payload)

		case frame.ResponseNone:
			corr, err := rx.fr.ReadCorrelation()
			if err != nil {
				return rx.fail(KindBrokenPipe, err)
			}
			rx.core.table.deposit(corr, false, nil)

		default:
			return rx.fail(KindProtocol, frame.ErrBadTag)
		}
	}
}

// fail marks the shared response table broken — so every parked Request
// call observes BrokenPipe regardless of which local Kind caused this Run
// call to return — and returns the local, more specific error to this Run
// call's own caller. A bad tag or an oversized length prefix is reported as
// KindProtocol.
func (rx *Rx[RpcRx, RequestRx]) fail(kind Kind, err error) error {
	if err == frame.ErrBadTag || err == frame.ErrTooLarge {
		kind = KindProtocol
	}
	rx.core.table.markBroken(newError("Run", KindBrokenPipe, err))
	return newError("Run", kind, err)
}
