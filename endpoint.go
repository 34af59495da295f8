// Package duct implements a bidirectional, typed, message-oriented channel
// between a parent process and exactly one child process it spawns, carried
// over a pair of anonymous OS pipes inherited across the spawn boundary.
//
// Two message disciplines are supported: fire-and-forget notifications
// ("RPCs", via Tx.SendRPC) and request/response exchanges whose responses
// may arrive out of order relative to submission (via Request and its
// deadline/timeout variants). Handles may be shared by many goroutines on
// either side; the package serializes framing on the outbound pipe and
// multiplexes responses by correlation id.
package duct

import (
	"io"

	"duct/codec"
	"duct/frame"
	"duct/handshake"
)

// Codecs bundles the four per-message Codec values an Endpoint needs: one
// pair for values this side sends (RpcTx, RequestTx) and one pair for values
// this side receives (RpcRx, RequestRx). Go's lack of partial specialization
// makes a single generic Endpoint[RpcTx, RequestTx, RpcRx, RequestRx] awkward
// to construct from plain closures, so New takes four concrete Codec values
// and the compiler still enforces all four type parameters through the
// returned Tx[RpcTx, RequestTx] / Rx[RpcRx, RequestRx] pair.
type Codecs[RpcTx, RequestTx, RpcRx, RequestRx any] struct {
	RpcTx     codec.Codec[RpcTx]
	RequestTx codec.Codec[RequestTx]
	RpcRx     codec.Codec[RpcRx]
	RequestRx codec.Codec[RequestRx]
}

// New performs the bootstrap handshake over w/r and builds the Tx/Rx pair
// for one side of a channel. w and r are the outbound and inbound ends of
// one direction each of a pipe pair, typically obtained from the pipeboot
// package; the parent and child each call New independently with their own
// w/r assignment (the protocol is symmetric past bootstrap).
//
// The handshake is synchronous and blocking: both sides must already be
// running and attached to their ends of the pipes by the time New is called.
// For the parent side, calling New only after exec.Cmd.Start has returned
// successfully (as pipeboot.Parent guarantees) means a failed spawn surfaces
// as a spawn error, never as a handshake read error.
func New[RpcTx, RequestTx, RpcRx, RequestRx any](
	w io.Writer,
	r io.Reader,
	c Codecs[RpcTx, RequestTx, RpcRx, RequestRx],
	opts ...Option,
) (*Tx[RpcTx, RequestTx], *Rx[RpcRx, RequestRx], error) {
	o := newOptions(opts)

	if !o.skipHandshake {
		if err := handshake.Write(w); err != nil {
			return nil, nil, newError("New", KindBrokenPipe, err)
		}
		if err := handshake.Read(r); err != nil {
			kind := KindUnsupported
			if err == handshake.ErrBannerMismatch {
				kind = KindBrokenPipe
			}
			return nil, nil, newError("New", kind, err)
		}
	}

	cr := newCore(frame.NewWriter(w), o.sendLimiter, o.logger)
	tx := newTx(cr, c.RpcTx, c.RequestTx)
	rx := newRx(cr, frame.NewReader(r), c.RpcRx, c.RequestRx, o.logger)
	return tx, rx, nil
}
