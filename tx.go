package duct

import (
	"context"
	"time"

	"github.com/google/uuid"

	"duct/codec"
)

// Tx is the outbound handle of an Endpoint: cheaply duplicable and shareable
// across goroutines. Copying a Tx value copies only the codec pair and a
// pointer to the shared core (writer mutex, scratch buffer, response table),
// so every copy serializes through the same writer-mutex and the same
// correlation table, cheap enough to pass by value to every goroutine that
// needs to send.
type Tx[RpcTx, RequestTx any] struct {
	core      *core
	rpcCodec  codec.Codec[RpcTx]
	reqCodec  codec.Codec[RequestTx]
}

func newTx[RpcTx, RequestTx any](c *core, rpcCodec codec.Codec[RpcTx], reqCodec codec.Codec[RequestTx]) *Tx[RpcTx, RequestTx] {
	return &Tx[RpcTx, RequestTx]{core: c, rpcCodec: rpcCodec, reqCodec: reqCodec}
}

// SendRPC encodes msg and writes a fire-and-forget RPC frame. No response is
// ever expected or possible for this frame.
func (tx *Tx[RpcTx, RequestTx]) SendRPC(msg RpcTx) error {
	data, err := tx.rpcCodec.Encode(msg)
	if err != nil {
		return newError("SendRPC", KindEncode, err)
	}
	return tx.core.writeRPC(data)
}

// Request sends a REQUEST frame for msg, parks until a correlated response
// arrives, and decodes it with c. A nil *Response (with nil error) means the
// responder explicitly declined (RESPONSE_NONE).
//
// Request is a package-level function rather than a Tx method because its
// Response type parameter is fixed per call site, not by the four type
// parameters the Endpoint/Tx are already generic over — Go forbids a method
// from introducing type parameters beyond its receiver's.
func Request[Response, RpcTx, RequestTx any](tx *Tx[RpcTx, RequestTx], msg RequestTx, c codec.Codec[Response]) (*Response, error) {
	return requestCtx(tx, msg, c, context.Background())
}

// RequestWithDeadline is Request with an absolute deadline. If the deadline
// has already passed, it returns Timeout without writing a REQUEST frame.
func RequestWithDeadline[Response, RpcTx, RequestTx any](tx *Tx[RpcTx, RequestTx], msg RequestTx, c codec.Codec[Response], deadline time.Time) (*Response, error) {
	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()
	return requestCtx(tx, msg, c, ctx)
}

// RequestWithTimeout is Request with a relative deadline.
func RequestWithTimeout[Response, RpcTx, RequestTx any](tx *Tx[RpcTx, RequestTx], msg RequestTx, c codec.Codec[Response], timeout time.Duration) (*Response, error) {
	return RequestWithDeadline(tx, msg, c, time.Now().Add(timeout))
}

func requestCtx[Response, RpcTx, RequestTx any](tx *Tx[RpcTx, RequestTx], msg RequestTx, c codec.Codec[Response], ctx context.Context) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, newError("Request", KindTimeout, ErrTimeout)
	}

	data, err := tx.reqCodec.Encode(msg)
	if err != nil {
		return nil, newError("Request", KindEncode, err)
	}

	corr := uuid.New()
	if err := tx.core.writeRequest(corr, data); err != nil {
		return nil, err
	}

	some, payload, err := tx.core.table.wait(ctx, corr)
	if err != nil {
		if err == context.DeadlineExceeded || err == context.Canceled {
			// The responder may still answer after we stop waiting; drain
			// that eventual deposit in the background so it doesn't occupy
			// the single response slot forever and stall a later requester.
			go tx.core.table.wait(context.Background(), corr)
			return nil, newError("Request", KindTimeout, ErrTimeout)
		}
		return nil, newError("Request", KindBrokenPipe, err)
	}
	if !some {
		return nil, nil
	}

	out, err := c.Decode(payload)
	if err != nil {
		return nil, newError("Request", KindDecode, err)
	}
	return &out, nil
}
