package duct

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"duct/frame"
)

// core is the state shared between a Tx handle (possibly duplicated across
// goroutines) and the Rx event loop that serves the same pipe pair: the
// writer mutex and scratch buffer, the response table Rx deposits into, the
// optional outbound throttle, and the logger. Tx[...] and Responder both
// hold a *core; Rx holds one too so it can mark the channel broken when its
// loop ends, per the "dropping the Rx" contract (spec testable property 6).
type core struct {
	mu      sync.Mutex
	fw      *frame.Writer
	limiter *rate.Limiter
	logger  *zap.SugaredLogger
	table   *responseTable
}

func newCore(fw *frame.Writer, limiter *rate.Limiter, logger *zap.SugaredLogger) *core {
	return &core{
		fw:      fw,
		limiter: limiter,
		logger:  logger,
		table:   newResponseTable(),
	}
}

func (c *core) throttle() error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(context.Background())
}

func (c *core) checkBroken() error {
	if err := c.table.brokenErr(); err != nil {
		return err
	}
	return nil
}

func (c *core) writeRPC(payload []byte) error {
	if err := c.checkBroken(); err != nil {
		return err
	}
	if err := c.throttle(); err != nil {
		return newError("SendRPC", KindBrokenPipe, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.fw.EncodeRPC(func([]byte) ([]byte, error) { return payload, nil })
	if err != nil {
		e := newError("SendRPC", KindBrokenPipe, err)
		c.table.markBroken(e)
		return e
	}
	return nil
}

func (c *core) writeRequest(corr uuid.UUID, payload []byte) error {
	if err := c.checkBroken(); err != nil {
		return err
	}
	if err := c.throttle(); err != nil {
		return newError("Request", KindBrokenPipe, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.fw.EncodeRequest(corr, func([]byte) ([]byte, error) { return payload, nil })
	if err != nil {
		e := newError("Request", KindBrokenPipe, err)
		c.table.markBroken(e)
		return e
	}
	return nil
}

func (c *core) writeResponseSome(corr uuid.UUID, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.fw.EncodeResponseSome(corr, func([]byte) ([]byte, error) { return payload, nil })
	if err != nil {
		e := newError("Respond", KindBrokenPipe, err)
		c.table.markBroken(e)
		return e
	}
	return nil
}

func (c *core) writeResponseNone(corr uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.fw.EncodeResponseNone(corr)
	if err != nil {
		e := newError("Respond", KindBrokenPipe, err)
		c.table.markBroken(e)
		return e
	}
	return nil
}
