package duct

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// responseTable is the single-slot mailbox Rx deposits RESPONSE_SOME/
// RESPONSE_NONE frames into and Tx.Request callers park on. At most one
// completed response is buffered; a broadcast condvar wakes every waiter on
// every change so the one whose correlation-id matches can claim it.
type responseTable struct {
	mu       sync.Mutex
	cond     *sync.Cond
	occupied bool
	corr     uuid.UUID
	some     bool
	payload  []byte
	broken   error
}

func newResponseTable() *responseTable {
	t := &responseTable{}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// deposit is called by the Rx event loop when a RESPONSE_SOME/RESPONSE_NONE
// frame arrives. It blocks while a previous response still occupies the slot
// (the expectation, per the design, is that the waiting sender claims it
// promptly); it returns early without depositing if the table is broken.
func (t *responseTable) deposit(corr uuid.UUID, some bool, payload []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for t.occupied && t.broken == nil {
		t.cond.Wait()
	}
	if t.broken != nil {
		return
	}
	t.corr = corr
	t.some = some
	if some {
		t.payload = append(t.payload[:0], payload...)
	} else {
		t.payload = t.payload[:0]
	}
	t.occupied = true
	t.cond.Broadcast()
}

// markBroken marks the table permanently broken, releasing every parked
// waiter with err. Idempotent: only the first call's error sticks.
func (t *responseTable) markBroken(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.broken == nil {
		t.broken = err
	}
	t.cond.Broadcast()
}

func (t *responseTable) brokenErr() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.broken
}

// wait blocks until the slot holds a response correlated to want, the table
// is marked broken, or ctx is done. A nil ctx waits unboundedly.
func (t *responseTable) wait(ctx context.Context, want uuid.UUID) (some bool, payload []byte, err error) {
	if ctx != nil && ctx.Done() != nil {
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			select {
			case <-ctx.Done():
				t.mu.Lock()
				t.cond.Broadcast()
				t.mu.Unlock()
			case <-stop:
			}
		}()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for {
		if t.broken != nil {
			return false, nil, t.broken
		}
		if t.occupied && t.corr == want {
			some = t.some
			payload = append([]byte(nil), t.payload...)
			t.occupied = false
			t.cond.Broadcast()
			return some, payload, nil
		}
		if ctx != nil {
			select {
			case <-ctx.Done():
				return false, nil, ctx.Err()
			default:
			}
		}
		t.cond.Wait()
	}
}
