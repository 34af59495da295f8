package duct

import (
	"os"
	"sync"
	"testing"

	"duct/codec"
)

func setupBenchChannel(b *testing.B) *Tx[greeting, sum] {
	b.Helper()
	parentSide, childSide := echoSumCodecs()

	aToBRead, aToBWrite, err := os.Pipe()
	if err != nil {
		b.Fatalf("pipe: %v", err)
	}
	bToARead, bToAWrite, err := os.Pipe()
	if err != nil {
		b.Fatalf("pipe: %v", err)
	}
	b.Cleanup(func() {
		aToBRead.Close()
		aToBWrite.Close()
		bToARead.Close()
		bToAWrite.Close()
	})

	var parentTx *Tx[greeting, sum]
	var parentRx *Rx[greeting, int]
	var childRx *Rx[greeting, sum]
	var parentErr, childErr error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		parentTx, parentRx, parentErr = New(aToBWrite, bToARead, parentSide)
	}()
	go func() {
		defer wg.Done()
		_, childRx, childErr = New(bToAWrite, aToBRead, childSide)
	}()
	wg.Wait()
	if parentErr != nil {
		b.Fatalf("New parent: %v", parentErr)
	}
	if childErr != nil {
		b.Fatalf("New child: %v", childErr)
	}

	go parentRx.Run(Handler[greeting, int]{})
	go childRx.Run(Handler[greeting, sum]{
		Request: func(msg sum, r *Responder) {
			Respond(r, codec.JSON[int](), msg.A+msg.B)
		},
	})

	return parentTx
}

// BenchmarkSerialRequest measures a single goroutine issuing requests one
// after another.
func BenchmarkSerialRequest(b *testing.B) {
	parentTx := setupBenchChannel(b)
	in := sum{A: 1, B: 2}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Request[int](parentTx, in, codec.JSON[int]()); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkConcurrentRequest measures many goroutines issuing requests over
// the same Tx simultaneously.
func BenchmarkConcurrentRequest(b *testing.B) {
	parentTx := setupBenchChannel(b)
	in := sum{A: 1, B: 2}
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := Request[int](parentTx, in, codec.JSON[int]()); err != nil {
				b.Fatal(err)
			}
		}
	})
}

// BenchmarkSendRPC measures the fire-and-forget path, which never parks on
// the response table.
func BenchmarkSendRPC(b *testing.B) {
	parentTx := setupBenchChannel(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := parentTx.SendRPC("Cow"); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkRequestWideFanout measures many concurrent callers each waiting on
// their own correlation id through the single-slot response table, the
// design's acknowledged tradeoff: response delivery serializes through Rx
// one slot at a time rather than pipelining.
func BenchmarkRequestWideFanout(b *testing.B) {
	parentTx := setupBenchChannel(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func(g int) {
				defer wg.Done()
				Request[int](parentTx, sum{A: g, B: g}, codec.JSON[int]())
			}(g)
		}
		wg.Wait()
	}
}
