// Command demo is a single self-spawning binary exercising both end-to-end
// scenarios a duct channel is built for: concurrent request/response
// (echo-sum) and RPC-only notification (animal sounds, then shutdown).
// Run it with no arguments; it re-execs itself as the child process using
// the pipeboot bootstrap, detecting which role it is playing by whether the
// bootstrap sentinel is present in its own argv.
package main

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"sync"
	"time"

	"duct"
	"duct/codec"
	"duct/pipeboot"

	"go.uber.org/zap"
)

type animal string

type sum struct{ A, B int }

// parentCodecs describes what the parent sends (animal RPCs, sum requests)
// and what it receives from the child (nothing in this demo, but the type
// parameters must still be fixed).
func parentCodecs() duct.Codecs[animal, sum, struct{}, struct{}] {
	return duct.Codecs[animal, sum, struct{}, struct{}]{
		RpcTx:     codec.JSON[animal](),
		RequestTx: codec.JSON[sum](),
		RpcRx:     codec.JSON[struct{}](),
		RequestRx: codec.JSON[struct{}](),
	}
}

func childCodecs() duct.Codecs[struct{}, struct{}, animal, sum] {
	return duct.Codecs[struct{}, struct{}, animal, sum]{
		RpcTx:     codec.JSON[struct{}](),
		RequestTx: codec.JSON[struct{}](),
		RpcRx:     codec.JSON[animal](),
		RequestRx: codec.JSON[sum](),
	}
}

func main() {
	childRead, childWrite, _, args, err := pipeboot.Child()
	if err == pipeboot.ErrNotChild {
		runParent()
		return
	}
	if err != nil {
		log.Fatalf("child bootstrap: %v", err)
	}
	runChild(childRead, childWrite, args)
}

func runParent() {
	logger := zap.NewNop().Sugar()

	self, err := os.Executable()
	if err != nil {
		log.Fatalf("find self: %v", err)
	}
	cmd := exec.Command(self, "viaduct test!")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	parentWrite, parentRead, _, err := pipeboot.Parent(cmd, false)
	if err != nil {
		log.Fatalf("spawn child: %v", err)
	}
	defer parentWrite.Close()
	defer parentRead.Close()

	tx, rx, err := duct.New(parentWrite, parentRead, parentCodecs(), duct.WithLogger(logger))
	if err != nil {
		log.Fatalf("handshake: %v", err)
	}

	go rx.Run(duct.Handler[struct{}, struct{}]{})

	fmt.Println("parent pid", os.Getpid())

	// S1: echo-sum, 5 concurrent requests.
	inputs := []sum{{1, 2}, {3, 4}, {5, 6}, {7, 8}, {9, 10}}
	var wg sync.WaitGroup
	for _, in := range inputs {
		wg.Add(1)
		go func(in sum) {
			defer wg.Done()
			out, err := duct.Request[int](tx, in, codec.JSON[int]())
			if err != nil {
				log.Printf("request %+v: %v", in, err)
				return
			}
			fmt.Printf("[PARENT] %d + %d = %d\n", in.A, in.B, *out)
		}(in)
	}
	wg.Wait()

	// S2: RPC-only notifications, then shutdown.
	for _, msg := range []animal{"Cow", "Pig", "Horse"} {
		if err := tx.SendRPC(msg); err != nil {
			log.Fatalf("SendRPC(%s): %v", msg, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err := tx.SendRPC("Shutdown"); err != nil {
		log.Fatalf("SendRPC(Shutdown): %v", err)
	}

	if err := cmd.Wait(); err != nil {
		log.Printf("child exited: %v", err)
	}

	// Confirm the channel really is broken now.
	if err := tx.SendRPC("Cow"); err == nil {
		log.Println("expected BrokenPipe after shutdown, got nil")
	} else {
		fmt.Println("[PARENT] post-shutdown SendRPC correctly observed:", err)
	}
}

func runChild(childRead, childWrite *os.File, args []string) {
	fmt.Println("child pid", os.Getpid(), "args", args)
	logger := zap.NewNop().Sugar()

	_, rx, err := duct.New(childWrite, childRead, childCodecs(), duct.WithLogger(logger))
	if err != nil {
		log.Fatalf("handshake: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		rx.Run(duct.Handler[animal, sum]{
			RPC: func(msg animal) {
				switch msg {
				case "Cow":
					fmt.Println("[CHILD] Moo")
				case "Pig":
					fmt.Println("[CHILD] Oink")
				case "Horse":
					fmt.Println("[CHILD] Neigh")
				case "Shutdown":
					fmt.Println("[CHILD] shutting down")
					childRead.Close()
				}
			},
			Request: func(msg sum, r *duct.Responder) {
				duct.Respond(r, codec.JSON[int](), msg.A+msg.B)
			},
		})
	}()

	<-done
}
