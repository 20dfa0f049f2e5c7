package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/allegro/ringqueue"
	"github.com/allegro/ringqueue/queue"
)

var (
	capacity = flag.Int("capacity", queue.SizeFor(64, 32), "Ring buffer size in bytes.")
	swapKind = flag.String("swap", ringqueue.SwapMemory, "Swap kind: none, memory, file or sqlite.")
	maxItem  = flag.Int("maxItem", 96, "Max item size in bytes.")
	seed     = flag.Int64("seed", time.Now().UnixNano(), "Random seed.")
)

// fuzzPushPop pushes and pops random items, comparing the queue with a slice holding the
// items it accepted. It panics on the first difference.
func fuzzPushPop(ctx context.Context, q *ringqueue.Queue, rnd *rand.Rand) {
	var (
		expected [][]byte
		ops      = uint64(0)
		rejected = uint64(0)
	)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		switch r := rnd.Intn(100); {
		case r < 50:
			item := make([]byte, rnd.Intn(*maxItem+1))
			rnd.Read(item)
			if q.Push(item) {
				expected = append(expected, item)
			} else {
				rejected++
			}
		case r < 99:
			got, ok := q.Pop()
			if ok != (len(expected) > 0) {
				panic(fmt.Sprintf("pop returned %v with %d items expected", ok, len(expected)))
			}
			if ok {
				if !bytes.Equal(got, expected[0]) {
					panic(fmt.Sprintf("got:\n %x\n expected:\n %x\n ", got, expected[0]))
				}
				expected = expected[1:]
			}
		default:
			q.Clear()
			expected = expected[:0]
		}

		if q.Len() != len(expected) {
			panic(fmt.Sprintf("queue holds %d items, expected %d", q.Len(), len(expected)))
		}
		if q.UsedSpace()+q.FreeSpace() != q.TotalSpace() {
			panic(fmt.Sprintf("used %d + free %d != total %d", q.UsedSpace(), q.FreeSpace(), q.TotalSpace()))
		}
		if err := q.Err(); err != nil {
			panic(err)
		}

		if ops++; ops%1000000 == 0 {
			stats := q.Stats()
			fmt.Printf("Ops %d rejected %d spilled %d drained %d \n", ops, rejected, stats.Spilled, stats.Drained)
		}
	}
}

func main() {
	flag.Parse()

	dir, err := os.MkdirTemp("", "ringqueue-fuzz")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	config := ringqueue.Config{
		Capacity: *capacity,
		Swap: ringqueue.SwapConfig{
			Kind:     *swapKind,
			Path:     filepath.Join(dir, "swap"),
			MaxBytes: uint64(*capacity) * 16,
		},
	}
	q, err := ringqueue.New(config)
	if err != nil {
		panic(err)
	}
	defer q.Close()

	sigs := make(chan os.Signal, 1)
	ctx, cancel := context.WithCancel(context.Background())
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	fmt.Printf("Seed %d, press ctrl-c to exit\n", *seed)

	done := make(chan struct{})
	go func() {
		fuzzPushPop(ctx, q, rand.New(rand.NewSource(*seed)))
		close(done)
	}()

	<-sigs
	fmt.Println("Exiting...")
	cancel()
	<-done
}
