package ringqueue

import (
	"encoding/binary"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/allegro/ringqueue/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStressSingleOwner feeds one queue owner from many producer goroutines and checks that
// every producer's items come out in the order it sent them, while the ring keeps spilling
// to a file swap.
func TestStressSingleOwner(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping stress test in short mode")
	}

	const (
		producers        = 50
		itemsPerProducer = 10000
		memStatsInterval = 2 * time.Second
	)

	q, err := New(Config{
		Capacity: queue.SizeFor(256, 64),
		Swap: SwapConfig{
			Kind:     SwapFile,
			Path:     filepath.Join(t.TempDir(), "swap.data"),
			Compress: true,
		},
		Verbose: testing.Verbose(),
		Logger:  testLogger{t},
	})
	require.NoError(t, err)
	defer q.Close()

	// item: producer id u32, sequence u32, padding
	items := make(chan []byte, 1024)
	var producersWg sync.WaitGroup
	producersWg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(id int) {
			defer producersWg.Done()
			for seq := 0; seq < itemsPerProducer; seq++ {
				item := make([]byte, 8+seq%56)
				binary.LittleEndian.PutUint32(item[0:], uint32(id))
				binary.LittleEndian.PutUint32(item[4:], uint32(seq))
				items <- item
			}
		}(p)
	}
	go func() {
		producersWg.Wait()
		close(items)
	}()

	memStats := time.NewTicker(memStatsInterval)
	defer memStats.Stop()

	next := make([]uint32, producers)
	received := 0
	consume := func(limit int) {
		for i := 0; i < limit; i++ {
			item, ok := q.Pop()
			if !ok {
				return
			}
			id := binary.LittleEndian.Uint32(item[0:])
			seq := binary.LittleEndian.Uint32(item[4:])
			require.Equal(t, next[id], seq, "producer %d out of order", id)
			next[id]++
			received++
		}
	}

	pushed := 0
	startTime := time.Now()
	for open := true; open; {
		select {
		case item, ok := <-items:
			if !ok {
				open = false
				break
			}
			require.True(t, q.Push(item), "push rejected: %v", q.Err())
			// two pops per three pushes keep the ring spilling
			if pushed++; pushed%3 == 0 {
				consume(2)
			}
		case <-memStats.C:
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			t.Logf("Memory stats - Alloc: %v MB, Sys: %v MB, NumGC: %v, Queue: %v items, %v bytes",
				ms.Alloc/1024/1024, ms.Sys/1024/1024, ms.NumGC, q.Len(), q.UsedSpace())
		}
	}
	consume(q.Len())
	elapsed := time.Since(startTime)

	stats := q.Stats()
	t.Logf("Stress test completed in %v, %.2f items per second", elapsed, float64(received)/elapsed.Seconds())
	t.Logf("Stats: %+v", stats)

	assert.Equal(t, producers*itemsPerProducer, received)
	assert.True(t, q.IsEmpty())
	assert.NotZero(t, stats.Spilled)
	assert.Equal(t, stats.Pushes, stats.Pops)
	assert.NoError(t, q.Err())
}

type testLogger struct {
	t *testing.T
}

func (l testLogger) Printf(format string, v ...interface{}) {
	l.t.Logf(format, v...)
}
