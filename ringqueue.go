// Package ringqueue is a FIFO queue of binary items kept in one reusable byte buffer. Items the
// buffer cannot hold spill into a swap queue in memory, in a file or in SQLite, and registered
// consumers are woken when data arrives.
//
// Queue is not thread safe. It is meant to be owned by a single goroutine or event loop.
package ringqueue

import (
	"errors"
	"fmt"
	"io"

	"github.com/allegro/ringqueue/filequeue"
	"github.com/allegro/ringqueue/queue"
	"github.com/allegro/ringqueue/sqlqueue"
)

// Queue composes a ring buffer, an optional swap queue and consumer notifications.
type Queue struct {
	config   Config
	logger   Logger
	ring     *queue.RingQueue
	swap     queue.ByteQueue
	chain    *queue.Chain
	notifier *queue.Notifier
	metrics  metrics
}

var _ queue.ByteQueue = (*Queue)(nil)

// New initialize new instance of Queue
func New(config Config) (*Queue, error) {
	if err := config.valid(); err != nil {
		return nil, err
	}
	logger := newLogger(config.Logger, config.Verbose)

	var allocator queue.Allocator = queue.HeapAllocator{}
	if config.Allocator == AllocatorMmap {
		allocator = queue.MmapAllocator{}
	}
	ring, err := queue.NewRingQueueWithAllocator(config.Capacity, allocator)
	if err != nil {
		return nil, fmt.Errorf("allocating ring of %d bytes: %w", config.Capacity, err)
	}

	swap, err := openSwap(config, logger)
	if err != nil {
		if closeErr := ring.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("releasing ring: %w", closeErr))
		}
		return nil, err
	}

	q := &Queue{
		config: config,
		logger: logger,
		ring:   ring,
		swap:   swap,
	}
	var store queue.ByteQueue = ring
	if swap != nil {
		q.chain = queue.NewChain(ring, swap)
		store = q.chain
		if !swap.IsEmpty() {
			logger.Printf("Resumed %d items from %s swap", swap.Len(), config.Swap.Kind)
		}
	}
	q.notifier = queue.NewNotifier(store)
	return q, nil
}

func openSwap(config Config, logger Logger) (queue.ByteQueue, error) {
	swap := config.Swap
	switch swap.Kind {
	case SwapMemory:
		capacity, maxCapacity := config.Capacity, int(swap.MaxBytes)
		if maxCapacity > 0 && capacity > maxCapacity {
			capacity = maxCapacity
		}
		q := queue.NewBytesQueue(capacity, maxCapacity, config.Verbose)
		q.SetLogger(logger)
		return q, nil
	case SwapFile:
		q, err := filequeue.Open(filequeue.Config{
			Path:      swap.Path,
			IndexPath: swap.IndexPath,
			MaxBytes:  swap.MaxBytes,
			Compress:  swap.Compress,
			Logger:    logger,
		})
		if err != nil {
			return nil, fmt.Errorf("opening file swap: %w", err)
		}
		return q, nil
	case SwapSQLite:
		q, err := sqlqueue.Open(sqlqueue.Config{
			Path:     swap.Path,
			MaxBytes: swap.MaxBytes,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("opening sqlite swap: %w", err)
		}
		return q, nil
	}
	return nil, nil
}

// Push copies data at the end of the queue and wakes the longest waiting consumer.
// Returns false when neither the ring nor the swap can hold it.
func (q *Queue) Push(data []byte) bool {
	spilled := q.spilled()
	ok := q.notifier.Push(data)
	q.recordPush(ok, spilled)
	return ok
}

// PushFunc pushes an item of size bytes built in place by fill
func (q *Queue) PushFunc(size int, fill func([]byte)) bool {
	spilled := q.spilled()
	ok := q.notifier.PushFunc(size, fill)
	q.recordPush(ok, spilled)
	return ok
}

func (q *Queue) recordPush(ok, spilled bool) {
	q.metrics.recordPush(ok)
	if ok && !spilled && q.spilled() {
		q.logger.Printf("Ring full, spilling to %s swap; Ring used: %d of %d bytes",
			q.config.Swap.Kind, q.ring.UsedSpace(), q.ring.TotalSpace())
	}
}

// Pop removes and returns the oldest item. The slice is only valid until the next call.
func (q *Queue) Pop() ([]byte, bool) {
	spilled := q.spilled()
	item, ok := q.notifier.Pop()
	q.metrics.recordPop(ok)
	if spilled && !q.spilled() {
		q.logger.Printf("Drained %s swap", q.config.Swap.Kind)
	}
	return item, ok
}

func (q *Queue) spilled() bool {
	return q.swap != nil && !q.swap.IsEmpty()
}

// Peek returns the oldest item without removing it
func (q *Queue) Peek() ([]byte, bool) {
	return q.notifier.Peek()
}

// WillFit reports whether Push would accept an item of size bytes
func (q *Queue) WillFit(size int) bool {
	return q.notifier.WillFit(size)
}

// UsedSpace returns number of bytes taken in the ring and the swap
func (q *Queue) UsedSpace() uint64 {
	return q.notifier.UsedSpace()
}

// FreeSpace returns TotalSpace() - UsedSpace()
func (q *Queue) FreeSpace() uint64 {
	return q.notifier.FreeSpace()
}

// TotalSpace returns capacity of the ring and the swap in bytes
func (q *Queue) TotalSpace() uint64 {
	return q.notifier.TotalSpace()
}

// Len returns number of items in queue
func (q *Queue) Len() int {
	return q.notifier.Len()
}

// IsEmpty reports whether there are no items in queue
func (q *Queue) IsEmpty() bool {
	return q.notifier.IsEmpty()
}

// Clear discards all items, including the ones in swap. Waiting consumers stay registered.
func (q *Queue) Clear() {
	q.notifier.Clear()
}

// Ready registers fn to be called when data is pushed. It is called right away, and Ready
// returns true, when the queue already holds items.
func (q *Queue) Ready(fn queue.NotifyFunc) bool {
	return q.notifier.Ready(fn)
}

// Suspend stops notifications. Pop and Peek report an empty queue until Resume.
func (q *Queue) Suspend() {
	q.notifier.Suspend()
}

// Resume enables notifications and wakes every waiting consumer once
func (q *Queue) Resume() {
	q.notifier.Resume()
}

// Suspended reports whether the queue is suspended
func (q *Queue) Suspended() bool {
	return q.notifier.Suspended()
}

// Waiting returns number of registered consumers
func (q *Queue) Waiting() int {
	return q.notifier.Waiting()
}

// Stats returns queue's statistics
func (q *Queue) Stats() Stats {
	var chain queue.ChainStats
	if q.chain != nil {
		chain = q.chain.Stats()
	}
	return q.metrics.get(chain, q.notifier.Notifications())
}

// Err returns the error latched by a file or sqlite swap
func (q *Queue) Err() error {
	if s, ok := q.swap.(interface{ Err() error }); ok {
		return s.Err()
	}
	return nil
}

// Close releases the ring buffer and closes the swap. The queue must not be used afterwards.
func (q *Queue) Close() error {
	var errs []error
	if c, ok := q.swap.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s swap: %w", q.config.Swap.Kind, err))
		}
	}
	if err := q.ring.Close(); err != nil {
		errs = append(errs, fmt.Errorf("releasing ring: %w", err))
	}
	return errors.Join(errs...)
}
