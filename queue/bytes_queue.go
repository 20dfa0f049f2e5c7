package queue

import (
	"log"
	"time"
)

// BytesQueue is a non-thread safe queue type of fifo based on bytes array.
// It uses the same record layout as RingQueue but allocates more memory when an entry does not
// fit, which makes it suitable as an overflow store.
type BytesQueue struct {
	state       ringState
	maxCapacity int
	verbose     bool
	logger      Logger
}

// NewBytesQueue initialize new bytes queue.
// capacity is used in bytes array allocation, maxCapacity limits growth (0 means unlimited).
// When verbose flag is set then information about memory allocation are printed
func NewBytesQueue(capacity int, maxCapacity int, verbose bool) *BytesQueue {
	return &BytesQueue{
		state:       ringState{data: make([]byte, capacity)},
		maxCapacity: maxCapacity,
		verbose:     verbose,
		logger:      log.Default(),
	}
}

// SetLogger replaces the logger used in verbose mode
func (q *BytesQueue) SetLogger(logger Logger) {
	if logger != nil {
		q.logger = logger
	}
}

// Push copies entry at the end of queue. Allocates more space if needed.
// Returns false only when maxCapacity does not allow the entry.
func (q *BytesQueue) Push(data []byte) bool {
	payload, ok := q.Reserve(len(data))
	if !ok {
		return false
	}
	copy(payload, data)
	return true
}

// Reserve pushes an entry of size bytes and returns the region to fill it in place.
func (q *BytesQueue) Reserve(size int) ([]byte, bool) {
	if !validSize(size) {
		return nil, false
	}
	if !q.state.willFit(size) && !q.allocateAdditionalMemory(pushSize(size)) {
		return nil, false
	}
	payload, ok := q.state.reserve(size)
	q.state.assertInvariants()
	return payload, ok
}

func (q *BytesQueue) allocateAdditionalMemory(minimum int) bool {
	if minimum < headerEntrySize {
		return false
	}
	start := time.Now()
	needed := q.state.used() + minimum
	capacity := len(q.state.data) * 2
	if capacity < needed {
		capacity = needed * 2
	}
	if q.maxCapacity > 0 && capacity > q.maxCapacity {
		capacity = q.maxCapacity
	}
	if capacity < needed {
		return false
	}

	q.state.compactInto(make([]byte, capacity))

	if q.verbose {
		q.logger.Printf("Allocated new queue in %s; Capacity: %d \n", time.Since(start), capacity)
	}
	return true
}

// Pop reads the oldest entry from queue and moves head pointer to the next one
func (q *BytesQueue) Pop() ([]byte, bool) {
	item, ok := q.state.pop()
	q.state.assertInvariants()
	return item, ok
}

// Peek reads the oldest entry from list without moving head pointer
func (q *BytesQueue) Peek() ([]byte, bool) {
	return q.state.peek()
}

// WillFit reports whether an entry of size bytes fits now or after growing
func (q *BytesQueue) WillFit(size int) bool {
	if !validSize(size) {
		return false
	}
	if q.state.willFit(size) {
		return true
	}
	return q.maxCapacity == 0 || q.state.used()+pushSize(size) <= q.maxCapacity
}

// UsedSpace returns number of bytes taken by entries and their headers
func (q *BytesQueue) UsedSpace() uint64 {
	return uint64(q.state.used())
}

// FreeSpace returns number of allocated bytes not taken by entries
func (q *BytesQueue) FreeSpace() uint64 {
	return q.TotalSpace() - q.UsedSpace()
}

// TotalSpace returns number of currently allocated bytes for queue
func (q *BytesQueue) TotalSpace() uint64 {
	return uint64(len(q.state.data))
}

// Capacity returns number of allocated bytes for queue
func (q *BytesQueue) Capacity() int {
	return len(q.state.data)
}

// Len returns number of entries kept in queue
func (q *BytesQueue) Len() int {
	return q.state.items
}

// IsEmpty reports whether there are no entries in queue
func (q *BytesQueue) IsEmpty() bool {
	return q.state.items == 0
}

// Clear discards all entries, allocated memory is kept
func (q *BytesQueue) Clear() {
	q.state.clear()
	q.state.assertInvariants()
}
