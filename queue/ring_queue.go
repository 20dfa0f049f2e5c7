package queue

// RingQueue is a non-thread safe fifo queue of variable-length items stored in one fixed
// buffer which is reused circularly. Writes wrap to the start of the buffer when the tail
// lacks room. Push never allocates.
//
// Slices returned by Pop, Peek and Reserve point into the queue buffer and are only valid
// until the next mutating call.
type RingQueue struct {
	state     ringState
	allocator Allocator
}

// SizeFor returns the capacity needed to hold exactly items entries of itemSize bytes.
func SizeFor(items, itemSize int) int {
	return items * pushSize(itemSize)
}

// NewRingQueue initialize new ring queue with capacity bytes allocated on the heap.
func NewRingQueue(capacity int) *RingQueue {
	q, err := NewRingQueueWithAllocator(capacity, HeapAllocator{})
	if err != nil {
		panic(err)
	}
	return q
}

// NewRingQueueWithAllocator initialize new ring queue whose buffer is obtained from allocator.
// The buffer is returned to the same allocator by Close.
func NewRingQueueWithAllocator(capacity int, allocator Allocator) (*RingQueue, error) {
	data, err := allocator.Create(capacity)
	if err != nil {
		return nil, err
	}
	return &RingQueue{
		state:     ringState{data: data},
		allocator: allocator,
	}, nil
}

// Push copies data at the end of queue. Returns false if it does not fit.
// Zero-length items are valid.
func (q *RingQueue) Push(data []byte) bool {
	ok := q.state.push(data)
	q.state.assertInvariants()
	return ok
}

// Reserve pushes an item of size bytes and returns the region to fill it in place.
func (q *RingQueue) Reserve(size int) ([]byte, bool) {
	payload, ok := q.state.reserve(size)
	q.state.assertInvariants()
	return payload, ok
}

// Pop reads the oldest entry from queue and moves read cursor to the next one
func (q *RingQueue) Pop() ([]byte, bool) {
	item, ok := q.state.pop()
	q.state.assertInvariants()
	return item, ok
}

// Peek reads the oldest entry from queue without moving read cursor
func (q *RingQueue) Peek() ([]byte, bool) {
	return q.state.peek()
}

// WillFit reports whether an item of size bytes can be pushed now.
func (q *RingQueue) WillFit(size int) bool {
	return q.state.willFit(size)
}

// UsedSpace returns number of bytes taken by items and their headers
func (q *RingQueue) UsedSpace() uint64 {
	return uint64(q.state.used())
}

// FreeSpace returns number of bytes not taken by items. Not all of it has to be usable for a
// single item, see WillFit.
func (q *RingQueue) FreeSpace() uint64 {
	return q.TotalSpace() - q.UsedSpace()
}

// TotalSpace returns number of allocated bytes for queue
func (q *RingQueue) TotalSpace() uint64 {
	return uint64(len(q.state.data))
}

// Len returns number of entries kept in queue
func (q *RingQueue) Len() int {
	return q.state.items
}

// IsEmpty reports whether there are no entries in queue
func (q *RingQueue) IsEmpty() bool {
	return q.state.items == 0
}

// Clear discards all entries. The buffer is kept.
func (q *RingQueue) Clear() {
	q.state.clear()
	q.state.assertInvariants()
}

// Close returns the buffer to the allocator. The queue must not be used afterwards.
func (q *RingQueue) Close() error {
	data := q.state.data
	q.state = ringState{}
	if data == nil {
		return nil
	}
	return q.allocator.Dispose(data)
}
