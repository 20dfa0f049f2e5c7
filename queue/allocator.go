package queue

import "fmt"

// Allocator provides the backing buffer of a ring queue.
// Create is called once when the queue is built and Dispose once when it is closed.
type Allocator interface {
	Create(size int) ([]byte, error)
	Dispose(buf []byte) error
}

// HeapAllocator allocates buffers on the Go heap. Dispose leaves them to the garbage collector.
type HeapAllocator struct{}

// Create allocates size bytes
func (HeapAllocator) Create(size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("queue: invalid buffer size %d", size)
	}
	return make([]byte, size), nil
}

// Dispose is a no-op
func (HeapAllocator) Dispose([]byte) error {
	return nil
}
