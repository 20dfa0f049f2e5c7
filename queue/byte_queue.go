package queue

import "errors"

// ByteQueue is a FIFO of variable-length binary items.
// Implementations are not thread safe; a single owner must serialize all calls.
type ByteQueue interface {
	// Push copies data at the end of the queue. It returns false, without side effects,
	// when the item does not fit.
	Push(data []byte) bool
	// Pop removes and returns the oldest item.
	Pop() ([]byte, bool)
	// Peek returns the oldest item without removing it.
	Peek() ([]byte, bool)
	// WillFit reports whether an item of size bytes would be accepted by Push.
	WillFit(size int) bool
	// UsedSpace returns number of bytes occupied by items and their headers
	UsedSpace() uint64
	// FreeSpace returns TotalSpace() - UsedSpace()
	FreeSpace() uint64
	// TotalSpace returns capacity of the queue in bytes
	TotalSpace() uint64
	// Len returns number of items kept in queue
	Len() int
	// IsEmpty reports whether Len() == 0
	IsEmpty() bool
	// Clear discards all items.
	Clear()
}

// Reserver is implemented by queues able to hand out a writable region of their own storage,
// so that callers can build an item in place instead of copying it in.
type Reserver interface {
	// Reserve pushes an item of exactly size bytes and returns it for the caller to fill.
	// The returned slice is only valid until the next call on the queue.
	Reserve(size int) ([]byte, bool)
}

var (
	// ErrTruncated is returned when a state stream ends before its fixed layout is complete.
	ErrTruncated = errors.New("queue: truncated state stream")
	// ErrCapacityMismatch is returned when a state stream was written by a queue of different capacity.
	ErrCapacityMismatch = errors.New("queue: state stream capacity mismatch")
	// ErrCorruptState is returned when decoded cursors do not describe a valid queue.
	ErrCorruptState = errors.New("queue: corrupt state")
)
