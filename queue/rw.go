package queue

import (
	"io"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock is returned by the io adapters when the queue is full (Write) or empty (Read).
// It is a control flow signal, not a failure: retry later.
var ErrWouldBlock = iox.ErrWouldBlock

// IsWouldBlock reports whether err means the operation would block.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

type writer struct {
	q ByteQueue
}

// NewWriter returns a writer pushing every Write call as one item of q.
func NewWriter(q ByteQueue) io.Writer {
	return writer{q: q}
}

func (w writer) Write(p []byte) (int, error) {
	if !w.q.Push(p) {
		return 0, ErrWouldBlock
	}
	return len(p), nil
}

type reader struct {
	q ByteQueue
}

// NewReader returns a reader popping one item of q per Read call.
// An item larger than the read buffer is left in the queue and io.ErrShortBuffer is returned.
func NewReader(q ByteQueue) io.Reader {
	return reader{q: q}
}

func (r reader) Read(p []byte) (int, error) {
	item, ok := r.q.Peek()
	if !ok {
		return 0, ErrWouldBlock
	}
	if len(item) > len(p) {
		return 0, io.ErrShortBuffer
	}
	n := copy(p, item)
	r.q.Pop()
	return n, nil
}
