package queue

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// stateHeaderSize covers gap, writeTo, readFrom (u64 each), items (u32) and the data length (u64)
const stateHeaderSize = 8 + 8 + 8 + 4 + 8

// WriteTo writes the queue state to w so that it can be handed over to a queue of the same
// capacity with ReadFrom. Layout, little endian: gap u64, writeTo u64, readFrom u64, items u32,
// then the whole buffer prefixed with its length as u64.
func (q *RingQueue) WriteTo(w io.Writer) (int64, error) {
	var header [stateHeaderSize]byte
	binary.LittleEndian.PutUint64(header[0:], uint64(q.state.gap))
	binary.LittleEndian.PutUint64(header[8:], uint64(q.state.writeTo))
	binary.LittleEndian.PutUint64(header[16:], uint64(q.state.readFrom))
	binary.LittleEndian.PutUint32(header[24:], uint32(q.state.items))
	binary.LittleEndian.PutUint64(header[28:], uint64(len(q.state.data)))

	n, err := w.Write(header[:])
	written := int64(n)
	if err != nil {
		return written, err
	}
	n, err = w.Write(q.state.data)
	written += int64(n)
	return written, err
}

// ReadFrom replaces the queue state with one written by WriteTo. The queue is left untouched
// when the stream is truncated, comes from a queue of other capacity or is inconsistent.
func (q *RingQueue) ReadFrom(r io.Reader) (int64, error) {
	var header [stateHeaderSize]byte
	n, err := io.ReadFull(r, header[:])
	read := int64(n)
	if err != nil {
		return read, truncated(err)
	}

	length := binary.LittleEndian.Uint64(header[28:])
	if length != uint64(len(q.state.data)) {
		return read, fmt.Errorf("%w: stream has %d bytes, queue has %d", ErrCapacityMismatch, length, len(q.state.data))
	}

	restored := ringState{
		data:     make([]byte, length),
		gap:      int(binary.LittleEndian.Uint64(header[0:])),
		writeTo:  int(binary.LittleEndian.Uint64(header[8:])),
		readFrom: int(binary.LittleEndian.Uint64(header[16:])),
		items:    int(binary.LittleEndian.Uint32(header[24:])),
	}
	n, err = io.ReadFull(r, restored.data)
	read += int64(n)
	if err != nil {
		return read, truncated(err)
	}
	if err := restored.validateRecords(); err != nil {
		return read, err
	}

	copy(q.state.data, restored.data)
	q.state.gap = restored.gap
	q.state.writeTo = restored.writeTo
	q.state.readFrom = restored.readFrom
	q.state.items = restored.items
	q.state.assertInvariants()
	return read, nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return err
}
