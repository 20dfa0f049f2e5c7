package queue

import (
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriterPushesOneItemPerWrite(t *testing.T) {
	t.Parallel()

	// given
	queue := NewRingQueue(SizeFor(2, 5))
	w := NewWriter(queue)

	// when
	n1, err1 := w.Write([]byte("hello"))
	n2, err2 := fmt.Fprint(w, "world")
	n3, err3 := w.Write([]byte("again"))

	// then
	assert.Equal(t, 5, n1)
	assert.NoError(t, err1)
	assert.Equal(t, 5, n2)
	assert.NoError(t, err2)
	assert.Equal(t, 0, n3)
	assert.True(t, IsWouldBlock(err3))
	assert.Equal(t, 2, queue.Len())
}

func TestReaderPopsOneItemPerRead(t *testing.T) {
	t.Parallel()

	// given
	queue := NewRingQueue(64)
	queue.Push([]byte("hello"))
	queue.Push([]byte("longer item"))
	r := NewReader(queue)
	buf := make([]byte, 8)

	// when
	n, err := r.Read(buf)

	// then
	assert.NoError(t, err)
	assert.Equal(t, []byte("hello"), buf[:n])

	// when
	n, err = r.Read(buf)

	// then
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.ErrShortBuffer)
	assert.Equal(t, 1, queue.Len())

	// when
	queue.Pop()
	_, err = r.Read(buf)

	// then
	assert.ErrorIs(t, err, ErrWouldBlock)
}
