package queue

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPushAndPop(t *testing.T) {
	t.Parallel()

	// given
	queue := NewBytesQueue(10, 0, true)
	entry := []byte("hello")

	// when
	queue.Push(entry)

	// then
	assert.Equal(t, entry, pop(queue))
}

func TestPeek(t *testing.T) {
	t.Parallel()

	// given
	queue := NewBytesQueue(100, 0, false)
	entry := []byte("hello")
	queue.Push(entry)

	// when
	read, _ := queue.Peek()

	// then
	assert.Equal(t, pop(queue), read)
	assert.Equal(t, entry, read)
}

func TestReuseAvailableSpace(t *testing.T) {
	t.Parallel()

	// given
	queue := NewBytesQueue(20, 0, false)

	// when
	queue.Push([]byte("hello1"))
	queue.Push([]byte("hello2"))
	queue.Pop()
	queue.Push([]byte("hello3"))

	// then
	assert.Equal(t, 20, queue.Capacity())
	assert.Equal(t, []byte("hello2"), pop(queue))
	assert.Equal(t, []byte("hello3"), pop(queue))
}

func TestAllocateAdditionalSpace(t *testing.T) {
	t.Parallel()

	// given
	queue := NewBytesQueue(11, 0, false)

	// when
	queue.Push([]byte("hello1"))
	queue.Push([]byte("hello2"))

	// then
	assert.Equal(t, 22, queue.Capacity())
	assert.Equal(t, []byte("hello1"), pop(queue))
	assert.Equal(t, []byte("hello2"), pop(queue))
}

func TestAllocateAdditionalSpaceForInsufficientFreeFragmentedSpaceWhereHeadIsBeforeTail(t *testing.T) {
	t.Parallel()

	// given
	queue := NewBytesQueue(20, 0, false)

	// when
	queue.Push([]byte("msg"))    // header + msg = 7bytes
	queue.Push([]byte("hello1")) // 10 bytes
	queue.Pop()                  // space freed, 10 bytes available
	queue.Push([]byte("toobig")) // 10 bytes needed, 10 available but not in one segment, allocate additional memory

	// then
	assert.Equal(t, 40, queue.Capacity())
	assert.Equal(t, []byte("hello1"), pop(queue))
	assert.Equal(t, []byte("toobig"), pop(queue))
}

func TestAllocateAdditionalSpaceForInsufficientFreeFragmentedSpaceWhereTailIsBeforeHead(t *testing.T) {
	t.Parallel()

	// given
	queue := NewBytesQueue(20, 0, false)

	// when
	queue.Push([]byte("hello1")) // header + msg = 10 bytes
	queue.Push([]byte("msg"))    // 7 bytes
	queue.Pop()                  // 13 bytes available - 10 at the beginning and 3 at the end
	queue.Push([]byte("a"))      // 5 bytes used at the beginning, tail pointer is before head pointer
	queue.Push([]byte("ab"))     // 6 bytes needed but no available in one segment, allocate new memory

	// then
	assert.Equal(t, 40, queue.Capacity())
	assert.Equal(t, []byte("msg"), pop(queue))
	assert.Equal(t, []byte("a"), pop(queue))
	assert.Equal(t, []byte("ab"), pop(queue))
}

func TestAllocateAdditionalSpaceForValueBiggerThanInitQueue(t *testing.T) {
	t.Parallel()

	// given
	queue := NewBytesQueue(11, 0, false)

	// when
	queue.Push(make([]byte, 100))

	// then
	assert.Equal(t, make([]byte, 100), pop(queue))
	assert.Equal(t, 208, queue.Capacity())
}

func TestAllocateAdditionalSpaceForValueBiggerThanQueue(t *testing.T) {
	t.Parallel()

	// given
	queue := NewBytesQueue(20, 0, false)

	// when
	queue.Push(make([]byte, 2))
	queue.Push(make([]byte, 2))
	queue.Push(make([]byte, 100))

	// then
	queue.Pop()
	queue.Pop()
	assert.Equal(t, make([]byte, 100), pop(queue))
	assert.Equal(t, 232, queue.Capacity())
}

func TestPopWholeQueue(t *testing.T) {
	t.Parallel()

	// given
	queue := NewBytesQueue(10, 0, false)

	// when
	queue.Push([]byte("a"))
	queue.Push([]byte("b"))
	queue.Pop()
	queue.Pop()
	queue.Push([]byte("c"))

	// then
	assert.Equal(t, 10, queue.Capacity())
	assert.Equal(t, []byte("c"), pop(queue))
}

func TestMaxCapacityLimitsGrowth(t *testing.T) {
	t.Parallel()

	// given
	queue := NewBytesQueue(10, 20, false)

	// when
	first := queue.Push(blob('a', 6))
	second := queue.Push(blob('b', 6))
	third := queue.Push(blob('c', 6))

	// then
	assert.True(t, first)
	assert.True(t, second)
	assert.False(t, third)
	assert.False(t, queue.WillFit(6))
	assert.False(t, queue.WillFit(-4))
	assert.Equal(t, 20, queue.Capacity())
	assert.Equal(t, blob('a', 6), pop(queue))
	assert.True(t, queue.WillFit(6))
}

func TestGrowFromZeroCapacity(t *testing.T) {
	t.Parallel()

	// given
	queue := NewBytesQueue(0, 0, false)

	// when
	ok := queue.Push([]byte("hello"))

	// then
	assert.True(t, ok)
	assert.Equal(t, 18, queue.Capacity())
	assert.Equal(t, queue.TotalSpace(), queue.UsedSpace()+queue.FreeSpace())
	assert.Equal(t, []byte("hello"), pop(queue))
}

func TestVerboseAllocationIsLogged(t *testing.T) {
	t.Parallel()

	// given
	logger := &recordingLogger{}
	queue := NewBytesQueue(4, 0, true)
	queue.SetLogger(logger)

	// when
	queue.Push([]byte("hello"))

	// then
	if assert.Len(t, logger.messages, 1) {
		assert.Contains(t, logger.messages[0], "Allocated new queue in")
		assert.Contains(t, logger.messages[0], "Capacity: 18")
	}
}

func TestBytesQueueReserveGrows(t *testing.T) {
	t.Parallel()

	// given
	queue := NewBytesQueue(4, 0, false)

	// when
	payload, ok := queue.Reserve(3)
	copy(payload, "abc")

	// then
	assert.True(t, ok)
	assert.Equal(t, []byte("abc"), pop(queue))
	queue.Clear()
	assert.True(t, queue.IsEmpty())
}

func TestWillFitRejectsSizesHeaderCannotHold(t *testing.T) {
	t.Parallel()

	cases := map[string]*BytesQueue{
		"unbounded": NewBytesQueue(16, 0, false),
		"bounded":   NewBytesQueue(16, 64, false),
	}
	for name, queue := range cases {
		queue := queue
		t.Run(name, func(t *testing.T) {
			// when
			over4GiB := queue.WillFit(1 << 33)
			maxInt := queue.WillFit(math.MaxInt)
			_, reserved := queue.Reserve(math.MaxInt)

			// then
			assert.False(t, over4GiB)
			assert.False(t, maxInt)
			assert.False(t, reserved)
			assert.Equal(t, 16, queue.Capacity())
			assert.True(t, queue.IsEmpty())
		})
	}
}
