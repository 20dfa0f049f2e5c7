package queue

// ChainStats counts traffic between the two stores of a Chain.
type ChainStats struct {
	// Spilled is a number of pushes routed to the swap queue
	Spilled uint64 `json:"spilled"`
	// Drained is a number of items moved from the swap queue back into the primary queue
	Drained uint64 `json:"drained"`
}

// Chain puts a fast primary queue in front of a swap queue receiving what the primary cannot
// hold. Items are returned in push order regardless of the store they were kept in.
//
// Chain does not own the queues; they must outlive it.
type Chain struct {
	primary ByteQueue
	swap    ByteQueue
	stats   ChainStats
}

// NewChain composes primary and swap into one queue
func NewChain(primary, swap ByteQueue) *Chain {
	return &Chain{
		primary: primary,
		swap:    swap,
	}
}

// Push stores data in the primary queue, unless it is full or anything is waiting in swap.
// Once swap is used every push goes there until it has been drained.
func (c *Chain) Push(data []byte) bool {
	if c.swap.IsEmpty() && c.primary.WillFit(len(data)) {
		return c.primary.Push(data)
	}
	if c.swap.Push(data) {
		c.stats.Spilled++
		return true
	}
	return false
}

// Reserve routes like Push. It fails when the selected queue cannot reserve in place.
func (c *Chain) Reserve(size int) ([]byte, bool) {
	if c.swap.IsEmpty() && c.primary.WillFit(size) {
		if r, ok := c.primary.(Reserver); ok {
			return r.Reserve(size)
		}
		return nil, false
	}
	r, ok := c.swap.(Reserver)
	if !ok {
		return nil, false
	}
	payload, ok := r.Reserve(size)
	if ok {
		c.stats.Spilled++
	}
	return payload, ok
}

// Pop returns the oldest item. When primary is empty, items waiting in swap are first moved
// into primary for as long as they fit, so one call may move many items.
func (c *Chain) Pop() ([]byte, bool) {
	if c.primary.IsEmpty() {
		c.drain()
		if c.primary.IsEmpty() {
			// swap head is larger than primary can hold
			return c.swap.Pop()
		}
	}
	return c.primary.Pop()
}

func (c *Chain) drain() {
	for {
		next, ok := c.swap.Peek()
		if !ok || !c.primary.WillFit(len(next)) {
			return
		}
		item, ok := c.swap.Pop()
		if !ok {
			return
		}
		if !c.primary.Push(item) {
			panic("queue: chain lost an item moving it from swap to primary")
		}
		c.stats.Drained++
	}
}

// Peek returns the oldest item without removing it
func (c *Chain) Peek() ([]byte, bool) {
	if !c.primary.IsEmpty() {
		return c.primary.Peek()
	}
	return c.swap.Peek()
}

// WillFit reports whether Push would accept an item of size bytes. While swap holds items only
// swap is asked, because Push does not route to primary then.
func (c *Chain) WillFit(size int) bool {
	return c.swap.IsEmpty() && c.primary.WillFit(size) || c.swap.WillFit(size)
}

// UsedSpace sums space used in both queues
func (c *Chain) UsedSpace() uint64 {
	return c.primary.UsedSpace() + c.swap.UsedSpace()
}

// FreeSpace returns free space of swap while it holds items, since primary will not receive
// pushes until swap is drained, and free space of both queues otherwise.
func (c *Chain) FreeSpace() uint64 {
	if !c.swap.IsEmpty() {
		return c.swap.FreeSpace()
	}
	return c.primary.FreeSpace() + c.swap.FreeSpace()
}

// TotalSpace returns UsedSpace() + FreeSpace(). It shrinks while the chain is spilled, since
// free space of primary is not counted then.
func (c *Chain) TotalSpace() uint64 {
	return c.UsedSpace() + c.FreeSpace()
}

// Len returns number of items kept in both queues
func (c *Chain) Len() int {
	return c.primary.Len() + c.swap.Len()
}

// IsEmpty reports whether both queues are empty
func (c *Chain) IsEmpty() bool {
	return c.primary.IsEmpty() && c.swap.IsEmpty()
}

// Clear discards items of both queues
func (c *Chain) Clear() {
	c.primary.Clear()
	c.swap.Clear()
}

// Primary returns the fast queue
func (c *Chain) Primary() ByteQueue {
	return c.primary
}

// Swap returns the overflow queue
func (c *Chain) Swap() ByteQueue {
	return c.swap
}

// Stats returns spill and drain counters
func (c *Chain) Stats() ChainStats {
	return c.stats
}
