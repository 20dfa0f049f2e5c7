package queue

// NotifyFunc is called when a consumer can read from a Notifier.
//
// It must Pop until the queue reports it is empty and then register itself again with Ready.
// A callback which stops earlier leaves items in the queue until the next push wakes a consumer.
type NotifyFunc func()

// Notifier wraps a queue and wakes registered consumers when data is pushed.
//
// Consumers are not handed items. Each wake-up is a single call of one waiting callback which
// pulls items itself, so a consumer pushing back into the queue from its callback does not
// recurse once per item.
type Notifier struct {
	queue         ByteQueue
	waiting       []NotifyFunc
	enabled       bool
	notifications uint64
}

// NewNotifier wraps q. The Notifier does not own q.
func NewNotifier(q ByteQueue) *Notifier {
	return &Notifier{
		queue:   q,
		enabled: true,
	}
}

// Ready registers fn for the next notification. When the queue already holds items and the
// notifier is not suspended fn is called right away, is not stored, and Ready returns true.
func (n *Notifier) Ready(fn NotifyFunc) bool {
	if n.enabled && !n.queue.IsEmpty() {
		n.notifications++
		fn()
		return true
	}
	n.waiting = append(n.waiting, fn)
	return false
}

// Push forwards data to the queue. On success the longest waiting consumer is notified.
func (n *Notifier) Push(data []byte) bool {
	if !n.queue.Push(data) {
		return false
	}
	n.notify()
	return true
}

// PushFunc pushes an item of size bytes built by fill. The item is written in place when the
// queue supports it. Consumers are notified after fill returns.
func (n *Notifier) PushFunc(size int, fill func([]byte)) bool {
	if r, ok := n.queue.(Reserver); ok {
		if payload, ok := r.Reserve(size); ok {
			fill(payload)
			n.notify()
			return true
		}
		if n.queue.WillFit(size) {
			// e.g. a chain whose selected store cannot reserve
			return n.pushCopy(size, fill)
		}
		return false
	}
	if !n.queue.WillFit(size) {
		return false
	}
	return n.pushCopy(size, fill)
}

func (n *Notifier) pushCopy(size int, fill func([]byte)) bool {
	buf := make([]byte, size)
	fill(buf)
	return n.Push(buf)
}

func (n *Notifier) notify() {
	if !n.enabled || len(n.waiting) == 0 {
		return
	}
	fn := n.waiting[0]
	n.waiting[0] = nil
	n.waiting = n.waiting[1:]
	n.notifications++
	fn()
}

// Pop returns the oldest item. A suspended notifier reports an empty queue.
func (n *Notifier) Pop() ([]byte, bool) {
	if !n.enabled {
		return nil, false
	}
	return n.queue.Pop()
}

// Peek returns the oldest item without removing it. A suspended notifier reports an empty queue.
func (n *Notifier) Peek() ([]byte, bool) {
	if !n.enabled {
		return nil, false
	}
	return n.queue.Peek()
}

// Suspend stops notifications and makes Pop report an empty queue. Pushes are still accepted.
func (n *Notifier) Suspend() {
	n.enabled = false
}

// Resume enables the notifier and calls every consumer waiting at this moment once.
// If a consumer suspends the notifier again the remaining ones keep waiting.
func (n *Notifier) Resume() {
	n.enabled = true

	pending := n.waiting
	n.waiting = nil
	for i, fn := range pending {
		if !n.enabled {
			n.waiting = append(pending[i:len(pending):len(pending)], n.waiting...)
			return
		}
		n.notifications++
		fn()
	}
}

// Suspended reports whether Suspend was called without a matching Resume
func (n *Notifier) Suspended() bool {
	return !n.enabled
}

// Waiting returns number of registered consumers
func (n *Notifier) Waiting() int {
	return len(n.waiting)
}

// Notifications returns number of callbacks invoked so far
func (n *Notifier) Notifications() uint64 {
	return n.notifications
}

// WillFit delegates to the wrapped queue
func (n *Notifier) WillFit(size int) bool {
	return n.queue.WillFit(size)
}

// UsedSpace delegates to the wrapped queue
func (n *Notifier) UsedSpace() uint64 {
	return n.queue.UsedSpace()
}

// FreeSpace delegates to the wrapped queue
func (n *Notifier) FreeSpace() uint64 {
	return n.queue.FreeSpace()
}

// TotalSpace delegates to the wrapped queue
func (n *Notifier) TotalSpace() uint64 {
	return n.queue.TotalSpace()
}

// Len delegates to the wrapped queue
func (n *Notifier) Len() int {
	return n.queue.Len()
}

// IsEmpty delegates to the wrapped queue
func (n *Notifier) IsEmpty() bool {
	return n.queue.IsEmpty()
}

// Clear delegates to the wrapped queue
func (n *Notifier) Clear() {
	n.queue.Clear()
}
