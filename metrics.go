package ringqueue

import "github.com/allegro/ringqueue/queue"

// metrics counts operations of the facade. Spill, drain and notification counters live in
// the chain and the notifier and are merged in by get.
type metrics struct {
	pushes   uint64
	rejected uint64
	pops     uint64
}

func (m *metrics) recordPush(ok bool) {
	if ok {
		m.pushes++
	} else {
		m.rejected++
	}
}

func (m *metrics) recordPop(ok bool) {
	if ok {
		m.pops++
	}
}

func (m *metrics) get(chain queue.ChainStats, notifications uint64) Stats {
	return Stats{
		Pushes:        m.pushes,
		Rejected:      m.rejected,
		Pops:          m.pops,
		Spilled:       chain.Spilled,
		Drained:       chain.Drained,
		Notifications: notifications,
	}
}
