package events

import (
	"sync"
	"sync/atomic"

	"subgraphd/internal/domain"
)

// Channel is the bounded FIFO lifecycle event stream. Any number of
// producers emit into it; exactly one consumer may take the receive side.
// A full buffer blocks producers rather than dropping events, and emission
// order is the process-wide order consumers observe.
type Channel struct {
	ch        chan domain.LifecycleEvent
	taken     atomic.Bool
	closeOnce sync.Once
}

func NewChannel(capacity int) *Channel {
	if capacity <= 0 {
		capacity = domain.DefaultEventBufferSize
	}
	return &Channel{
		ch: make(chan domain.LifecycleEvent, capacity),
	}
}

// Emit enqueues the event, blocking while the buffer is full. Emitting after
// Close panics: an event produced with nobody left to consume it means the
// process has violated its own shutdown ordering and must not limp on.
func (c *Channel) Emit(event domain.LifecycleEvent) {
	c.ch <- event
}

// Take hands out the receive side. Only the first call succeeds; the stream
// has a single consumer and handing it out twice would split the order.
func (c *Channel) Take() (<-chan domain.LifecycleEvent, bool) {
	if !c.taken.CompareAndSwap(false, true) {
		return nil, false
	}
	return c.ch, true
}

// Close ends the stream. The consumer sees the channel drain and close;
// producers that emit afterwards panic.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		close(c.ch)
	})
}
