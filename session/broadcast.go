package session

import (
	"sync"
)

// Broadcaster fans session change events out to subscribers. Identity
// providers embed one so every provider shares the same delivery contract:
// events reach each subscriber in emit order, one at a time, and never after
// the subscriber's teardown function has returned.
type Broadcaster struct {
	mu     sync.Mutex
	seq    int
	subs   map[int]*subscriber
	closed bool
}

type subscriber struct {
	ch   chan Event
	done chan struct{}
	stop sync.Once
}

func (s *subscriber) cancel() {
	s.stop.Do(func() { close(s.done) })
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: map[int]*subscriber{},
	}
}

// Subscribe registers a new subscriber and returns its event channel plus a
// teardown function. After teardown returns no further event is delivered;
// calling it more than once is safe.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.seq
	b.seq++

	sub := &subscriber{
		ch:   make(chan Event, 16),
		done: make(chan struct{}),
	}

	if b.closed {
		close(sub.ch)
		return sub.ch, func() {}
	}

	b.subs[id] = sub

	return sub.ch, func() {
		// Unblock any in-flight delivery before taking the lock, then remove
		// and close the channel while no delivery can run.
		sub.cancel()
		b.mu.Lock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub.ch)
		}
		b.mu.Unlock()
	}
}

// Emit delivers the event to every current subscriber in registration order.
// Delivery blocks until the subscriber accepts the event or tears down, so a
// subscriber that keeps up observes every event in order. Sends happen under
// the broadcaster lock, so they cannot race a teardown's channel close.
func (b *Broadcaster) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for id := 0; id < b.seq; id++ {
		sub, ok := b.subs[id]
		if !ok {
			continue
		}
		select {
		case sub.ch <- event:
		case <-sub.done:
		}
	}
}

// Close tears down every subscription. Further Emit calls are no-ops.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for id, sub := range b.subs {
		sub.cancel()
		close(sub.ch)
		delete(b.subs, id)
	}
}
