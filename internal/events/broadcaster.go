// Package events fans debate progress events out to live observers. One
// shared stream carries all tasks; consumers filter on task id.
package events

import (
	"sync"

	"github.com/mailcouncil/internal/metrics"
	"github.com/mailcouncil/pkg/models"
)

// DefaultBuffer is the per-subscriber channel capacity when none is
// configured.
const DefaultBuffer = 64

// Broadcaster delivers events to any number of live subscribers. Publish
// never blocks and never fails: a subscriber that stops draining loses its
// oldest buffered events, not the publisher's time. There is no replay; a
// subscriber sees only events published while it is attached.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscriber
	nextID uint64
	buffer int
	closed bool
}

// Subscriber is one observer's live event stream.
type Subscriber struct {
	id   uint64
	ch   chan models.Event
	b    *Broadcaster
	once sync.Once
}

// NewBroadcaster creates a broadcaster with the given per-subscriber buffer
// capacity.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Broadcaster{
		subs:   make(map[uint64]*Subscriber),
		buffer: buffer,
	}
}

// Subscribe attaches a new observer. After Close on the broadcaster the
// returned subscriber's channel is already closed.
func (b *Broadcaster) Subscribe() *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := &Subscriber{
		id: b.nextID,
		ch: make(chan models.Event, b.buffer),
		b:  b,
	}
	b.nextID++

	if b.closed {
		close(s.ch)
		return s
	}

	b.subs[s.id] = s
	metrics.EventSubscribers.Inc()
	return s
}

// Publish delivers the event to every live subscriber without blocking.
// When a subscriber's buffer is full, its oldest buffered event is evicted
// to make room for the new one.
func (b *Broadcaster) Publish(ev models.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, s := range b.subs {
		select {
		case s.ch <- ev:
			continue
		default:
		}

		// Buffer full: drop the oldest entry, then try once more. A
		// concurrent publisher may win the freed slot, in which case this
		// event is dropped too; the publisher never waits either way.
		select {
		case <-s.ch:
			metrics.EventsDropped.Inc()
		default:
		}
		select {
		case s.ch <- ev:
		default:
			metrics.EventsDropped.Inc()
		}
	}
}

// Close shuts the broadcaster down and closes every subscriber stream.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for id, s := range b.subs {
		delete(b.subs, id)
		close(s.ch)
		metrics.EventSubscribers.Dec()
	}
}

// Events is the receive side of the subscription. The channel closes when
// the subscriber or the broadcaster is closed.
func (s *Subscriber) Events() <-chan models.Event {
	return s.ch
}

// Close detaches the subscriber and releases its buffer. Safe to call more
// than once and safe against concurrent publishes; the write lock
// guarantees no Publish is mid-send when the channel closes.
func (s *Subscriber) Close() {
	s.once.Do(func() {
		s.b.mu.Lock()
		defer s.b.mu.Unlock()

		if _, ok := s.b.subs[s.id]; !ok {
			// Broadcaster shutdown already closed this stream.
			return
		}
		delete(s.b.subs, s.id)
		close(s.ch)
		metrics.EventSubscribers.Dec()
	})
}
