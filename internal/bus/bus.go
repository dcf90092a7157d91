package bus

import (
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultBufSize is the subscriber channel buffer used when a caller
// passes a non-positive size.
const DefaultBufSize = 256

// Bus is a channel-based pub-sub event bus. It supports topic-scoped
// subscriptions and SubscribeAll for cross-topic consumers such as the
// monitor TUI.
type Bus struct {
	mu      sync.RWMutex
	subs    map[string][]chan Event // topic -> subscriber channels
	allSubs []chan Event            // channels subscribed to all topics
	closed  bool
	dropped atomic.Uint64
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		subs: make(map[string][]chan Event),
	}
}

// Subscribe creates a subscription to a specific topic. The returned
// channel receives every event published to that topic and is closed
// when the bus closes. bufSize defaults to DefaultBufSize if <= 0.
func (b *Bus) Subscribe(topic string, bufSize int) <-chan Event {
	if bufSize <= 0 {
		bufSize = DefaultBufSize
	}

	ch := make(chan Event, bufSize)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch
	}

	b.subs[topic] = append(b.subs[topic], ch)
	return ch
}

// SubscribeAll creates a subscription to every topic. bufSize defaults
// to DefaultBufSize if <= 0.
func (b *Bus) SubscribeAll(bufSize int) <-chan Event {
	if bufSize <= 0 {
		bufSize = DefaultBufSize
	}

	ch := make(chan Event, bufSize)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch
	}

	b.allSubs = append(b.allSubs, ch)
	return ch
}

// Publish sends an event to all subscribers of the given topic plus
// every SubscribeAll channel. Non-blocking: a subscriber whose buffer
// is full misses the event. Stamps event.Timestamp if unset.
func (b *Bus) Publish(topic string, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, ch := range b.subs[topic] {
		b.send(ch, topic, event)
	}
	for _, ch := range b.allSubs {
		b.send(ch, topic, event)
	}
}

func (b *Bus) send(ch chan Event, topic string, event Event) {
	select {
	case ch <- event:
	default:
		count := b.dropped.Add(1)
		if count%10 == 1 { // Log every 10th drop to avoid spam
			log.Printf("[bus] WARNING: subscriber buffer full, dropped event (total dropped: %d): topic=%s type=%s", count, topic, event.Type)
		}
	}
}

// Dropped returns the total number of events dropped across all
// subscribers since the bus was created.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close closes the bus and every subscriber channel. Safe to call
// multiple times.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, channels := range b.subs {
		for _, ch := range channels {
			close(ch)
		}
	}
	for _, ch := range b.allSubs {
		close(ch)
	}
}
