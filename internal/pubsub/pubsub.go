// Package pubsub is an in-process topic broker for job notifications and
// completion events.
//
// Delivery is best effort: a subscriber whose buffer is full misses the
// message. Durable work must never rely on delivery; the job queue treats a
// missed notification as a delayed pickup via polling, not a lost job.
package pubsub

import (
	"sync"
)

// defaultBuffer is the per-subscriber channel capacity.
const defaultBuffer = 16

type subscriber struct {
	ch chan []byte
}

// Broker fans published messages out to topic subscribers.
type Broker struct {
	mu     sync.RWMutex
	topics map[string][]*subscriber
	closed bool
}

// New builds an empty broker.
func New() *Broker {
	return &Broker{topics: make(map[string][]*subscriber)}
}

// Subscribe registers a buffered subscription to one topic. The returned
// cancel function removes the subscription and closes the channel; it is safe
// to call more than once.
func (b *Broker) Subscribe(topic string, buffer int) (<-chan []byte, func()) {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	sub := &subscriber{ch: make(chan []byte, buffer)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	b.topics[topic] = append(b.topics[topic], sub)
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			found := false
			subs := b.topics[topic]
			for i, candidate := range subs {
				if candidate == sub {
					b.topics[topic] = append(subs[:i], subs[i+1:]...)
					found = true
					break
				}
			}
			b.mu.Unlock()
			// Close already closed the channel if the broker shut down first.
			if found {
				close(sub.ch)
			}
		})
	}
	return sub.ch, cancel
}

// Publish delivers a message to every current subscriber of the topic without
// blocking. Subscribers with full buffers are skipped.
func (b *Broker) Publish(topic string, payload []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, sub := range b.topics[topic] {
		select {
		case sub.ch <- payload:
		default:
		}
	}
}

// Close drops every subscription and closes their channels. Publishing after
// Close is a no-op.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, subs := range b.topics {
		for _, sub := range subs {
			close(sub.ch)
		}
	}
	b.topics = make(map[string][]*subscriber)
}
