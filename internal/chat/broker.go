// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"log"
	"sync"
)

// subscriberBuffer is the per-subscriber channel capacity. Chunk events are
// cumulative, so a dropped event is recovered by the next one.
const subscriberBuffer = 64

// =============================================================================
// EVENT BROKER
// =============================================================================

// Broker fans out stream events to subscribers keyed by conversation ID.
//
// Delivery is fire-and-forget: a slow subscriber whose buffer is full has
// the event dropped rather than stalling the publishing worker.
//
// The Broker is thread-safe for concurrent use.
type Broker struct {
	mu     sync.Mutex
	subs   map[string]map[int]chan Event
	nextID int
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[int]chan Event),
	}
}

// Subscribe registers a listener for one conversation's events. The returned
// cancel function detaches the listener and closes the channel; it is safe
// to call more than once. Subscribers attach and detach independently of
// worker lifetime.
func (b *Broker) Subscribe(conversationID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.subs[conversationID] == nil {
		b.subs[conversationID] = make(map[int]chan Event)
	}
	b.subs[conversationID][id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if m := b.subs[conversationID]; m != nil {
				delete(m, id)
				if len(m) == 0 {
					delete(b.subs, conversationID)
				}
			}
			// Closed under the lock so Publish never sends on a closed
			// channel.
			close(ch)
			b.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish delivers an event to every current subscriber of its conversation.
// Sends are non-blocking; events to full buffers are dropped with a log line.
func (b *Broker) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs[ev.ConversationID] {
		select {
		case ch <- ev:
		default:
			log.Printf("WARNING: dropping %s event for conversation %s: subscriber buffer full", ev.Type, ev.ConversationID)
		}
	}
}

// SubscriberCount returns the number of active subscribers for a
// conversation.
func (b *Broker) SubscriberCount(conversationID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[conversationID])
}
