// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

// Package bus is the narrow publish/subscribe seam between the engine
// and external consumers (transport, dashboards, recorders). The
// in-process implementation keeps the coordination core free of any
// middleware dependency: swapping in a networked transport means
// implementing two methods.
package bus

import (
	"fmt"
	"sync"

	"github.com/muster-robotics/muster/lib/codec"
)

// Envelope is one published message. Payload is the CBOR encoding of
// whatever was published; subscribers decode with codec.Unmarshal.
type Envelope struct {
	Topic   string
	Sender  int
	Payload codec.RawMessage
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	return codec.Unmarshal(e.Payload, v)
}

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 64

// Bus is an in-process topic bus. Publishing never blocks: a
// subscriber that falls behind loses its oldest buffered message, not
// the publisher's tick budget.
type Bus struct {
	mu          sync.Mutex
	buffer      int
	subscribers map[string][]chan Envelope
	closed      bool
}

// New creates a bus. bufferSize <= 0 means DefaultBuffer.
func New(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = DefaultBuffer
	}
	return &Bus{
		buffer:      bufferSize,
		subscribers: make(map[string][]chan Envelope),
	}
}

// Publish encodes the message and delivers it to every subscriber of
// the topic. When a subscriber's buffer is full the oldest pending
// envelope is dropped to make room.
func (b *Bus) Publish(topic string, sender int, message any) error {
	payload, err := codec.Marshal(message)
	if err != nil {
		return fmt.Errorf("encoding message for topic %q: %w", topic, err)
	}
	envelope := Envelope{Topic: topic, Sender: sender, Payload: payload}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("publish on closed bus")
	}
	for _, ch := range b.subscribers[topic] {
		for {
			select {
			case ch <- envelope:
			default:
				// Full: drop the oldest and retry. The lock serializes
				// publishers, so the retry always succeeds.
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
	return nil
}

// Subscribe registers for a topic. The returned cancel function
// removes the subscription and closes the channel; it is safe to call
// more than once.
func (b *Bus) Subscribe(topic string) (<-chan Envelope, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Envelope, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subscribers[topic] = append(b.subscribers[topic], ch)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if b.closed {
				// Close already closed every channel.
				return
			}
			subs := b.subscribers[topic]
			for i, sub := range subs {
				if sub == ch {
					b.subscribers[topic] = append(subs[:i], subs[i+1:]...)
					break
				}
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Close shuts the bus down: all subscriber channels are closed and
// further publishes fail.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, subs := range b.subscribers {
		for _, ch := range subs {
			close(ch)
		}
	}
	b.subscribers = nil
}
