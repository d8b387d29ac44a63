// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"fmt"
	"sync"
	"time"
)

type memorySubscription struct {
	onSnapshot func(Snapshot)
	onError    func(error)
}

// MemoryChannel is an in-process Channel. Publish delivers synchronously and
// keeps the last payload per topic, which new subscribers receive at once
// (the same behaviour as a retained MQTT message).
type MemoryChannel struct {
	mu           sync.Mutex
	subs         map[Topic]map[int]memorySubscription
	retained     map[Topic][]byte
	unsubscribed map[Topic]int
	nextID       int
}

// NewMemoryChannel creates an empty channel.
func NewMemoryChannel() *MemoryChannel {
	return &MemoryChannel{
		subs:         make(map[Topic]map[int]memorySubscription),
		retained:     make(map[Topic][]byte),
		unsubscribed: make(map[Topic]int),
	}
}

// Subscribe implements Channel.
func (m *MemoryChannel) Subscribe(topic Topic, onSnapshot func(Snapshot), onError func(error)) (Unsubscribe, error) {
	if onSnapshot == nil {
		return nil, fmt.Errorf("subscribe %s: nil snapshot handler", topic)
	}

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	if m.subs[topic] == nil {
		m.subs[topic] = make(map[int]memorySubscription)
	}
	m.subs[topic][id] = memorySubscription{onSnapshot: onSnapshot, onError: onError}
	retained, hasRetained := m.retained[topic]
	m.mu.Unlock()

	if hasRetained {
		onSnapshot(Snapshot{Topic: topic, Payload: retained, ReceivedAt: time.Now()})
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs[topic], id)
			m.unsubscribed[topic]++
			m.mu.Unlock()
		})
	}, nil
}

// Publish retains payload and hands it to every current subscriber of topic.
func (m *MemoryChannel) Publish(topic Topic, payload []byte) {
	m.mu.Lock()
	m.retained[topic] = append([]byte(nil), payload...)
	subs := m.subscribers(topic)
	m.mu.Unlock()

	for _, sub := range subs {
		sub.onSnapshot(Snapshot{Topic: topic, Payload: payload, ReceivedAt: time.Now()})
	}
}

// Fail reports a transport error to every subscriber of topic.
func (m *MemoryChannel) Fail(topic Topic, err error) {
	m.mu.Lock()
	subs := m.subscribers(topic)
	m.mu.Unlock()

	for _, sub := range subs {
		if sub.onError != nil {
			sub.onError(fmt.Errorf("%w: %v", ErrTransport, err))
		}
	}
}

// Subscribers returns the number of live subscriptions on topic.
func (m *MemoryChannel) Subscribers(topic Topic) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs[topic])
}

// Unsubscribed returns how many subscriptions on topic have been released.
func (m *MemoryChannel) Unsubscribed(topic Topic) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unsubscribed[topic]
}

// subscribers must be called with m.mu held.
func (m *MemoryChannel) subscribers(topic Topic) []memorySubscription {
	subs := make([]memorySubscription, 0, len(m.subs[topic]))
	for _, sub := range m.subs[topic] {
		subs = append(subs, sub)
	}
	return subs
}
