// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package telemetry delivers live snapshots from the tracked device. A Channel
// hands out raw payloads untouched; ParseHeartRate and ParseLocation decide
// whether a payload is usable.
package telemetry

import (
	"errors"
	"time"
)

// Topic names one of the independent live feeds.
type Topic string

const (
	TopicHeartRate Topic = "heartRate"
	TopicLocation  Topic = "location"
)

var (
	// ErrInvalidPayload marks a snapshot that failed validation.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrTransport marks a subscription-level failure (network, broker, auth).
	ErrTransport = errors.New("channel transport error")
)

// Snapshot is one value delivered on a topic.
type Snapshot struct {
	Topic      Topic
	Payload    []byte
	ReceivedAt time.Time
}

// Unsubscribe releases a subscription. Calling it more than once is a no-op.
type Unsubscribe func()

// Channel is a push-based subscription source. onSnapshot and onError may be
// called from any goroutine and must not block for long.
type Channel interface {
	Subscribe(topic Topic, onSnapshot func(Snapshot), onError func(error)) (Unsubscribe, error)
}
