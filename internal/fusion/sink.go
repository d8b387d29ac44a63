// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package fusion

import "time"

// Alert is a one-shot notification; it is never stored in the view.
type Alert struct {
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
	At      time.Time `json:"at"`
}

// Sink consumes views and alerts. Both methods run on the store's loop
// goroutine and must return quickly.
type Sink interface {
	Render(View)
	Alert(Alert)
}

// Sinks fans out to several sinks in order.
type Sinks []Sink

// Render implements Sink.
func (s Sinks) Render(v View) {
	for _, sink := range s {
		sink.Render(v)
	}
}

// Alert implements Sink.
func (s Sinks) Alert(a Alert) {
	for _, sink := range s {
		sink.Alert(a)
	}
}

type nopSink struct{}

func (nopSink) Render(View) {}
func (nopSink) Alert(Alert) {}
