// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package vitals produces heart-rate readings on the tracked device.
package vitals

import (
	"math"
	"time"

	"github.com/relabs-tech/vital_tracker/internal/telemetry"
)

// Source yields raw heart-rate values (ten times bpm).
type Source interface {
	Next() (telemetry.HeartRate, error)
}

type mockSource struct {
	start time.Time
	now   func() time.Time
}

// NewMockSource creates a mock heart-rate source that
// drifts smoothly around 72 bpm.
func NewMockSource() Source {
	return newMockSource(time.Now)
}

func newMockSource(now func() time.Time) *mockSource {
	return &mockSource{start: now(), now: now}
}

func (m *mockSource) Next() (telemetry.HeartRate, error) {
	elapsed := m.now().Sub(m.start).Seconds()

	bpm := 72 + 6*math.Sin(elapsed/10) + 2*math.Sin(elapsed*1.3)
	return telemetry.HeartRate(math.Round(bpm * 10)), nil
}
