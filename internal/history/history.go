// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package history holds past heart-rate and location records and selects
// them by calendar date.
package history

import (
	"fmt"
	"strconv"
	"time"

	"github.com/relabs-tech/vital_tracker/internal/geo"
)

// Kind tells heartbeat records from location records.
type Kind string

const (
	KindHeartbeat Kind = "heartbeat"
	KindLocation  Kind = "location"
)

// DateLayout is the selected-date format accepted by ParseDate.
const DateLayout = "2006-01-02"

// Record is one immutable history entry.
type Record struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`

	// BPM is set for heartbeat records.
	BPM float64 `json:"bpm,omitempty"`
	// Coordinate is set for location records.
	Coordinate *geo.Coordinate `json:"coordinate,omitempty"`

	DisplayTime string    `json:"time"`
	Date        time.Time `json:"date"`
}

// Text is the one-line rendering used by the history view.
func (r Record) Text() string {
	switch r.Kind {
	case KindHeartbeat:
		return fmt.Sprintf("Time: %s, Heartbeat: %s bpm", r.DisplayTime, strconv.FormatFloat(r.BPM, 'f', -1, 64))
	case KindLocation:
		if r.Coordinate == nil {
			return fmt.Sprintf("Time: %s", r.DisplayTime)
		}
		return fmt.Sprintf("Time: %s, Latitude: %.4f, Longitude: %.4f",
			r.DisplayTime, r.Coordinate.Latitude, r.Coordinate.Longitude)
	default:
		return fmt.Sprintf("Time: %s", r.DisplayTime)
	}
}

// Filter returns the records whose calendar date equals selected's. Both are
// compared in selected's location. Input order is kept and the result is
// never nil.
func Filter(records []Record, selected time.Time) []Record {
	loc := selected.Location()
	y, m, d := selected.Date()

	out := make([]Record, 0, len(records))
	for _, r := range records {
		ry, rm, rd := r.Date.In(loc).Date()
		if ry == y && rm == m && rd == d {
			out = append(out, r)
		}
	}
	return out
}

// ParseDate reads a YYYY-MM-DD date as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// Today returns the current calendar date in loc.
func Today(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	now := time.Now().In(loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
}
