// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/relabs-tech/vital_tracker/internal/geo"
)

// HeartRate is the raw channel value, ten times the displayed bpm.
type HeartRate float64

// BPM returns the display value (raw / 10).
func (h HeartRate) BPM() float64 {
	return float64(h) / 10
}

// String formats the display value without trailing zeros, e.g. "73.5".
func (h HeartRate) String() string {
	return strconv.FormatFloat(h.BPM(), 'f', -1, 64)
}

// ParseHeartRate accepts a payload only if it is a JSON number.
func ParseHeartRate(payload []byte) (HeartRate, error) {
	var value any
	if err := json.Unmarshal(payload, &value); err != nil {
		return 0, fmt.Errorf("%w: heart rate is not JSON: %v", ErrInvalidPayload, err)
	}
	n, ok := value.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: heart rate %s is not a number", ErrInvalidPayload, payload)
	}
	return HeartRate(n), nil
}

// LocationPayload is the shape published on the location topic.
type LocationPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ParseLocation accepts an object whose latitude and longitude are both
// present, numeric and in range.
func ParseLocation(payload []byte) (geo.Coordinate, error) {
	var value map[string]any
	if err := json.Unmarshal(payload, &value); err != nil {
		return geo.Coordinate{}, fmt.Errorf("%w: location is not a JSON object: %v", ErrInvalidPayload, err)
	}
	if value == nil {
		return geo.Coordinate{}, fmt.Errorf("%w: location is null", ErrInvalidPayload)
	}

	lat, latOK := value["latitude"].(float64)
	lon, lonOK := value["longitude"].(float64)
	if !latOK || !lonOK {
		return geo.Coordinate{}, fmt.Errorf("%w: location needs numeric latitude and longitude", ErrInvalidPayload)
	}

	c, err := geo.NewCoordinate(lat, lon)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return c, nil
}
