// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package fusion

import (
	"fmt"
	"time"

	"github.com/relabs-tech/vital_tracker/internal/geo"
	"github.com/relabs-tech/vital_tracker/internal/telemetry"
)

// User-facing messages.
const (
	MsgLoading             = "Fetching your location..."
	MsgPermissionDenied    = "Permission to access location was denied"
	MsgPositionUnavailable = "Error fetching user location. Please try again."
	MsgInvalidHeartRate    = "Invalid heart rate data"
	MsgInvalidLocation     = "Invalid location data"
	MsgHeartRateTransport  = "Error fetching heart rate"
	MsgLocationTransport   = "Error fetching location"

	AlertTitle       = "Error"
	MsgRouteFailed   = "Unable to fetch route"
	MsgRouteNotFound = "No route found"

	ViewerTitle = "Your Location"
	DeviceTitle = "Device Location"
)

// Phase tracks viewer position acquisition.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseReady
	PhasePermissionDenied
	PhasePositionUnavailable
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhasePermissionDenied:
		return "permission_denied"
	case PhasePositionUnavailable:
		return "position_unavailable"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (p *Phase) UnmarshalText(text []byte) error {
	for _, candidate := range []Phase{PhaseLoading, PhaseReady, PhasePermissionDenied, PhasePositionUnavailable} {
		if candidate.String() == string(text) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// Marker is a labelled point for the map.
type Marker struct {
	Coordinate  geo.Coordinate `json:"coordinate"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
}

// View is an immutable snapshot of the fused state handed to renderers.
type View struct {
	Phase   Phase  `json:"phase"`
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`

	// HeartRate is the raw channel value; nil until a valid snapshot arrives
	// or after an invalid one.
	HeartRate *telemetry.HeartRate `json:"heart_rate,omitempty"`

	Viewer *Marker   `json:"viewer,omitempty"`
	Device *Marker   `json:"device,omitempty"`
	Route  geo.Route `json:"route,omitempty"`
	Seq    uint64    `json:"seq"`
	At     time.Time `json:"updated_at"`
}

// MapEnabled reports whether the map can be drawn (viewer position known).
func (v View) MapEnabled() bool {
	return v.Phase == PhaseReady
}

// HeartbeatText is the banner shown above the map.
func (v View) HeartbeatText() string {
	if v.HeartRate == nil {
		return "Heartbeat: Loading..."
	}
	return fmt.Sprintf("Heartbeat: %s bpm", v.HeartRate)
}

// DistanceMeters is the straight-line distance from viewer to device.
func (v View) DistanceMeters() (float64, bool) {
	if v.Viewer == nil || v.Device == nil {
		return 0, false
	}
	return geo.DistanceMeters(v.Viewer.Coordinate, v.Device.Coordinate), true
}

func deviceDescription(hr *telemetry.HeartRate) string {
	if hr == nil {
		return "Heartbeat: N/A"
	}
	return fmt.Sprintf("Heartbeat: %s bpm", hr)
}
