// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package hub

import (
	"encoding/json"
	"time"

	"github.com/relabs-tech/vital_tracker/internal/fusion"
)

const (
	TypeView  = "view"
	TypeAlert = "alert"
)

// Envelope is every message pushed to browsers.
type Envelope struct {
	Type  string        `json:"type"`
	View  *ViewMessage  `json:"view,omitempty"`
	Alert *fusion.Alert `json:"alert,omitempty"`
}

// ViewMessage is the browser-facing form of fusion.View.
type ViewMessage struct {
	Phase         fusion.Phase    `json:"phase"`
	Loading       bool            `json:"loading"`
	LoadingText   string          `json:"loading_text,omitempty"`
	Error         string          `json:"error,omitempty"`
	MapEnabled    bool            `json:"map_enabled"`
	HeartbeatText string          `json:"heartbeat_text"`
	HeartRateBPM  *float64        `json:"heart_rate_bpm,omitempty"`
	Viewer        *fusion.Marker  `json:"viewer,omitempty"`
	Device        *fusion.Marker  `json:"device,omitempty"`
	Route         json.RawMessage `json:"route,omitempty"`
	RouteMeters   float64         `json:"route_meters,omitempty"`
	DistanceM     *float64        `json:"distance_m,omitempty"`
	Seq           uint64          `json:"seq"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NewViewMessage flattens v; the route becomes a GeoJSON LineString, or a
// Point when viewer and device coincide.
func NewViewMessage(v fusion.View) (ViewMessage, error) {
	msg := ViewMessage{
		Phase:         v.Phase,
		Loading:       v.Loading,
		Error:         v.Error,
		MapEnabled:    v.MapEnabled(),
		HeartbeatText: v.HeartbeatText(),
		Viewer:        v.Viewer,
		Device:        v.Device,
		Seq:           v.Seq,
		UpdatedAt:     v.At,
	}
	if v.Loading {
		msg.LoadingText = fusion.MsgLoading
	}
	if v.HeartRate != nil {
		bpm := v.HeartRate.BPM()
		msg.HeartRateBPM = &bpm
	}
	if d, ok := v.DistanceMeters(); ok {
		msg.DistanceM = &d
	}
	if len(v.Route) > 0 {
		geojson, err := v.Route.GeoJSON()
		if err != nil {
			return ViewMessage{}, err
		}
		msg.Route = geojson
		msg.RouteMeters = v.Route.LengthMeters()
	}
	return msg, nil
}
