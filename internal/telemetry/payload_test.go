// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/vital_tracker/internal/geo"
)

func TestParseHeartRate(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    HeartRate
		wantErr bool
	}{
		{name: "integer", payload: `735`, want: 735},
		{name: "float", payload: `720.5`, want: 720.5},
		{name: "string", payload: `"N/A"`, wantErr: true},
		{name: "null", payload: `null`, wantErr: true},
		{name: "object", payload: `{"bpm":73}`, wantErr: true},
		{name: "not json", payload: `N/A`, wantErr: true},
		{name: "empty", payload: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHeartRate([]byte(tt.payload))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidPayload)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHeartRate_Display(t *testing.T) {
	assert.Equal(t, 73.5, HeartRate(735).BPM())
	assert.Equal(t, "73.5", HeartRate(735).String())
	assert.Equal(t, "72", HeartRate(720).String())
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    geo.Coordinate
		wantErr bool
	}{
		{
			name:    "valid",
			payload: `{"latitude":37.7749,"longitude":-122.4194}`,
			want:    geo.Coordinate{Latitude: 37.7749, Longitude: -122.4194},
		},
		{
			name:    "extra fields ignored",
			payload: `{"latitude":1.5,"longitude":2.5,"speed_knots":3,"validity":"A"}`,
			want:    geo.Coordinate{Latitude: 1.5, Longitude: 2.5},
		},
		{name: "missing longitude", payload: `{"latitude":37.7}`, wantErr: true},
		{name: "string latitude", payload: `{"latitude":"37.7","longitude":-122.4}`, wantErr: true},
		{name: "null longitude", payload: `{"latitude":37.7,"longitude":null}`, wantErr: true},
		{name: "out of range", payload: `{"latitude":137.7,"longitude":-122.4}`, wantErr: true},
		{name: "null", payload: `null`, wantErr: true},
		{name: "array", payload: `[-122.4,37.7]`, wantErr: true},
		{name: "not json", payload: `garbage`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLocation([]byte(tt.payload))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidPayload)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
