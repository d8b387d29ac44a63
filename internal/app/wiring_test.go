// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/vital_tracker/internal/config"
	"github.com/relabs-tech/vital_tracker/internal/fusion"
	"github.com/relabs-tech/vital_tracker/internal/position"
	"github.com/relabs-tech/vital_tracker/internal/telemetry"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestMQTTConfig(t *testing.T) {
	cfg := testConfig(t)
	m := mqttConfig(cfg, cfg.MQTTClientIDConsole)

	assert.Equal(t, "tcp://localhost:1883", m.Broker)
	assert.Equal(t, "vital-console", m.ClientID)
	assert.Equal(t, "sensorData/heartRate", m.Topics[telemetry.TopicHeartRate])
	assert.Equal(t, "sensorData/location", m.Topics[telemetry.TopicLocation])
}

func TestNewPositionProvider(t *testing.T) {
	cfg := testConfig(t)

	p, err := newPositionProvider(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &position.GPS{}, p)

	cfg.PositionSource = "static"
	cfg.StaticLatitude, cfg.StaticLongitude = 40.4168, -3.7038
	p, err = newPositionProvider(cfg, zerolog.Nop())
	require.NoError(t, err)
	res := p.Acquire(context.Background())
	assert.Equal(t, position.StatusAcquired, res.Status)
	assert.Equal(t, 40.4168, res.Coordinate.Latitude)

	cfg.StaticLatitude = 123
	_, err = newPositionProvider(cfg, zerolog.Nop())
	assert.Error(t, err)

	cfg.PositionSource = "wifi"
	_, err = newPositionProvider(cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestNewStore_StaticViewer(t *testing.T) {
	cfg := testConfig(t)
	cfg.PositionSource = "static"
	cfg.StaticLatitude, cfg.StaticLongitude = viewerPos.Latitude, viewerPos.Longitude

	ch := telemetry.NewMemoryChannel()
	ch.Publish(telemetry.TopicHeartRate, []byte("735"))

	store, err := newStore(cfg, ch, logSink{logger: zerolog.Nop()}, zerolog.Nop())
	require.NoError(t, err)
	store.Start(context.Background())
	defer store.Close()

	require.Eventually(t, func() bool {
		v := store.View()
		return v.Phase == fusion.PhaseReady && v.HeartRate != nil
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, viewerPos, store.View().Viewer.Coordinate)
}
