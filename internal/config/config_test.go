// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tracker_config.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	path := writeConfig(t, `
# broker on the Pi
MQTT_BROKER=tcp://10.0.0.5:1883
MQTT_QOS=1
TOPIC_HEART_RATE=watch/heartRate
ROUTE_API_KEY=secret-key
ROUTE_TIMEOUT=5s
ROUTE_DISCARD_STALE=true
POSITION_SOURCE=static
STATIC_LATITUDE=37.7749
STATIC_LONGITUDE=-122.4194
DISPLAY_I2C_ADDR=0x3D
HISTORY_TIMEZONE=UTC
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "tcp://10.0.0.5:1883", cfg.MQTTBroker)
	assert.Equal(t, byte(1), cfg.MQTTQoS)
	assert.Equal(t, "watch/heartRate", cfg.TopicHeartRate)
	assert.Equal(t, "sensorData/location", cfg.TopicLocation)
	assert.Equal(t, "secret-key", cfg.RouteAPIKey)
	assert.Equal(t, 5*time.Second, cfg.RouteTimeout)
	assert.True(t, cfg.RouteDiscardStale)
	assert.Equal(t, "static", cfg.PositionSource)
	assert.Equal(t, 37.7749, cfg.StaticLatitude)
	assert.Equal(t, -122.4194, cfg.StaticLongitude)
	assert.Equal(t, uint16(0x3D), cfg.DisplayI2CAddr)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
	assert.Equal(t, "sensorData/heartRate", cfg.TopicHeartRate)
	assert.Equal(t, "sensorData/location", cfg.TopicLocation)
	assert.Equal(t, "https://api.openrouteservice.org/v2/directions/driving-car/geojson", cfg.RouteEndpoint)
	assert.Equal(t, 15*time.Second, cfg.RouteTimeout)
	assert.False(t, cfg.RouteDiscardStale)
	assert.Equal(t, "gps", cfg.PositionSource)
	assert.Equal(t, "/dev/serial0", cfg.GPSSerialPort)
	assert.Equal(t, 9600, cfg.GPSBaudRate)
	assert.Equal(t, 30*time.Second, cfg.PositionTimeout)
	assert.Equal(t, 8080, cfg.WebServerPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, uint16(0x3C), cfg.DisplayI2CAddr)
	assert.Equal(t, 500*time.Millisecond, cfg.DisplayUpdateInterval)
	assert.Equal(t, time.Second, cfg.DevicePublishInterval)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Setenv("TRACKER_ROUTE_API_KEY", "from-env")
	t.Setenv("TRACKER_WEB_SERVER_PORT", "9090")

	cfg, err := Load(writeConfig(t, "ROUTE_API_KEY=from-file\n"))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.RouteAPIKey)
	assert.Equal(t, 9090, cfg.WebServerPort)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/tracker_config.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoad_UnknownKey(t *testing.T) {
	_, err := Load(writeConfig(t, "IMU_LEFT_SPI_DEVICE=/dev/spidev0.0\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad position source", content: "POSITION_SOURCE=wifi\n"},
		{name: "qos out of range", content: "MQTT_QOS=3\n"},
		{name: "latitude out of range", content: "STATIC_LATITUDE=95\n"},
		{name: "zero route timeout", content: "ROUTE_TIMEOUT=0s\n"},
		{name: "bad log level", content: "LOG_LEVEL=chatty\n"},
		{name: "gps without port", content: "POSITION_SOURCE=gps\nGPS_SERIAL_PORT=\n"},
		{name: "bad timezone", content: "HISTORY_TIMEZONE=Mars/Olympus\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
		})
	}
}

func TestKeys(t *testing.T) {
	keys := Keys()
	assert.Contains(t, keys, "mqtt_broker")
	assert.Contains(t, keys, "route_api_key")
	assert.IsIncreasing(t, keys)
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)
	require.NoError(t, flags.Parse(args))
	return flags
}

func TestLoadFromFlags(t *testing.T) {
	t.Run("default file may be absent", func(t *testing.T) {
		cfg, err := LoadFromFlags(newFlags(t))
		require.NoError(t, err)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("explicit file must exist", func(t *testing.T) {
		_, err := LoadFromFlags(newFlags(t, "--config", filepath.Join(t.TempDir(), "missing.txt")))
		assert.Error(t, err)
	})

	t.Run("explicit file", func(t *testing.T) {
		path := writeConfig(t, "WEB_SERVER_PORT=9090\nLOG_LEVEL=warn\n")
		cfg, err := LoadFromFlags(newFlags(t, "-c", path))
		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.WebServerPort)
		assert.Equal(t, "warn", cfg.LogLevel)
	})

	t.Run("log level flag wins", func(t *testing.T) {
		path := writeConfig(t, "LOG_LEVEL=warn\n")
		cfg, err := LoadFromFlags(newFlags(t, "-c", path, "--log-level", "debug"))
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.LogLevel)
	})
}
