// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every key when overriding from the environment,
// e.g. TRACKER_MQTT_BROKER.
const EnvPrefix = "TRACKER"

// DefaultPath is the config file the binaries look for when --config is not given.
const DefaultPath = "tracker_config.txt"

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker          string `mapstructure:"mqtt_broker" validate:"required,url"`
	MQTTClientIDTracker string `mapstructure:"mqtt_client_id_tracker" validate:"required"`
	MQTTClientIDDevice  string `mapstructure:"mqtt_client_id_device" validate:"required"`
	MQTTClientIDConsole string `mapstructure:"mqtt_client_id_console" validate:"required"`
	MQTTClientIDDisplay string `mapstructure:"mqtt_client_id_display" validate:"required"`
	MQTTQoS             byte   `mapstructure:"mqtt_qos" validate:"lte=2"`

	// Topics
	TopicHeartRate string `mapstructure:"topic_heart_rate" validate:"required"`
	TopicLocation  string `mapstructure:"topic_location" validate:"required"`

	// Routing service
	RouteEndpoint     string        `mapstructure:"route_endpoint" validate:"required,url"`
	RouteAPIKey       string        `mapstructure:"route_api_key"`
	RouteTimeout      time.Duration `mapstructure:"route_timeout" validate:"gt=0"`
	RouteDiscardStale bool          `mapstructure:"route_discard_stale"`

	// Viewer position: "gps" reads a serial NMEA receiver, "static" uses the
	// STATIC_* coordinates.
	PositionSource  string        `mapstructure:"position_source" validate:"oneof=gps static"`
	GPSSerialPort   string        `mapstructure:"gps_serial_port" validate:"required_if=PositionSource gps"`
	GPSBaudRate     int           `mapstructure:"gps_baud_rate" validate:"required_if=PositionSource gps,gte=0"`
	PositionTimeout time.Duration `mapstructure:"position_timeout" validate:"gt=0"`
	StaticLatitude  float64       `mapstructure:"static_latitude" validate:"latitude"`
	StaticLongitude float64       `mapstructure:"static_longitude" validate:"longitude"`

	// Web Server
	WebServerPort int    `mapstructure:"web_server_port" validate:"gt=0,lte=65535"`
	WebStaticDir  string `mapstructure:"web_static_dir"`

	// History
	HistoryFile     string `mapstructure:"history_file"`
	HistoryTimezone string `mapstructure:"history_timezone" validate:"required"`

	// Logging
	LogLevel string `mapstructure:"log_level" validate:"oneof=trace debug info warn error"`

	// Display
	DisplayI2CAddr        uint16        `mapstructure:"display_i2c_addr" validate:"gt=0"`
	DisplayUpdateInterval time.Duration `mapstructure:"display_update_interval" validate:"gt=0"`

	// Device producer
	DevicePublishInterval time.Duration `mapstructure:"device_publish_interval" validate:"gt=0"`
}

// defaults doubles as the list of known keys.
var defaults = map[string]any{
	"mqtt_broker":            "tcp://localhost:1883",
	"mqtt_client_id_tracker": "vital-tracker",
	"mqtt_client_id_device":  "vital-device-producer",
	"mqtt_client_id_console": "vital-console",
	"mqtt_client_id_display": "vital-display",
	"mqtt_qos":               0,

	"topic_heart_rate": "sensorData/heartRate",
	"topic_location":   "sensorData/location",

	"route_endpoint":      "https://api.openrouteservice.org/v2/directions/driving-car/geojson",
	"route_api_key":       "",
	"route_timeout":       "15s",
	"route_discard_stale": false,

	"position_source":  "gps",
	"gps_serial_port":  "/dev/serial0",
	"gps_baud_rate":    9600,
	"position_timeout": "30s",
	"static_latitude":  0.0,
	"static_longitude": 0.0,

	"web_server_port": 8080,
	"web_static_dir":  "web",

	"history_file":     "",
	"history_timezone": "Local",

	"log_level": "info",

	"display_i2c_addr":        "0x3C",
	"display_update_interval": "500ms",

	"device_publish_interval": "1s",
}

// Load reads the KEY=VALUE configuration file (if configPath is not empty),
// applies TRACKER_* environment overrides and defaults, and validates the
// result.
func Load(configPath string) (*Config, error) {
	return load(configPath, nil)
}

// RegisterFlags adds the flags shared by every binary to flags.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("config", "c", DefaultPath, "path to the KEY=VALUE config file")
	flags.String("log-level", "", "override LOG_LEVEL (trace, debug, info, warn, error)")
}

// LoadFromFlags loads the file named by --config and applies --log-level.
// A missing file is only an error when --config was given explicitly.
func LoadFromFlags(flags *pflag.FlagSet) (*Config, error) {
	path, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	if !flags.Changed("config") {
		if _, statErr := os.Stat(path); errors.Is(statErr, fs.ErrNotExist) {
			path = ""
		}
	}
	return load(path, flags)
}

func load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if flags != nil {
		if f := flags.Lookup("log-level"); f != nil {
			if err := v.BindPFlag("log_level", f); err != nil {
				return nil, err
			}
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	for _, key := range v.AllKeys() {
		if _, ok := defaults[key]; !ok {
			return nil, fmt.Errorf("unknown config key: %q", key)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks field constraints and the history timezone.
func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves HISTORY_TIMEZONE. Both history records and the selected
// date are interpreted in this location.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.HistoryTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid HISTORY_TIMEZONE %q: %w", c.HistoryTimezone, err)
	}
	return loc, nil
}

// Keys returns the sorted list of known configuration keys.
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for key := range defaults {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
