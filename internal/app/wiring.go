// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package app holds the entry points behind the cmd binaries.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/vital_tracker/internal/config"
	"github.com/relabs-tech/vital_tracker/internal/fusion"
	"github.com/relabs-tech/vital_tracker/internal/geo"
	"github.com/relabs-tech/vital_tracker/internal/logging"
	"github.com/relabs-tech/vital_tracker/internal/position"
	"github.com/relabs-tech/vital_tracker/internal/route"
	"github.com/relabs-tech/vital_tracker/internal/telemetry"
)

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func mqttConfig(cfg *config.Config, clientID string) telemetry.MQTTConfig {
	return telemetry.MQTTConfig{
		Broker:   cfg.MQTTBroker,
		ClientID: clientID,
		QoS:      cfg.MQTTQoS,
		Topics: map[telemetry.Topic]string{
			telemetry.TopicHeartRate: cfg.TopicHeartRate,
			telemetry.TopicLocation:  cfg.TopicLocation,
		},
	}
}

// staticCoordinate is the STATIC_LATITUDE/STATIC_LONGITUDE pair.
func staticCoordinate(cfg *config.Config) (geo.Coordinate, error) {
	return geo.NewCoordinate(cfg.StaticLatitude, cfg.StaticLongitude)
}

// newPositionProvider picks the viewer position source from POSITION_SOURCE.
func newPositionProvider(cfg *config.Config, logger zerolog.Logger) (position.Provider, error) {
	switch cfg.PositionSource {
	case "gps":
		return position.NewGPS(cfg.GPSSerialPort, cfg.GPSBaudRate, logging.Component(logger, "position")), nil
	case "static":
		c, err := staticCoordinate(cfg)
		if err != nil {
			return nil, fmt.Errorf("static position: %w", err)
		}
		static, err := position.NewStatic(c)
		if err != nil {
			return nil, err
		}
		return static, nil
	default:
		return nil, fmt.Errorf("unknown POSITION_SOURCE %q", cfg.PositionSource)
	}
}

// newStore wires a fusion store to the configured routing service.
func newStore(cfg *config.Config, channel telemetry.Channel, sink fusion.Sink, logger zerolog.Logger) (*fusion.Store, error) {
	positions, err := newPositionProvider(cfg, logger)
	if err != nil {
		return nil, err
	}

	resolver := route.New(route.Config{
		Endpoint: cfg.RouteEndpoint,
		APIKey:   cfg.RouteAPIKey,
		Timeout:  cfg.RouteTimeout,
	}, logging.Component(logger, "route"))

	return fusion.New(channel, positions, resolver,
		fusion.WithSink(sink),
		fusion.WithLogger(logging.Component(logger, "fusion")),
		fusion.WithRouteTimeout(cfg.RouteTimeout),
		fusion.WithPositionTimeout(cfg.PositionTimeout),
		fusion.WithDiscardStaleRoutes(cfg.RouteDiscardStale),
	), nil
}

// logSink mirrors alerts into the log; views are already logged by the store.
type logSink struct {
	logger zerolog.Logger
}

func (s logSink) Render(fusion.View) {}

func (s logSink) Alert(a fusion.Alert) {
	s.logger.Warn().Err(a.Err).Str("title", a.Title).Msg(a.Message)
}
