// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/vital_tracker/internal/config"
	"github.com/relabs-tech/vital_tracker/internal/gps"
	"github.com/relabs-tech/vital_tracker/internal/logging"
	"github.com/relabs-tech/vital_tracker/internal/position"
	"github.com/relabs-tech/vital_tracker/internal/telemetry"
	"github.com/relabs-tech/vital_tracker/internal/vitals"
)

type publisher interface {
	Publish(topic telemetry.Topic, payload []byte) error
}

// RunDeviceProducer runs on the tracked device: it publishes the GPS position
// as it arrives and a heart-rate reading every DEVICE_PUBLISH_INTERVAL, both
// retained.
func RunDeviceProducer(cfg *config.Config, logger zerolog.Logger) error {
	logger = logging.Component(logger, "device")

	channel, err := telemetry.DialMQTT(mqttConfig(cfg, cfg.MQTTClientIDDevice), logging.Component(logger, "mqtt"))
	if err != nil {
		return err
	}
	defer channel.Close()

	ctx, stop := signalContext()
	defer stop()

	var fixes <-chan gps.Fix
	switch cfg.PositionSource {
	case "static":
		c, err := staticCoordinate(cfg)
		if err != nil {
			return fmt.Errorf("static position: %w", err)
		}
		fixes = staticFix(gps.Fix{Latitude: c.Latitude, Longitude: c.Longitude, Validity: "A"})
		logger.Info().Stringer("position", c).Msg("publishing static position")
	default:
		port, err := position.OpenSerial(cfg.GPSSerialPort, cfg.GPSBaudRate)
		if err != nil {
			return fmt.Errorf("open GPS %s: %w", cfg.GPSSerialPort, err)
		}
		defer port.Close()
		// unblocks the reader on shutdown
		context.AfterFunc(ctx, func() { port.Close() })
		logger.Info().Str("port", cfg.GPSSerialPort).Int("baud", cfg.GPSBaudRate).Msg("GPS serial port opened")
		fixes = readFixes(ctx, port, logger)
	}

	p := &deviceProducer{
		pub:      channel,
		vitals:   vitals.NewMockSource(),
		interval: cfg.DevicePublishInterval,
		logger:   logger,
	}
	p.run(ctx, fixes)
	logger.Info().Msg("shutting down")
	return nil
}

type deviceProducer struct {
	pub      publisher
	vitals   vitals.Source
	interval time.Duration
	logger   zerolog.Logger
}

// run publishes until ctx ends. A closed fixes channel stops location
// updates but not heart rate.
func (p *deviceProducer) run(ctx context.Context, fixes <-chan gps.Fix) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case fix, ok := <-fixes:
			if !ok {
				p.logger.Warn().Msg("GPS stream ended")
				fixes = nil
				continue
			}
			if err := p.publishFix(fix); err != nil {
				p.logger.Error().Err(err).Msg("publish location")
			}
		case <-ticker.C:
			if err := p.publishHeartRate(); err != nil {
				p.logger.Error().Err(err).Msg("publish heart rate")
			}
		}
	}
}

func (p *deviceProducer) publishFix(fix gps.Fix) error {
	if !fix.Valid() {
		return nil
	}
	payload, err := json.Marshal(telemetry.LocationPayload{Latitude: fix.Latitude, Longitude: fix.Longitude})
	if err != nil {
		return err
	}
	if err := p.pub.Publish(telemetry.TopicLocation, payload); err != nil {
		return err
	}
	p.logger.Debug().Bytes("payload", payload).Msg("published location")
	return nil
}

func (p *deviceProducer) publishHeartRate() error {
	hr, err := p.vitals.Next()
	if err != nil {
		return err
	}
	payload := []byte(strconv.FormatFloat(float64(hr), 'f', -1, 64))
	if err := p.pub.Publish(telemetry.TopicHeartRate, payload); err != nil {
		return err
	}
	p.logger.Debug().Str("bpm", hr.String()).Msg("published heart rate")
	return nil
}

func staticFix(fix gps.Fix) <-chan gps.Fix {
	ch := make(chan gps.Fix, 1)
	ch <- fix
	close(ch)
	return ch
}

// readFixes streams valid RMC fixes from r until it fails or ctx ends.
func readFixes(ctx context.Context, r io.Reader, logger zerolog.Logger) <-chan gps.Fix {
	ch := make(chan gps.Fix)
	go func() {
		defer close(ch)
		scanner := gps.NewScanner(r)
		for {
			fix, err := scanner.Next()
			if err != nil {
				if ctx.Err() == nil {
					logger.Error().Err(err).Msg("GPS read error")
				}
				return
			}
			if !fix.Valid() {
				continue
			}
			select {
			case ch <- fix:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}
