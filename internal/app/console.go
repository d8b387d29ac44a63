// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/vital_tracker/internal/config"
	"github.com/relabs-tech/vital_tracker/internal/fusion"
	"github.com/relabs-tech/vital_tracker/internal/logging"
	"github.com/relabs-tech/vital_tracker/internal/telemetry"
)

// RunConsole prints every view change and alert to out until interrupted.
func RunConsole(cfg *config.Config, logger zerolog.Logger, out io.Writer) error {
	logger = logging.Component(logger, "console")

	channel, err := telemetry.DialMQTT(mqttConfig(cfg, cfg.MQTTClientIDConsole), logging.Component(logger, "mqtt"))
	if err != nil {
		return err
	}
	defer channel.Close()

	store, err := newStore(cfg, channel, newConsoleSink(out), logger)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	store.Start(ctx)
	<-ctx.Done()

	logger.Info().Msg("shutting down")
	store.Close()
	return nil
}

// consoleSink renders views as tagged lines.
type consoleSink struct {
	mu      sync.Mutex
	w       io.Writer
	lastErr string
}

func newConsoleSink(w io.Writer) *consoleSink {
	return &consoleSink{w: w}
}

func (c *consoleSink) Render(v fusion.View) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v.Error != c.lastErr {
		if v.Error != "" {
			fmt.Fprintf(c.w, "[ERROR] %s\n", v.Error)
		}
		c.lastErr = v.Error
	}

	if v.Loading {
		fmt.Fprintf(c.w, "[WAIT ] %s\n", fusion.MsgLoading)
		return
	}
	fmt.Fprintf(c.w, "[VIEW ] %s\n", viewLine(v))
}

func (c *consoleSink) Alert(a fusion.Alert) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "[ALERT] %s: %s\n", a.Title, a.Message)
}

func viewLine(v fusion.View) string {
	parts := []string{v.HeartbeatText()}

	if v.Device != nil {
		parts = append(parts, fmt.Sprintf("device=%.6f,%.6f", v.Device.Coordinate.Latitude, v.Device.Coordinate.Longitude))
	} else {
		parts = append(parts, "device=waiting")
	}
	if d, ok := v.DistanceMeters(); ok {
		parts = append(parts, fmt.Sprintf("distance=%.0fm", d))
	}
	if len(v.Route) > 0 {
		parts = append(parts, fmt.Sprintf("route=%d pts/%.0fm", len(v.Route), v.Route.LengthMeters()))
	} else {
		parts = append(parts, "route=none")
	}
	if !v.MapEnabled() {
		parts = append(parts, "map=off")
	}
	return strings.Join(parts, " | ")
}
