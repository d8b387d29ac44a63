// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/vital_tracker/internal/config"
	"github.com/relabs-tech/vital_tracker/internal/fusion"
	"github.com/relabs-tech/vital_tracker/internal/logging"
	"github.com/relabs-tech/vital_tracker/internal/telemetry"
)

const (
	oledWidth  = 128
	oledHeight = 64
	lineHeight = 13
	// 7px glyphs on a 128px panel
	oledColumns = 18

	alertHold = 5 * time.Second
)

// RunDisplay shows the fused view on an SSD1306 OLED until interrupted.
func RunDisplay(cfg *config.Config, logger zerolog.Logger) error {
	logger = logging.Component(logger, "display")

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(fixedAddrBus{Bus: bus, addr: cfg.DisplayI2CAddr}, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	defer dev.Halt()
	logger.Info().Msgf("display initialized at 0x%02X", cfg.DisplayI2CAddr)

	if err := dev.Draw(dev.Bounds(), drawLines([]string{"", " Vital Tracker", "Fetching your", "location..."}), image.Point{}); err != nil {
		logger.Warn().Err(err).Msg("splash")
	}

	channel, err := telemetry.DialMQTT(mqttConfig(cfg, cfg.MQTTClientIDDisplay), logging.Component(logger, "mqtt"))
	if err != nil {
		return err
	}
	defer channel.Close()

	oled := &oledSink{}
	store, err := newStore(cfg, channel, fusion.Sinks{oled, logSink{logger: logger}}, logger)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	store.Start(ctx)
	defer store.Close()

	ticker := time.NewTicker(cfg.DisplayUpdateInterval)
	defer ticker.Stop()

	logger.Info().Msg("starting update loop")
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down")
			return nil
		case now := <-ticker.C:
			if err := dev.Draw(dev.Bounds(), drawLines(oled.lines(now)), image.Point{}); err != nil {
				logger.Error().Err(err).Msg("error updating display")
			}
		}
	}
}

// fixedAddrBus sends every transaction to addr; the ssd1306 driver only
// knows the default 0x3C.
type fixedAddrBus struct {
	i2c.Bus
	addr uint16
}

func (b fixedAddrBus) Tx(_ uint16, w, r []byte) error {
	return b.Bus.Tx(b.addr, w, r)
}

// oledSink keeps the latest view and alert for the refresh loop.
type oledSink struct {
	mu         sync.Mutex
	view       fusion.View
	haveView   bool
	alert      string
	alertUntil time.Time
}

func (s *oledSink) Render(v fusion.View) {
	s.mu.Lock()
	s.view = v
	s.haveView = true
	s.mu.Unlock()
}

func (s *oledSink) Alert(a fusion.Alert) {
	s.mu.Lock()
	s.alert = a.Message
	s.alertUntil = a.At.Add(alertHold)
	s.mu.Unlock()
}

func (s *oledSink) lines(now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.haveView {
		return []string{"Vital Tracker", "Waiting..."}
	}
	alert := ""
	if now.Before(s.alertUntil) {
		alert = s.alert
	}
	return displayLines(s.view, alert)
}

// displayLines lays out one frame: heart rate, distance, route and a status
// line carrying the alert or the error banner.
func displayLines(v fusion.View, alert string) []string {
	if v.Loading {
		return []string{"Vital Tracker", "Fetching your", "location...", clip(v.Error)}
	}

	hr := "HR   --"
	if v.HeartRate != nil {
		hr = fmt.Sprintf("HR   %s bpm", v.HeartRate)
	}

	dist := "Dist --"
	if d, ok := v.DistanceMeters(); ok {
		dist = "Dist " + formatMeters(d)
	}

	rt := "Route --"
	switch {
	case !v.MapEnabled():
		rt = "No position"
	case len(v.Route) > 0:
		rt = "Route " + formatMeters(v.Route.LengthMeters())
	}

	status := v.Error
	if alert != "" {
		status = alert
	}
	return []string{hr, dist, rt, clip(status)}
}

func formatMeters(m float64) string {
	if m < 1000 {
		return fmt.Sprintf("%.0fm", m)
	}
	return fmt.Sprintf("%.1fkm", m/1000)
}

// clip shortens s to oledColumns runes.
func clip(s string) string {
	r := []rune(s)
	if len(r) <= oledColumns {
		return s
	}
	return string(r[:oledColumns-1]) + "~"
}

func drawLines(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, oledWidth, oledHeight))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		drawer.Dot = fixed.P(0, lineHeight*(i+1))
		drawer.DrawString(line)
	}
	return img
}
