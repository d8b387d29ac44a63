// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package position

import (
	"context"
	"errors"
	"io"
	"io/fs"

	serial "github.com/jacobsa/go-serial/serial"
	"github.com/rs/zerolog"

	"github.com/relabs-tech/vital_tracker/internal/gps"
)

// OpenSerial opens an NMEA receiver with 8N1 framing.
func OpenSerial(portName string, baudRate int) (io.ReadWriteCloser, error) {
	return serial.Open(serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	})
}

// GPS acquires the viewer position from a serial NMEA receiver. Opening the
// device is the permission gate: an EACCES from the OS means Denied.
type GPS struct {
	PortName string
	BaudRate int
	Logger   zerolog.Logger

	// Open defaults to OpenSerial.
	Open func(portName string, baudRate int) (io.ReadWriteCloser, error)
}

// NewGPS creates a provider for the given port.
func NewGPS(portName string, baudRate int, logger zerolog.Logger) *GPS {
	return &GPS{PortName: portName, BaudRate: baudRate, Logger: logger, Open: OpenSerial}
}

// Acquire implements Provider. It returns the first fix the receiver flags
// valid, or Unavailable when ctx ends first.
func (g *GPS) Acquire(ctx context.Context) Result {
	open := g.Open
	if open == nil {
		open = OpenSerial
	}

	port, err := open(g.PortName, g.BaudRate)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			g.Logger.Warn().Err(err).Str("port", g.PortName).Msg("GPS permission denied")
			return Denied(err)
		}
		g.Logger.Error().Err(err).Str("port", g.PortName).Msg("GPS open failed")
		return Unavailable(err)
	}
	defer port.Close()

	// A blocked read only returns once the port is closed.
	stop := context.AfterFunc(ctx, func() { port.Close() })
	defer stop()

	g.Logger.Info().Str("port", g.PortName).Int("baud", g.BaudRate).Msg("waiting for GPS fix")
	fix, err := gps.NewScanner(port).FirstValid(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		g.Logger.Error().Err(err).Msg("GPS fix unavailable")
		return Unavailable(err)
	}

	g.Logger.Info().Str("position", fix.Coordinate().String()).Msg("GPS fix acquired")
	return Acquired(fix.Coordinate())
}
