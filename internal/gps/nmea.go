// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
)

// ErrNoFix is returned when the stream ends before a valid fix was read.
var ErrNoFix = errors.New("no valid GPS fix")

// ParseSentence parses one NMEA line. ok is false for sentences that carry no
// position (GSA, GSV, ...), blank lines and garbage; only RMC sentences
// produce a Fix.
func ParseSentence(line string) (fix Fix, ok bool) {
	line = strings.TrimSpace(line)

	// NMEA sentences start with '$'
	if line == "" || !strings.HasPrefix(line, "$") {
		return Fix{}, false
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		// noisy GPS or partial sentences
		return Fix{}, false
	}

	if sentence.DataType() != nmea.TypeRMC {
		return Fix{}, false
	}
	m := sentence.(nmea.RMC)

	return Fix{
		Time:       m.Time.String(),
		Date:       m.Date.String(),
		Latitude:   m.Latitude,
		Longitude:  m.Longitude,
		SpeedKnots: m.Speed,
		CourseDeg:  m.Course,
		Validity:   string(m.Validity),
	}, true
}

// Scanner reads NMEA lines from a receiver and yields parsed fixes.
type Scanner struct {
	reader *bufio.Reader
}

// NewScanner wraps r, typically an open serial port.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{reader: bufio.NewReader(r)}
}

// Next returns the next RMC fix, valid or not.
func (s *Scanner) Next() (Fix, error) {
	for {
		line, err := s.reader.ReadString('\n')
		if fix, ok := ParseSentence(line); ok {
			return fix, nil
		}
		if err != nil {
			return Fix{}, err
		}
	}
}

// FirstValid reads until a fix flagged valid arrives. The context is checked
// between sentences; a blocked read is only interrupted by closing the
// underlying reader.
func (s *Scanner) FirstValid(ctx context.Context) (Fix, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Fix{}, err
		}
		fix, err := s.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Fix{}, ErrNoFix
			}
			return Fix{}, fmt.Errorf("GPS read error: %w", err)
		}
		if fix.Valid() {
			return fix, nil
		}
	}
}
