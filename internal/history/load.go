// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package history

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/vital_tracker/internal/geo"
)

// recordTimeLayout is the timestamp format of history files. Timestamps carry
// no zone; they are read in the history location.
const recordTimeLayout = "2006-01-02T15:04:05"

const displayTimeLayout = "3:04 PM"

//go:embed sample.yaml
var sampleYAML []byte

// History is the loaded record set.
type History struct {
	Heartbeat []Record
	Location  []Record
}

type fileEntry struct {
	ID        string   `yaml:"id"`
	Value     *float64 `yaml:"value"`
	Latitude  *float64 `yaml:"latitude"`
	Longitude *float64 `yaml:"longitude"`
	Time      string   `yaml:"time"`
	Date      string   `yaml:"date"`
}

type fileFormat struct {
	Heartbeat []fileEntry `yaml:"heartbeat"`
	Location  []fileEntry `yaml:"location"`
}

// Sample returns the built-in history.
func Sample(loc *time.Location) *History {
	h, err := Load(bytes.NewReader(sampleYAML), loc)
	if err != nil {
		panic(fmt.Sprintf("history: embedded sample: %v", err))
	}
	return h
}

// LoadFile reads a YAML history file. An empty path yields the sample.
func LoadFile(path string, loc *time.Location) (*History, error) {
	if path == "" {
		return Sample(loc), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer func() { _ = f.Close() }()

	h, err := Load(f, loc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return h, nil
}

// Load decodes a YAML history. Entries without an id get a random one;
// entries without a display time get one derived from their date.
func Load(r io.Reader, loc *time.Location) (*History, error) {
	if loc == nil {
		loc = time.Local
	}

	var file fileFormat
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode history: %w", err)
	}

	h := &History{
		Heartbeat: make([]Record, 0, len(file.Heartbeat)),
		Location:  make([]Record, 0, len(file.Location)),
	}
	for i, e := range file.Heartbeat {
		rec, err := e.heartbeat(loc)
		if err != nil {
			return nil, fmt.Errorf("heartbeat entry %d: %w", i, err)
		}
		h.Heartbeat = append(h.Heartbeat, rec)
	}
	for i, e := range file.Location {
		rec, err := e.location(loc)
		if err != nil {
			return nil, fmt.Errorf("location entry %d: %w", i, err)
		}
		h.Location = append(h.Location, rec)
	}
	return h, nil
}

func (e fileEntry) base(kind Kind, loc *time.Location) (Record, error) {
	if e.Date == "" {
		return Record{}, errors.New("missing date")
	}
	date, err := time.ParseInLocation(recordTimeLayout, e.Date, loc)
	if err != nil {
		return Record{}, fmt.Errorf("bad date: %w", err)
	}

	rec := Record{ID: e.ID, Kind: kind, DisplayTime: e.Time, Date: date}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.DisplayTime == "" {
		rec.DisplayTime = date.Format(displayTimeLayout)
	}
	return rec, nil
}

func (e fileEntry) heartbeat(loc *time.Location) (Record, error) {
	rec, err := e.base(KindHeartbeat, loc)
	if err != nil {
		return Record{}, err
	}
	if e.Value == nil {
		return Record{}, errors.New("missing value")
	}
	if math.IsNaN(*e.Value) || math.IsInf(*e.Value, 0) || *e.Value < 0 {
		return Record{}, fmt.Errorf("bad heart rate %v", *e.Value)
	}
	rec.BPM = *e.Value
	return rec, nil
}

func (e fileEntry) location(loc *time.Location) (Record, error) {
	rec, err := e.base(KindLocation, loc)
	if err != nil {
		return Record{}, err
	}
	if e.Latitude == nil || e.Longitude == nil {
		return Record{}, errors.New("missing latitude or longitude")
	}
	c, err := geo.NewCoordinate(*e.Latitude, *e.Longitude)
	if err != nil {
		return Record{}, err
	}
	rec.Coordinate = &c
	return rec, nil
}
