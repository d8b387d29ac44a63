// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package geo

import (
	"errors"
	"fmt"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
)

// earthRadiusMeters is the mean WGS84 radius used for haversine distances.
const earthRadiusMeters = 6371008.8

// ErrInvalidCoordinate is returned when a latitude/longitude pair is not finite
// or falls outside the WGS84 range.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Coordinate is a WGS84 position in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewCoordinate builds a validated coordinate.
func NewCoordinate(latitude, longitude float64) (Coordinate, error) {
	c := Coordinate{Latitude: latitude, Longitude: longitude}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// Validate checks that both components are finite and inside
// latitude [-90,90] and longitude [-180,180].
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || math.IsInf(c.Latitude, 0) ||
		math.IsNaN(c.Longitude) || math.IsInf(c.Longitude, 0) {
		return fmt.Errorf("%w: non-finite value (%v, %v)", ErrInvalidCoordinate, c.Latitude, c.Longitude)
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidCoordinate, c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidCoordinate, c.Longitude)
	}
	return nil
}

// LonLat returns the coordinate as a [lon, lat] pair, the order GeoJSON and
// routing services expect.
func (c Coordinate) LonLat() []float64 {
	return []float64{c.Longitude, c.Latitude}
}

// FromLonLat parses a [lon, lat] pair (extra values such as elevation are
// ignored) into a Coordinate.
func FromLonLat(pair []float64) (Coordinate, error) {
	if len(pair) < 2 {
		return Coordinate{}, fmt.Errorf("%w: expected [lon, lat], got %d values", ErrInvalidCoordinate, len(pair))
	}
	return NewCoordinate(pair[1], pair[0])
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

// DistanceMeters returns the great-circle distance between a and b.
func DistanceMeters(a, b Coordinate) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Route is an ordered path from the viewer to the tracked device.
// An empty route means nothing has been computed (or found) yet.
type Route []Coordinate

// RouteFromLonLat converts [lon, lat] pairs into a Route, swapping each pair
// into latitude/longitude order.
func RouteFromLonLat(pairs [][]float64) (Route, error) {
	route := make(Route, 0, len(pairs))
	for i, pair := range pairs {
		c, err := FromLonLat(pair)
		if err != nil {
			return nil, fmt.Errorf("route point %d: %w", i, err)
		}
		route = append(route, c)
	}
	return route, nil
}

// LengthMeters sums the great-circle distance of every segment.
func (r Route) LengthMeters() float64 {
	var total float64
	for i := 1; i < len(r); i++ {
		total += DistanceMeters(r[i-1], r[i])
	}
	return total
}

// Degenerate reports whether a non-empty route has fewer than two distinct
// positions, as returned when the viewer stands at the device.
func (r Route) Degenerate() bool {
	if len(r) == 0 {
		return false
	}
	for _, c := range r[1:] {
		if c != r[0] {
			return false
		}
	}
	return true
}

// LineString converts the route into a simplefeatures LineString with
// X=longitude, Y=latitude. Degenerate routes are rejected.
func (r Route) LineString() (geom.LineString, error) {
	flat := make([]float64, 0, len(r)*2)
	for _, c := range r {
		flat = append(flat, c.Longitude, c.Latitude)
	}
	ls, err := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	if err != nil {
		return geom.LineString{}, fmt.Errorf("route linestring: %w", err)
	}
	return ls, nil
}

// Geometry returns the route as a LineString, or as a Point when the route
// is degenerate.
func (r Route) Geometry() (geom.Geometry, error) {
	if r.Degenerate() {
		pt, err := geom.XY{X: r[0].Longitude, Y: r[0].Latitude}.AsPoint()
		if err != nil {
			return geom.Geometry{}, fmt.Errorf("route point: %w", err)
		}
		return pt.AsGeometry(), nil
	}
	ls, err := r.LineString()
	if err != nil {
		return geom.Geometry{}, err
	}
	return ls.AsGeometry(), nil
}

// GeoJSON returns the route as a GeoJSON geometry, or nil for an empty route.
func (r Route) GeoJSON() ([]byte, error) {
	if len(r) == 0 {
		return nil, nil
	}
	g, err := r.Geometry()
	if err != nil {
		return nil, err
	}
	return g.MarshalJSON()
}
