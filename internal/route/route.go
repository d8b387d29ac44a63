// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package route resolves a driving route between two coordinates through an
// OpenRouteService-compatible directions endpoint.
package route

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/vital_tracker/internal/geo"
)

// maxErrorPayload caps how much of a failed response body is kept.
const maxErrorPayload = 64 << 10

var (
	// ErrRouteService covers non-2xx responses, transport failures and
	// undecodable bodies.
	ErrRouteService = errors.New("route service error")
	// ErrRouteNotFound means the service answered but returned no usable
	// geometry.
	ErrRouteNotFound = errors.New("no route found")
)

// ServiceError carries what the routing service reported. It matches
// ErrRouteService with errors.Is.
type ServiceError struct {
	// StatusCode is 0 when no response was received.
	StatusCode int
	// Payload is the service's error body; non-JSON bodies are stored as a
	// JSON string.
	Payload json.RawMessage
	Err     error
}

func (e *ServiceError) Error() string {
	switch {
	case e.StatusCode == 0:
		return fmt.Sprintf("route service error: %v", e.Err)
	case e.Err != nil:
		return fmt.Sprintf("route service error: status %d: %v", e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("route service error: status %d: %s", e.StatusCode, e.Payload)
	}
}

// Is reports ErrRouteService.
func (e *ServiceError) Is(target error) bool {
	return target == ErrRouteService
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Resolver computes a route from start to end.
type Resolver interface {
	Resolve(ctx context.Context, start, end geo.Coordinate) (geo.Route, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, start, end geo.Coordinate) (geo.Route, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(ctx context.Context, start, end geo.Coordinate) (geo.Route, error) {
	return f(ctx, start, end)
}

// Config is injected at construction; nothing is read from globals.
type Config struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// Client talks to the directions endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// New creates a routing client.
func New(cfg Config, logger zerolog.Logger) *Client {
	return &Client{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

type directionsRequest struct {
	Coordinates [][]float64 `json:"coordinates"`
}

type directionsResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// Resolve implements Resolver. Coordinates go out as [lon, lat] pairs ordered
// [start, end]; the returned route is in latitude/longitude order.
func (c *Client) Resolve(ctx context.Context, start, end geo.Coordinate) (geo.Route, error) {
	body, err := json.Marshal(directionsRequest{
		Coordinates: [][]float64{start.LonLat(), end.LonLat()},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode route request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create route request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, application/geo+json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ServiceError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload := readPayload(resp.Body)
		c.logger.Error().Int("status", resp.StatusCode).RawJSON("payload", payload).Msg("route request failed")
		return nil, &ServiceError{StatusCode: resp.StatusCode, Payload: payload}
	}

	var data directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, &ServiceError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode route response: %w", err)}
	}

	if len(data.Features) == 0 || len(data.Features[0].Geometry.Coordinates) == 0 {
		return nil, ErrRouteNotFound
	}

	route, err := geo.RouteFromLonLat(data.Features[0].Geometry.Coordinates)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRouteNotFound, err)
	}

	c.logger.Debug().Int("points", len(route)).Float64("length_m", route.LengthMeters()).Msg("route resolved")
	return route, nil
}

// readPayload returns the body as JSON, quoting it when it is not JSON.
func readPayload(r io.Reader) json.RawMessage {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorPayload))
	if err != nil || len(bytes.TrimSpace(raw)) == 0 {
		return json.RawMessage(`null`)
	}
	if json.Valid(raw) {
		return json.RawMessage(raw)
	}
	quoted, _ := json.Marshal(string(raw))
	return quoted
}
