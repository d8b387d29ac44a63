// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package route

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/vital_tracker/internal/geo"
)

var (
	viewer = geo.Coordinate{Latitude: 37.7749, Longitude: -122.4194}
	device = geo.Coordinate{Latitude: 37.78, Longitude: -122.42}
)

const routeFixture = `{
	"type": "FeatureCollection",
	"bbox": [-122.42, 37.77, -122.41, 37.78],
	"features": [{
		"type": "Feature",
		"properties": {"summary": {"distance": 1412.3, "duration": 210.4}},
		"geometry": {"type": "LineString", "coordinates": [[-122.41,37.77],[-122.42,37.78]]}
	}]
}`

func newTestClient(url string) *Client {
	return New(Config{Endpoint: url, APIKey: "test-key", Timeout: 5 * time.Second}, zerolog.Nop())
}

func TestResolve_RequestContract(t *testing.T) {
	var gotBody, gotAuth, gotType, gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotMethod = r.Method
		w.Header().Set("Content-Type", "application/geo+json")
		_, _ = w.Write([]byte(routeFixture))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Resolve(context.Background(), viewer, device)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "test-key", gotAuth)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, `{"coordinates":[[-122.4194,37.7749],[-122.42,37.78]]}`, gotBody)
}

func TestResolve_SwapsLonLat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(routeFixture))
	}))
	defer server.Close()

	route, err := newTestClient(server.URL).Resolve(context.Background(), viewer, device)
	require.NoError(t, err)

	assert.Equal(t, geo.Route{
		{Latitude: 37.77, Longitude: -122.41},
		{Latitude: 37.78, Longitude: -122.42},
	}, route)
}

func TestResolve_ServiceErrorCarriesPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"Access to this API has been disallowed"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Resolve(context.Background(), viewer, device)
	require.ErrorIs(t, err, ErrRouteService)
	assert.NotErrorIs(t, err, ErrRouteNotFound)

	var svcErr *ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, http.StatusForbidden, svcErr.StatusCode)
	assert.JSONEq(t, `{"error":"Access to this API has been disallowed"}`, string(svcErr.Payload))
	assert.Contains(t, err.Error(), "status 403")
}

func TestResolve_NonJSONErrorPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Resolve(context.Background(), viewer, device)

	var svcErr *ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, http.StatusBadGateway, svcErr.StatusCode)
	assert.JSONEq(t, `"upstream exploded\n"`, string(svcErr.Payload))
}

func TestResolve_NoRoute(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty features", body: `{"type":"FeatureCollection","features":[]}`},
		{name: "missing features", body: `{}`},
		{name: "empty geometry", body: `{"features":[{"geometry":{"coordinates":[]}}]}`},
		{name: "unusable point", body: `{"features":[{"geometry":{"coordinates":[[-122.41]]}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).Resolve(context.Background(), viewer, device)
			require.ErrorIs(t, err, ErrRouteNotFound)
			assert.NotErrorIs(t, err, ErrRouteService)
		})
	}
}

func TestResolve_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Resolve(context.Background(), viewer, device)
	require.ErrorIs(t, err, ErrRouteService)
}

func TestResolve_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(url).Resolve(context.Background(), viewer, device)
	require.ErrorIs(t, err, ErrRouteService)

	var svcErr *ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Zero(t, svcErr.StatusCode)
}

func TestResolve_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	c := New(Config{Endpoint: server.URL, Timeout: 20 * time.Millisecond}, zerolog.Nop())
	_, err := c.Resolve(context.Background(), viewer, device)
	require.ErrorIs(t, err, ErrRouteService)
}

func TestResolve_NoAPIKeyHeader(t *testing.T) {
	var hasAuth bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasAuth = r.Header["Authorization"]
		_, _ = w.Write([]byte(routeFixture))
	}))
	defer server.Close()

	c := New(Config{Endpoint: server.URL, Timeout: time.Second}, zerolog.Nop())
	_, err := c.Resolve(context.Background(), viewer, device)
	require.NoError(t, err)
	assert.False(t, hasAuth)
}

func TestResolverFunc(t *testing.T) {
	var r Resolver = ResolverFunc(func(_ context.Context, start, end geo.Coordinate) (geo.Route, error) {
		return geo.Route{start, end}, nil
	})
	route, err := r.Resolve(context.Background(), viewer, device)
	require.NoError(t, err)
	assert.Equal(t, geo.Route{viewer, device}, route)
}
