// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package fusion

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/relabs-tech/vital_tracker/internal/fusion"

type metrics struct {
	snapshots     metric.Int64Counter
	channelErrors metric.Int64Counter
	routes        metric.Int64Counter
	routeDuration metric.Float64Histogram
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	if meter == nil {
		meter = otel.Meter(meterName)
	}

	snapshots, err := meter.Int64Counter("tracker.telemetry.snapshots",
		metric.WithDescription("Telemetry snapshots received, by topic and validity"))
	if err != nil {
		return nil, err
	}
	channelErrors, err := meter.Int64Counter("tracker.telemetry.transport_errors",
		metric.WithDescription("Transport errors reported by the telemetry channel"))
	if err != nil {
		return nil, err
	}
	routes, err := meter.Int64Counter("tracker.route.resolutions",
		metric.WithDescription("Route resolutions, by outcome"))
	if err != nil {
		return nil, err
	}
	routeDuration, err := meter.Float64Histogram("tracker.route.duration",
		metric.WithDescription("Routing service round trip"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &metrics{
		snapshots:     snapshots,
		channelErrors: channelErrors,
		routes:        routes,
		routeDuration: routeDuration,
	}, nil
}

func noopMetrics() *metrics {
	m, _ := newMetrics(noop.NewMeterProvider().Meter(meterName))
	return m
}

func (m *metrics) snapshot(topic string, valid bool) {
	m.snapshots.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("topic", topic),
		attribute.Bool("valid", valid),
	))
}

func (m *metrics) channelError(topic string) {
	m.channelErrors.Add(context.Background(), 1, metric.WithAttributes(attribute.String("topic", topic)))
}

func (m *metrics) route(outcome string, seconds float64) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.routes.Add(context.Background(), 1, attrs)
	m.routeDuration.Record(context.Background(), seconds, attrs)
}
