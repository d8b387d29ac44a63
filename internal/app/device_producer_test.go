// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/vital_tracker/internal/gps"
	"github.com/relabs-tech/vital_tracker/internal/telemetry"
)

type published struct {
	topic   telemetry.Topic
	payload string
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(topic telemetry.Topic, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{topic: topic, payload: string(payload)})
	return nil
}

func (p *fakePublisher) on(topic telemetry.Topic) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, m := range p.msgs {
		if m.topic == topic {
			out = append(out, m.payload)
		}
	}
	return out
}

type constantVitals telemetry.HeartRate

func (c constantVitals) Next() (telemetry.HeartRate, error) { return telemetry.HeartRate(c), nil }

func TestDeviceProducer_Publishes(t *testing.T) {
	pub := &fakePublisher{}
	p := &deviceProducer{pub: pub, vitals: constantVitals(735), interval: 5 * time.Millisecond, logger: zerolog.Nop()}

	fixes := make(chan gps.Fix)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.run(ctx, fixes)
		close(done)
	}()

	fixes <- gps.Fix{Latitude: 37.78, Longitude: -122.42, Validity: "A"}
	fixes <- gps.Fix{Latitude: 1, Longitude: 1, Validity: "V"}
	close(fixes)

	require.Eventually(t, func() bool { return len(pub.on(telemetry.TopicHeartRate)) >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, []string{`{"latitude":37.78,"longitude":-122.42}`}, pub.on(telemetry.TopicLocation))
	assert.Equal(t, "735", pub.on(telemetry.TopicHeartRate)[0])

	// published payloads pass the viewer's own validation
	_, err := telemetry.ParseLocation([]byte(pub.on(telemetry.TopicLocation)[0]))
	assert.NoError(t, err)
}

func TestDeviceProducer_PublishErrorsAreReported(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	p := &deviceProducer{pub: pub, vitals: constantVitals(700), interval: time.Hour, logger: zerolog.Nop()}

	assert.Error(t, p.publishHeartRate())
	assert.Error(t, p.publishFix(gps.Fix{Latitude: 1, Longitude: 1, Validity: "A"}))
	assert.NoError(t, p.publishFix(gps.Fix{Validity: "V"}))
}

func TestReadFixes(t *testing.T) {
	input := strings.Join([]string{
		"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47",
		"$GPRMC,123519,V,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*7D",
		"$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A",
		"",
	}, "\r\n")

	var got []gps.Fix
	for fix := range readFixes(context.Background(), strings.NewReader(input), zerolog.Nop()) {
		got = append(got, fix)
	}

	require.Len(t, got, 1)
	assert.InDelta(t, 48.1173, got[0].Latitude, 1e-4)
	assert.InDelta(t, 11.5167, got[0].Longitude, 1e-4)
}

func TestStaticFix(t *testing.T) {
	ch := staticFix(gps.Fix{Latitude: 1, Longitude: 2, Validity: "A"})
	fix, ok := <-ch
	require.True(t, ok)
	assert.Equal(t, 2.0, fix.Longitude)
	_, ok = <-ch
	assert.False(t, ok)
}
