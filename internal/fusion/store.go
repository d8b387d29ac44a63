// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package fusion merges the viewer's position, the device's live telemetry and
// routing results into a single View. All state lives on one goroutine; the
// position provider, the telemetry channel and the route resolver only post
// events to it.
package fusion

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"

	"github.com/relabs-tech/vital_tracker/internal/geo"
	"github.com/relabs-tech/vital_tracker/internal/position"
	"github.com/relabs-tech/vital_tracker/internal/route"
	"github.com/relabs-tech/vital_tracker/internal/telemetry"
)

const eventBuffer = 64

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithSink sets the renderer for views and alerts.
func WithSink(sink Sink) Option {
	return func(s *Store) { s.sink = sink }
}

// WithMeter records store metrics on meter instead of the global provider.
func WithMeter(meter metric.Meter) Option {
	return func(s *Store) { s.meter = meter }
}

// WithRouteTimeout bounds each route resolution. Zero means no bound beyond
// the resolver's own.
func WithRouteTimeout(d time.Duration) Option {
	return func(s *Store) { s.routeTimeout = d }
}

// WithPositionTimeout bounds the one-shot position query.
func WithPositionTimeout(d time.Duration) Option {
	return func(s *Store) { s.positionTimeout = d }
}

// WithDiscardStaleRoutes drops a route result older than the newest one
// already applied. Off by default: the last result to complete wins.
func WithDiscardStaleRoutes(discard bool) Option {
	return func(s *Store) { s.discardStale = discard }
}

type positionEvent struct {
	result position.Result
}

type snapshotEvent struct {
	snap telemetry.Snapshot
}

type channelErrorEvent struct {
	topic telemetry.Topic
	err   error
}

type routeEvent struct {
	seq        uint64
	start, end geo.Coordinate
	route      geo.Route
	err        error
	took       time.Duration
}

// state is owned by the loop goroutine.
type state struct {
	phase     Phase
	viewer    *geo.Coordinate
	device    *geo.Coordinate
	heartRate *telemetry.HeartRate
	route     geo.Route

	// channelErr is cleared by the next valid payload; positionErr is not.
	channelErr  string
	positionErr string

	routeSeq   uint64
	appliedSeq uint64
	version    uint64
}

// Store is the telemetry fusion store.
type Store struct {
	channel   telemetry.Channel
	positions position.Provider
	resolver  route.Resolver

	sink            Sink
	logger          zerolog.Logger
	meter           metric.Meter
	metrics         *metrics
	routeTimeout    time.Duration
	positionTimeout time.Duration
	discardStale    bool

	events  chan any
	done    chan struct{}
	stopped chan struct{}
	inSink  atomic.Bool

	startOnce sync.Once
	closeOnce sync.Once

	mu     sync.Mutex
	cancel context.CancelFunc
	unsubs []telemetry.Unsubscribe

	st   state
	view atomic.Pointer[View]
}

// New creates a store. Nothing is subscribed or queried until Start.
func New(channel telemetry.Channel, positions position.Provider, resolver route.Resolver, opts ...Option) *Store {
	s := &Store{
		channel:   channel,
		positions: positions,
		resolver:  resolver,
		sink:      nopSink{},
		logger:    zerolog.Nop(),
		events:    make(chan any, eventBuffer),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sink == nil {
		s.sink = nopSink{}
	}

	m, err := newMetrics(s.meter)
	if err != nil {
		s.logger.Warn().Err(err).Msg("metrics disabled")
		m = noopMetrics()
	}
	s.metrics = m

	v := s.buildView()
	s.view.Store(&v)
	return s
}

// View returns the latest snapshot of the fused state.
func (s *Store) View() View {
	return *s.view.Load()
}

// Start subscribes to both telemetry topics and begins the position query.
// A failed subscription is surfaced as a transport error in the view rather
// than returned. Start is a no-op after the first call and after Close.
func (s *Store) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.mu.Lock()
		if s.isClosed() {
			s.mu.Unlock()
			return
		}
		ctx, s.cancel = context.WithCancel(ctx)
		s.mu.Unlock()

		s.render(s.View())
		go s.loop(ctx)

		s.subscribe(telemetry.TopicHeartRate)
		s.subscribe(telemetry.TopicLocation)

		go s.acquire(ctx)
	})
}

// Close tears the store down: pending work is abandoned, both subscriptions
// are released exactly once, and results arriving afterwards are dropped.
// Close waits for the event loop to exit unless a sink call is in progress,
// so a sink may call Close; at most that one call completes afterwards.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		close(s.done)
		cancel := s.cancel
		s.mu.Unlock()

		if cancel != nil {
			cancel()
			if !s.inSink.Load() {
				<-s.stopped
			}
		}

		s.mu.Lock()
		unsubs := s.unsubs
		s.unsubs = nil
		s.mu.Unlock()
		for _, unsub := range unsubs {
			unsub()
		}
		s.logger.Debug().Msg("store closed")
	})
}

// render and alert are the only places sinks are called.
func (s *Store) render(v View) {
	s.inSink.Store(true)
	defer s.inSink.Store(false)
	s.sink.Render(v)
}

func (s *Store) alert(a Alert) {
	s.inSink.Store(true)
	defer s.inSink.Store(false)
	s.sink.Alert(a)
}

func (s *Store) subscribe(topic telemetry.Topic) {
	unsub, err := s.channel.Subscribe(topic,
		func(snap telemetry.Snapshot) { s.post(snapshotEvent{snap: snap}) },
		func(err error) { s.post(channelErrorEvent{topic: topic, err: err}) },
	)
	if err != nil {
		s.post(channelErrorEvent{topic: topic, err: err})
		return
	}

	s.mu.Lock()
	closed := s.isClosed()
	if !closed {
		s.unsubs = append(s.unsubs, unsub)
	}
	s.mu.Unlock()
	if closed {
		unsub()
	}
}

func (s *Store) acquire(ctx context.Context) {
	if s.positionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.positionTimeout)
		defer cancel()
	}
	s.post(positionEvent{result: s.positions.Acquire(ctx)})
}

func (s *Store) isClosed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// post hands ev to the loop unless the store is closed.
func (s *Store) post(ev any) {
	if s.isClosed() {
		return
	}
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

func (s *Store) loop(ctx context.Context) {
	defer close(s.stopped)
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.events:
			if s.isClosed() {
				return
			}
			s.handle(ctx, ev)
		}
	}
}

func (s *Store) handle(ctx context.Context, ev any) {
	switch ev := ev.(type) {
	case positionEvent:
		s.applyPosition(ctx, ev.result)
	case snapshotEvent:
		s.applySnapshot(ctx, ev.snap)
	case channelErrorEvent:
		s.applyChannelError(ev.topic, ev.err)
	case routeEvent:
		s.applyRoute(ev)
	default:
		s.logger.Error().Msgf("unknown event %T", ev)
	}
}

func (s *Store) applyPosition(ctx context.Context, res position.Result) {
	if s.st.phase != PhaseLoading {
		return
	}

	switch res.Status {
	case position.StatusAcquired:
		c := res.Coordinate
		s.st.viewer = &c
		s.st.phase = PhaseReady
		s.logger.Info().Stringer("viewer", c).Msg("viewer position acquired")
		if s.st.device != nil {
			s.requestRoute(ctx)
		}
	case position.StatusDenied:
		s.st.phase = PhasePermissionDenied
		s.st.positionErr = MsgPermissionDenied
		s.logger.Warn().Err(res.Err()).Msg("viewer position denied")
	default:
		s.st.phase = PhasePositionUnavailable
		s.st.positionErr = MsgPositionUnavailable
		s.logger.Warn().Err(res.Err()).Msg("viewer position unavailable")
	}
	s.publish()
}

func (s *Store) applySnapshot(ctx context.Context, snap telemetry.Snapshot) {
	switch snap.Topic {
	case telemetry.TopicHeartRate:
		hr, err := telemetry.ParseHeartRate(snap.Payload)
		s.metrics.snapshot(string(snap.Topic), err == nil)
		if err != nil {
			s.logger.Warn().Err(err).Bytes("payload", snap.Payload).Msg("dropping heart rate")
			s.st.heartRate = nil
			s.st.channelErr = MsgInvalidHeartRate
			break
		}
		s.st.heartRate = &hr
		s.st.channelErr = ""

	case telemetry.TopicLocation:
		c, err := telemetry.ParseLocation(snap.Payload)
		s.metrics.snapshot(string(snap.Topic), err == nil)
		if err != nil {
			s.logger.Warn().Err(err).Bytes("payload", snap.Payload).Msg("dropping location")
			s.st.channelErr = MsgInvalidLocation
			break
		}
		s.st.device = &c
		s.st.channelErr = ""
		if s.st.viewer != nil {
			s.requestRoute(ctx)
		}

	default:
		s.logger.Debug().Str("topic", string(snap.Topic)).Msg("ignoring unknown topic")
		return
	}
	s.publish()
}

func (s *Store) applyChannelError(topic telemetry.Topic, err error) {
	s.metrics.channelError(string(topic))
	s.logger.Error().Err(err).Str("topic", string(topic)).Msg("telemetry channel error")

	switch topic {
	case telemetry.TopicHeartRate:
		s.st.channelErr = MsgHeartRateTransport
	case telemetry.TopicLocation:
		s.st.channelErr = MsgLocationTransport
	default:
		return
	}
	s.publish()
}

// requestRoute resolves viewer -> device off the loop goroutine.
func (s *Store) requestRoute(ctx context.Context) {
	s.st.routeSeq++
	ev := routeEvent{seq: s.st.routeSeq, start: *s.st.viewer, end: *s.st.device}

	go func() {
		rctx := ctx
		if s.routeTimeout > 0 {
			var cancel context.CancelFunc
			rctx, cancel = context.WithTimeout(ctx, s.routeTimeout)
			defer cancel()
		}
		started := time.Now()
		ev.route, ev.err = s.resolver.Resolve(rctx, ev.start, ev.end)
		ev.took = time.Since(started)
		s.post(ev)
	}()
}

func (s *Store) applyRoute(ev routeEvent) {
	log := s.logger.With().Uint64("seq", ev.seq).Logger()

	if s.discardStale && ev.seq < s.st.appliedSeq {
		s.metrics.route("stale", ev.took.Seconds())
		log.Debug().Uint64("applied", s.st.appliedSeq).Msg("discarding stale route")
		return
	}

	if ev.err != nil {
		msg := MsgRouteFailed
		outcome := "error"
		if errors.Is(ev.err, route.ErrRouteNotFound) {
			msg = MsgRouteNotFound
			outcome = "not_found"
		}
		s.metrics.route(outcome, ev.took.Seconds())
		log.Error().Err(ev.err).Stringer("start", ev.start).Stringer("end", ev.end).Msg("route resolution failed")
		s.alert(Alert{Title: AlertTitle, Message: msg, Err: ev.err, At: time.Now()})
		return
	}

	s.metrics.route("ok", ev.took.Seconds())
	s.st.route = ev.route
	if ev.seq > s.st.appliedSeq {
		s.st.appliedSeq = ev.seq
	}
	log.Debug().Int("points", len(ev.route)).Msg("route applied")
	s.publish()
}

func (s *Store) publish() {
	s.st.version++
	v := s.buildView()
	s.view.Store(&v)
	s.render(v)
}

func (s *Store) buildView() View {
	st := s.st
	v := View{
		Phase:   st.phase,
		Loading: st.phase == PhaseLoading,
		Error:   st.channelErr,
		Route:   st.route,
		Seq:     st.version,
		At:      time.Now(),
	}
	if v.Error == "" {
		v.Error = st.positionErr
	}
	if st.heartRate != nil {
		hr := *st.heartRate
		v.HeartRate = &hr
	}
	if st.viewer != nil {
		v.Viewer = &Marker{Coordinate: *st.viewer, Title: ViewerTitle}
	}
	if st.device != nil {
		v.Device = &Marker{
			Coordinate:  *st.device,
			Title:       DeviceTitle,
			Description: deviceDescription(st.heartRate),
		}
	}
	return v
}
