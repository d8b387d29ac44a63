// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/vital_tracker/internal/config"
	"github.com/relabs-tech/vital_tracker/internal/fusion"
	"github.com/relabs-tech/vital_tracker/internal/history"
	"github.com/relabs-tech/vital_tracker/internal/hub"
	"github.com/relabs-tech/vital_tracker/internal/logging"
	"github.com/relabs-tech/vital_tracker/internal/telemetry"
)

type viewSource interface {
	View() fusion.View
}

type trackerServer struct {
	views   viewSource
	hub     *hub.Hub
	history *history.History
	loc     *time.Location
	logger  zerolog.Logger
}

// RunTracker serves the live view and the history over HTTP until
// interrupted.
func RunTracker(cfg *config.Config, logger zerolog.Logger) error {
	logger = logging.Component(logger, "tracker")

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	hist, err := history.LoadFile(cfg.HistoryFile, loc)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	logger.Info().Int("heartbeat", len(hist.Heartbeat)).Int("location", len(hist.Location)).Msg("history loaded")

	channel, err := telemetry.DialMQTT(mqttConfig(cfg, cfg.MQTTClientIDTracker), logging.Component(logger, "mqtt"))
	if err != nil {
		return err
	}
	defer channel.Close()

	h := hub.New(logging.Component(logger, "hub"))
	defer h.Close()

	store, err := newStore(cfg, channel, fusion.Sinks{h, logSink{logger: logger}}, logger)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	store.Start(ctx)
	defer store.Close()

	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler: newTrackerHandler(&trackerServer{
			views:   store,
			hub:     h,
			history: hist,
			loc:     loc,
			logger:  logger,
		}, cfg.WebStaticDir),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("web server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newTrackerHandler(s *trackerServer, staticDir string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/view", s.handleView)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.Handle("GET /ws", s.hub)
	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
	return mux
}

func (s *trackerServer) handleView(w http.ResponseWriter, _ *http.Request) {
	msg, err := hub.NewViewMessage(s.views.View())
	if err != nil {
		s.logger.Error().Err(err).Msg("encode view")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, msg)
}

func (s *trackerServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	selected := history.Today(s.loc)
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := history.ParseDate(raw, s.loc)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		selected = d
	}
	s.writeJSON(w, s.history.Page(selected))
}

func (s *trackerServer) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("json encode")
	}
}
