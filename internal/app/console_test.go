// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relabs-tech/vital_tracker/internal/fusion"
)

func TestConsoleSink(t *testing.T) {
	var buf bytes.Buffer
	sink := newConsoleSink(&buf)

	sink.Render(fusion.View{Phase: fusion.PhaseLoading, Loading: true})
	sink.Render(readyView())
	sink.Alert(fusion.Alert{Title: fusion.AlertTitle, Message: fusion.MsgRouteNotFound})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		"[WAIT ] Fetching your location...",
		"[VIEW ] Heartbeat: 73.5 bpm | device=37.780000,-122.420000 | distance=570m | route=2 pts/570m",
		"[ALERT] Error: No route found",
	}, lines)
}

func TestConsoleSink_ErrorPrintedOnChange(t *testing.T) {
	var buf bytes.Buffer
	sink := newConsoleSink(&buf)

	denied := fusion.View{Phase: fusion.PhasePermissionDenied, Error: fusion.MsgPermissionDenied}
	sink.Render(denied)
	sink.Render(denied)

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "[ERROR] Permission to access location was denied"))
	assert.Contains(t, out, "Heartbeat: Loading... | device=waiting | route=none | map=off")
}
