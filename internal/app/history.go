// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"io"

	"github.com/relabs-tech/vital_tracker/internal/config"
	"github.com/relabs-tech/vital_tracker/internal/history"
)

// RunHistory prints the history sections for date (YYYY-MM-DD, empty for
// today).
func RunHistory(cfg *config.Config, date string, out io.Writer) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	hist, err := history.LoadFile(cfg.HistoryFile, loc)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	selected := history.Today(loc)
	if date != "" {
		if selected, err = history.ParseDate(date, loc); err != nil {
			return err
		}
	}
	return hist.Page(selected).WriteText(out)
}
