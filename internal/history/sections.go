// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package history

import (
	"fmt"
	"io"
	"time"
)

const (
	Title  = "History Overview"
	NoData = "No data available for the selected date."

	// HeaderLayout renders the selected date, e.g. "Tue Oct 01 2024".
	HeaderLayout = "Mon Jan 02 2006"
)

// Section is one collapsible group of the history view.
type Section struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Records []Record `json:"records"`
	Items   []string `json:"items"`
}

// Empty reports whether the section should show the no-data text.
func (s Section) Empty() bool {
	return len(s.Records) == 0
}

// Page is the history view for one selected date.
type Page struct {
	Date     string    `json:"date"`
	Header   string    `json:"header"`
	Sections []Section `json:"sections"`
	NoData   string    `json:"no_data"`
}

// Page filters both record sets for selected.
func (h *History) Page(selected time.Time) Page {
	return Page{
		Date:   selected.Format(DateLayout),
		Header: "Select Date: " + selected.Format(HeaderLayout),
		Sections: []Section{
			newSection("heartbeat", "Heartbeat History", Filter(h.Heartbeat, selected)),
			newSection("location", "Location History", Filter(h.Location, selected)),
		},
		NoData: NoData,
	}
}

func newSection(id, title string, records []Record) Section {
	items := make([]string, len(records))
	for i, r := range records {
		items[i] = r.Text()
	}
	return Section{ID: id, Title: title, Records: records, Items: items}
}

// WriteText prints the page as plain text.
func (p Page) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s\n%s\n", Title, p.Header); err != nil {
		return err
	}
	for _, s := range p.Sections {
		if _, err := fmt.Fprintf(w, "\n%s\n", s.Title); err != nil {
			return err
		}
		if s.Empty() {
			if _, err := fmt.Fprintf(w, "  %s\n", NoData); err != nil {
				return err
			}
			continue
		}
		for _, item := range s.Items {
			if _, err := fmt.Fprintf(w, "  %s\n", item); err != nil {
				return err
			}
		}
	}
	return nil
}
