// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package markers renders resolved records as map markers.
package markers

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"log"
	"os"

	"github.com/jcodagnone/mailgeo/record"
	"github.com/uber/h3-go/v4"
)

// CellResolution is the H3 resolution used to bucket markers, roughly a
// city block.
const CellResolution = 8

//go:embed templates/map.html
var defaultTemplate string

// DefaultTemplate renders a standalone Google Maps page.
var DefaultTemplate = template.Must(template.New("map").Parse(defaultTemplate))

// Marker is a point on the map.
type Marker struct {
	Name       string  `json:"name"`
	Address    string  `json:"address"`
	PostalCode string  `json:"postal_code"`
	Label      string  `json:"label,omitempty"`  // first linked label, if any
	Status     string  `json:"status,omitempty"` // last linked delivery event, if any
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Cell       string  `json:"cell"`
}

// Page is the data the map template receives.
type Page struct {
	Title   string
	APIKey  string
	Markers []Marker
}

// Build returns a marker for every record with coordinates.
func Build(records []record.Record) []Marker {
	ret := make([]Marker, 0, len(records))

	for _, r := range records {
		if r.Point == nil || r.IsFailed() {
			continue
		}

		m := Marker{
			Name:       r.Name,
			Address:    r.FormattedAddress,
			PostalCode: r.PostalCode,
			Lat:        r.Point.Lat,
			Lng:        r.Point.Lng,
		}

		if len(r.Prefix) > 0 {
			m.Label = r.Prefix[0]
		}

		if len(r.Suffix) > 0 {
			m.Status = r.Suffix[len(r.Suffix)-1]
		}

		cell, err := h3.LatLngToCell(h3.NewLatLng(r.Point.Lat, r.Point.Lng), CellResolution)
		if err != nil {
			log.Printf("computing h3 cell for %s: %v", r.Name, err)
		} else {
			m.Cell = cell.String()
		}

		ret = append(ret, m)
	}

	return ret
}

// Cells counts markers per H3 cell.
func Cells(markers []Marker) map[string]int {
	ret := map[string]int{}
	for _, m := range markers {
		if m.Cell != "" {
			ret[m.Cell]++
		}
	}

	return ret
}

// Render writes the default map page.
func Render(w io.Writer, title string, markers []Marker) error {
	return RenderPage(w, DefaultTemplate, Page{Title: title, Markers: markers})
}

// RenderPage writes page using tmpl.
func RenderPage(w io.Writer, tmpl *template.Template, page Page) error {
	if page.Markers == nil {
		page.Markers = []Marker{}
	}

	if err := tmpl.Execute(w, page); err != nil {
		return fmt.Errorf("rendering %s: %w", page.Title, err)
	}

	return nil
}

// LoadTemplate parses a custom page template. It gets a Page; the markers
// are available as {{.Markers}}.
func LoadTemplate(path string) (*template.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New("map").Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return tmpl, nil
}
