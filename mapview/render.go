// Copyright 2025 The Radex Authors
// SPDX-License-Identifier: Apache-2.0

// Package mapview turns geocoded communes into the description of a Leaflet
// map: viewport, one coloured circle per commune and an optional highlighted
// commune. The browser does the actual drawing.
package mapview

import (
	"fmt"
	"math"
	"strings"

	"github.com/radex-fr/radex/communes"
	"github.com/radex-fr/radex/spatial"
	"golang.org/x/net/html"
)

// Viewport and marker defaults.
const (
	DefaultZoom   = 6
	HighlightZoom = 12
	MarkerRadius  = 8
	FillOpacity   = 0.7
)

// Marker is one commune on the map.
type Marker struct {
	InseeCode   string  `json:"code_insee"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Color       string  `json:"color"`
	Radius      int     `json:"radius"`
	FillOpacity float64 `json:"fill_opacity"`
	Tooltip     string  `json:"tooltip"`
	Popup       string  `json:"popup"` // HTML
}

// Highlight is a commune to single out, usually the selected table row.
type Highlight struct {
	Name  string
	Point spatial.Point
}

// Pin is the highlighted commune as drawn: a star marker.
type Pin struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Icon  string  `json:"icon"`
	Popup string  `json:"popup"` // HTML
}

// Map is everything the page needs to draw the map.
type Map struct {
	Center    spatial.Point `json:"center"`
	Zoom      int           `json:"zoom"`
	Markers   []Marker      `json:"markers"`
	Highlight *Pin          `json:"highlight,omitempty"`
	Min       communes.Dose `json:"min"`
	Max       communes.Dose `json:"max"`
	LowColor  string        `json:"low_color"`
	HighColor string        `json:"high_color"`
}

// Options tune rendering.
type Options struct {
	Gradient      Gradient
	Center        spatial.Point
	Zoom          int
	HighlightZoom int
}

// DefaultOptions centres on metropolitan France with the green to red
// gradient.
func DefaultOptions() Options {
	return Options{
		Gradient:      DefaultGradient,
		Center:        spatial.FranceCenter,
		Zoom:          DefaultZoom,
		HighlightZoom: HighlightZoom,
	}
}

// Render renders with DefaultOptions.
func Render(located []communes.Located, highlight *Highlight) *Map {
	return DefaultOptions().Render(located, highlight)
}

// Render builds the map. Communes without a point are skipped. Colours are
// scaled between the smallest and largest total on the map; a commune whose
// total is missing, or every commune when all totals are equal, gets the
// gradient midpoint.
func (o Options) Render(located []communes.Located, highlight *Highlight) *Map {
	m := &Map{
		Center:    o.Center,
		Zoom:      o.Zoom,
		Markers:   []Marker{},
		Min:       communes.Missing(),
		Max:       communes.Missing(),
		LowColor:  o.Gradient.Low.Hex(),
		HighColor: o.Gradient.High.Hex(),
	}

	lo, hi := math.Inf(1), math.Inf(-1)

	for _, l := range located {
		if l.Point == nil || !l.Total.Valid() {
			continue
		}

		lo = math.Min(lo, float64(l.Total))
		hi = math.Max(hi, float64(l.Total))
	}

	if lo <= hi {
		m.Min, m.Max = communes.Dose(lo), communes.Dose(hi)
	}

	for _, l := range located {
		if l.Point == nil {
			continue
		}

		color := o.Gradient.At(Normalize(float64(l.Total), lo, hi))

		m.Markers = append(m.Markers, Marker{
			InseeCode:   l.InseeCode,
			Lat:         l.Point.Lat,
			Lng:         l.Point.Lng,
			Color:       color.Hex(),
			Radius:      MarkerRadius,
			FillOpacity: FillOpacity,
			Tooltip:     Tooltip(l.Record),
			Popup:       Popup(l.Record),
		})
	}

	if highlight != nil {
		m.Highlight = &Pin{
			Lat:   highlight.Point.Lat,
			Lng:   highlight.Point.Lng,
			Icon:  "star",
			Popup: html.EscapeString(highlight.Name),
		}
		m.Center = highlight.Point
		m.Zoom = o.HighlightZoom
	}

	return m
}

// Tooltip is the one-line hover text of a commune, HTML-escaped like Popup.
func Tooltip(r communes.Record) string {
	return fmt.Sprintf("%s: %s µSv/year", html.EscapeString(r.Name), r.Total)
}

var componentLabels = [5]string{
	"Telluric",
	"Cosmic",
	"Radon (Individual)",
	"Radon (Collective)",
	"Nuclear Tests & Chernobyl",
}

// Popup is the HTML shown when a commune is clicked.
func Popup(r communes.Record) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<strong>%s</strong><br>", html.EscapeString(r.Name))
	fmt.Fprintf(&b, "Department: %s<br>", html.EscapeString(r.Department))
	fmt.Fprintf(&b, "Total Radiation: %s µSv/year<br>", r.Total)

	for i, d := range r.Components() {
		fmt.Fprintf(&b, "%s: %s µSv/year<br>", html.EscapeString(componentLabels[i]), d)
	}

	return b.String()
}
