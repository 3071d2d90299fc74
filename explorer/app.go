// Copyright 2025 The Radex Authors
// SPDX-License-Identifier: Apache-2.0

package explorer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"

	"github.com/radex-fr/radex/communes"
	"github.com/radex-fr/radex/geocoding"
	"github.com/radex-fr/radex/mapview"
	"github.com/radex-fr/radex/utils/textutils"
)

// Title is the page title.
const Title = "Exposure of the French population to ionizing radiation, 2021 results"

// maxWarnings bounds the warnings shown in a view; the rest are summarised.
const maxWarnings = 50

// AppOptions configures NewApp.
type AppOptions struct {
	// Sources maps each dataset to its CSV file.
	Sources map[Dataset]string

	// Geocoder locates communes. Wrap it in a geocoding.Cache; the app
	// relies on the cache to pace requests and avoid repeats.
	Geocoder geocoding.Geocoder

	Map mapview.Options
}

// App runs the render cycle: load, filter, geocode, render.
type App struct {
	sources  map[Dataset]string
	geocoder geocoding.Geocoder
	options  mapview.Options

	mu       sync.Mutex
	datasets map[Dataset]*dataset
}

type dataset struct {
	records []communes.Record
	notice  string
}

// NewApp creates an App.
func NewApp(opts AppOptions) *App {
	if opts.Map.Zoom == 0 {
		opts.Map = mapview.DefaultOptions()
	}

	return &App{
		sources:  opts.Sources,
		geocoder: opts.Geocoder,
		options:  opts.Map,
		datasets: map[Dataset]*dataset{},
	}
}

// Records returns the rows of d, loading them on first use. When the file
// can't be loaded the embedded fallback sample is returned along with a
// notice saying so.
func (a *App) Records(d Dataset) ([]communes.Record, string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if ds, ok := a.datasets[d]; ok {
		return ds.records, ds.notice
	}

	ds := a.load(d)
	a.datasets[d] = ds

	return ds.records, ds.notice
}

func (a *App) load(d Dataset) *dataset {
	path := a.sources[d]

	records, err := loadRecords(path)
	if err != nil {
		log.Printf("⚠️ Could not load the %s dataset: %v. Using fallback data.", d, err)

		return &dataset{
			records: communes.Fallback(),
			notice:  fmt.Sprintf("Could not load the %s dataset (%v). Showing built-in fallback data instead.", d, err),
		}
	}

	log.Printf("✅ Loaded %s communes from %s", textutils.FormatInt(int64(len(records))), path)

	ds := &dataset{records: records}
	if d == Sample {
		ds.notice = "Demo mode: showing the sample dataset. Switch to the full dataset to explore every commune."
	}

	return ds
}

func loadRecords(path string) ([]communes.Record, error) {
	if path == "" {
		return nil, errors.New("no file configured")
	}

	records, err := communes.LoadFile(path)
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%s has no rows", path)
	}

	return records, nil
}

// Geocode looks up a single commune.
func (a *App) Geocode(ctx context.Context, name, region string) (*geocoding.Result, error) {
	return a.geocoder.Geocode(ctx, name, region)
}

// table is the part of the render cycle that needs no geocoding.
type table struct {
	records     []communes.Record
	notice      string
	departments []string
	filtered    []communes.Record
	selected    *communes.Record
}

func (a *App) table(s State) (table, State) {
	var t table

	t.records, t.notice = a.Records(s.Dataset)
	t.departments = communes.Departments(t.records)

	if !s.DepartmentsChosen && len(t.departments) > 0 {
		s.Departments = slices.Clone(t.departments[:1])
		s.DepartmentsChosen = true
	}

	t.filtered = communes.Filter(t.records, s.Departments)

	if r, ok := communes.SelectRow(t.filtered, s.SelectedRow); ok {
		t.selected = &r
	} else {
		s.SelectedRow = -1
	}

	return t, s
}

// Table returns the filtered table for s, the rows an export contains.
func (a *App) Table(s State) []communes.Record {
	t, _ := a.table(s.Clone())

	return t.filtered
}

// DepartmentOption is one entry of the department selector.
type DepartmentOption struct {
	Code     string `json:"code"`
	Selected bool   `json:"selected"`
}

// Row is one table row.
type Row struct {
	Index    int      `json:"index"`
	Cells    []string `json:"cells"`
	Selected bool     `json:"selected"`
}

// View is what the page shows for a State.
type View struct {
	Title       string             `json:"title"`
	Dataset     Dataset            `json:"dataset"`
	ToggleLabel string             `json:"toggle_label"`
	MapTitle    string             `json:"map_title"`
	Info        string             `json:"info"`
	Departments []DepartmentOption `json:"departments"`
	Columns     []communes.Column  `json:"columns"`
	Rows        []Row              `json:"rows"`
	Selected    *communes.Record   `json:"selected,omitempty"`
	Map         *mapview.Map       `json:"map"`
	Notices     []string           `json:"notices"`
	Warnings    []string           `json:"warnings"`
	State       State              `json:"state"`
}

// Render runs one render cycle and returns the view along with the updated
// state: the default department selection, a dropped out-of-range row
// selection and the newly geocoded batch, if any. s is not modified.
//
// Geocoding runs to completion even if ctx is canceled; a half-geocoded batch
// would otherwise be cached as if communes had failed.
func (a *App) Render(ctx context.Context, s State) (*View, State) {
	t, s := a.table(s.Clone())
	ctx = context.WithoutCancel(ctx)

	view := &View{
		Title:       Title,
		Dataset:     s.Dataset,
		ToggleLabel: toggleLabel(s.Dataset),
		MapTitle:    mapTitle(s),
		Columns:     communes.Columns,
		Rows:        make([]Row, 0, len(t.filtered)),
		Selected:    t.selected,
		Notices:     []string{},
		Warnings:    []string{},
	}

	if t.notice != "" {
		view.Notices = append(view.Notices, t.notice)
	}

	for _, code := range t.departments {
		view.Departments = append(view.Departments, DepartmentOption{
			Code:     code,
			Selected: slices.Contains(s.Departments, code),
		})
	}

	for i, r := range t.filtered {
		view.Rows = append(view.Rows, Row{Index: i, Cells: r.Cells(), Selected: i == s.SelectedRow})
	}

	key := BatchKey(s)

	batch, ok := s.Batches[key]
	if !ok {
		onMap := t.filtered
		if s.ShowAll {
			onMap = t.records
		}

		batch = a.geocodeBatch(ctx, view.MapTitle, onMap)
		if batch.Throttled == 0 {
			s.Batches[key] = batch
		}
	}

	view.Warnings = append(view.Warnings, batch.Warnings...)

	var highlight *mapview.Highlight

	if t.selected != nil {
		res, err := a.geocoder.Geocode(ctx, t.selected.Name, t.selected.Department)
		if err != nil {
			view.Warnings = append(view.Warnings, fmt.Sprintf("Could not locate the selected commune %s: %v", t.selected.Name, err))
		} else {
			highlight = &mapview.Highlight{Name: t.selected.Name, Point: res.Point}
		}
	}

	view.Map = a.options.Render(batch.Located, highlight)
	view.Info = info(len(view.Map.Markers), view.MapTitle)
	view.Warnings = truncateWarnings(view.Warnings)
	view.State = s

	return view, s
}

func (a *App) geocodeBatch(ctx context.Context, title string, records []communes.Record) *Batch {
	batch := &Batch{
		Title:   title,
		Located: make([]communes.Located, 0, len(records)),
	}

	queries := make([]geocoding.Query, len(records))
	for i, r := range records {
		queries[i] = geocoding.Query{Name: r.Name, Region: r.Department}
	}

	log.Printf("📍 Geocoding %s communes for %s", textutils.FormatInt(int64(len(queries))), title)

	outcomes := geocoding.Batch(ctx, a.geocoder, queries, func(done, total int, q geocoding.Query, err error) {
		if geocoding.IsThrottled(err) {
			return
		}

		if err != nil {
			log.Printf("⚠️ [%d/%d] %s: %v", done, total, q.Name, err)

			return
		}

		log.Printf("[%d/%d] Geocoding: %s", done, total, q.Name)
	})

	for i, o := range outcomes {
		located := communes.Located{Record: records[i]}

		switch {
		case o.Found():
			point := o.Result.Point
			located.Point = &point
		case geocoding.IsThrottled(o.Err):
			batch.Throttled++
		default:
			batch.Warnings = append(batch.Warnings, fmt.Sprintf("Could not geocode %s: %v", o.Query, o.Err))
		}

		batch.Located = append(batch.Located, located)
	}

	if batch.Throttled > 0 {
		log.Printf("🛑 %d communes skipped for %s, the geocoding service is throttling requests", batch.Throttled, title)

		batch.Warnings = append([]string{fmt.Sprintf(
			"The geocoding service is limiting requests: %s communes were skipped and will be retried on the next refresh.",
			textutils.FormatInt(int64(batch.Throttled)),
		)}, batch.Warnings...)
	}

	return batch
}

func toggleLabel(d Dataset) string {
	if d == Sample {
		return "Switch to Full Dataset"
	}

	return "Switch to Demo Dataset"
}

func mapTitle(s State) string {
	if s.ShowAll || len(s.Departments) == 0 {
		return "All Communes"
	}

	return "Communes in Department(s): " + strings.Join(s.Departments, ", ")
}

func info(onMap int, title string) string {
	if onMap == 0 {
		return "No commune could be placed on the map for " + title
	}

	return fmt.Sprintf("Showing %s communes on the map for %s", textutils.FormatInt(int64(onMap)), title)
}

func truncateWarnings(warnings []string) []string {
	if len(warnings) <= maxWarnings {
		return warnings
	}

	more := len(warnings) - maxWarnings

	return append(warnings[:maxWarnings:maxWarnings], fmt.Sprintf("… and %d more warnings", more))
}
