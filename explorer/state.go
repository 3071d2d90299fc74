// Copyright 2025 The Radex Authors
// SPDX-License-Identifier: Apache-2.0

// Package explorer drives the interactive view: an explicit State, the events
// that change it, the render cycle that turns a State into a View, and the
// web server that exposes it.
package explorer

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/radex-fr/radex/communes"
)

// Dataset selects which table the explorer works on.
type Dataset string

// Datasets.
const (
	Sample Dataset = "sample"
	Full   Dataset = "full"
)

// ParseDataset parses "sample" or "full".
func ParseDataset(s string) (Dataset, error) {
	switch d := Dataset(strings.ToLower(strings.TrimSpace(s))); d {
	case Sample, Full:
		return d, nil
	default:
		return "", fmt.Errorf("unknown dataset %q, want %q or %q", s, Sample, Full)
	}
}

// Other returns the dataset the toggle switches to.
func (d Dataset) Other() Dataset {
	if d == Full {
		return Sample
	}

	return Full
}

// Batch is a geocoded set of records, kept in State under its BatchKey.
type Batch struct {
	Title    string
	Located  []communes.Located
	Warnings []string

	// Throttled counts the communes skipped because the geocoding service
	// refused requests. Such a batch is shown but not kept.
	Throttled int
}

// State is everything a session remembers between interactions.
type State struct {
	Dataset Dataset `json:"dataset"`

	// Departments is the selection, sorted and without duplicates. Empty
	// means every department.
	Departments []string `json:"departments"`

	// DepartmentsChosen is false until a selection has been made, by the
	// user or by the default applied on first render.
	DepartmentsChosen bool `json:"departments_chosen"`

	// ShowAll puts every record of the dataset on the map regardless of the
	// department selection.
	ShowAll bool `json:"show_all"`

	// SelectedRow indexes the filtered table; -1 when nothing is selected.
	SelectedRow int `json:"selected_row"`

	Batches map[string]*Batch `json:"-"`
}

// NewState returns the initial state for a new session.
func NewState(dataset Dataset) State {
	return State{
		Dataset:     dataset,
		SelectedRow: -1,
		Batches:     map[string]*Batch{},
	}
}

// Clone returns a copy sharing no mutable parts with s. Batches themselves
// are never modified once stored, so only the map is copied.
func (s State) Clone() State {
	s.Departments = slices.Clone(s.Departments)
	s.Batches = maps.Clone(s.Batches)

	if s.Batches == nil {
		s.Batches = map[string]*Batch{}
	}

	return s
}

// BatchKey names the geocoded batch the state's map needs: the whole dataset,
// or the set of selected departments.
func BatchKey(s State) string {
	if s.ShowAll || len(s.Departments) == 0 {
		return string(s.Dataset) + "/all"
	}

	return string(s.Dataset) + "/dept:" + strings.Join(s.Departments, "-")
}

// Event is a user interaction.
type Event interface {
	fmt.Stringer
	apply(s State) State
}

// ToggleDataset switches between the sample and the full dataset. Every
// choice made on the previous dataset is reset.
type ToggleDataset struct{}

// SetDepartments replaces the department selection.
type SetDepartments struct {
	Codes []string
}

// ShowAll puts the whole dataset on the map.
type ShowAll struct{}

// SelectRow highlights a row of the filtered table.
type SelectRow struct {
	Index int
}

// ClearSelection removes the highlight.
type ClearSelection struct{}

// Apply returns the state after e. s is not modified.
func Apply(s State, e Event) State {
	return e.apply(s.Clone())
}

func (ToggleDataset) apply(s State) State {
	return NewState(s.Dataset.Other())
}

func (e SetDepartments) apply(s State) State {
	codes := NormalizeDepartments(e.Codes)

	if s.DepartmentsChosen && slices.Equal(codes, s.Departments) {
		return s
	}

	// Batches of earlier selections may survive a ShowAll; drop them all.
	for key := range s.Batches {
		if strings.HasPrefix(key, string(s.Dataset)+"/dept:") {
			delete(s.Batches, key)
		}
	}

	if len(s.Departments) == 0 {
		delete(s.Batches, string(s.Dataset)+"/all")
	}

	s.Departments = codes
	s.DepartmentsChosen = true
	s.ShowAll = false
	s.SelectedRow = -1

	return s
}

func (ShowAll) apply(s State) State {
	s.ShowAll = true

	return s
}

func (e SelectRow) apply(s State) State {
	s.SelectedRow = max(e.Index, -1)

	return s
}

func (ClearSelection) apply(s State) State {
	s.SelectedRow = -1

	return s
}

func (ToggleDataset) String() string { return "toggle dataset" }

func (e SetDepartments) String() string { return "set departments " + strings.Join(e.Codes, ",") }

func (ShowAll) String() string { return "show all" }

func (e SelectRow) String() string { return fmt.Sprintf("select row %d", e.Index) }

func (ClearSelection) String() string { return "clear selection" }

// NormalizeDepartments trims, drops empty codes, sorts and deduplicates.
func NormalizeDepartments(codes []string) []string {
	out := make([]string, 0, len(codes))

	for _, c := range codes {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}

	slices.Sort(out)

	return slices.Compact(out)
}
