// Copyright 2025 The Radex Authors
// SPDX-License-Identifier: Apache-2.0

// Package communes loads the commune-level exposure table published by the
// French nuclear safety authority and answers the table questions the explorer
// asks of it: which departments exist, which rows match a selection and which
// record sits behind a given table row.
package communes

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/radex-fr/radex/spatial"
)

// Dose is an annual dose in µSv/year. NaN marks a value that was missing or
// could not be parsed.
type Dose float64

// Missing returns the missing-value marker.
func Missing() Dose {
	return Dose(math.NaN())
}

// Valid reports whether d holds a measured value.
func (d Dose) Valid() bool {
	return !math.IsNaN(float64(d)) && !math.IsInf(float64(d), 0)
}

// String formats the dose the way the table shows it: no decimals, and an
// em dash when missing.
func (d Dose) String() string {
	if !d.Valid() {
		return "—"
	}

	return strconv.FormatFloat(float64(d), 'f', 0, 64)
}

// MarshalJSON encodes missing values as null; encoding/json refuses NaN.
func (d Dose) MarshalJSON() ([]byte, error) {
	if !d.Valid() {
		return []byte("null"), nil
	}

	return json.Marshal(float64(d))
}

// UnmarshalJSON decodes null as a missing value.
func (d *Dose) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Missing()

		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}

	*d = Dose(f)

	return nil
}

// Record is one commune of the dataset.
type Record struct {
	InseeCode       string `json:"code_insee"`
	Name            string `json:"commune"`
	Department      string `json:"departement"`
	Telluric        Dose   `json:"telluric"`
	Cosmic          Dose   `json:"cosmic"`
	RadonIndividual Dose   `json:"radon_individual"`
	RadonCollective Dose   `json:"radon_collective"`
	Fallout         Dose   `json:"fallout"`
	Total           Dose   `json:"total"`
}

// Components returns the five dose components in table order.
func (r Record) Components() [5]Dose {
	return [5]Dose{r.Telluric, r.Cosmic, r.RadonIndividual, r.RadonCollective, r.Fallout}
}

// ComputeTotal sets Total to the sum of the valid components. Missing
// components count as zero, so a row with every component missing has a
// total of 0.
func (r *Record) ComputeTotal() {
	var total float64

	for _, c := range r.Components() {
		if c.Valid() {
			total += float64(c)
		}
	}

	r.Total = Dose(total)
}

// Cells returns the formatted table row, in Columns order.
func (r Record) Cells() []string {
	return []string{
		r.InseeCode,
		r.Name,
		r.Department,
		r.Telluric.String(),
		r.Cosmic.String(),
		r.RadonIndividual.String(),
		r.RadonCollective.String(),
		r.Fallout.String(),
		r.Total.String(),
	}
}

// Located is a record with the coordinate the geocoder found for it. A nil
// Point means the lookup failed or was skipped; such records stay in the
// table but are left out of the map.
type Located struct {
	Record
	Point *spatial.Point `json:"point"`
}
