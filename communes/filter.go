// Copyright 2025 The Radex Authors
// SPDX-License-Identifier: Apache-2.0

package communes

import (
	"slices"
)

// Departments returns the distinct department codes of records, sorted.
// Codes are compared as strings, so "2A" and "2B" land between "29" and "30".
func Departments(records []Record) []string {
	seen := make(map[string]bool)

	var departments []string

	for i := range records {
		d := records[i].Department
		if !seen[d] {
			seen[d] = true
			departments = append(departments, d)
		}
	}

	slices.Sort(departments)

	return departments
}

// Filter returns the records whose department is in departments, keeping
// their original order. An empty selection means no filter: every record is
// returned.
func Filter(records []Record, departments []string) []Record {
	if len(departments) == 0 {
		return slices.Clone(records)
	}

	wanted := make(map[string]bool, len(departments))
	for _, d := range departments {
		wanted[d] = true
	}

	filtered := make([]Record, 0, len(records))

	for i := range records {
		if wanted[records[i].Department] {
			filtered = append(filtered, records[i])
		}
	}

	return filtered
}

// SelectRow returns the record shown at row of a table listing filtered.
// The index refers to the filtered table, never to the full dataset.
func SelectRow(filtered []Record, row int) (Record, bool) {
	if row < 0 || row >= len(filtered) {
		return Record{}, false
	}

	return filtered[row], true
}
