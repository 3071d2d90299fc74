// Copyright 2025 The Radex Authors
// SPDX-License-Identifier: Apache-2.0

package communes

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet WriteXLSX writes to.
const SheetName = "Communes"

// WriteXLSX writes records as a spreadsheet with one header row using the
// display labels. Missing doses are left as empty cells.
func WriteXLSX(w io.Writer, records []Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c.Label
	}

	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", WrapText: true},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	if err := f.SetRowStyle(SheetName, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	for i := range records {
		r := &records[i]
		row := []any{r.InseeCode, r.Name, r.Department}

		doses := r.Components()
		for _, d := range append(doses[:], r.Total) {
			if d.Valid() {
				row = append(row, float64(d))
			} else {
				row = append(row, nil)
			}
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}

		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}

	return nil
}
