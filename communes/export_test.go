// Copyright 2025 The Radex Authors
// SPDX-License-Identifier: Apache-2.0

package communes

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteXLSX(t *testing.T) {
	records := Fallback()
	records[1].Cosmic = Missing()
	records[1].ComputeTotal()

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, records))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Code INSEE", rows[0][0])
	assert.Equal(t, "Total Radiation (µSv/year)", rows[0][len(Columns)-1])

	assert.Equal(t, []string{"92071", "Sceaux", "92", "411", "306", "1532", "1454", "9", "3712"}, rows[1])

	cosmic, err := f.GetCellValue(SheetName, "E3")
	require.NoError(t, err)
	assert.Empty(t, cosmic)

	total, err := f.GetCellValue(SheetName, "I3")
	require.NoError(t, err)
	assert.Equal(t, "3684", total)
}

func TestWriteXLSXEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
