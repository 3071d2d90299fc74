// Copyright 2025 The Radex Authors
// SPDX-License-Identifier: Apache-2.0

package communes

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// ErrMalformed is returned when the input can't be read as the commune table.
var ErrMalformed = errors.New("malformed commune data")

// Column describes one column of the table: the source field name in the
// published CSV, its display label and the compact header used in the UI.
type Column struct {
	Source string
	Label  string
	Short  string
}

// Columns lists the table columns in display order. Total is derived and has
// no source field.
var Columns = []Column{
	{"code_insee", "Code INSEE", "Code INSEE"},
	{"nom_commune", "Commune", "Commune"},
	{"code_departement", "Département", "Dept."},
	{"dose_rayonnements_telluriques", "Telluric Radiation (µSv/year)", "Telluric"},
	{"dose_rayonnements_cosmiques", "Cosmic Radiation (µSv/year)", "Cosmic"},
	{"dose_radon_maison_individuelle", "Radon - Individual House (µSv/year)", "Radon Indiv."},
	{"dose_radon_habitat_collectif", "Radon - Collective Housing (µSv/year)", "Radon Collect."},
	{"dose_depots_essais_atmospheriques_et_tchernobyl", "Nuclear Tests & Chernobyl (µSv/year)", "Nuclear Tests"},
	{"", "Total Radiation (µSv/year)", "Total"},
}

const (
	colInsee = iota
	colName
	colDepartment
	colTelluric
	colCosmic
	colRadonIndividual
	colRadonCollective
	colFallout
	numSourceColumns
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LoadFile reads the table from a file.
func LoadFile(path string) ([]Record, error) {
	f, err := os.Open(path) // #nosec G304 - path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	records, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	return records, nil
}

// LoadString reads the table from in-memory text.
func LoadString(s string) ([]Record, error) {
	return Load(strings.NewReader(s))
}

// Load reads a semicolon-delimited commune table. Unnamed columns produced by
// trailing delimiters are dropped, dose fields that don't parse become missing
// and every row gets its total computed.
func Load(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	data = bytes.TrimPrefix(data, utf8BOM)

	// Older exports of the dataset are Windows-1252.
	if !utf8.Valid(data) {
		data, _, err = transform.Bytes(charmap.Windows1252.NewDecoder(), data)
		if err != nil {
			return nil, fmt.Errorf("%w: decoding input: %w", ErrMalformed, err)
		}
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty input", ErrMalformed)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %w", ErrMalformed, err)
	}

	index, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	var records []Record

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}

		if isBlank(row) {
			continue
		}

		records = append(records, parseRow(row, index))
	}

	return records, nil
}

// mapHeader returns, for every source column, its position in the header or
// -1 when absent.
func mapHeader(header []string) ([numSourceColumns]int, error) {
	var index [numSourceColumns]int
	for i := range index {
		index[i] = -1
	}

	for pos, name := range header {
		name = strings.TrimSpace(name)
		if name == "" || strings.HasPrefix(name, "Unnamed") {
			continue
		}

		for col := 0; col < numSourceColumns; col++ {
			if Columns[col].Source == name {
				index[col] = pos

				break
			}
		}
	}

	for _, col := range []int{colInsee, colName, colDepartment} {
		if index[col] == -1 {
			return index, fmt.Errorf("%w: missing column %q", ErrMalformed, Columns[col].Source)
		}
	}

	return index, nil
}

func parseRow(row []string, index [numSourceColumns]int) Record {
	field := func(col int) string {
		pos := index[col]
		if pos < 0 || pos >= len(row) {
			return ""
		}

		return strings.TrimSpace(row[pos])
	}

	r := Record{
		InseeCode:       field(colInsee),
		Name:            field(colName),
		Department:      field(colDepartment),
		Telluric:        ParseDose(field(colTelluric)),
		Cosmic:          ParseDose(field(colCosmic)),
		RadonIndividual: ParseDose(field(colRadonIndividual)),
		RadonCollective: ParseDose(field(colRadonCollective)),
		Fallout:         ParseDose(field(colFallout)),
	}
	r.ComputeTotal()

	return r
}

// ParseDose parses a dose field. A French decimal comma is accepted; anything
// else that isn't a finite number is reported as missing.
func ParseDose(s string) Dose {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if s == "" {
		return Missing()
	}

	f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return Missing()
	}

	d := Dose(f)
	if !d.Valid() {
		return Missing()
	}

	return d
}

func isBlank(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}

	return true
}
