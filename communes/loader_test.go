// Copyright 2025 The Radex Authors
// SPDX-License-Identifier: Apache-2.0

package communes

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// equateDoses treats two missing doses as equal.
var equateDoses = cmp.Comparer(func(a, b Dose) bool {
	if !a.Valid() || !b.Valid() {
		return !a.Valid() && !b.Valid()
	}

	return a == b
})

const header = "code_insee;nom_commune;code_departement;dose_rayonnements_telluriques;" +
	"dose_rayonnements_cosmiques;dose_radon_maison_individuelle;dose_radon_habitat_collectif;" +
	"dose_depots_essais_atmospheriques_et_tchernobyl;;\n"

func TestLoadSampleRows(t *testing.T) {
	records, err := LoadString(header +
		"92071;Sceaux;92;411;306;1532;1454;9;;\n" +
		"92019;Châtenay-Malabry;92;414;306;1737;1524;9;;\n")
	require.NoError(t, err)

	expected := []Record{
		{
			InseeCode:       "92071",
			Name:            "Sceaux",
			Department:      "92",
			Telluric:        411,
			Cosmic:          306,
			RadonIndividual: 1532,
			RadonCollective: 1454,
			Fallout:         9,
			Total:           3712,
		},
		{
			InseeCode:       "92019",
			Name:            "Châtenay-Malabry",
			Department:      "92",
			Telluric:        414,
			Cosmic:          306,
			RadonIndividual: 1737,
			RadonCollective: 1524,
			Fallout:         9,
			Total:           3990,
		},
	}

	if diff := cmp.Diff(expected, records, equateDoses); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadTotalIsSumOfValidComponents(t *testing.T) {
	records, err := LoadString(header +
		"01001;L'Abergement-Clémenciat;01;420;305;1201;1033;14;;\n" +
		"2A004;Ajaccio;2A;n/a;310;;1500,5;12;;\n" +
		"75056;Paris;75;;;;;;;\n" +
		"13055;Marseille;13;NaN;300;800;700;Inf;;\n")
	require.NoError(t, err)
	require.Len(t, records, 4)

	for _, r := range records {
		var sum float64

		for _, c := range r.Components() {
			if c.Valid() {
				sum += float64(c)
			}
		}

		assert.InDelta(t, sum, float64(r.Total), 1e-9, "total of %s", r.Name)
	}

	ajaccio := records[1]
	assert.False(t, ajaccio.Telluric.Valid())
	assert.False(t, ajaccio.RadonIndividual.Valid())
	assert.InDelta(t, 1500.5, float64(ajaccio.RadonCollective), 1e-9)
	assert.InDelta(t, 1822.5, float64(ajaccio.Total), 1e-9)

	paris := records[2]
	assert.True(t, paris.Total.Valid())
	assert.Zero(t, float64(paris.Total), "all components missing add up to zero")

	marseille := records[3]
	assert.False(t, marseille.Telluric.Valid())
	assert.False(t, marseille.Fallout.Valid())
	assert.InDelta(t, 1800, float64(marseille.Total), 1e-9)
}

func TestLoadToleratesLayoutNoise(t *testing.T) {
	// Indented rows, blank lines, a BOM and short rows.
	input := "\xEF\xBB\xBF" + header +
		"\n" +
		"                92071;Sceaux;92;411;306;1532;1454;9;;\n" +
		"   \n" +
		"92019;Châtenay-Malabry;92;414\n"

	records, err := LoadString(input)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "92071", records[0].InseeCode)
	assert.Equal(t, Dose(3712), records[0].Total)

	short := records[1]
	assert.Equal(t, Dose(414), short.Telluric)
	assert.False(t, short.Cosmic.Valid())
	assert.Equal(t, Dose(414), short.Total)
}

func TestLoadIgnoresUnknownAndUnnamedColumns(t *testing.T) {
	input := "Unnamed: 0;nom_commune;code_insee;extra;code_departement;dose_rayonnements_cosmiques\n" +
		"0;Sceaux;92071;foo;92;306\n"

	records, err := LoadString(input)
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "Sceaux", r.Name)
	assert.Equal(t, "92071", r.InseeCode)
	assert.Equal(t, "92", r.Department)
	assert.Equal(t, Dose(306), r.Cosmic)
	assert.False(t, r.Telluric.Valid(), "absent dose columns are missing")
	assert.Equal(t, Dose(306), r.Total)
}

func TestLoadWindows1252(t *testing.T) {
	// "Châtenay" with â encoded as 0xE2.
	input := header + "92019;Ch\xE2tenay-Malabry;92;414;306;1737;1524;9;;\n"

	records, err := LoadString(input)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Châtenay-Malabry", records[0].Name)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"missing identity column", "nom_commune;code_departement\nSceaux;92\n"},
		{"not tabular", "{\"communes\": []}"},
		{"bad quoting", header + "92071;\"Sceaux;92;411;306;1532;1454;9;;\n92019;Ch\"x;92\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadString(tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformed), "got %v", err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "communes.csv")
	require.NoError(t, os.WriteFile(path, []byte(header+"92071;Sceaux;92;411;306;1532;1454;9;;\n"), 0o600))

	records, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, records, 1)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadRepositorySample(t *testing.T) {
	records, err := LoadFile(filepath.Join("..", "data", "communes_samples.csv"))
	require.NoError(t, err)
	assert.NotEmpty(t, records)
}

func TestFallback(t *testing.T) {
	records := Fallback()
	require.Len(t, records, 2)
	assert.Equal(t, "Sceaux", records[0].Name)
	assert.Equal(t, Dose(3712), records[0].Total)
	assert.Equal(t, "Châtenay-Malabry", records[1].Name)
	assert.Equal(t, Dose(3990), records[1].Total)
}

func TestParseDose(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		valid bool
	}{
		{"411", 411, true},
		{" 1532 ", 1532, true},
		{"12,5", 12.5, true},
		{"12.5", 12.5, true},
		{"1 454", 1454, true},
		{"", 0, false},
		{"n/a", 0, false},
		{"NaN", 0, false},
		{"-Inf", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			d := ParseDose(tt.input)
			assert.Equal(t, tt.valid, d.Valid())

			if tt.valid {
				assert.InDelta(t, tt.want, float64(d), 1e-9)
			}
		})
	}
}

func TestDoseJSONAndString(t *testing.T) {
	r := Record{Name: "Sceaux", Telluric: 411, Cosmic: Missing()}

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"telluric":411`)
	assert.Contains(t, string(data), `"cosmic":null`)

	var back Record
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, Dose(411), back.Telluric)
	assert.False(t, back.Cosmic.Valid())

	assert.Equal(t, "411", Dose(411).String())
	assert.Equal(t, "3712", Dose(3711.6).String())
	assert.Equal(t, "—", Missing().String())
}

func TestCellsFollowColumns(t *testing.T) {
	records := Fallback()
	cells := records[0].Cells()

	require.Len(t, cells, len(Columns))
	assert.Equal(t, []string{"92071", "Sceaux", "92", "411", "306", "1532", "1454", "9", "3712"}, cells)
	assert.True(t, strings.HasPrefix(Columns[len(Columns)-1].Label, "Total"))
}
